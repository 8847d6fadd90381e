package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"privatestarving.io/internal/sim/catalogs"
	"privatestarving.io/internal/sim/world"
)

// SQLiteIndex is a secondary index over the audit journal. Writes are queued and batched
// in one goroutine; the journal stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.AuditEntry
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("indexdb pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("indexdb schema: %w", err)
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan world.AuditEntry, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			ts INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			session TEXT NOT NULL,
			player INTEGER NOT NULL,
			action TEXT NOT NULL,
			item INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			entity INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (ts, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_player_ts ON audits(player, ts);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_ts ON audits(action, ts);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session TEXT PRIMARY KEY,
			player INTEGER NOT NULL,
			nickname TEXT NOT NULL,
			joined_at INTEGER NOT NULL,
			left_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_joined ON sessions(joined_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts entries discarded because the writer fell behind.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

// Collector exposes Dropped as a counter.
func (s *SQLiteIndex) Collector() prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "privatestarving",
		Name:      "index_dropped_total",
		Help:      "Audit entries the sqlite index discarded because its writer fell behind.",
	}, func() float64 { return float64(s.Dropped()) })
}

// WriteAudit never blocks the world loop. A full queue drops the entry.
func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- entry:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// UpsertCatalogs records the raw catalog files and their digests so an index can be matched to the
// content it was recorded against.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	rows := []struct {
		name   string
		file   string
		digest string
	}{
		{"items", "items.json", cats.Items.Digest},
		{"recipes", "recipes.json", cats.Recipes.Digest},
		{"entity_types", "entity_types.json", cats.EntityTypes.Digest},
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		b, err := os.ReadFile(filepath.Join(configDir, r.file))
		if err != nil || len(b) == 0 || r.digest == "" {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(ts,seq,session,player,action,item,amount,entity,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session,player,nickname,joined_at,left_at) VALUES(?,?,?,?,NULL)`)
	closeSession, _ := s.db.Prepare(`UPDATE sessions SET left_at=? WHERE session=? AND left_at IS NULL`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertSession, closeSession} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second

		lastTs int64
		seq    int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var a world.AuditEntry
		select {
		case <-ticker.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		case e, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			a = e
		}

		begin()
		if tx == nil {
			continue
		}
		if a.Time != lastTs {
			lastTs = a.Time
			seq = 0
		}
		raw, _ := json.Marshal(a)
		ok := exec(insertAudit, a.Time, seq, a.Session, int64(a.Player), a.Action, a.Item, a.Amount, int64(a.Entity), a.Reason, string(raw))
		seq++
		if !ok {
			continue
		}
		switch a.Action {
		case world.AuditJoin:
			exec(insertSession, a.Session, int64(a.Player), a.Reason, a.Time)
		case world.AuditLeave:
			exec(closeSession, a.Time, a.Session)
		}
		if opCount >= commitEvery {
			commit()
		}
	}
}
