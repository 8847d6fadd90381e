package indexdb

import (
	"context"
	"database/sql"
)

// SessionRow is one bound player session. LeftAt is 0 while the session is still open.
type SessionRow struct {
	Session  string `json:"session"`
	Player   uint32 `json:"player"`
	Nickname string `json:"nickname"`
	JoinedAt int64  `json:"joined_at"`
	LeftAt   int64  `json:"left_at,omitempty"`
}

type AuditRow struct {
	Ts      int64  `json:"ts"`
	Seq     int    `json:"seq"`
	Session string `json:"session,omitempty"`
	Player  uint32 `json:"player,omitempty"`
	Action  string `json:"action"`
	Item    int    `json:"item,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	Entity  uint32 `json:"entity,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type CatalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

func (s *SQLiteIndex) RecentSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session,player,nickname,joined_at,COALESCE(left_at,0) FROM sessions ORDER BY joined_at DESC, session LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.Session, &r.Player, &r.Nickname, &r.JoinedAt, &r.LeftAt); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentAudits returns the newest entries first. An empty action matches every action.
func (s *SQLiteIndex) RecentAudits(ctx context.Context, action string, limit int) ([]AuditRow, error) {
	const q = `SELECT ts,seq,session,player,action,item,amount,entity,COALESCE(reason,'') FROM audits
		WHERE (? = '' OR action = ?) ORDER BY ts DESC, seq DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, action, action, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanAudits(rows)
}

// PlayerAudits returns one player's trail, oldest first.
func (s *SQLiteIndex) PlayerAudits(ctx context.Context, player uint32, limit int) ([]AuditRow, error) {
	const q = `SELECT ts,seq,session,player,action,item,amount,entity,COALESCE(reason,'') FROM audits
		WHERE player = ? ORDER BY ts, seq LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, int64(player), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanAudits(rows)
}

func (s *SQLiteIndex) Catalogs(ctx context.Context) ([]CatalogRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CatalogRow
	for rows.Next() {
		var r CatalogRow
		if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanAudits(rows *sql.Rows) ([]AuditRow, error) {
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.Ts, &r.Seq, &r.Session, &r.Player, &r.Action, &r.Item, &r.Amount, &r.Entity, &r.Reason); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func clampLimit(n int) int {
	if n <= 0 {
		return 20
	}
	if n > 10000 {
		return 10000
	}
	return n
}
