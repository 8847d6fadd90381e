package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"privatestarving.io/internal/config"
	persistlog "privatestarving.io/internal/persistence/log"
	"privatestarving.io/internal/sim/catalogs"
	"privatestarving.io/internal/sim/world"
	"privatestarving.io/internal/transport/status"
	"privatestarving.io/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/server.yaml", "server config path")
		configDir  = flag.String("configs", "./configs", "catalog directory (items, recipes, entity types)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides journal_dir and index_db)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite audit index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *configPath)
		cfg = config.Defaults()
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Addr = *addr
	}
	if d := strings.TrimSpace(*dataDir); d != "" {
		cfg.JournalDir = filepath.Join(d, "journal")
		cfg.IndexDB = filepath.Join(d, "index.db")
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	w, err := world.New(cfg, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogger(log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))

	// Audit journal is always on; the sqlite index is a secondary read model.
	auditLog := persistlog.NewAuditLogger(cfg.JournalDir)
	defer auditLog.Close()
	audits := persistlog.MultiAuditLogger{auditLog}

	idx, err := openRuntimeIndex(cfg.IndexDB, cfg.DisableIndex || *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
		audits = append(audits, idx)
	}
	w.SetAuditLogger(audits)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := w.Register(reg); err != nil {
		logger.Fatalf("register world metrics: %v", err)
	}
	if idx != nil {
		reg.MustRegister(idx.Collector())
	}
	st, err := status.New(w, logger, reg)
	if err != nil {
		logger.Fatalf("status: %v", err)
	}
	wsSrv := ws.NewServer(w, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           st.Router(wsSrv.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s name=%q max_players=%d protocol=%s", srv.Addr, cfg.Name, cfg.MaxPlayers, cfg.ProtocolVersion)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-worldDone
	logger.Printf("shutdown complete")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
