package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"privatestarving.io/internal/persistence/indexdb"
	"privatestarving.io/internal/sim/catalogs"
	"privatestarving.io/internal/sim/world"
)

type runtimeIndex interface {
	world.AuditLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs) error
	Collector() prometheus.Collector
}

// openRuntimeIndex returns nil when indexing is disabled by config, flag or PS_INDEX_BACKEND.
func openRuntimeIndex(dbPath string, disable bool) (runtimeIndex, error) {
	if disable {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("PS_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported PS_INDEX_BACKEND: %s", backend)
	}
}
