package worldtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"privatestarving.io/internal/config"
	"privatestarving.io/internal/protocol"
	"privatestarving.io/internal/sim/catalogs"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)
	return cats
}

func newHarness(t *testing.T, mutate func(*config.Config)) *Harness {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewHarness(t, cfg, loadCatalogs(t))
}

func binaryOps(pkts []protocol.Packet) []byte {
	var ops []byte
	for _, p := range pkts {
		if p.Binary && len(p.Data) > 0 {
			ops = append(ops, p.Data[0])
		}
	}
	return ops
}

func closed(pkts []protocol.Packet) bool {
	for _, p := range pkts {
		if p.Close {
			return true
		}
	}
	return false
}
