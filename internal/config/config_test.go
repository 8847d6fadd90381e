package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_players: 2\nprotocol_version: \"25\"\nattack_interval_ms: 100\n"), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxPlayers)
	assert.Equal(t, "25", cfg.ProtocolVersion)
	assert.Equal(t, 100, cfg.AttackIntervalMs)
	// untouched keys keep defaults
	assert.Equal(t, 1000, cfg.CraftUnitMs)
	assert.Len(t, cfg.StarterItems, 3)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_players: 0\n"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_players")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestListenAddrAndCleanClose(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, ":8080", cfg.ListenAddr())
	cfg.Addr = "127.0.0.1:9000"
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())

	assert.True(t, cfg.IsCleanClose(1000))
	assert.True(t, cfg.IsCleanClose(1005))
	assert.False(t, cfg.IsCleanClose(1006))
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "server.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 560, cfg.AttackIntervalMs)
	assert.Equal(t, []int{1000, 1005}, cfg.CleanCloseCodes)
}
