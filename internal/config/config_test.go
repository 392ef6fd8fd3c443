package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second/30, cfg.TickInterval())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
server:
  tick_rate: 60
  encoding: binary
sync:
  full_sync_interval: 2s
world:
  partitioner: grid
quic:
  enabled: true
  addr: 0.0.0.0:9000
`))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Server.TickRate)
	assert.Equal(t, "binary", cfg.Server.Encoding)
	assert.Equal(t, 2*time.Second, cfg.Sync.FullSyncInterval)
	assert.Equal(t, "grid", cfg.World.Partitioner)
	assert.True(t, cfg.QUIC.Enabled)
	assert.Equal(t, "0.0.0.0:9000", cfg.QUIC.Addr)

	assert.Equal(t, 1000.0, cfg.World.Width, "unset keys keep their defaults")
	assert.True(t, cfg.WebSocket.Enabled)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.Server.TickRate = 0 }},
		{"zero catchup", func(c *Config) { c.Server.CatchupMaxTicks = 0 }},
		{"negative width", func(c *Config) { c.World.Width = -1 }},
		{"unknown encoding", func(c *Config) { c.Server.Encoding = "json" }},
		{"unknown partitioner", func(c *Config) { c.World.Partitioner = "bsp" }},
		{"no transport", func(c *Config) { c.WebSocket.Enabled = false }},
		{"negative full sync", func(c *Config) { c.Sync.FullSyncInterval = -time.Second }},
		{"negative stats interval", func(c *Config) { c.Server.StatsInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.True(t, eris.Is(cfg.Validate(), ErrInvalid))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Decode(strings.NewReader("server:\n  tick_rate: -3\n"))
	assert.True(t, eris.Is(err, ErrInvalid))
}
