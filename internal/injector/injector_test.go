package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/spatial"
)

func TestInitializeServer(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	s, err := InitializeServer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Zero(t, s.Sessions().Len())
}

func TestInitializeServerRejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "chatty"

	_, err := InitializeServer(cfg)
	assert.Error(t, err)
}

func TestWorldOptions(t *testing.T) {
	cfg := config.Default().World
	cfg.Partitioner = "grid"

	opts := WorldOptions(cfg)
	assert.Equal(t, geometry.Rect(-500, -500, 1000, 1000), opts.Bounds)
	assert.Equal(t, spatial.KindGrid, opts.Partition.Kind)
	assert.Equal(t, 150.0, opts.Partition.CellSize)
}

func TestProvideTransports(t *testing.T) {
	cfg := config.Default()
	cfg.QUIC.Enabled = true

	transports, err := ProvideTransports(cfg, log.Nop())
	require.NoError(t, err)
	require.Len(t, transports, 2)
	assert.Equal(t, "websocket", transports[0].Name())
	assert.Equal(t, "quic", transports[1].Name())
}
