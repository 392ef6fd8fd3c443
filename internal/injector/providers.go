// Package injector wires the server object graph.
package injector

import (
	"github.com/google/wire"
	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/player"
	"github.com/zeusync/arena/internal/core/protocol"
	"github.com/zeusync/arena/internal/core/protocol/quic"
	"github.com/zeusync/arena/internal/core/protocol/websocket"
	"github.com/zeusync/arena/internal/core/spatial"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/internal/core/world"
	"github.com/zeusync/arena/internal/server"
)

// ServerSet provides everything server.New needs from a config.Config.
var ServerSet = wire.NewSet(
	ProvideLogger,
	ProvideDispatcher,
	ProvideWorld,
	ProvideRoster,
	ProvideSyncManager,
	ProvideTransports,
	server.New,
)

func ProvideLogger(cfg config.Config) (log.Log, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.New(level), nil
}

func ProvideDispatcher(logger log.Log) *bus.Dispatcher {
	return bus.New(logger)
}

// WorldOptions maps the world section of the config.
func WorldOptions(cfg config.WorldConfig) world.Options {
	return world.Options{
		Bounds: geometry.Centered(geometry.Vector{}, cfg.Width, cfg.Height),
		Partition: spatial.Options{
			Kind:        spatial.Kind(cfg.Partitioner),
			MaxDepth:    cfg.MaxDepth,
			MaxChildren: cfg.MaxChildren,
			CellSize:    cfg.CellSize,
		},
	}
}

func ProvideWorld(cfg config.Config, d *bus.Dispatcher, logger log.Log) (*world.World, error) {
	return world.New(d, WorldOptions(cfg.World), logger)
}

func ProvideRoster() *player.Roster {
	return player.NewRoster()
}

func ProvideSyncManager(cfg config.Config, d *bus.Dispatcher, w *world.World, r *player.Roster, logger log.Log) *sync.Manager {
	return sync.NewManager(d, w, r, cfg.Sync.FullSyncInterval, logger)
}

// ProvideTransports builds every enabled transport.
func ProvideTransports(cfg config.Config, logger log.Log) ([]protocol.Transport, error) {
	var transports []protocol.Transport

	if cfg.WebSocket.Enabled {
		wsConfig := websocket.DefaultConfig()
		wsConfig.Addr = cfg.WebSocket.Addr
		wsConfig.WriteTimeout = cfg.WebSocket.WriteTimeout
		wsConfig.PingInterval = cfg.WebSocket.PingInterval
		transports = append(transports, websocket.New(wsConfig, logger))
	}

	if cfg.QUIC.Enabled {
		quicConfig := quic.DefaultConfig()
		quicConfig.Addr = cfg.QUIC.Addr
		quicConfig.CertFile = cfg.QUIC.CertFile
		quicConfig.KeyFile = cfg.QUIC.KeyFile
		t, err := quic.New(quicConfig, logger)
		if err != nil {
			return nil, err
		}
		transports = append(transports, t)
	}

	return transports, nil
}
