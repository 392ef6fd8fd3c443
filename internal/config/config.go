// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LogConfig       `json:"log" yaml:"log"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Sync      SyncConfig      `json:"sync" yaml:"sync"`
	World     WorldConfig     `json:"world" yaml:"world"`
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket"`
	QUIC      QUICConfig      `json:"quic" yaml:"quic"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type ServerConfig struct {
	TickRate        int    `json:"tick_rate" yaml:"tick_rate"`
	CatchupMaxTicks int    `json:"catchup_max_ticks" yaml:"catchup_max_ticks"`
	Encoding        string `json:"encoding" yaml:"encoding"`
	// StatsInterval is how often metrics are logged. Zero disables it.
	StatsInterval time.Duration `json:"stats_interval" yaml:"stats_interval"`
	// Templates is an optional YAML file with extra entity templates.
	Templates string `json:"templates,omitempty" yaml:"templates,omitempty"`
}

type SyncConfig struct {
	FullSyncInterval time.Duration `json:"full_sync_interval" yaml:"full_sync_interval"`
}

type WorldConfig struct {
	Width       float64 `json:"width" yaml:"width"`
	Height      float64 `json:"height" yaml:"height"`
	Partitioner string  `json:"partitioner" yaml:"partitioner"`
	MaxDepth    int     `json:"max_depth" yaml:"max_depth"`
	MaxChildren int     `json:"max_children" yaml:"max_children"`
	CellSize    float64 `json:"cell_size" yaml:"cell_size"`
}

type WebSocketConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Addr         string        `json:"addr" yaml:"addr"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	PingInterval time.Duration `json:"ping_interval" yaml:"ping_interval"`
}

type QUICConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			TickRate:        30,
			CatchupMaxTicks: 5,
			Encoding:        "text",
			StatsInterval:   time.Minute,
		},
		Sync: SyncConfig{FullSyncInterval: 5 * time.Second},
		World: WorldConfig{
			Width:       1000,
			Height:      1000,
			Partitioner: "quadtree",
			MaxDepth:    4,
			MaxChildren: 4,
			CellSize:    150,
		},
		WebSocket: WebSocketConfig{
			Enabled:      true,
			Addr:         "127.0.0.1:8080",
			WriteTimeout: 10 * time.Second,
			PingInterval: 30 * time.Second,
		},
		QUIC: QUICConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8443",
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "open config %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, eris.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Server.TickRate <= 0:
		return eris.Wrap(ErrInvalid, "server.tick_rate must be positive")
	case c.Server.CatchupMaxTicks <= 0:
		return eris.Wrap(ErrInvalid, "server.catchup_max_ticks must be positive")
	case c.World.Width <= 0 || c.World.Height <= 0:
		return eris.Wrap(ErrInvalid, "world bounds must be positive")
	case c.Sync.FullSyncInterval < 0:
		return eris.Wrap(ErrInvalid, "sync.full_sync_interval must not be negative")
	case c.Server.StatsInterval < 0:
		return eris.Wrap(ErrInvalid, "server.stats_interval must not be negative")
	}

	switch c.Server.Encoding {
	case "text", "binary":
	default:
		return eris.Wrapf(ErrInvalid, "unknown encoding %q", c.Server.Encoding)
	}

	switch c.World.Partitioner {
	case "quadtree", "grid":
	default:
		return eris.Wrapf(ErrInvalid, "unknown partitioner %q", c.World.Partitioner)
	}

	if !c.WebSocket.Enabled && !c.QUIC.Enabled {
		return eris.Wrap(ErrInvalid, "at least one transport must be enabled")
	}
	return nil
}

// TickInterval is the wall time between two ticks.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Server.TickRate)
}
