package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/player"
	"github.com/zeusync/arena/internal/core/protocol/websocket"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/internal/core/world"
	"github.com/zeusync/arena/internal/server"
	"github.com/zeusync/arena/pkg/encoding"
)

func startServer(t *testing.T) (*server.Server, string) {
	t.Helper()
	logger := log.Nop()

	d := bus.New(logger)
	w, err := world.New(d, world.DefaultOptions(), logger)
	require.NoError(t, err)
	roster := player.NewRoster()
	manager := sync.NewManager(d, w, roster, time.Hour, logger)
	tr := websocket.New(websocket.DefaultConfig(), logger)

	s, err := server.New(config.Default(), logger, d, w, roster, manager, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)

	srv := httptest.NewServer(tr.Handler(s.HandlerFor(tr)))
	t.Cleanup(func() {
		srv.Close()
		manager.Stop()
		cancel()
	})
	return s, "ws" + strings.TrimPrefix(srv.URL, "http") + websocket.Path
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ServerURL = url
	c, err := Dial(context.Background(), cfg, log.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// pump ticks the server and applies what the client received until cond holds.
func pump(t *testing.T, s *server.Server, c *Client, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.Tick(1.0 / 30)
		c.Step(0)
		return cond()
	}, 5*time.Second, 5*time.Millisecond)
}

func joined(c *Client) func() bool {
	return func() bool {
		_, ok := c.Player()
		return ok && c.World().TypeCount(server.HeroType) == 1
	}
}

func TestClientFollowsServer(t *testing.T) {
	s, url := startServer(t)
	c := dial(t, url)

	pump(t, s, c, joined(c))
	assert.NotEmpty(t, c.ID())
	assert.True(t, c.InSync())

	require.NoError(t, c.SetName("trinity"))
	pump(t, s, c, func() bool {
		p, ok := c.Player()
		return ok && p.Name == "trinity" && p.HasJoined
	})

	require.NoError(t, c.Input(0, 1))
	pump(t, s, c, func() bool {
		p, _ := c.Player()
		hero, ok := c.World().Entity(p.HeroID)
		return ok && hero.Core().Velocity.X > 0
	})
	assert.True(t, c.InSync())
	assert.Zero(t, c.Resyncs())
}

func TestClientResyncsOnDivergence(t *testing.T) {
	s, url := startServer(t)
	c := dial(t, url)
	pump(t, s, c, joined(c))

	c.replica.Apply(encoding.Data{"stray": 1.0})
	require.NoError(t, c.Input(0, 1))

	pump(t, s, c, func() bool { return c.Resyncs() > 0 && c.InSync() })
	assert.EqualValues(t, 1, c.Resyncs())
	_, stray := c.replica.State()["stray"]
	assert.False(t, stray)
}

func TestDialValidatesConfig(t *testing.T) {
	_, err := Dial(context.Background(), Config{}, log.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.Encoding = "xml"
	_, err = Dial(context.Background(), cfg, log.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClose(t *testing.T) {
	_, url := startServer(t)
	c := dial(t, url)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.ErrorIs(t, c.SetName("late"), ErrClientClosed)
	assert.NoError(t, c.Err())

	select {
	case <-c.Done():
	default:
		t.Fatal("reader still running after Close")
	}
}
