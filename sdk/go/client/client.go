// Package client provides a Go SDK for arena servers. It keeps a local
// consumer copy of the world and roster and verifies it against the server's
// checksums.
package client

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/sasha-s/go-deadlock"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/player"
	"github.com/zeusync/arena/internal/core/protocol/websocket"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/internal/core/world"
	"github.com/zeusync/arena/pkg/encoding"
)

// ServerSource is the Source of every event received from the server.
const ServerSource = "server"

// Config holds configuration for the client
type Config struct {
	ServerURL      string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	Encoding       sync.Encoding
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:      "ws://127.0.0.1:8080" + websocket.Path,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   5 * time.Second,
		Encoding:       sync.EncodingText,
	}
}

// Client is a connection to an arena server. Received messages are queued on
// a local dispatcher and applied to the local world and roster by Step.
type Client struct {
	config Config
	logger log.Log
	conn   *gws.Conn

	bus     *bus.Dispatcher
	world   *world.World
	roster  *player.Roster
	replica *sync.Replica

	id            atomic.Value
	lastChecksum  string
	resyncPending bool
	resyncs       atomic.Int64

	writeMu deadlock.Mutex
	closed  atomic.Bool
	done    chan struct{}
	err     atomic.Pointer[error]
}

// Dial connects to the server described by config.
func Dial(ctx context.Context, config Config, logger log.Log) (*Client, error) {
	if config.ServerURL == "" {
		return nil, eris.Wrap(ErrInvalidConfig, "empty server url")
	}
	if config.Encoding == "" {
		config.Encoding = sync.EncodingText
	}
	if _, err := sync.ParseEncoding(string(config.Encoding)); err != nil {
		return nil, eris.Wrap(ErrInvalidConfig, err.Error())
	}

	d := bus.New(logger)
	w, err := world.New(d, world.DefaultOptions(), logger)
	if err != nil {
		return nil, err
	}
	if err = w.LoadDefaultTemplates(); err != nil {
		return nil, err
	}
	roster := player.NewRoster()

	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}
	conn, err := websocket.Dial(ctx, config.ServerURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:  config,
		logger:  logger.With(log.String("server", config.ServerURL)),
		conn:    conn,
		bus:     d,
		world:   w,
		roster:  roster,
		replica: sync.NewReplica(),
		done:    make(chan struct{}),
	}
	c.id.Store("")

	d.AddListener(bus.InitialSyncEvent, c.verify, bus.PriorityHigh)
	d.AddListener(bus.SyncEvent, c.verify, bus.PriorityHigh)
	w.AttachConsumer()
	roster.AttachConsumer(d)

	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.err.Store(&err)
				c.logger.Warn("Connection lost", log.Error(err))
			}
			return
		}
		msg, err := sync.DecodeMessage(payload, c.config.Encoding)
		if err != nil {
			c.logger.Warn("Dropping undecodable message", log.Error(err))
			continue
		}
		c.bus.Emit(bus.Event{Type: msg.Type, Data: msg.Data, Source: ServerSource})
	}
}

// verify keeps the replica in step with the server and asks for a full sync
// once whenever its checksum disagrees.
func (c *Client) verify(e *bus.Event) error {
	data, ok := e.Data.(encoding.Data)
	if !ok {
		return nil
	}
	if id, ok := encoding.String(data, sync.KeyClientID); ok {
		c.id.Store(id)
	}

	worldData, _ := encoding.Object(data, sync.KeyWorldData)
	if full, _ := encoding.Bool(data, sync.KeyFull); full {
		c.replica.Reset(worldData)
		c.resyncPending = false
	} else if worldData != nil {
		c.replica.Apply(worldData)
	}

	sum, _ := encoding.String(data, sync.KeyChecksum)
	c.lastChecksum = sum
	if c.replica.Matches(sum) || c.resyncPending {
		return nil
	}
	c.logger.Warn("Checksum mismatch, requesting resync", log.String("checksum", sum))
	c.resyncPending = true
	c.resyncs.Add(1)
	return c.RequestResync()
}

// Step applies everything received since the previous call and advances the
// local world by dt seconds.
func (c *Client) Step(dt float64) {
	c.bus.Step(dt)
}

// Send writes a message to the server.
func (c *Client) Send(typ string, data encoding.Data) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	payload, err := sync.EncodeMessage(sync.Message{Type: typ, Data: data}, c.config.Encoding)
	if err != nil {
		return err
	}

	kind := gws.TextMessage
	if c.config.Encoding == sync.EncodingBinary {
		kind = gws.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	return eris.Wrap(c.conn.WriteMessage(kind, payload), "write message")
}

// SetName sets the player's display name and joins the game.
func (c *Client) SetName(name string) error {
	return c.Send(bus.SetNameEvent, encoding.Data{"name": name})
}

// Input steers the player's hero. Thrusting is clamped to [0,1] by the server.
func (c *Client) Input(angle, thrusting float64) error {
	return c.Send(bus.InputEvent, encoding.Data{"angle": angle, "thrusting": thrusting})
}

// RequestResync asks the server to send a full snapshot.
func (c *Client) RequestResync() error {
	return c.Send(bus.ResyncRequestEvent, encoding.Data{})
}

// ID returns the client id assigned by the server, or "" before the initial
// sync has been applied.
func (c *Client) ID() string {
	return c.id.Load().(string)
}

// Player returns the local player, if the roster already knows it.
func (c *Client) Player() (*player.Player, bool) {
	id := c.ID()
	if id == "" {
		return nil, false
	}
	return c.roster.Get(id)
}

// InSync reports whether the last applied message matched the server's
// checksum. It is only meaningful from the goroutine calling Step.
func (c *Client) InSync() bool {
	return !c.resyncPending && c.replica.Matches(c.lastChecksum)
}

// Resyncs returns how many times a checksum mismatch triggered a resync.
func (c *Client) Resyncs() int64 {
	return c.resyncs.Load()
}

func (c *Client) World() *world.World {
	return c.world
}

func (c *Client) Roster() *player.Roster {
	return c.roster
}

func (c *Client) Bus() *bus.Dispatcher {
	return c.bus
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	if err := c.err.Load(); err != nil {
		return *err
	}
	return nil
}

// Close sends a close frame and waits for the reader to stop.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.writeMu.Lock()
	err := c.conn.WriteControl(gws.CloseMessage,
		gws.FormatCloseMessage(gws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()

	closeErr := c.conn.Close()
	<-c.done
	if err != nil && !errors.Is(err, gws.ErrCloseSent) {
		return eris.Wrap(err, "close")
	}
	return closeErr
}
