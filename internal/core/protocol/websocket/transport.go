// Package websocket serves clients over gorilla WebSocket connections.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/sasha-s/go-deadlock"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/protocol"
)

var _ protocol.Transport = (*Transport)(nil)

// Path is the endpoint clients connect to.
const Path = "/ws"

// Config for the WebSocket transport.
type Config struct {
	Addr         string
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadLimit    int64
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		ReadLimit:    protocol.DefaultMaxFrameSize,
	}
}

// Transport upgrades HTTP requests on Path and relays messages to a Handler.
type Transport struct {
	config   Config
	logger   log.Log
	upgrader websocket.Upgrader
	peers    *protocol.Peers[*connection]
}

func New(config Config, logger log.Log) *Transport {
	return &Transport{
		config: config,
		logger: logger.With(log.String("protocol", "websocket")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: protocol.NewPeers[*connection](),
	}
}

func (t *Transport) Name() string { return "websocket" }

// Handler returns the HTTP handler serving Path and a health check.
func (t *Transport) Handler(h protocol.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, func(w http.ResponseWriter, r *http.Request) {
		t.handleUpgrade(w, r, h)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Serve listens on the configured address until ctx is done.
func (t *Transport) Serve(ctx context.Context, h protocol.Handler) error {
	server := &http.Server{
		Addr:              t.config.Addr,
		Handler:           t.Handler(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		t.peers.Each(func(_ protocol.ClientID, c *connection) { c.close() })
	}()

	t.logger.Info("WebSocket transport listening", log.String("addr", t.config.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "websocket serve")
	}
	return nil
}

func (t *Transport) Send(id protocol.ClientID, payload []byte) error {
	c, ok := t.peers.Get(id)
	if !ok {
		return eris.Wrapf(protocol.ErrClientNotFound, "send to %s", id)
	}
	return c.write(payload, t.config.WriteTimeout)
}

func (t *Transport) Close(id protocol.ClientID) error {
	c, ok := t.peers.Get(id)
	if !ok {
		return eris.Wrapf(protocol.ErrClientNotFound, "close %s", id)
	}
	c.close()
	return nil
}

// Clients is the number of open connections.
func (t *Transport) Clients() int { return t.peers.Len() }

func (t *Transport) handleUpgrade(w http.ResponseWriter, r *http.Request, h protocol.Handler) {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Error("WebSocket upgrade failed", log.Error(err))
		return
	}

	c := &connection{id: protocol.NewClientID(), ws: ws}
	if t.config.ReadLimit > 0 {
		ws.SetReadLimit(t.config.ReadLimit)
	}
	t.peers.Add(c.id, c)
	t.logger.Info("Client connected", log.String("client_id", c.id), log.String("remote_addr", ws.RemoteAddr().String()))

	h.OnConnect(c.id)
	go t.readLoop(c, h)
}

func (t *Transport) readLoop(c *connection, h protocol.Handler) {
	done := make(chan struct{})
	defer func() {
		close(done)
		t.peers.Remove(c.id)
		c.close()
		h.OnDisconnect(c.id)
		t.logger.Info("Client disconnected", log.String("client_id", c.id))
	}()

	if t.config.PingInterval > 0 {
		go t.pingLoop(c, done)
	}

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				t.logger.Warn("WebSocket read failed", log.String("client_id", c.id), log.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		h.OnMessage(c.id, data)
	}
}

func (t *Transport) pingLoop(c *connection, done <-chan struct{}) {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(t.config.WriteTimeout); err != nil {
				t.logger.Debug("Ping failed", log.String("client_id", c.id), log.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}

type connection struct {
	id      protocol.ClientID
	ws      *websocket.Conn
	writeMu deadlock.Mutex
	closed  atomic.Bool
}

// write sends payload as a text frame when it is valid UTF-8 and as a binary
// frame otherwise.
func (c *connection) write(payload []byte, timeout time.Duration) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}

	kind := websocket.BinaryMessage
	if utf8.Valid(payload) {
		kind = websocket.TextMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if timeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := c.ws.WriteMessage(kind, payload); err != nil {
		return eris.Wrap(err, "failed to write message")
	}
	return nil
}

func (c *connection) ping(timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

func (c *connection) close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.ws.Close()
}

// Dial connects to a WebSocket transport at url, for example
// "ws://127.0.0.1:8080/ws".
func Dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "dial %s", url)
	}
	return conn, nil
}
