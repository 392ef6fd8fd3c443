// Package quic serves clients over QUIC. Each client opens one bidirectional
// stream carrying length-prefixed frames.
package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rotisserie/eris"
	"github.com/sasha-s/go-deadlock"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/protocol"
)

var _ protocol.Transport = (*Transport)(nil)

// Config for the QUIC transport. Without a certificate a self-signed one is
// generated.
type Config struct {
	Addr         string
	CertFile     string
	KeyFile      string
	MaxFrameSize int
	IdleTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8443",
		MaxFrameSize: protocol.DefaultMaxFrameSize,
		IdleTimeout:  30 * time.Second,
	}
}

func quicConfig(c Config) *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  c.IdleTimeout,
		KeepAlivePeriod: c.IdleTimeout / 2,
	}
}

type Transport struct {
	config   Config
	logger   log.Log
	tls      *tls.Config
	peers    *protocol.Peers[*connection]
	listener *quic.Listener
}

func New(config Config, logger log.Log) (*Transport, error) {
	tlsConf, err := serverTLS(config.CertFile, config.KeyFile)
	if err != nil {
		return nil, err
	}
	return &Transport{
		config: config,
		logger: logger.With(log.String("protocol", "quic")),
		tls:    tlsConf,
		peers:  protocol.NewPeers[*connection](),
	}, nil
}

func (t *Transport) Name() string { return "quic" }

// Listen binds the UDP socket. Serve calls it when it was not called before.
func (t *Transport) Listen() (net.Addr, error) {
	if t.listener != nil {
		return t.listener.Addr(), nil
	}
	listener, err := quic.ListenAddr(t.config.Addr, t.tls, quicConfig(t.config))
	if err != nil {
		return nil, eris.Wrapf(err, "listen on %s", t.config.Addr)
	}
	t.listener = listener
	t.logger.Info("QUIC transport listening", log.String("addr", listener.Addr().String()))
	return listener.Addr(), nil
}

func (t *Transport) Serve(ctx context.Context, h protocol.Handler) error {
	if _, err := t.Listen(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = t.listener.Close()
	}()

	for {
		conn, err := t.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return eris.Wrap(err, "accept QUIC connection")
		}
		go t.handle(ctx, conn, h)
	}
}

func (t *Transport) handle(ctx context.Context, conn *quic.Conn, h protocol.Handler) {
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		t.logger.Warn("No stream opened by client", log.String("remote_addr", conn.RemoteAddr().String()), log.Error(err))
		_ = conn.CloseWithError(0, "no stream")
		return
	}

	c := &connection{id: protocol.NewClientID(), conn: conn, stream: stream}
	t.peers.Add(c.id, c)
	t.logger.Info("Client connected", log.String("client_id", c.id), log.String("remote_addr", conn.RemoteAddr().String()))
	h.OnConnect(c.id)

	defer func() {
		t.peers.Remove(c.id)
		c.close()
		h.OnDisconnect(c.id)
		t.logger.Info("Client disconnected", log.String("client_id", c.id))
	}()

	for {
		payload, err := protocol.ReadFrame(stream, t.config.MaxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				t.logger.Debug("QUIC read ended", log.String("client_id", c.id), log.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}
		h.OnMessage(c.id, payload)
	}
}

func (t *Transport) Send(id protocol.ClientID, payload []byte) error {
	c, ok := t.peers.Get(id)
	if !ok {
		return eris.Wrapf(protocol.ErrClientNotFound, "send to %s", id)
	}
	return c.write(payload)
}

func (t *Transport) Close(id protocol.ClientID) error {
	c, ok := t.peers.Get(id)
	if !ok {
		return eris.Wrapf(protocol.ErrClientNotFound, "close %s", id)
	}
	c.close()
	return nil
}

func (t *Transport) Clients() int { return t.peers.Len() }

type connection struct {
	id      protocol.ClientID
	conn    *quic.Conn
	stream  *quic.Stream
	writeMu deadlock.Mutex
	closed  bool
}

func (c *connection) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return protocol.ErrConnectionClosed
	}
	return protocol.WriteFrame(c.stream, payload)
}

func (c *connection) close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.stream.Close()
	_ = c.conn.CloseWithError(0, "closed")
}

// Client is the dialing side of a QUIC transport connection.
type Client struct {
	conn    *quic.Conn
	stream  *quic.Stream
	max     int
	writeMu deadlock.Mutex
}

// Dial connects to addr and opens the message stream.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, err := quic.DialAddr(ctx, addr, clientTLS(), quicConfig(DefaultConfig()))
	if err != nil {
		return nil, eris.Wrapf(err, "dial %s", addr)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, eris.Wrap(err, "open stream")
	}

	c := &Client{conn: conn, stream: stream, max: protocol.DefaultMaxFrameSize}
	// The server only sees the stream once data arrives on it.
	if err = c.Send(nil); err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, err
	}
	return c, nil
}

func (c *Client) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.stream, payload)
}

func (c *Client) Receive() ([]byte, error) {
	return protocol.ReadFrame(c.stream, c.max)
}

func (c *Client) Close() error {
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "bye")
}
