// Package server runs the authoritative simulation and streams it to clients.
package server

import (
	"context"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/observability/metrics"
	"github.com/zeusync/arena/internal/core/player"
	"github.com/zeusync/arena/internal/core/protocol"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/internal/core/world"
	"github.com/zeusync/arena/pkg/concurrent"
	"github.com/zeusync/arena/pkg/encoding"
	"golang.org/x/sync/errgroup"
)

// HeroType is the entity type spawned for every player.
const HeroType = "Hero"

// maxNameLength is counted in runes.
const maxNameLength = 24

// accepted lists the event types clients may send.
var accepted = map[string]struct{}{
	bus.SetNameEvent:       {},
	bus.InputEvent:         {},
	bus.ResyncRequestEvent: {},
}

// Server owns the tick: every game state change happens inside a dispatcher
// drain. Transport goroutines only emit events.
type Server struct {
	config     config.Config
	logger     log.Log
	bus        *bus.Dispatcher
	world      *world.World
	roster     *player.Roster
	sync       *sync.Manager
	encoding   sync.Encoding
	transports []protocol.Transport
	sessions   *Sessions
	metrics    *metrics.Registry
}

func New(
	cfg config.Config,
	logger log.Log,
	dispatcher *bus.Dispatcher,
	w *world.World,
	roster *player.Roster,
	manager *sync.Manager,
	transports []protocol.Transport,
) (*Server, error) {
	enc, err := sync.ParseEncoding(cfg.Server.Encoding)
	if err != nil {
		return nil, err
	}

	if err = w.LoadDefaultTemplates(); err != nil {
		return nil, eris.Wrap(err, "default templates")
	}
	if cfg.Server.Templates != "" {
		if err = loadTemplateFile(w, cfg.Server.Templates); err != nil {
			return nil, err
		}
	}

	s := &Server{
		config:     cfg,
		logger:     logger.With(log.String("component", "server")),
		bus:        dispatcher,
		world:      w,
		roster:     roster,
		sync:       manager,
		encoding:   enc,
		transports: transports,
		sessions:   NewSessions(),
		metrics:    metrics.New(),
	}

	w.Attach()
	s.listen()
	return s, nil
}

func loadTemplateFile(w *world.World, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open templates %s", path)
	}
	defer f.Close()
	return w.LoadTemplates(f)
}

func (s *Server) listen() {
	s.bus.AddListener(bus.ConnectEvent, s.onConnect)
	s.bus.AddListener(bus.DisconnectEvent, s.onDisconnect)
	s.bus.AddListener(bus.SetNameEvent, s.onSetName)
	s.bus.AddListener(bus.InputEvent, s.onInput)
	s.bus.AddListener(bus.SyncEvent, s.onSync)
}

// Run starts the transports, the sync manager and the tick loop, and blocks
// until ctx is done or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	if len(s.transports) == 0 {
		return ErrNoTransport
	}

	g, ctx := errgroup.WithContext(ctx)

	s.sync.Start(ctx)
	defer s.sync.Stop()

	for _, t := range s.transports {
		g.Go(func() error {
			return t.Serve(ctx, s.HandlerFor(t))
		})
	}

	if s.config.Server.StatsInterval > 0 {
		s.bus.Interval(ctx, s.config.Server.StatsInterval, s.logStats)
	}

	loop := NewLoop(s.config.TickInterval(), s.config.Server.CatchupMaxTicks, s.Tick)
	g.Go(func() error {
		return loop.Run(ctx)
	})

	s.logger.Info("Server running",
		log.Int("tick_rate", s.config.Server.TickRate),
		log.String("encoding", string(s.encoding)))

	return g.Wait()
}

// Tick advances the simulation by dt seconds.
func (s *Server) Tick(dt float64) {
	start := time.Now()
	s.bus.Step(dt)

	s.metrics.Counter("ticks_total", nil).Inc()
	s.metrics.Histogram("tick_seconds", nil).Observe(time.Since(start).Seconds())
	s.metrics.Histogram("step_dt_seconds", nil).Observe(dt)
	s.metrics.Gauge("listeners", nil).Set(float64(s.bus.ListenerCount()))
	s.metrics.Gauge("entities", nil).Set(float64(s.world.EntityCount()))
	s.metrics.Gauge("sessions", nil).Set(float64(s.sessions.Len()))
}

// Sessions exposes the connected clients.
func (s *Server) Sessions() *Sessions { return s.sessions }

// Metrics exposes the server counters.
func (s *Server) Metrics() metrics.Collector { return s.metrics }

func (s *Server) logStats() {
	fields := make([]log.Field, 0, 12)
	if dt := s.metrics.Histogram("step_dt_seconds", nil).Mean(); dt > 0 {
		fields = append(fields, log.Float64("tps", 1/dt))
	}
	for _, f := range s.metrics.Export() {
		name := f.Name
		if t, ok := f.Tags["type"]; ok {
			name += "." + t
		}
		fields = append(fields, log.Float64(name, f.Value))
	}
	s.logger.Info("Server stats", fields...)
	s.metrics.Histogram("tick_seconds", nil).Reset()
	s.metrics.Histogram("step_dt_seconds", nil).Reset()
}

// HandlerFor returns the callbacks a transport reports its clients to.
func (s *Server) HandlerFor(t protocol.Transport) protocol.Handler {
	return protocol.HandlerFuncs{
		Connect: func(id protocol.ClientID) {
			s.bus.Emit(bus.Event{Type: bus.ConnectEvent, Data: t, Source: id})
		},
		Message: func(id protocol.ClientID, payload []byte) {
			s.receive(id, payload)
		},
		Disconnect: func(id protocol.ClientID) {
			s.bus.Emit(bus.Event{Type: bus.DisconnectEvent, Source: id})
		},
	}
}

func (s *Server) receive(id protocol.ClientID, payload []byte) {
	msg, err := sync.DecodeMessage(payload, s.encoding)
	if err != nil {
		s.metrics.Counter("messages_dropped_total", nil).Inc()
		s.logger.Warn("Dropping undecodable message", log.String("client_id", id), log.Error(err))
		return
	}
	if _, ok := accepted[msg.Type]; !ok {
		s.metrics.Counter("messages_dropped_total", nil).Inc()
		s.logger.Warn("Dropping message",
			log.String("client_id", id),
			log.Error(eris.Wrapf(ErrUnexpectedClient, "type %s", msg.Type)))
		return
	}
	s.metrics.Counter("messages_received_total", metrics.Tags{"type": msg.Type}).Inc()
	s.bus.Emit(bus.Event{Type: msg.Type, Data: msg.Data, Source: id})
}

func (s *Server) onConnect(event *bus.Event) error {
	t, ok := event.Data.(protocol.Transport)
	if !ok {
		return eris.New("connect event without transport")
	}

	sess := &session{id: event.Source, transport: t}
	hero, ok := s.world.SpawnEntity(HeroType, s.spawnPoint())
	if !ok {
		return eris.Wrapf(world.ErrUnknownType, "spawn %s", HeroType)
	}
	sess.heroID = hero.Core().ID()
	s.sessions.add(sess)
	s.roster.Add(&player.Player{ID: sess.id, HeroID: sess.heroID})

	if err := s.send(sess, s.sync.InitialSync(sess.id)); err != nil {
		return eris.Wrapf(err, "initial sync for %s", sess.id)
	}
	s.sessions.markReady(sess.id)

	s.logger.Info("Player joined", log.String("client_id", sess.id), log.Uint32("hero_id", uint32(sess.heroID)))
	s.bus.Emit(bus.Event{Type: bus.PlayerJoinEvent, Data: sess.id, Source: sess.id})
	return nil
}

func (s *Server) spawnPoint() geometry.Vector {
	b := s.world.Bounds()
	margin := 50.0
	w, h := max(b.Width-2*margin, 0), max(b.Height-2*margin, 0)
	return geometry.Vec(b.X+margin+rand.Float64()*w, b.Y+margin+rand.Float64()*h)
}

func (s *Server) onDisconnect(event *bus.Event) error {
	sess, ok := s.sessions.remove(event.Source)
	if !ok {
		return nil
	}
	if hero, ok := s.world.Entity(sess.heroID); ok {
		hero.Core().MarkForDelete()
	}
	s.roster.Remove(sess.id)

	s.logger.Info("Player left", log.String("client_id", sess.id))
	s.bus.Emit(bus.Event{Type: bus.PlayerLeaveEvent, Data: sess.id, Source: sess.id})
	return nil
}

func (s *Server) onSetName(event *bus.Event) error {
	p, ok := s.roster.Get(event.Source)
	if !ok {
		return nil
	}
	data, _ := event.Data.(encoding.Data)
	name, _ := encoding.String(data, "name")
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxNameLength {
		name = strings.TrimSpace(string(runes[:maxNameLength]))
	}
	if name == "" {
		return nil
	}
	p.Name = name
	p.HasJoined = true
	return nil
}

func (s *Server) onInput(event *bus.Event) error {
	sess, ok := s.sessions.get(event.Source)
	if !ok {
		return nil
	}
	e, ok := s.world.Entity(sess.heroID)
	if !ok {
		return nil
	}
	unit, ok := e.(*world.Unit)
	if !ok {
		return nil
	}

	data, _ := event.Data.(encoding.Data)
	angle, _ := encoding.Float(data, "angle")
	thrusting, _ := encoding.Float(data, "thrusting")
	unit.SetThrust(angle, thrusting)
	return nil
}

// onSync broadcasts a sync payload to every ready session. It is encoded once.
func (s *Server) onSync(event *bus.Event) error {
	data, ok := event.Data.(encoding.Data)
	if !ok {
		return nil
	}
	payload, err := sync.EncodeMessage(sync.Message{Type: bus.SyncEvent, Data: data}, s.encoding)
	if err != nil {
		return err
	}

	failed := concurrent.ParallelMute(s.sessions.ready(), func(sess *session) error {
		return sess.transport.Send(sess.id, payload)
	})
	for _, err = range failed {
		s.logger.Debug("Broadcast send failed", log.Error(err))
	}
	s.metrics.Counter("broadcasts_total", nil).Inc()
	s.metrics.Counter("send_errors_total", nil).Add(float64(len(failed)))
	return nil
}

func (s *Server) send(sess *session, msg sync.Message) error {
	payload, err := sync.EncodeMessage(msg, s.encoding)
	if err != nil {
		return err
	}
	return sess.transport.Send(sess.id, payload)
}
