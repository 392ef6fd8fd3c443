package sync

import (
	"context"
	"time"

	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/pkg/encoding"
)

// Source is state that can be shipped as full snapshots or patches.
type Source interface {
	// DiffState returns the patch since the previous call and advances the baseline.
	DiffState() encoding.Data
	// FullState returns a complete snapshot and makes it the baseline.
	FullState() encoding.Data
	// Baseline returns the last snapshot handed out.
	Baseline() encoding.Data
	// Checksum hashes the baseline.
	Checksum() uint64
}

// Keys of the SyncEvent and InitialSyncEvent payloads.
const (
	KeyWorldData  = "worldData"
	KeyPlayerData = "playerData"
	KeyFull       = "full"
	KeyChecksum   = "checksum"
	KeyClientID   = "clientID"
)

// DefaultFullSyncInterval bounds how long a silently diverged consumer stays wrong.
const DefaultFullSyncInterval = 5 * time.Second

// Manager produces one SyncEvent per tick after everything else has stepped.
type Manager struct {
	bus      bus.EventBus
	world    Source
	players  Source
	interval time.Duration
	logger   log.Log

	forceFull bool
	stepID    ids.ID
	resyncID  ids.ID
	cancel    context.CancelFunc
}

func NewManager(b bus.EventBus, world, players Source, interval time.Duration, logger log.Log) *Manager {
	return &Manager{
		bus:      b,
		world:    world,
		players:  players,
		interval: interval,
		logger:   logger.With(log.String("component", "sync")),
	}
}

// Start registers the manager on the dispatcher. The first sync is a full one.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.forceFull = true
	m.stepID = m.bus.AddListener(bus.StepEvent, func(*bus.Event) error {
		m.step()
		return nil
	}, bus.PriorityLowest)
	m.resyncID = m.bus.AddListener(bus.ResyncRequestEvent, func(e *bus.Event) error {
		m.logger.Debug("Resync requested", log.String("client", e.Source))
		m.FlagFullSync()
		return nil
	})
	if m.interval > 0 {
		m.bus.Interval(ctx, m.interval, m.FlagFullSync)
	}
}

// Stop unregisters every listener registered by Start.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.stepID != ids.None {
		m.bus.RemoveListener(bus.StepEvent, m.stepID)
		m.bus.RemoveListener(bus.ResyncRequestEvent, m.resyncID)
		m.stepID, m.resyncID = ids.None, ids.None
	}
}

// FlagFullSync makes the next sync a full snapshot.
func (m *Manager) FlagFullSync() {
	m.forceFull = true
}

func (m *Manager) step() {
	data, ok := m.next()
	if !ok {
		return
	}
	m.bus.Emit(bus.NewEvent(bus.SyncEvent, data))
}

// next builds the payload of the coming SyncEvent. It reports false when there
// is nothing to send.
func (m *Manager) next() (encoding.Data, bool) {
	full := m.forceFull
	var worldData, playerData encoding.Data
	if full {
		m.forceFull = false
		m.logger.Debug("Full sync")
		worldData = m.world.FullState()
		playerData = m.players.FullState()
	} else {
		worldData = m.world.DiffState()
		playerData = m.players.DiffState()
		if len(worldData) == 0 && len(playerData) == 0 {
			return nil, false
		}
	}

	return encoding.Data{
		KeyWorldData:  worldData,
		KeyPlayerData: playerData,
		KeyFull:       full,
		KeyChecksum:   FormatChecksum(m.world.Checksum()),
	}, true
}

// InitialSync builds the first message for a new consumer: the current world
// and roster baselines.
func (m *Manager) InitialSync(client string) Message {
	m.logger.Debug("Initial sync", log.String("client", client))
	return Message{
		Type: bus.InitialSyncEvent,
		Data: encoding.Data{
			KeyWorldData:  m.world.Baseline(),
			KeyPlayerData: m.players.Baseline(),
			KeyFull:       true,
			KeyChecksum:   FormatChecksum(m.world.Checksum()),
			KeyClientID:   client,
		},
	}
}
