package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/pkg/encoding"
)

// mapSource serves a mutable map through a Tracker.
type mapSource struct {
	state   encoding.Data
	tracker Tracker
}

func (s *mapSource) snapshot() encoding.Data { return Copy(s.state) }

func (s *mapSource) DiffState() encoding.Data { return s.tracker.Diff(s.snapshot()) }

func (s *mapSource) FullState() encoding.Data {
	snap := s.snapshot()
	s.tracker.Reset(snap)
	return Copy(snap)
}

func (s *mapSource) Baseline() encoding.Data {
	base, _ := s.tracker.Baseline()
	return base
}

func (s *mapSource) Checksum() uint64 { return s.tracker.Checksum() }

type syncRecorder struct {
	events []encoding.Data
}

func newManagerFixture(t *testing.T, interval time.Duration) (*bus.Dispatcher, *Manager, *mapSource, *syncRecorder) {
	t.Helper()
	d := bus.New(log.Nop())
	world := &mapSource{state: encoding.Data{"entities": encoding.Data{}}}
	players := &mapSource{state: encoding.Data{"players": encoding.Data{}}}
	m := NewManager(d, world, players, interval, log.Nop())
	m.Start(context.Background())

	rec := &syncRecorder{}
	d.AddListener(bus.SyncEvent, func(e *bus.Event) error {
		rec.events = append(rec.events, e.Data.(encoding.Data))
		return nil
	})
	return d, m, world, rec
}

func TestManagerFirstSyncIsFullThenDiffs(t *testing.T) {
	d, _, world, rec := newManagerFixture(t, 0)

	d.Step(0.1)
	require.Len(t, rec.events, 1)
	assert.Equal(t, true, rec.events[0][KeyFull])

	d.Step(0.1)
	assert.Len(t, rec.events, 1, "unchanged state must not produce a sync")

	world.state["entities"].(encoding.Data)["1"] = encoding.Data{"x": 1.0}
	d.Step(0.1)
	require.Len(t, rec.events, 2)
	last := rec.events[1]
	assert.Equal(t, false, last[KeyFull])
	assert.Equal(t, encoding.Data{"entities": encoding.Data{"1": encoding.Data{"x": 1.0}}}, last[KeyWorldData])
	assert.Equal(t, encoding.Data{}, last[KeyPlayerData])
	assert.Equal(t, FormatChecksum(world.Checksum()), last[KeyChecksum])
}

func TestManagerPeriodicFullSync(t *testing.T) {
	d, _, _, rec := newManagerFixture(t, time.Second)

	d.Step(0.5)
	d.Step(0.5)
	require.Len(t, rec.events, 2)
	assert.Equal(t, true, rec.events[1][KeyFull])
}

func TestManagerResyncRequest(t *testing.T) {
	d, _, _, rec := newManagerFixture(t, 0)
	d.Step(0.1)

	d.Emit(bus.Event{Type: bus.ResyncRequestEvent, Source: "client"})
	d.Step(0.1)
	d.Step(0.1)

	require.Len(t, rec.events, 2)
	assert.Equal(t, true, rec.events[1][KeyFull])
}

func TestManagerStop(t *testing.T) {
	d, m, _, rec := newManagerFixture(t, time.Second)
	m.Stop()
	m.Stop()

	d.Step(2)
	assert.Empty(t, rec.events)
	assert.Equal(t, 1, d.ListenerCount())
}

func TestInitialSyncCarriesBaseline(t *testing.T) {
	d, m, world, _ := newManagerFixture(t, 0)
	world.state["entities"].(encoding.Data)["7"] = encoding.Data{"x": 2.0}
	d.Step(0.1)

	msg := m.InitialSync("c1")
	assert.Equal(t, bus.InitialSyncEvent, msg.Type)
	assert.Equal(t, world.Baseline(), msg.Data[KeyWorldData])

	replica := NewReplica()
	replica.Reset(msg.Data[KeyWorldData].(encoding.Data))
	assert.True(t, replica.Matches(msg.Data[KeyChecksum].(string)))
}

func TestReplicaFollowsPatches(t *testing.T) {
	var tracker Tracker
	replica := NewReplica()

	s1 := encoding.Data{"entities": encoding.Data{"1": encoding.Data{"x": 1.0}}}
	tracker.Reset(s1)
	replica.Reset(s1)

	s2 := encoding.Data{"entities": encoding.Data{"2": encoding.Data{"x": 0.3}}}
	patch := tracker.Diff(s2)
	patch["deleted"] = []any{1.0}
	replica.Apply(patch)

	assert.True(t, replica.Matches(FormatChecksum(tracker.Checksum())))
	assert.NotContains(t, replica.State(), "deleted")
	assert.False(t, replica.Matches("0"))
	assert.True(t, replica.Matches(""))
}
