package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/pkg/encoding"
)

func TestRosterBasics(t *testing.T) {
	r := NewRoster()
	r.Add(&Player{ID: "b", Name: "bob"})
	r.Add(&Player{ID: "a", Name: "alice"})

	assert.Equal(t, 2, r.Len())
	p, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alice", p.Name)

	var order []string
	r.Players().ForEach(func(p *Player) { order = append(order, p.ID) })
	assert.Equal(t, []string{"a", "b"}, order)

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	_, ok = r.Get("a")
	assert.False(t, ok)
}

func TestRosterDiffState(t *testing.T) {
	r := NewRoster()
	r.Add(&Player{ID: "a", Name: "alice", HeroID: 3})
	r.FullState()

	assert.Empty(t, r.DiffState())

	p, _ := r.Get("a")
	p.Score = 10
	r.Add(&Player{ID: "c", Name: "carol"})
	patch := r.DiffState()
	assert.Equal(t, encoding.Data{
		"players": encoding.Data{
			"a": encoding.Data{"score": 10.0},
			"c": encoding.Data{"name": "carol", "heroID": 0.0, "score": 0.0, "hasJoined": false},
		},
	}, patch)

	r.Remove("a")
	patch = r.DiffState()
	assert.Equal(t, encoding.Data{"players": encoding.Data{"a": nil}}, patch)
}

func TestRosterConsumer(t *testing.T) {
	server := NewRoster()
	server.Add(&Player{ID: "a", Name: "alice", HeroID: 1, HasJoined: true})

	d := bus.New(log.Nop())
	client := NewRoster()
	client.Add(&Player{ID: "ghost"})
	client.AttachConsumer(d)

	d.Emit(bus.NewEvent(bus.InitialSyncEvent, encoding.Data{
		sync.KeyPlayerData: server.FullState(),
		sync.KeyFull:       true,
	}))
	d.Step(0)
	assert.Equal(t, server.Serialize(), client.Serialize())

	server.Add(&Player{ID: "b", Name: "bob"})
	server.Remove("a")
	d.Emit(bus.NewEvent(bus.SyncEvent, encoding.Data{
		sync.KeyPlayerData: server.DiffState(),
		sync.KeyFull:       false,
	}))
	d.Step(0)
	assert.Equal(t, server.Serialize(), client.Serialize())
	assert.Equal(t, server.Checksum(), sync.Checksum(client.Serialize()))

	client.Detach()
	assert.Zero(t, d.ListenerCount())
}
