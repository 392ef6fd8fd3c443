// Package player keeps the roster of connected players and syncs it like the world.
package player

import (
	"slices"

	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/pkg/encoding"
	"github.com/zeusync/arena/pkg/sequence"
)

const keyPlayers = "players"

// Player is one connected client.
type Player struct {
	ID        string
	Name      string
	HeroID    ids.ID
	Score     float64
	HasJoined bool
}

func (p *Player) Serialize() encoding.Data {
	return encoding.Data{
		"name":      p.Name,
		"heroID":    float64(p.HeroID),
		"score":     p.Score,
		"hasJoined": p.HasJoined,
	}
}

func (p *Player) Deserialize(d encoding.Data) {
	if v, ok := encoding.String(d, "name"); ok {
		p.Name = v
	}
	if v, ok := encoding.Float(d, "heroID"); ok {
		p.HeroID = ids.ID(v)
	}
	if v, ok := encoding.Float(d, "score"); ok {
		p.Score = v
	}
	if v, ok := encoding.Bool(d, "hasJoined"); ok {
		p.HasJoined = v
	}
}

// Roster maps client ids to players.
type Roster struct {
	players   map[string]*Player
	tracker   sync.Tracker
	bus       bus.EventBus
	listeners []ids.ID
}

func NewRoster() *Roster {
	return &Roster{players: make(map[string]*Player)}
}

// Add registers p, replacing any player with the same id.
func (r *Roster) Add(p *Player) {
	r.players[p.ID] = p
}

func (r *Roster) Remove(id string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

func (r *Roster) Get(id string) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *Roster) Len() int { return len(r.players) }

// Players iterates the roster ordered by id.
func (r *Roster) Players() *sequence.Iterator[*Player] {
	list := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b *Player) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return sequence.From(list)
}

func (r *Roster) Serialize() encoding.Data {
	players := make(encoding.Data, len(r.players))
	for id, p := range r.players {
		players[id] = p.Serialize()
	}
	return encoding.Data{keyPlayers: players}
}

// Deserialize merges a roster snapshot or patch. A nil entry removes the player.
func (r *Roster) Deserialize(d encoding.Data) {
	players, ok := encoding.Object(d, keyPlayers)
	if !ok {
		return
	}
	for id, v := range players {
		if v == nil {
			r.Remove(id)
			continue
		}
		fields, ok := v.(encoding.Data)
		if !ok {
			continue
		}
		p, ok := r.players[id]
		if !ok {
			p = &Player{ID: id}
			r.players[id] = p
		}
		p.Deserialize(fields)
	}
}

// DiffState returns the patch since the previous DiffState or FullState.
func (r *Roster) DiffState() encoding.Data {
	return r.tracker.Diff(r.Serialize())
}

// FullState returns the whole roster and makes it the diff baseline.
func (r *Roster) FullState() encoding.Data {
	full := r.Serialize()
	r.tracker.Reset(full)
	return sync.Copy(full)
}

// Baseline returns the last snapshot handed out, or the current roster.
func (r *Roster) Baseline() encoding.Data {
	if base, ok := r.tracker.Baseline(); ok {
		return base
	}
	return r.Serialize()
}

func (r *Roster) Checksum() uint64 {
	return sync.Checksum(r.Baseline())
}

// AttachConsumer makes the roster follow sync messages on b. Full snapshots
// replace the roster.
func (r *Roster) AttachConsumer(b bus.EventBus) {
	r.bus = b
	apply := func(event *bus.Event) error {
		r.ApplySync(event.Data)
		return nil
	}
	r.listeners = append(r.listeners,
		b.AddListener(bus.SyncEvent, apply),
		b.AddListener(bus.InitialSyncEvent, apply),
	)
}

func (r *Roster) Detach() {
	if r.bus == nil {
		return
	}
	r.bus.RemoveListener(bus.SyncEvent, r.listeners[0])
	r.bus.RemoveListener(bus.InitialSyncEvent, r.listeners[1])
	r.listeners, r.bus = nil, nil
}

// ApplySync merges the roster part of a sync message.
func (r *Roster) ApplySync(data any) {
	msg, ok := data.(encoding.Data)
	if !ok {
		return
	}
	playerData, ok := encoding.Object(msg, sync.KeyPlayerData)
	if !ok {
		return
	}
	if full, _ := encoding.Bool(msg, sync.KeyFull); full {
		players, _ := encoding.Object(playerData, keyPlayers)
		for id := range r.players {
			if _, present := players[id]; !present {
				delete(r.players, id)
			}
		}
	}
	r.Deserialize(playerData)
}
