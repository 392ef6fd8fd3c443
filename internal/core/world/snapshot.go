package world

import (
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/pkg/encoding"
)

const (
	keyEntities    = "entities"
	keyDeleted     = "deleted"
	keyBoundingBox = "boundingBox"
	keyType        = "type"
)

// Serialize captures the world as a value tree. Marked entities are left out
// and the deletion log is reported without being consumed.
func (w *World) Serialize() encoding.Data {
	d := w.body()
	d[keyDeleted] = idList(w.deleted)
	return d
}

func (w *World) body() encoding.Data {
	entities := make(encoding.Data, len(w.entities))
	for _, e := range w.order {
		if !e.Core().IsAlive() {
			continue
		}
		entities[e.Core().id.String()] = e.Serialize()
	}
	return encoding.Data{
		keyEntities:    entities,
		keyBoundingBox: w.bounds.Serialize(),
	}
}

// DiffState returns the patch since the last DiffState or FullState and
// consumes the deletion log. Deleted ids are reported in the deleted list
// only.
func (w *World) DiffState() encoding.Data {
	patch := w.tracker.Diff(w.body())

	deleted := w.consumeDeleted()
	if len(deleted) == 0 {
		return patch
	}

	if entities, ok := encoding.Object(patch, keyEntities); ok {
		for _, id := range deleted {
			key := id.String()
			if v, present := entities[key]; present && v == nil {
				delete(entities, key)
			}
		}
		if len(entities) == 0 {
			delete(patch, keyEntities)
		}
	}
	patch[keyDeleted] = idList(deleted)
	return patch
}

// FullState returns a complete snapshot, resets the diff baseline to it and
// consumes the deletion log.
func (w *World) FullState() encoding.Data {
	body := w.body()
	w.tracker.Reset(body)

	full := encoding.Data{
		keyEntities:    body[keyEntities],
		keyBoundingBox: body[keyBoundingBox],
	}
	full[keyDeleted] = idList(w.consumeDeleted())
	return full
}

// Baseline returns a copy of the last snapshot handed out by DiffState or
// FullState, or the current state if there is none yet.
func (w *World) Baseline() encoding.Data {
	if base, ok := w.tracker.Baseline(); ok {
		return base
	}
	return w.body()
}

// Checksum hashes Baseline.
func (w *World) Checksum() uint64 {
	if _, ok := w.tracker.Baseline(); ok {
		return w.tracker.Checksum()
	}
	return sync.Checksum(w.body())
}

func (w *World) consumeDeleted() []ids.ID {
	deleted := w.deleted
	w.deleted = nil

	for _, id := range w.retired {
		w.pool.Free(id)
	}
	w.retired = w.retired[:0]
	return deleted
}

func idList(list []ids.ID) []any {
	out := make([]any, len(list))
	for i, id := range list {
		out[i] = float64(id)
	}
	return out
}

// Deserialize merges a world snapshot or patch. Unknown entities are created
// through the registered constructors, known ones are updated when they
// sync. Deletion markers and the deleted list mark entities for deletion.
func (w *World) Deserialize(d encoding.Data) {
	if entities, ok := encoding.Object(d, keyEntities); ok {
		for key, v := range entities {
			id, ok := ids.Parse(key)
			if !ok {
				w.logger.Warn("Dropping entity with malformed id", log.String("id", key))
				continue
			}
			if v == nil {
				w.markID(id)
				continue
			}
			fields, ok := v.(encoding.Data)
			if !ok || len(fields) == 0 {
				continue
			}
			w.merge(id, fields)
		}
	}

	if deleted, ok := encoding.Array(d, keyDeleted); ok {
		for _, v := range deleted {
			if f, ok := encoding.ToFloat(v); ok && f > 0 {
				w.markID(ids.ID(f))
			}
		}
	}

	if box, ok := encoding.Object(d, keyBoundingBox); ok {
		bounds := w.bounds
		bounds.Deserialize(box)
		if bounds != w.bounds {
			w.Resize(bounds)
		}
	}
}

// merge updates the entity registered under id. Fields carrying a type
// describe a new entity: if the registered one is marked for deletion or has
// another type, the id was reused and it is replaced.
func (w *World) merge(id ids.ID, fields encoding.Data) {
	typ, hasType := encoding.String(fields, keyType)
	if e, ok := w.entities[id]; ok {
		stale := hasType && (!e.Core().IsAlive() || typ != e.Core().Type())
		if !stale {
			if e.Core().DoSync {
				e.Deserialize(fields)
			}
			return
		}
		w.Remove(e)
	}

	e, ok := w.CreateEntity(typ)
	if !ok {
		w.logger.Warn("Dropping entity of unknown type", log.Uint32("id", uint32(id)), log.String("type", typ))
		return
	}
	e.Core().id = id
	e.Deserialize(fields)
	w.Add(e)
}

func (w *World) markID(id ids.ID) {
	if e, ok := w.entities[id]; ok {
		e.Core().MarkForDelete()
	}
}

// ApplySync merges the world part of a sync message. A full snapshot also
// marks every local entity it does not mention.
func (w *World) ApplySync(data any) {
	msg, ok := data.(encoding.Data)
	if !ok {
		return
	}
	worldData, ok := encoding.Object(msg, sync.KeyWorldData)
	if !ok {
		return
	}

	if full, _ := encoding.Bool(msg, sync.KeyFull); full {
		entities, _ := encoding.Object(worldData, keyEntities)
		for id, e := range w.entities {
			if _, present := entities[id.String()]; !present {
				e.Core().MarkForDelete()
			}
		}
	}
	w.Deserialize(worldData)
}
