package world

import (
	"slices"

	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/spatial"
	"github.com/zeusync/arena/internal/core/sync"
	"github.com/zeusync/arena/pkg/sequence"
)

// Constructor builds a fresh, unregistered entity.
type Constructor func() Entity

// NavigationHook runs after a step that added geometry.
type NavigationHook func(w *World)

// CollisionData is carried by bus.CollisionEvent. A nil Collided means the
// world boundary.
type CollisionData struct {
	Collider Entity
	Collided Entity
}

// Options configure a World.
type Options struct {
	Bounds    geometry.Rectangle
	Partition spatial.Options
}

// DefaultBounds is a 1000 by 1000 region centered on the origin.
func DefaultBounds() geometry.Rectangle {
	return geometry.Rect(-500, -500, 1000, 1000)
}

func DefaultOptions() Options {
	return Options{
		Bounds:    DefaultBounds(),
		Partition: spatial.DefaultOptions(),
	}
}

// World owns the live entities, steps them and keeps the spatial index
// in sync. A World is not safe for concurrent use: it is driven by the
// dispatcher tick.
type World struct {
	bus    bus.EventBus
	logger log.Log
	pool   *ids.Pool

	bounds   geometry.Rectangle
	space    spatial.Partitioner[Entity]
	entities map[ids.ID]Entity
	order    []Entity
	layers   [layerCount][]Entity

	ctors      map[string]Constructor
	typeCounts map[string]int

	deleted []ids.ID
	retired []ids.ID
	tracker sync.Tracker

	geometryAdded bool
	navigate      NavigationHook

	attached []attachment
	// consumer worlds follow a producer and keep no deletion log.
	consumer bool
}

type attachment struct {
	eventType string
	id        ids.ID
}

// New creates an empty world with the built-in entity types registered.
func New(b bus.EventBus, opts Options, logger log.Log) (*World, error) {
	space, err := spatial.New[Entity](opts.Bounds, opts.Partition)
	if err != nil {
		return nil, err
	}

	w := &World{
		bus:        b,
		logger:     logger.With(log.String("component", "world")),
		pool:       ids.NewPool(),
		bounds:     opts.Bounds,
		space:      space,
		entities:   make(map[ids.ID]Entity),
		ctors:      make(map[string]Constructor),
		typeCounts: make(map[string]int),
	}

	_ = w.RegisterEntity(TypeEntity, func() Entity { return NewEntity() })
	_ = w.RegisterEntity(TypeUnit, func() Entity { return NewUnit() })
	_ = w.RegisterEntity(TypeGeometry, newGeometry)

	return w, nil
}

// SetNavigationHook installs the function run after geometry is added.
func (w *World) SetNavigationHook(hook NavigationHook) {
	w.navigate = hook
}

// Add registers e. Entities without an id get one from the world's pool.
// Adding an id that is already live, or an entity on an unknown layer, is
// ignored.
func (w *World) Add(e Entity) {
	base := e.Core()
	if !base.Layer.valid() {
		w.logger.Warn("Rejecting entity with unknown layer",
			log.String("type", base.typ), log.Uint64("layer", uint64(base.Layer)))
		return
	}
	if base.id == ids.None || (base.cleaned && base.ownsID) {
		base.id = w.pool.Generate()
		base.ownsID = true
	}
	if _, exists := w.entities[base.id]; exists {
		w.logger.Warn("Entity already registered", log.Uint32("id", uint32(base.id)), log.String("type", base.typ))
		return
	}

	base.world = w
	base.cleaned = false
	w.entities[base.id] = e
	w.order = append(w.order, e)
	w.typeCounts[base.typ]++

	if base.Layer == LayerGeometry {
		w.geometryAdded = true
	}
	if base.IsAlive() {
		w.layers[base.Layer] = append(w.layers[base.Layer], e)
		if base.IsCollidable {
			w.space.Insert(e)
		}
	}

	e.OnLoad()
	w.logger.Debug("Entity added", log.Uint32("id", uint32(base.id)), log.String("type", base.typ))
}

// Remove unregisters e and appends its id to the deletion log. It reports
// false if e is not registered.
func (w *World) Remove(e Entity) bool {
	base := e.Core()
	if cur, ok := w.entities[base.id]; !ok || cur != e {
		return false
	}

	id := base.id
	e.Cleanup()

	delete(w.entities, id)
	if i := slices.Index(w.order, e); i >= 0 {
		w.order = slices.Delete(w.order, i, i+1)
	}
	if w.typeCounts[base.typ]--; w.typeCounts[base.typ] <= 0 {
		delete(w.typeCounts, base.typ)
	}
	if !w.consumer {
		w.deleted = append(w.deleted, id)
	}

	w.logger.Debug("Entity removed", log.Uint32("id", uint32(id)), log.String("type", base.typ))
	return true
}

// RemoveID removes the entity registered under id.
func (w *World) RemoveID(id ids.ID) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	return w.Remove(e)
}

// retire queues a locally allocated id for release. Ids are handed back to
// the pool only after their deletion has been consumed by a snapshot, so a
// consumer never sees an id reused within one patch.
func (w *World) retire(id ids.ID) {
	w.retired = append(w.retired, id)
}

// Spawn builds an entity with ctor, optionally places it at pos and adds it.
func (w *World) Spawn(ctor Constructor, pos ...geometry.Vector) Entity {
	e := ctor()
	if len(pos) > 0 {
		e.Core().SetPosition(pos[0])
	}
	w.Add(e)
	return e
}

// SpawnEntity spawns a registered type.
func (w *World) SpawnEntity(typ string, pos ...geometry.Vector) (Entity, bool) {
	ctor, ok := w.constructor(typ)
	if !ok {
		return nil, false
	}
	return w.Spawn(ctor, pos...), true
}

// CreateEntity builds an unregistered entity of a registered type.
func (w *World) CreateEntity(typ string) (Entity, bool) {
	ctor, ok := w.constructor(typ)
	if !ok {
		return nil, false
	}
	return ctor(), true
}

func (w *World) constructor(typ string) (Constructor, bool) {
	ctor, ok := w.ctors[typ]
	if !ok {
		return nil, false
	}
	return func() Entity {
		e := ctor()
		e.Core().typ = typ
		return e
	}, true
}

// Entity looks up a registered entity.
func (w *World) Entity(id ids.ID) (Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Entities iterates registered, alive entities in insertion order.
func (w *World) Entities() *sequence.Iterator[Entity] {
	return sequence.From(slices.Clone(w.order)).Filter(w.visible)
}

// LayerOrdered iterates entities layer by layer as of the last rebuild.
func (w *World) LayerOrdered() *sequence.Iterator[Entity] {
	iters := make([]*sequence.Iterator[Entity], 0, layerCount)
	for _, layer := range w.layers {
		iters = append(iters, sequence.From(slices.Clone(layer)))
	}
	return sequence.Chain(iters...).Filter(w.visible)
}

// Query returns the registered, alive entities whose box intersects box.
func (w *World) Query(box geometry.Rectangle) *sequence.Iterator[Entity] {
	return sequence.From(w.space.Query(box)).Filter(w.visible)
}

// QueryPoint returns the registered, alive entities containing p.
func (w *World) QueryPoint(p geometry.Vector) *sequence.Iterator[Entity] {
	return sequence.From(w.space.QueryPoint(p)).Filter(w.visible)
}

func (w *World) visible(e Entity) bool {
	base := e.Core()
	cur, ok := w.entities[base.id]
	return ok && cur == e && base.IsAlive()
}

// EntityCount is the number of registered entities, marked ones included.
func (w *World) EntityCount() int { return len(w.entities) }

// TypeCount is the number of registered entities of typ.
func (w *World) TypeCount(typ string) int { return w.typeCounts[typ] }

func (w *World) Bounds() geometry.Rectangle { return w.bounds }

// Resize changes the world bounds and re-indexes every entity.
func (w *World) Resize(bounds geometry.Rectangle) {
	w.bounds = bounds
	w.space.Resize(bounds)
}

// Step advances the simulation by dt seconds.
func (w *World) Step(dt float64) {
	var marked []ids.ID
	for _, e := range w.order {
		if !e.Core().IsAlive() {
			marked = append(marked, e.Core().id)
		}
	}

	for _, e := range slices.Clone(w.order) {
		base := e.Core()
		if !base.IsAlive() {
			continue
		}
		e.Step(dt)
		if base.IsCollidable {
			w.confine(e)
		}
	}

	w.rebuild()
	w.collide()

	if w.geometryAdded {
		w.geometryAdded = false
		if w.navigate != nil {
			w.navigate(w)
		}
	}

	for _, id := range marked {
		w.RemoveID(id)
	}
}

// confine keeps e inside the world bounds and bounces it off the edges.
func (w *World) confine(e Entity) {
	base := e.Core()
	delta := w.bounds.ClampDelta(base.Box)
	if delta.X == 0 && delta.Y == 0 {
		return
	}
	if delta.X != 0 {
		base.Velocity.X *= -base.Bounce
	}
	if delta.Y != 0 {
		base.Velocity.Y *= -base.Bounce
	}
	base.SetPosition(base.Position.Add(delta))

	w.bus.Emit(bus.NewEvent(bus.CollisionEvent, CollisionData{Collider: e}))
	e.OnCollision(nil)
}

func (w *World) rebuild() {
	w.space.Clear()
	for i := range w.layers {
		w.layers[i] = w.layers[i][:0]
	}
	for _, e := range w.order {
		base := e.Core()
		if !base.IsAlive() || !base.Layer.valid() {
			continue
		}
		w.layers[base.Layer] = append(w.layers[base.Layer], e)
		if base.IsCollidable {
			w.space.Insert(e)
		}
	}
}

type pair struct{ a, b ids.ID }

func (w *World) collide() {
	seen := make(map[pair]struct{})
	for _, e := range slices.Clone(w.order) {
		base := e.Core()
		if !base.IsAlive() || !base.IsCollidable {
			continue
		}
		for _, other := range w.space.Query(base.Box) {
			if other == e {
				continue
			}
			ob := other.Core()
			if !base.IsAlive() || !ob.IsAlive() || !collides(base.Layer, ob.Layer) {
				continue
			}
			key := pair{min(base.id, ob.id), max(base.id, ob.id)}
			if _, done := seen[key]; done {
				continue
			}
			seen[key] = struct{}{}

			w.bus.Emit(bus.NewEvent(bus.CollisionEvent, CollisionData{Collider: e, Collided: other}))
			e.OnCollision(other)
			other.OnCollision(e)
		}
	}
}

// Attach makes the dispatcher step the world.
func (w *World) Attach() {
	w.listen(bus.StepEvent, func(event *bus.Event) error {
		data, _ := event.Data.(bus.StepData)
		w.Step(data.DT)
		return nil
	})
}

// AttachConsumer makes the world follow sync messages emitted on the
// dispatcher, in addition to stepping it.
func (w *World) AttachConsumer() {
	w.consumer = true
	w.Attach()
	apply := func(event *bus.Event) error {
		w.ApplySync(event.Data)
		return nil
	}
	w.listen(bus.SyncEvent, apply)
	w.listen(bus.InitialSyncEvent, apply)
}

// Detach removes every listener installed by Attach and AttachConsumer.
func (w *World) Detach() {
	for _, a := range w.attached {
		w.bus.RemoveListener(a.eventType, a.id)
	}
	w.attached = nil
	w.consumer = false
}

func (w *World) listen(eventType string, handler bus.EventHandler) {
	id := w.bus.AddListener(eventType, handler)
	w.attached = append(w.attached, attachment{eventType: eventType, id: id})
}
