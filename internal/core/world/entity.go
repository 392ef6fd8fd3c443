package world

import (
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/pkg/encoding"
)

// Entity is the unit of simulation. Variants embed Base and override the
// hooks they need.
type Entity interface {
	encoding.Serializable

	Core() *Base
	BoundingBox() geometry.Rectangle
	Step(dt float64)
	// OnLoad runs when the entity is added to a world.
	OnLoad()
	// OnCollision runs once per contact. A nil other means the world boundary.
	OnCollision(other Entity)
	// Cleanup releases everything the entity owns. The world calls it on removal.
	Cleanup()
}

// Type names of the built-in variants.
const (
	TypeEntity   = "Entity"
	TypeUnit     = "Unit"
	TypeGeometry = "Geometry"
)

const (
	defaultSize   = 20
	defaultMass   = 1
	defaultBounce = 1
)

// Base carries the state shared by every entity.
type Base struct {
	id        ids.ID
	ownsID    bool
	typ       string
	world     *World
	listeners map[ids.ID]string
	cleaned   bool

	Position     geometry.Vector
	Velocity     geometry.Vector
	Acceleration geometry.Vector
	Box          geometry.Rectangle
	Layer        Layer

	IsVisible       bool
	IsCollidable    bool
	MarkedForDelete bool
	DoSync          bool

	Mass     float64
	Friction float64
	Bounce   float64
}

var _ Entity = (*Base)(nil)

// NewBase returns base state of the given type with a w by h box centered on the origin.
func NewBase(typ string, w, h float64) Base {
	return Base{
		typ:          typ,
		Box:          geometry.Centered(geometry.Vector{}, w, h),
		Layer:        LayerUnit,
		IsVisible:    true,
		IsCollidable: true,
		DoSync:       true,
		Mass:         defaultMass,
		Bounce:       defaultBounce,
	}
}

// NewEntity creates a plain entity.
func NewEntity() *Base {
	b := NewBase(TypeEntity, defaultSize, defaultSize)
	return &b
}

func (b *Base) Core() *Base { return b }

func (b *Base) ID() ids.ID { return b.id }

func (b *Base) Type() string { return b.typ }

// World returns the world the entity was added to, if any.
func (b *Base) World() *World { return b.world }

func (b *Base) BoundingBox() geometry.Rectangle { return b.Box }

// SetPosition moves the entity and keeps its box centered on it.
func (b *Base) SetPosition(p geometry.Vector) {
	b.Position = p
	b.Box.SetCenter(p)
}

// IsAlive reports whether the entity has not been marked for deletion. It does
// not depend on registry membership.
func (b *Base) IsAlive() bool { return !b.MarkedForDelete }

// MarkForDelete flags the entity. The world removes it at the end of its next step.
func (b *Base) MarkForDelete() { b.MarkedForDelete = true }

// ApplyForce changes velocity by f scaled with the inverse mass.
func (b *Base) ApplyForce(f geometry.Vector) {
	if b.Mass <= 0 {
		return
	}
	b.Velocity = b.Velocity.AddScaled(f, 1/b.Mass)
}

// Step integrates acceleration and velocity, then slows the entity down by
// Friction units per second.
func (b *Base) Step(dt float64) {
	b.Velocity = b.Velocity.AddScaled(b.Acceleration, dt)
	b.Position = b.Position.AddScaled(b.Velocity, dt)

	if b.Friction > 0 {
		if speed := b.Velocity.Len(); speed > 0 {
			slowed := max(0, speed-b.Friction*dt)
			b.Velocity = b.Velocity.Scale(slowed / speed)
		}
	}
	b.Box.SetCenter(b.Position)
}

func (b *Base) OnLoad() {}

func (b *Base) OnCollision(Entity) {}

// Listen registers a dispatcher listener owned by the entity. It is removed by
// Cleanup. Entities not yet added to a world cannot listen.
func (b *Base) Listen(eventType string, handler bus.EventHandler, priority ...bus.Priority) ids.ID {
	if b.world == nil {
		return ids.None
	}
	id := b.world.bus.AddListener(eventType, handler, priority...)
	if b.listeners == nil {
		b.listeners = make(map[ids.ID]string)
	}
	b.listeners[id] = eventType
	return id
}

// Unlisten removes a listener registered through Listen.
func (b *Base) Unlisten(id ids.ID) bool {
	typ, ok := b.listeners[id]
	if !ok || b.world == nil {
		return false
	}
	delete(b.listeners, id)
	return b.world.bus.RemoveListener(typ, id)
}

// Cleanup removes owned listeners and hands a locally allocated id back to
// the world. Only the first call has an effect.
func (b *Base) Cleanup() {
	if b.cleaned {
		return
	}
	b.cleaned = true
	if b.world == nil {
		return
	}
	for id, typ := range b.listeners {
		b.world.bus.RemoveListener(typ, id)
	}
	b.listeners = nil
	if b.ownsID {
		b.world.retire(b.id)
	}
}

func (b *Base) Serialize() encoding.Data {
	return encoding.Data{
		"type":           b.typ,
		"position":       b.Position.Serialize(),
		"velocity":       b.Velocity.Serialize(),
		"acceleration":   b.Acceleration.Serialize(),
		"boundingBox":    b.Box.Serialize(),
		"collisionLayer": float64(b.Layer),
		"isVisible":      b.IsVisible,
		"isCollidable":   b.IsCollidable,
		"doSync":         b.DoSync,
		"mass":           b.Mass,
		"friction":       b.Friction,
		"bounce":         b.Bounce,
	}
}

// Deserialize merges the fields present in d. The type tag is never changed.
func (b *Base) Deserialize(d encoding.Data) {
	if box, ok := encoding.Object(d, "boundingBox"); ok {
		b.Box.Deserialize(box)
		b.Position = b.Box.Center()
	}
	if pos, ok := encoding.Object(d, "position"); ok {
		p := b.Position
		p.Deserialize(pos)
		b.SetPosition(p)
	}
	if vel, ok := encoding.Object(d, "velocity"); ok {
		b.Velocity.Deserialize(vel)
	}
	if acc, ok := encoding.Object(d, "acceleration"); ok {
		b.Acceleration.Deserialize(acc)
	}
	if v, ok := encoding.Float(d, "collisionLayer"); ok && v >= 0 && v < float64(layerCount) {
		b.Layer = Layer(v)
	}
	if v, ok := encoding.Bool(d, "isVisible"); ok {
		b.IsVisible = v
	}
	if v, ok := encoding.Bool(d, "isCollidable"); ok {
		b.IsCollidable = v
	}
	if v, ok := encoding.Bool(d, "doSync"); ok {
		b.DoSync = v
	}
	if v, ok := encoding.Float(d, "mass"); ok {
		b.Mass = v
	}
	if v, ok := encoding.Float(d, "friction"); ok {
		b.Friction = v
	}
	if v, ok := encoding.Float(d, "bounce"); ok {
		b.Bounce = v
	}
}
