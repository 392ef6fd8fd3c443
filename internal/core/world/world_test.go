package world

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/spatial"
	"github.com/zeusync/arena/pkg/encoding"
)

type sensor struct {
	Base
	hits     []Entity
	loaded   int
	listener ids.ID
}

func newSensor() *sensor {
	return &sensor{Base: NewBase("Sensor", 20, 20)}
}

func (s *sensor) OnLoad() {
	s.loaded++
	s.listener = s.Listen(bus.InputEvent, func(*bus.Event) error { return nil })
}

func (s *sensor) OnCollision(other Entity) {
	s.hits = append(s.hits, other)
}

func newWorld(t *testing.T, d *bus.Dispatcher) *World {
	t.Helper()
	w, err := New(d, DefaultOptions(), log.Nop())
	require.NoError(t, err)
	return w
}

func TestQueryAfterDeletion(t *testing.T) {
	d := bus.New(log.Nop())
	w := newWorld(t, d)

	a := w.Spawn(func() Entity { return NewEntity() }, geometry.Vec(0, 0))
	b := w.Spawn(func() Entity { return NewEntity() }, geometry.Vec(100, 0))
	area := geometry.Rect(-50, -50, 200, 100)

	assert.ElementsMatch(t, []Entity{a, b}, w.Query(area).Collect())

	a.Core().MarkForDelete()
	assert.Equal(t, []Entity{b}, w.Query(area).Collect(), "marked entities are never returned")

	w.Step(0)
	assert.Equal(t, []Entity{b}, w.Query(area).Collect())
	assert.Equal(t, 1, w.EntityCount())
	_, ok := w.Entity(a.Core().ID())
	assert.False(t, ok)
}

func TestQueryWithGrid(t *testing.T) {
	opts := DefaultOptions()
	opts.Partition.Kind = spatial.KindGrid
	w, err := New(bus.New(log.Nop()), opts, log.Nop())
	require.NoError(t, err)

	e := w.Spawn(func() Entity { return NewEntity() }, geometry.Vec(10, 10))
	w.Step(0)

	got := w.QueryPoint(geometry.Vec(10, 10)).Collect()
	assert.Equal(t, []Entity{e}, got)
	assert.Empty(t, w.QueryPoint(geometry.Vec(300, 300)).Collect())
}

func TestBoundaryBounce(t *testing.T) {
	d := bus.New(log.Nop())
	opts := DefaultOptions()
	opts.Bounds = geometry.Rect(-100, -100, 200, 200)
	w, err := New(d, opts, log.Nop())
	require.NoError(t, err)
	w.Attach()

	var contacts []CollisionData
	d.AddListener(bus.CollisionEvent, func(e *bus.Event) error {
		contacts = append(contacts, e.Data.(CollisionData))
		return nil
	})

	p := newSensor()
	p.Bounce = 0.5
	p.SetPosition(geometry.Vec(85, 0))
	p.Velocity = geometry.Vec(100, 0)
	w.Add(p)

	d.Step(0.1)

	assert.InDelta(t, 90, p.Position.X, 1e-9)
	assert.InDelta(t, -50, p.Velocity.X, 1e-9)
	assert.InDelta(t, 0, p.Velocity.Y, 1e-9)
	assert.True(t, opts.Bounds.Contains(p.Box))

	require.Len(t, contacts, 1)
	assert.Equal(t, Entity(p), contacts[0].Collider)
	assert.Nil(t, contacts[0].Collided)
	require.Len(t, p.hits, 1)
	assert.Nil(t, p.hits[0])
}

func TestCollisionOncePerPair(t *testing.T) {
	d := bus.New(log.Nop())
	w := newWorld(t, d)

	var events int
	d.AddListener(bus.CollisionEvent, func(*bus.Event) error {
		events++
		return nil
	})

	a, b := newSensor(), newSensor()
	a.SetPosition(geometry.Vec(0, 0))
	b.SetPosition(geometry.Vec(10, 0))
	w.Add(a)
	w.Add(b)

	w.Step(0)
	d.Step(0)

	assert.Equal(t, 1, events)
	assert.Equal(t, []Entity{b}, a.hits)
	assert.Equal(t, []Entity{a}, b.hits)
}

func TestWallsDoNotCollideWithEachOther(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))

	g1 := NewGeometry(geometry.Rect(0, 0, 50, 50))
	g2 := NewGeometry(geometry.Rect(25, 0, 50, 50))
	w.Add(g1)
	w.Add(g2)
	p := newSensor()
	p.SetPosition(geometry.Vec(30, 30))
	w.Add(p)

	w.Step(0)

	assert.ElementsMatch(t, []Entity{g1, g2}, p.hits)
}

func TestUnitThrustIsCapped(t *testing.T) {
	u := NewUnit()
	u.SetThrust(0, 1)
	for range 10 {
		u.Step(0.1)
	}
	assert.InDelta(t, u.Speed, u.Velocity.Len(), 1e-9)
	assert.InDelta(t, 0, u.Velocity.Y, 1e-9)

	u.SetThrust(0, 5)
	assert.Equal(t, 1.0, u.Thrusting)
}

func TestBaseStepFriction(t *testing.T) {
	e := NewEntity()
	e.Velocity = geometry.Vec(10, 0)
	e.Friction = 50

	e.Step(0.1)
	assert.InDelta(t, 5, e.Velocity.X, 1e-9)
	assert.InDelta(t, 1, e.Position.X, 1e-9)
	assert.Equal(t, e.Position, e.Box.Center())

	e.Step(1)
	assert.Zero(t, e.Velocity.Len(), "friction never reverses motion")
}

func TestNavigationHookRunsAfterGeometry(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))
	calls := 0
	w.SetNavigationHook(func(*World) { calls++ })

	w.Spawn(func() Entity { return NewEntity() })
	w.Step(0)
	assert.Zero(t, calls)

	w.Add(NewGeometry(geometry.Rect(0, 0, 10, 10)))
	w.Step(0)
	w.Step(0)
	assert.Equal(t, 1, calls)
}

func TestRemoveReleasesListenersAndCounts(t *testing.T) {
	d := bus.New(log.Nop())
	w := newWorld(t, d)
	before := d.ListenerCount()

	p := newSensor()
	w.Add(p)
	assert.Equal(t, 1, p.loaded)
	assert.Equal(t, before+1, d.ListenerCount())
	assert.Equal(t, 1, w.TypeCount("Sensor"))

	assert.True(t, w.Remove(p))
	assert.False(t, w.Remove(p))
	assert.Equal(t, before, d.ListenerCount())
	assert.Zero(t, w.TypeCount("Sensor"))
	assert.Zero(t, w.EntityCount())
}

func TestIDsAreNotReusedBeforeDeletionIsSent(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))

	first := w.Spawn(func() Entity { return NewEntity() })
	id := first.Core().ID()
	require.True(t, w.RemoveID(id))

	second := w.Spawn(func() Entity { return NewEntity() })
	assert.NotEqual(t, id, second.Core().ID())

	w.DiffState()
	third := w.Spawn(func() Entity { return NewEntity() })
	assert.Equal(t, id, third.Core().ID())
}

func TestRegistry(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))

	err := w.RegisterEntity(TypeUnit, func() Entity { return NewUnit() })
	assert.True(t, eris.Is(err, ErrDuplicateType))

	err = w.RegisterTemplateEntity("Ghost", "Missing", nil)
	assert.True(t, eris.Is(err, ErrUnknownBase))

	require.NoError(t, w.RegisterTemplateEntity("Scout", TypeUnit, encoding.Data{"speed": 400.0}))
	e, ok := w.SpawnEntity("Scout", geometry.Vec(5, 5))
	require.True(t, ok)
	unit, ok := e.(*Unit)
	require.True(t, ok)
	assert.Equal(t, 400.0, unit.Speed)
	assert.Equal(t, "Scout", unit.Type())
	assert.Equal(t, geometry.Vec(5, 5), unit.Position)
	assert.Equal(t, 1, w.TypeCount("Scout"))

	_, ok = w.CreateEntity("Nope")
	assert.False(t, ok)
	_, ok = w.SpawnEntity("Nope")
	assert.False(t, ok)
}

const templatesYAML = `
templates:
  - type: Hero
    extends: Unit
    fields:
      speed: 300
      friction: 20
      boundingBox:
        width: 50
        height: 50
  - type: Champion
    extends: Hero
    fields:
      mass: 4
`

func TestLoadTemplates(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))
	require.NoError(t, w.LoadTemplates(strings.NewReader(templatesYAML)))

	e, ok := w.SpawnEntity("Champion", geometry.Vec(0, 0))
	require.True(t, ok)
	hero := e.(*Unit)
	assert.Equal(t, "Champion", hero.Type())
	assert.Equal(t, 300.0, hero.Speed)
	assert.Equal(t, 20.0, hero.Friction)
	assert.Equal(t, 4.0, hero.Mass)
	assert.Equal(t, geometry.Centered(geometry.Vec(0, 0), 50, 50), hero.Box)

	err := w.LoadTemplates(strings.NewReader("templates:\n  - type: X\n    extends: Y\n"))
	assert.True(t, eris.Is(err, ErrUnknownBase))

	assert.NoError(t, w.LoadTemplates(strings.NewReader("")))
}

func TestEntitiesAndLayerOrder(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))

	u := w.Spawn(func() Entity { return NewUnit() })
	g := w.Spawn(func() Entity { return NewGeometry(geometry.Rect(100, 100, 10, 10)) })
	e := w.Spawn(func() Entity { return NewEntity() }, geometry.Vec(-200, 0))

	assert.Equal(t, []Entity{u, g, e}, w.Entities().Collect())

	w.Step(0)
	assert.Equal(t, []Entity{g, u, e}, w.LayerOrdered().Collect())
}

func TestUnknownLayer(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))

	stray := NewEntity()
	stray.Layer = layerCount + 3
	w.Add(stray)
	assert.Zero(t, w.EntityCount())
	assert.Equal(t, ids.None, stray.ID())

	e := w.Spawn(func() Entity { return NewEntity() })
	e.Core().Layer = Layer(200)
	require.NotPanics(t, func() { w.Step(0.05) })
	assert.Empty(t, w.LayerOrdered().Collect())
	assert.Equal(t, []Entity{e}, w.Entities().Collect())
}

func TestResize(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))
	e := w.Spawn(func() Entity { return NewEntity() }, geometry.Vec(0, 0))

	bounds := geometry.Rect(-50, -50, 100, 100)
	w.Resize(bounds)
	assert.Equal(t, bounds, w.Bounds())
	assert.Equal(t, []Entity{e}, w.QueryPoint(geometry.Vec(0, 0)).Collect())
}

func TestDefaultTemplates(t *testing.T) {
	w := newWorld(t, bus.New(log.Nop()))
	require.NoError(t, w.LoadDefaultTemplates())

	hero, ok := w.SpawnEntity("Hero")
	require.True(t, ok)
	assert.IsType(t, &Unit{}, hero)

	wall, ok := w.SpawnEntity("Wall")
	require.True(t, ok)
	assert.Equal(t, LayerGeometry, wall.Core().Layer)

	assert.Error(t, w.LoadDefaultTemplates(), "templates register once")
}

func TestVariantsExposeTheirCore(t *testing.T) {
	unit := NewUnit()
	wall := NewGeometry(geometry.Rect(0, 0, 10, 10))
	s := newSensor()

	for _, e := range []Entity{unit, wall, s} {
		assert.Same(t, e.Core(), e.Core().Core())
	}
	assert.Same(t, &unit.Base, unit.Core())
	assert.Same(t, &wall.Base, wall.Core())
	assert.Same(t, &s.Base, s.Core())
}
