package world

import (
	"math"

	"github.com/zeusync/arena/internal/core/geometry"
	"github.com/zeusync/arena/pkg/encoding"
)

const (
	// UnitAcceleration is the thrust acceleration at full throttle.
	UnitAcceleration = 2000
	defaultUnitSpeed = 250
	defaultUnitSize  = 40
)

// Unit is a self propelled entity. It accelerates along Angle proportionally
// to Thrusting and never exceeds Speed.
type Unit struct {
	Base

	Angle     float64
	Thrusting float64
	Speed     float64
}

var _ Entity = (*Unit)(nil)

func NewUnit() *Unit {
	return &Unit{
		Base:  NewBase(TypeUnit, defaultUnitSize, defaultUnitSize),
		Speed: defaultUnitSpeed,
	}
}

// SetThrust steers the unit. Thrusting is clamped to [0, 1].
func (u *Unit) SetThrust(angle, thrusting float64) {
	u.Angle = angle
	u.Thrusting = min(max(thrusting, 0), 1)
}

func (u *Unit) Step(dt float64) {
	if u.Thrusting > 0 {
		dir := geometry.Vec(math.Cos(u.Angle), math.Sin(u.Angle))
		u.ApplyForce(dir.Scale(UnitAcceleration * dt * u.Thrusting * u.Mass))
	}
	if u.Speed > 0 {
		u.Velocity = u.Velocity.ClampLen(u.Speed)
	}
	u.Base.Step(dt)
}

func (u *Unit) Serialize() encoding.Data {
	d := u.Base.Serialize()
	d["angle"] = u.Angle
	d["thrusting"] = u.Thrusting
	d["speed"] = u.Speed
	return d
}

func (u *Unit) Deserialize(d encoding.Data) {
	u.Base.Deserialize(d)
	if v, ok := encoding.Float(d, "angle"); ok {
		u.Angle = v
	}
	if v, ok := encoding.Float(d, "thrusting"); ok {
		u.Thrusting = v
	}
	if v, ok := encoding.Float(d, "speed"); ok {
		u.Speed = v
	}
}

// Geometry is a static wall.
type Geometry struct {
	Base
}

var _ Entity = (*Geometry)(nil)

// NewGeometry creates a wall covering rect.
func NewGeometry(rect geometry.Rectangle) *Geometry {
	g := &Geometry{Base: NewBase(TypeGeometry, rect.Width, rect.Height)}
	g.Layer = LayerGeometry
	g.Bounce = 0
	g.SetPosition(rect.Center())
	return g
}

func newGeometry() Entity {
	return NewGeometry(geometry.Rect(0, 0, defaultSize, defaultSize))
}

// Step keeps walls in place.
func (g *Geometry) Step(float64) {}
