// Package geometry holds the 2D primitives used by the simulation.
package geometry

import (
	"math"

	"github.com/zeusync/arena/pkg/encoding"
)

// Vector is a 2D vector.
type Vector struct {
	X, Y float64
}

func Vec(x, y float64) Vector { return Vector{X: x, Y: y} }

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }

func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }

// AddScaled returns v + o*s.
func (v Vector) AddScaled(o Vector, s float64) Vector {
	return Vector{v.X + o.X*s, v.Y + o.Y*s}
}

func (v Vector) Scale(s float64) Vector { return Vector{v.X * s, v.Y * s} }

func (v Vector) Len() float64 { return math.Hypot(v.X, v.Y) }

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func (v Vector) Normalize() Vector {
	l := v.Len()
	if l == 0 {
		return Vector{}
	}
	return Vector{v.X / l, v.Y / l}
}

// ClampLen caps the length of v at max.
func (v Vector) ClampLen(max float64) Vector {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

func (v *Vector) Set(x, y float64) {
	v.X, v.Y = x, y
}

// Distance computes the Euclidean distance between two points.
func Distance(a, b Vector) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

func (v Vector) Serialize() encoding.Data {
	return encoding.Data{"x": v.X, "y": v.Y}
}

// Deserialize merges the coordinates present in d.
func (v *Vector) Deserialize(d encoding.Data) {
	if x, ok := encoding.Float(d, "x"); ok {
		v.X = x
	}
	if y, ok := encoding.Float(d, "y"); ok {
		v.Y = y
	}
}
