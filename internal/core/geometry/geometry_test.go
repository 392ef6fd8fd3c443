package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zeusync/arena/pkg/encoding"
)

func TestVectorOps(t *testing.T) {
	v := Vec(3, 4)
	assert.Equal(t, 5.0, v.Len())
	assert.Equal(t, Vec(4, 6), v.Add(Vec(1, 2)))
	assert.Equal(t, Vec(2, 2), v.Sub(Vec(1, 2)))
	assert.Equal(t, Vec(5, 8), v.AddScaled(Vec(1, 2), 2))
	assert.Equal(t, Vec(0.6, 0.8), v.Normalize())
	assert.Equal(t, Vector{}, Vector{}.Normalize())
	assert.InDelta(t, 1.0, v.ClampLen(1).Len(), 1e-9)
	assert.Equal(t, 5.0, Distance(Vec(0, 0), v))

	v.Set(1, 1)
	assert.Equal(t, Vec(1, 1), v)
}

func TestRectangleIntersectsClosed(t *testing.T) {
	a := Rect(0, 0, 10, 10)
	tests := []struct {
		name string
		b    Rectangle
		want bool
	}{
		{"overlap", Rect(5, 5, 10, 10), true},
		{"touching edge", Rect(10, 0, 5, 5), true},
		{"touching corner", Rect(10, 10, 1, 1), true},
		{"apart", Rect(10.5, 0, 5, 5), false},
		{"inside", Rect(2, 2, 1, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(a))
		})
	}
}

func TestRectangleCenter(t *testing.T) {
	r := Centered(Vec(5, 5), 10, 4)
	assert.Equal(t, Rect(0, 3, 10, 4), r)
	assert.Equal(t, Vec(5, 5), r.Center())

	r.SetCenter(Vec(0, 0))
	assert.Equal(t, -5.0, r.X)
	assert.Equal(t, 5.0, r.FarX())
	assert.True(t, r.ContainsPoint(Vec(5, 2)))
	assert.True(t, r.Contains(Rect(-1, -1, 2, 2)))
	assert.False(t, r.Contains(Rect(4, 0, 2, 1)))
}

func TestClampDelta(t *testing.T) {
	bounds := Rect(0, 0, 100, 100)
	assert.Equal(t, Vec(0, 0), bounds.ClampDelta(Rect(10, 10, 5, 5)))
	assert.Equal(t, Vec(3, 0), bounds.ClampDelta(Rect(-3, 10, 5, 5)))
	assert.Equal(t, Vec(0, -2), bounds.ClampDelta(Rect(10, 97, 5, 5)))
}

func TestRectangleSerializeMerge(t *testing.T) {
	r := Rect(1, 2, 3, 4)
	var out Rectangle
	out.Deserialize(r.Serialize())
	assert.Equal(t, r, out)

	out.Deserialize(encoding.Data{"x": 9.0})
	assert.Equal(t, Rect(9, 2, 3, 4), out)
}
