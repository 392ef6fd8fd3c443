package geometry

import "github.com/zeusync/arena/pkg/encoding"

// Rectangle is an axis aligned box anchored at its top left corner.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
}

func Rect(x, y, w, h float64) Rectangle {
	return Rectangle{X: x, Y: y, Width: w, Height: h}
}

// Centered builds a w by h rectangle centered on c.
func Centered(c Vector, w, h float64) Rectangle {
	return Rectangle{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}

func (r Rectangle) CenterX() float64 { return r.X + r.Width/2 }
func (r Rectangle) CenterY() float64 { return r.Y + r.Height/2 }
func (r Rectangle) FarX() float64    { return r.X + r.Width }
func (r Rectangle) FarY() float64    { return r.Y + r.Height }

// BoundingBox returns r itself so a bare rectangle can be indexed.
func (r Rectangle) BoundingBox() Rectangle { return r }

func (r Rectangle) Center() Vector { return Vector{r.CenterX(), r.CenterY()} }

// SetCenter moves the rectangle so that it is centered on c.
func (r *Rectangle) SetCenter(c Vector) {
	r.X = c.X - r.Width/2
	r.Y = c.Y - r.Height/2
}

// Intersects reports whether the closed rectangles overlap. Touching edges count.
func (r Rectangle) Intersects(o Rectangle) bool {
	return r.X <= o.FarX() && o.X <= r.FarX() &&
		r.Y <= o.FarY() && o.Y <= r.FarY()
}

// Contains reports whether o lies entirely inside r.
func (r Rectangle) Contains(o Rectangle) bool {
	return o.X >= r.X && o.Y >= r.Y && o.FarX() <= r.FarX() && o.FarY() <= r.FarY()
}

func (r Rectangle) ContainsPoint(p Vector) bool {
	return p.X >= r.X && p.X <= r.FarX() && p.Y >= r.Y && p.Y <= r.FarY()
}

// Quadrants splits r into four equal children: top left, top right, bottom left, bottom right.
func (r Rectangle) Quadrants() [4]Rectangle {
	w, h := r.Width/2, r.Height/2
	return [4]Rectangle{
		{X: r.X, Y: r.Y, Width: w, Height: h},
		{X: r.X + w, Y: r.Y, Width: w, Height: h},
		{X: r.X, Y: r.Y + h, Width: w, Height: h},
		{X: r.X + w, Y: r.Y + h, Width: w, Height: h},
	}
}

// ClampDelta returns the shift that moves inner back inside r on each axis.
// A zero component means the box is within bounds on that axis.
func (r Rectangle) ClampDelta(inner Rectangle) Vector {
	var d Vector
	switch {
	case inner.X < r.X:
		d.X = r.X - inner.X
	case inner.FarX() > r.FarX():
		d.X = r.FarX() - inner.FarX()
	}
	switch {
	case inner.Y < r.Y:
		d.Y = r.Y - inner.Y
	case inner.FarY() > r.FarY():
		d.Y = r.FarY() - inner.FarY()
	}
	return d
}

func (r Rectangle) Serialize() encoding.Data {
	return encoding.Data{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
	}
}

// Deserialize merges the fields present in d.
func (r *Rectangle) Deserialize(d encoding.Data) {
	if v, ok := encoding.Float(d, "x"); ok {
		r.X = v
	}
	if v, ok := encoding.Float(d, "y"); ok {
		r.Y = v
	}
	if v, ok := encoding.Float(d, "width"); ok {
		r.Width = v
	}
	if v, ok := encoding.Float(d, "height"); ok {
		r.Height = v
	}
}
