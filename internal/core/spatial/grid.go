package spatial

import (
	"math"

	"github.com/zeusync/arena/internal/core/geometry"
)

const DefaultCellSize = 150

var _ Partitioner[geometry.Rectangle] = (*Grid[geometry.Rectangle])(nil)

// Grid buckets items into uniform square cells. An item is stored in every
// cell its box overlaps.
type Grid[T Item] struct {
	bounds   geometry.Rectangle
	cellSize float64
	cols     int
	rows     int
	cells    [][]T

	all []T
	// items not entirely inside bounds.
	overflow []T
}

// NewGrid creates an empty grid. A non-positive cell size falls back to DefaultCellSize.
func NewGrid[T Item](bounds geometry.Rectangle, cellSize float64) *Grid[T] {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g := &Grid[T]{cellSize: cellSize}
	g.reset(bounds)
	return g
}

func (g *Grid[T]) reset(bounds geometry.Rectangle) {
	g.bounds = bounds
	g.cols = max(1, int(math.Ceil(bounds.Width/g.cellSize)))
	g.rows = max(1, int(math.Ceil(bounds.Height/g.cellSize)))
	g.cells = make([][]T, g.cols*g.rows)
	g.all = nil
	g.overflow = nil
}

// span returns the inclusive cell range covered by box, clamped to the grid.
func (g *Grid[T]) span(box geometry.Rectangle) (c0, r0, c1, r1 int) {
	clamp := func(v, hi int) int { return min(max(v, 0), hi) }
	c0 = clamp(int(math.Floor((box.X-g.bounds.X)/g.cellSize)), g.cols-1)
	r0 = clamp(int(math.Floor((box.Y-g.bounds.Y)/g.cellSize)), g.rows-1)
	c1 = clamp(int(math.Floor((box.FarX()-g.bounds.X)/g.cellSize)), g.cols-1)
	r1 = clamp(int(math.Floor((box.FarY()-g.bounds.Y)/g.cellSize)), g.rows-1)
	return
}

func (g *Grid[T]) Insert(item T) {
	g.all = append(g.all, item)
	box := item.BoundingBox()
	if !g.bounds.Contains(box) {
		g.overflow = append(g.overflow, item)
	}
	if !g.bounds.Intersects(box) {
		return
	}
	c0, r0, c1, r1 := g.span(box)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			idx := r*g.cols + c
			g.cells[idx] = append(g.cells[idx], item)
		}
	}
}

func (g *Grid[T]) Query(box geometry.Rectangle) []T {
	c := newCollector[T](box)
	if g.bounds.Intersects(box) {
		c0, r0, c1, r1 := g.span(box)
		for r := r0; r <= r1; r++ {
			for col := c0; col <= c1; col++ {
				for _, item := range g.cells[r*g.cols+col] {
					c.add(item)
				}
			}
		}
	}
	for _, item := range g.overflow {
		c.add(item)
	}
	return c.out
}

func (g *Grid[T]) QueryPoint(p geometry.Vector) []T {
	return g.Query(pointBox(p))
}

func (g *Grid[T]) Clear() {
	g.reset(g.bounds)
}

func (g *Grid[T]) Resize(bounds geometry.Rectangle) {
	items := g.all
	g.reset(bounds)
	for _, item := range items {
		g.Insert(item)
	}
}

func (g *Grid[T]) Bounds() geometry.Rectangle {
	return g.bounds
}

func (g *Grid[T]) Len() int {
	return len(g.all)
}
