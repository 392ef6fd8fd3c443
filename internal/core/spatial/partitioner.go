// Package spatial indexes bounding boxes for overlap queries.
package spatial

import "github.com/zeusync/arena/internal/core/geometry"

// Item is anything with a bounding box. Items are compared by identity for
// deduplication.
type Item interface {
	comparable
	BoundingBox() geometry.Rectangle
}

// Partitioner is a disposable index over items. It holds borrowed references
// and is rebuilt by its owner whenever the items move.
type Partitioner[T Item] interface {
	// Insert adds an item. Items outside the bounds are still found by queries.
	Insert(item T)
	// Query returns every item whose box intersects box, each once, in first-seen order.
	Query(box geometry.Rectangle) []T
	// QueryPoint returns every item whose box contains p.
	QueryPoint(p geometry.Vector) []T
	// Clear drops all items but keeps the bounds.
	Clear()
	// Resize re-inserts every item into a fresh index covering bounds.
	Resize(bounds geometry.Rectangle)
	Bounds() geometry.Rectangle
	Len() int
}

// Kind names a partitioner implementation.
type Kind string

const (
	KindQuadTree Kind = "quadtree"
	KindGrid     Kind = "grid"
)

// Options configures New.
type Options struct {
	Kind        Kind
	MaxDepth    int
	MaxChildren int
	CellSize    float64
}

// DefaultOptions returns a quad-tree with depth 4 and capacity 4.
func DefaultOptions() Options {
	return Options{
		Kind:        KindQuadTree,
		MaxDepth:    DefaultMaxDepth,
		MaxChildren: DefaultMaxChildren,
		CellSize:    DefaultCellSize,
	}
}

// New builds the partitioner selected by opts.
func New[T Item](bounds geometry.Rectangle, opts Options) (Partitioner[T], error) {
	switch opts.Kind {
	case KindQuadTree, "":
		return NewQuadTree[T](bounds, opts.MaxDepth, opts.MaxChildren), nil
	case KindGrid:
		return NewGrid[T](bounds, opts.CellSize), nil
	default:
		return nil, ErrUnknownKind
	}
}

// collector deduplicates hits while keeping first-seen order.
type collector[T Item] struct {
	box  geometry.Rectangle
	seen map[T]struct{}
	out  []T
}

func newCollector[T Item](box geometry.Rectangle) *collector[T] {
	return &collector[T]{box: box, seen: make(map[T]struct{})}
}

func (c *collector[T]) add(item T) {
	if _, ok := c.seen[item]; ok {
		return
	}
	if !item.BoundingBox().Intersects(c.box) {
		return
	}
	c.seen[item] = struct{}{}
	c.out = append(c.out, item)
}

func pointBox(p geometry.Vector) geometry.Rectangle {
	return geometry.Rect(p.X, p.Y, 0, 0)
}
