package spatial

import "github.com/zeusync/arena/internal/core/geometry"

const (
	DefaultMaxDepth    = 4
	DefaultMaxChildren = 4
)

var _ Partitioner[geometry.Rectangle] = (*QuadTree[geometry.Rectangle])(nil)

type node[T Item] struct {
	bounds   geometry.Rectangle
	depth    int
	items    []T
	children *[4]*node[T]
}

// QuadTree splits space into quadrants. A leaf subdivides once it holds more
// than maxChildren items and is shallower than maxDepth. An item overlapping
// several quadrants is stored in each of them.
type QuadTree[T Item] struct {
	root        *node[T]
	maxDepth    int
	maxChildren int

	// items in insertion order, used by Resize and Len.
	all []T
	// items not entirely inside the root bounds.
	overflow []T
}

// NewQuadTree creates an empty tree. Non-positive limits fall back to the defaults.
func NewQuadTree[T Item](bounds geometry.Rectangle, maxDepth, maxChildren int) *QuadTree[T] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	return &QuadTree[T]{
		root:        &node[T]{bounds: bounds},
		maxDepth:    maxDepth,
		maxChildren: maxChildren,
	}
}

func (q *QuadTree[T]) Insert(item T) {
	q.all = append(q.all, item)
	box := item.BoundingBox()
	if !q.root.bounds.Contains(box) {
		q.overflow = append(q.overflow, item)
	}
	if q.root.bounds.Intersects(box) {
		q.insert(q.root, item, box)
	}
}

func (q *QuadTree[T]) insert(n *node[T], item T, box geometry.Rectangle) {
	if n.children != nil {
		for _, child := range n.children {
			if child.bounds.Intersects(box) {
				q.insert(child, item, box)
			}
		}
		return
	}

	n.items = append(n.items, item)
	if len(n.items) > q.maxChildren && n.depth < q.maxDepth {
		q.subdivide(n)
	}
}

func (q *QuadTree[T]) subdivide(n *node[T]) {
	quads := n.bounds.Quadrants()
	n.children = &[4]*node[T]{}
	for i, b := range quads {
		n.children[i] = &node[T]{bounds: b, depth: n.depth + 1}
	}

	items := n.items
	n.items = nil
	for _, item := range items {
		box := item.BoundingBox()
		for _, child := range n.children {
			if child.bounds.Intersects(box) {
				q.insert(child, item, box)
			}
		}
	}
}

func (q *QuadTree[T]) Query(box geometry.Rectangle) []T {
	c := newCollector[T](box)
	q.query(q.root, c)
	for _, item := range q.overflow {
		c.add(item)
	}
	return c.out
}

func (q *QuadTree[T]) query(n *node[T], c *collector[T]) {
	if !n.bounds.Intersects(c.box) {
		return
	}
	if n.children == nil {
		for _, item := range n.items {
			c.add(item)
		}
		return
	}
	for _, child := range n.children {
		q.query(child, c)
	}
}

func (q *QuadTree[T]) QueryPoint(p geometry.Vector) []T {
	return q.Query(pointBox(p))
}

func (q *QuadTree[T]) Clear() {
	q.root = &node[T]{bounds: q.root.bounds}
	q.all = nil
	q.overflow = nil
}

func (q *QuadTree[T]) Resize(bounds geometry.Rectangle) {
	items := q.all
	q.root = &node[T]{bounds: bounds}
	q.all = nil
	q.overflow = nil
	for _, item := range items {
		q.Insert(item)
	}
}

func (q *QuadTree[T]) Bounds() geometry.Rectangle {
	return q.root.bounds
}

func (q *QuadTree[T]) Len() int {
	return len(q.all)
}

// Depth returns the depth of the deepest node.
func (q *QuadTree[T]) Depth() int {
	return depth(q.root)
}

func depth[T Item](n *node[T]) int {
	if n.children == nil {
		return n.depth
	}
	d := n.depth
	for _, child := range n.children {
		d = max(d, depth(child))
	}
	return d
}
