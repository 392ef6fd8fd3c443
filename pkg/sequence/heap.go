package sequence

import "container/heap"

// Item is a handle to a value stored in a Heap. It stays valid until the value
// is popped or removed and can be used to remove the value early.
type Item[T any] struct {
	Value T
	index int
}

type items[T any] struct {
	data []*Item[T]
	less func(a, b T) bool
}

func (h *items[T]) Len() int { return len(h.data) }

func (h *items[T]) Less(i, j int) bool { return h.less(h.data[i].Value, h.data[j].Value) }

func (h *items[T]) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.data[i].index = i
	h.data[j].index = j
}

func (h *items[T]) Push(x any) {
	item := x.(*Item[T])
	item.index = len(h.data)
	h.data = append(h.data, item)
}

func (h *items[T]) Pop() any {
	old := h.data
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	h.data = old[:n-1]
	return item
}

// Heap is a binary min-heap ordered by less. It is not safe for concurrent use.
type Heap[T any] struct {
	h items[T]
}

// NewHeap creates an empty heap. The smallest element according to less is
// returned first.
func NewHeap[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{h: items[T]{less: less}}
}

// Push adds a value and returns its handle.
func (h *Heap[T]) Push(value T) *Item[T] {
	item := &Item[T]{Value: value}
	heap.Push(&h.h, item)
	return item
}

// Pop removes and returns the smallest value.
func (h *Heap[T]) Pop() (T, bool) {
	if h.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&h.h).(*Item[T]).Value, true
}

// Peek returns the smallest value without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if h.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return h.h.data[0].Value, true
}

// Remove deletes the value behind item. It reports false when the item was
// already popped or removed.
func (h *Heap[T]) Remove(item *Item[T]) bool {
	if item == nil || item.index < 0 || item.index >= h.h.Len() || h.h.data[item.index] != item {
		return false
	}
	heap.Remove(&h.h, item.index)
	return true
}

// Fix restores ordering after the value behind item changed.
func (h *Heap[T]) Fix(item *Item[T]) {
	if item == nil || item.index < 0 || item.index >= h.h.Len() {
		return
	}
	heap.Fix(&h.h, item.index)
}

// Len returns the number of stored values.
func (h *Heap[T]) Len() int {
	return h.h.Len()
}
