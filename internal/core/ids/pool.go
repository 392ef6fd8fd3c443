// Package ids issues small integer identifiers and recycles them after release.
package ids

import (
	"strconv"

	"github.com/sasha-s/go-deadlock"
	"github.com/zeusync/arena/pkg/sequence"
)

// ID names an entity, a listener or a pending request. Zero is never issued.
type ID uint32

// None is the zero ID, used as "no owner".
const None ID = 0

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse converts the decimal form produced by String back into an ID.
func Parse(s string) (ID, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return None, false
	}
	return ID(v), true
}

// Pool hands out ids. Freed ids are reused smallest first before the counter
// advances. It is safe for concurrent use.
type Pool struct {
	mu    deadlock.Mutex
	next  ID
	free  *sequence.Heap[ID]
	freed map[ID]struct{}
	live  int
}

func NewPool() *Pool {
	return &Pool{
		next:  1,
		free:  sequence.NewHeap(func(a, b ID) bool { return a < b }),
		freed: make(map[ID]struct{}),
	}
}

// Generate returns an id that is not live.
func (p *Pool) Generate() ID {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.live++
	if id, ok := p.free.Pop(); ok {
		delete(p.freed, id)
		return id
	}
	id := p.next
	p.next++
	return id
}

// Free releases id for reuse. It reports false for ids that were never issued
// or are already free.
func (p *Pool) Free(id ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isLive(id) {
		return false
	}
	p.freed[id] = struct{}{}
	p.free.Push(id)
	p.live--
	return true
}

// IsLive reports whether id has been generated and not freed since.
func (p *Pool) IsLive(id ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isLive(id)
}

func (p *Pool) isLive(id ID) bool {
	if id == None || id >= p.next {
		return false
	}
	_, free := p.freed[id]
	return !free
}

// Count returns the number of live ids.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}
