package protocol

import (
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// NewClientID returns a random client id.
func NewClientID() ClientID {
	return uuid.NewString()
}

// Peers is a goroutine safe table of live connections.
type Peers[C any] struct {
	mu    deadlock.RWMutex
	conns map[ClientID]C
}

func NewPeers[C any]() *Peers[C] {
	return &Peers[C]{conns: make(map[ClientID]C)}
}

func (p *Peers[C]) Add(id ClientID, c C) {
	p.mu.Lock()
	p.conns[id] = c
	p.mu.Unlock()
}

// Remove deletes id and returns the connection it held.
func (p *Peers[C]) Remove(id ClientID) (C, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[id]
	delete(p.conns, id)
	return c, ok
}

func (p *Peers[C]) Get(id ClientID) (C, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[id]
	return c, ok
}

func (p *Peers[C]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Each calls fn for every connection. fn must not modify the table.
func (p *Peers[C]) Each(fn func(id ClientID, c C)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, c := range p.conns {
		fn(id, c)
	}
}
