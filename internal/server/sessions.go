package server

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/protocol"
	"github.com/zeusync/arena/pkg/sequence"
)

// session is a connected client as seen by the tick. A session becomes ready
// once its initial sync was sent; only ready sessions receive broadcasts.
type session struct {
	id        protocol.ClientID
	transport protocol.Transport
	heroID    ids.ID
	ready     bool
}

// Sessions is the table of connected clients.
type Sessions struct {
	mu   deadlock.RWMutex
	byID map[protocol.ClientID]*session
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[protocol.ClientID]*session)}
}

func (s *Sessions) add(sess *session) {
	s.mu.Lock()
	s.byID[sess.id] = sess
	s.mu.Unlock()
}

func (s *Sessions) remove(id protocol.ClientID) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	delete(s.byID, id)
	return sess, ok
}

func (s *Sessions) get(id protocol.ClientID) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok
}

func (s *Sessions) markReady(id protocol.ClientID) {
	s.mu.Lock()
	if sess, ok := s.byID[id]; ok {
		sess.ready = true
	}
	s.mu.Unlock()
}

// ready returns a snapshot of the sessions that receive broadcasts.
func (s *Sessions) ready() *sequence.Iterator[*session] {
	s.mu.RLock()
	list := make([]*session, 0, len(s.byID))
	for _, sess := range s.byID {
		if sess.ready {
			list = append(list, sess)
		}
	}
	s.mu.RUnlock()
	return sequence.From(list)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
