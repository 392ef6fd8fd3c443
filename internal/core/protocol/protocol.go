// Package protocol is the boundary between the server and the network. A
// Transport delivers opaque payloads in order per client and reports
// connects and disconnects to a Handler.
package protocol

import "context"

// ClientID identifies a connection for its whole lifetime.
type ClientID = string

// Handler receives transport callbacks. Calls for one client never overlap
// and arrive in order: OnConnect, OnMessage..., OnDisconnect.
type Handler interface {
	OnConnect(id ClientID)
	OnMessage(id ClientID, payload []byte)
	OnDisconnect(id ClientID)
}

// Transport carries payloads between the server and its clients.
type Transport interface {
	Name() string
	// Serve accepts clients until ctx is done.
	Serve(ctx context.Context, h Handler) error
	Send(id ClientID, payload []byte) error
	Close(id ClientID) error
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Connect    func(id ClientID)
	Message    func(id ClientID, payload []byte)
	Disconnect func(id ClientID)
}

func (h HandlerFuncs) OnConnect(id ClientID) {
	if h.Connect != nil {
		h.Connect(id)
	}
}

func (h HandlerFuncs) OnMessage(id ClientID, payload []byte) {
	if h.Message != nil {
		h.Message(id, payload)
	}
}

func (h HandlerFuncs) OnDisconnect(id ClientID) {
	if h.Disconnect != nil {
		h.Disconnect(id)
	}
}
