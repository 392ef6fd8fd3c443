package bus

import (
	"context"
	"time"

	"github.com/zeusync/arena/internal/core/ids"
)

// EventBus is a deferred-delivery pub/sub dispatcher driven by the simulation tick.
//
// Key characteristics:
// - Emit only enqueues. Delivery happens inside Step, on the goroutine calling Step.
// - Step emits StepEvent and drains the whole queue in FIFO order, including events
//   emitted by handlers during the drain.
// - Per event type, handlers run by Priority and then by registration order.
// - The handler list is captured when an event is dequeued. Handlers added afterwards
//   miss that event; handlers removed before their turn are skipped.
// - A handler error or panic is logged and never stops delivery to the others.
// - Emit is safe for concurrent use. Everything else belongs to the tick goroutine.
type EventBus interface {
	// Emit enqueues the event for the next drain.
	Emit(event Event)
	// AddListener registers handler for eventType and returns its listener id.
	AddListener(eventType string, handler EventHandler, priority ...Priority) ids.ID
	// RemoveListener unregisters a listener or scheduled entry. It reports false
	// when id is not registered for eventType.
	RemoveListener(eventType string, id ids.ID) bool
	// Step advances the dispatcher by dt seconds.
	Step(dt float64)

	// Sleep runs fn once at least d of step time has accumulated.
	Sleep(ctx context.Context, d time.Duration, fn func()) ids.ID
	// Interval runs fn once per elapsed period until ctx is cancelled or the id is removed.
	Interval(ctx context.Context, period time.Duration, fn func()) ids.ID
	// Once runs fn on the next occurrence of eventType.
	Once(eventType string, fn EventHandler) ids.ID
	// NextStep runs fn on the next tick boundary.
	NextStep(fn func()) ids.ID

	ListenerCount() int
	Pending() int
	Elapsed() float64
	StepCount() uint64
	LastDT() float64
}

// Event is a message carried by the dispatcher. An empty Source marks an
// internally generated event, otherwise it names the originating client.
type Event struct {
	Type   string
	Data   any
	Source string

	stopped bool
}

// NewEvent creates an internal event.
func NewEvent(typ string, data any) Event {
	return Event{Type: typ, Data: data}
}

// StopPropagation prevents delivery of this event to the remaining handlers.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}

// EventHandler is invoked per delivered event.
type EventHandler func(event *Event) error

// Priority orders handlers of one event type. Lower values run first.
type Priority uint8

const (
	PriorityHighest Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityLowest
)
