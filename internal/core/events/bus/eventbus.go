package bus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/pkg/sequence"
)

var _ EventBus = (*Dispatcher)(nil)

type listener struct {
	id        ids.ID
	eventType string
	handler   EventHandler
	priority  Priority
	seq       uint64
	once      bool
	removed   bool
}

// Dispatcher is the tick driven implementation of EventBus.
type Dispatcher struct {
	logger log.Log
	pool   *ids.Pool

	mu      sync.Mutex
	queue   []Event
	cancels []*timer

	listeners map[string][]*listener
	byID      map[ids.ID]*listener
	seq       uint64

	timers    map[ids.ID]*timer
	deadlines *sequence.Heap[*timer]
	clock     float64

	elapsed   float64
	stepCount uint64
	lastDT    float64
}

// New creates a dispatcher with its own listener id pool.
func New(logger log.Log) *Dispatcher {
	return NewWithPool(logger, ids.NewPool())
}

// NewWithPool creates a dispatcher allocating listener ids from pool.
func NewWithPool(logger log.Log, pool *ids.Pool) *Dispatcher {
	return &Dispatcher{
		logger:    logger.With(log.String("component", "dispatcher")),
		pool:      pool,
		listeners: make(map[string][]*listener),
		byID:      make(map[ids.ID]*listener),
		timers:    make(map[ids.ID]*timer),
		deadlines: sequence.NewHeap(timerLess),
	}
}

func (d *Dispatcher) Emit(event Event) {
	d.mu.Lock()
	d.queue = append(d.queue, event)
	d.mu.Unlock()
}

func (d *Dispatcher) AddListener(eventType string, handler EventHandler, priority ...Priority) ids.ID {
	p := PriorityNormal
	if len(priority) > 0 {
		p = priority[0]
	}
	return d.addListener(eventType, handler, p, false)
}

func (d *Dispatcher) addListener(eventType string, handler EventHandler, priority Priority, once bool) ids.ID {
	d.seq++
	l := &listener{
		id:        d.pool.Generate(),
		eventType: eventType,
		handler:   handler,
		priority:  priority,
		seq:       d.seq,
		once:      once,
	}

	list := d.listeners[eventType]
	idx := sort.Search(len(list), func(i int) bool { return list[i].priority > priority })
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = l
	d.listeners[eventType] = list
	d.byID[l.id] = l

	return l.id
}

func (d *Dispatcher) RemoveListener(eventType string, id ids.ID) bool {
	if eventType == StepEvent {
		if t, ok := d.timers[id]; ok {
			return d.removeTimer(t)
		}
	}

	l, ok := d.byID[id]
	if !ok || l.eventType != eventType {
		d.logger.Warn("Listener not found",
			log.String("event", eventType),
			log.Uint32("listener", uint32(id)))
		return false
	}
	d.detach(l)
	return true
}

func (d *Dispatcher) detach(l *listener) {
	l.removed = true
	delete(d.byID, l.id)

	list := d.listeners[l.eventType]
	for i, v := range list {
		if v == l {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(d.listeners, l.eventType)
	} else {
		d.listeners[l.eventType] = list
	}
	d.pool.Free(l.id)
}

// Step emits StepEvent with dt and drains the queue.
func (d *Dispatcher) Step(dt float64) {
	d.lastDT = dt
	d.Emit(NewEvent(StepEvent, StepData{DT: dt}))

	for {
		event, ok := d.next()
		if !ok {
			break
		}
		d.dispatch(&event)
	}

	d.elapsed += dt
	d.stepCount++
}

func (d *Dispatcher) next() (Event, bool) {
	d.mu.Lock()
	cancels := d.cancels
	d.cancels = nil
	var (
		event Event
		ok    bool
	)
	if len(d.queue) > 0 {
		event, ok = d.queue[0], true
		d.queue[0] = Event{}
		d.queue = d.queue[1:]
	}
	d.mu.Unlock()

	for _, t := range cancels {
		d.removeTimer(t)
	}
	return event, ok
}

func (d *Dispatcher) dispatch(event *Event) {
	if event.Type == BatchEvent {
		d.expand(event)
		return
	}
	if event.Type == StepEvent {
		if data, ok := event.Data.(StepData); ok {
			d.clock += data.DT
		}
		d.fireTimers()
	}

	list := d.listeners[event.Type]
	if len(list) == 0 {
		return
	}
	snapshot := make([]*listener, len(list))
	copy(snapshot, list)

	for _, l := range snapshot {
		if l.removed {
			continue
		}
		if l.once {
			d.detach(l)
		}
		d.invoke(l, event)
		if event.stopped {
			return
		}
	}
}

func (d *Dispatcher) expand(batch *Event) {
	events, ok := batch.Data.([]Event)
	if !ok {
		d.logger.Warn("Malformed batch event", log.String("source", batch.Source))
		return
	}
	d.mu.Lock()
	for _, e := range events {
		e.Source = batch.Source
		d.queue = append(d.queue, e)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) invoke(l *listener, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Listener panicked",
				log.String("event", event.Type),
				log.Uint32("listener", uint32(l.id)),
				log.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := l.handler(event); err != nil {
		d.logger.Error("Listener failed",
			log.String("event", event.Type),
			log.Uint32("listener", uint32(l.id)),
			log.Error(err))
	}
}

func (d *Dispatcher) ListenerCount() int {
	return len(d.byID) + len(d.timers)
}

func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) Elapsed() float64 {
	return d.elapsed
}

func (d *Dispatcher) StepCount() uint64 {
	return d.stepCount
}

func (d *Dispatcher) LastDT() float64 {
	return d.lastDT
}
