package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/arena/internal/core/ids"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/pkg/sequence"
)

// timer is a scheduled entry. It owns a listener id and is removable through
// RemoveListener(StepEvent, id).
type timer struct {
	id       ids.ID
	deadline float64
	period   float64
	seq      uint64
	fn       func()
	ctx      context.Context
	stop     func() bool
	item     *sequence.Item[*timer]
}

func timerLess(a, b *timer) bool {
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	return a.seq < b.seq
}

func (d *Dispatcher) Sleep(ctx context.Context, dur time.Duration, fn func()) ids.ID {
	return d.schedule(ctx, dur.Seconds(), 0, fn)
}

func (d *Dispatcher) Interval(ctx context.Context, period time.Duration, fn func()) ids.ID {
	p := period.Seconds()
	if p <= 0 {
		d.logger.Warn("Interval period must be positive", log.Duration("period", period))
		return ids.None
	}
	return d.schedule(ctx, p, p, fn)
}

func (d *Dispatcher) NextStep(fn func()) ids.ID {
	return d.schedule(context.Background(), 0, 0, fn)
}

func (d *Dispatcher) Once(eventType string, fn EventHandler) ids.ID {
	return d.addListener(eventType, fn, PriorityNormal, true)
}

func (d *Dispatcher) schedule(ctx context.Context, delay, period float64, fn func()) ids.ID {
	if ctx == nil {
		ctx = context.Background()
	}
	d.seq++
	t := &timer{
		id:       d.pool.Generate(),
		deadline: d.clock + delay,
		period:   period,
		seq:      d.seq,
		fn:       fn,
		ctx:      ctx,
	}
	if ctx.Done() != nil {
		t.stop = context.AfterFunc(ctx, func() {
			d.mu.Lock()
			d.cancels = append(d.cancels, t)
			d.mu.Unlock()
		})
	}
	t.item = d.deadlines.Push(t)
	d.timers[t.id] = t
	return t.id
}

// removeTimer unregisters t and releases its id. Repeated calls are no-ops.
func (d *Dispatcher) removeTimer(t *timer) bool {
	if d.timers[t.id] != t {
		return false
	}
	d.deadlines.Remove(t.item)
	d.forget(t)
	return true
}

// fireTimers runs every entry due at the current clock. Entries scheduled while
// firing wait for the next step.
func (d *Dispatcher) fireTimers() {
	var due []*timer
	for {
		t, ok := d.deadlines.Peek()
		if !ok || t.deadline > d.clock {
			break
		}
		_, _ = d.deadlines.Pop()
		due = append(due, t)
	}

	for _, t := range due {
		if d.timers[t.id] != t {
			continue
		}
		if t.ctx.Err() != nil {
			d.forget(t)
			continue
		}
		if t.period == 0 {
			d.forget(t)
			d.run(t)
			continue
		}
		for t.deadline <= d.clock {
			d.run(t)
			t.deadline += t.period
			if d.timers[t.id] != t || t.ctx.Err() != nil {
				break
			}
		}
		if d.timers[t.id] == t {
			if t.ctx.Err() != nil {
				d.forget(t)
				continue
			}
			t.item = d.deadlines.Push(t)
		}
	}
}

// forget drops a timer that is no longer in the heap.
func (d *Dispatcher) forget(t *timer) {
	delete(d.timers, t.id)
	if t.stop != nil {
		t.stop()
	}
	d.pool.Free(t.id)
}

func (d *Dispatcher) run(t *timer) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Scheduled callback panicked",
				log.Uint32("listener", uint32(t.id)),
				log.String("panic", fmt.Sprint(r)))
		}
	}()
	t.fn()
}
