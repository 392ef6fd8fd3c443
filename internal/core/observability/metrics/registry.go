package metrics

import (
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
)

type entry struct {
	name   string
	kind   Kind
	tags   Tags
	metric any
}

// Registry is the default Collector.
type Registry struct {
	mu      deadlock.RWMutex
	entries map[string]*entry
	order   []string
}

var _ Collector = (*Registry)(nil)

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) Counter(name string, tags Tags) Counter {
	return r.get(name, KindCounter, tags, func() any { return new(value) }).(Counter)
}

func (r *Registry) Gauge(name string, tags Tags) Gauge {
	return r.get(name, KindGauge, tags, func() any { return new(value) }).(Gauge)
}

func (r *Registry) Histogram(name string, tags Tags) Histogram {
	return r.get(name, KindHistogram, tags, func() any { return new(histogram) }).(Histogram)
}

// get returns the metric registered under name and tags. Asking for an
// existing name with another kind panics.
func (r *Registry) get(name string, kind Kind, tags Tags, create func() any) any {
	k := key(name, tags)

	r.mu.RLock()
	e, ok := r.entries[k]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if e, ok = r.entries[k]; !ok {
			e = &entry{name: name, kind: kind, tags: clone(tags), metric: create()}
			r.entries[k] = e
			r.order = append(r.order, k)
		}
		r.mu.Unlock()
	}

	if e.kind != kind {
		panic("metrics: " + name + " registered as " + e.kind.String())
	}
	return e.metric
}

// Export returns every metric sorted by name, then tags.
func (r *Registry) Export() []Family {
	r.mu.RLock()
	keys := slices.Clone(r.order)
	entries := make([]*entry, 0, len(keys))
	slices.Sort(keys)
	for _, k := range keys {
		entries = append(entries, r.entries[k])
	}
	r.mu.RUnlock()

	out := make([]Family, 0, len(entries))
	for _, e := range entries {
		f := Family{Name: e.name, Kind: e.kind, Tags: clone(e.tags)}
		switch m := e.metric.(type) {
		case *value:
			f.Value = m.Value()
		case *histogram:
			f.Value = m.Mean()
			f.Count = m.Count()
		}
		out = append(out, f)
	}
	return out
}

// key renders name{k=v,...} with sorted tag keys.
func key(name string, tags Tags) string {
	if len(tags) == 0 {
		return name
	}
	ks := make([]string, 0, len(tags))
	for k := range tags {
		ks = append(ks, k)
	}
	slices.Sort(ks)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range ks {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	b.WriteByte('}')
	return b.String()
}

func clone(tags Tags) Tags {
	if tags == nil {
		return nil
	}
	out := make(Tags, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// value backs both counters and gauges.
type value struct {
	bits atomic.Uint64
}

func (v *value) Add(delta float64) {
	for {
		old := v.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if v.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (v *value) Set(x float64)  { v.bits.Store(math.Float64bits(x)) }
func (v *value) Inc()           { v.Add(1) }
func (v *value) Dec()           { v.Add(-1) }
func (v *value) Sub(x float64)  { v.Add(-x) }
func (v *value) Value() float64 { return math.Float64frombits(v.bits.Load()) }

type histogram struct {
	mu       deadlock.Mutex
	count    uint64
	sum      float64
	min, max float64
}

func (h *histogram) Observe(x float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || x < h.min {
		h.min = x
	}
	if h.count == 0 || x > h.max {
		h.max = x
	}
	h.count++
	h.sum += x
}

func (h *histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

func (h *histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

func (h *histogram) Min() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.min
}

func (h *histogram) Max() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.max
}

func (h *histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count, h.sum, h.min, h.max = 0, 0, 0, 0
}
