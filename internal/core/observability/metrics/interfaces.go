// Package metrics is a small in-process metrics registry. Values are kept in
// memory and exported as snapshots, which the server logs periodically.
package metrics

// Collector creates or returns named metrics. The same name and tags always
// yield the same metric. All metrics are safe for concurrent use.
type Collector interface {
	Counter(name string, tags Tags) Counter
	Gauge(name string, tags Tags) Gauge
	Histogram(name string, tags Tags) Histogram

	Export() []Family
}

type Tags map[string]string

// Family is an exported metric value.
type Family struct {
	Name  string
	Kind  Kind
	Tags  Tags
	Value float64
	// Count is the number of observations of a histogram.
	Count uint64
}

type Kind uint8

const (
	KindCounter Kind = iota
	KindGauge
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Counter only goes up.
type Counter interface {
	Inc()
	Add(float64)
	Value() float64
}

type Gauge interface {
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
	Value() float64
}

// Histogram summarizes observations. Export reports the mean as Value.
type Histogram interface {
	Observe(float64)
	Count() uint64
	Sum() float64
	Mean() float64
	Min() float64
	Max() float64
	Reset()
}
