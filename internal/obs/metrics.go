package obs

import "sync/atomic"

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// GaugeMeter is a Meter that keeps running counters in memory, queryable
// via Value. Installed as ServerConfig.Meter and built with the name
// "originhttp.connections.active", it keeps a live connection count.
type GaugeMeter struct {
	values map[string]*int64
}

// NewGaugeMeter returns a GaugeMeter tracking the given counter names.
func NewGaugeMeter(names ...string) *GaugeMeter {
	g := &GaugeMeter{values: make(map[string]*int64, len(names))}
	for _, n := range names {
		var v int64
		g.values[n] = &v
	}
	return g
}

func (g *GaugeMeter) Counter(name string, value float64, labels ...Label) {
	p, ok := g.values[name]
	if !ok {
		return
	}
	atomic.AddInt64(p, int64(value))
}

func (g *GaugeMeter) Histogram(name string, value float64, labels ...Label) {}

// Value returns the current running total for name.
func (g *GaugeMeter) Value(name string) int64 {
	p, ok := g.values[name]
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}
