package fiberpool

import "sync/atomic"

// Metrics accumulates low-overhead, thread-safe counters for a Pool. It
// deliberately stops at plain counters (no latency percentiles): callers
// wanting histograms can layer them over a Logger. A nil *Metrics is valid
// and simply does not accumulate.
type Metrics struct {
	submitted  atomic.Int64
	dispatched atomic.Int64
	completed  atomic.Int64
	panics     atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of a Metrics' counters.
type MetricsSnapshot struct {
	Submitted  int64 // items pushed onto the ready queue or timer set
	Dispatched int64 // items that acquired a fiber slot and began running
	Completed  int64 // fiber bodies that returned (panic or not)
	Panics     int64 // fiber bodies recovered from a panic
}

// Snapshot returns a copy of the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Submitted:  m.submitted.Load(),
		Dispatched: m.dispatched.Load(),
		Completed:  m.completed.Load(),
		Panics:     m.panics.Load(),
	}
}

func (m *Metrics) addSubmitted() {
	if m != nil {
		m.submitted.Add(1)
	}
}

func (m *Metrics) addDispatched() {
	if m != nil {
		m.dispatched.Add(1)
	}
}

func (m *Metrics) addCompleted() {
	if m != nil {
		m.completed.Add(1)
	}
}

func (m *Metrics) addPanic() {
	if m != nil {
		m.panics.Add(1)
	}
}
