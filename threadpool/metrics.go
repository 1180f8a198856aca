package threadpool

import "sync/atomic"

// Metrics accumulates low-overhead, thread-safe counters for a Pool. See
// fiberpool.Metrics for the identical pattern; a nil *Metrics is valid and
// simply does not accumulate.
type Metrics struct {
	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of a Metrics' counters.
type MetricsSnapshot struct {
	Submitted int64 // items pushed onto the ready queue or delay queue
	Completed int64 // worker items that returned (panic or not)
	Panics    int64 // worker items recovered from a panic
}

// Snapshot returns a copy of the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Submitted: m.submitted.Load(),
		Completed: m.completed.Load(),
		Panics:    m.panics.Load(),
	}
}

func (m *Metrics) addSubmitted() {
	if m != nil {
		m.submitted.Add(1)
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
