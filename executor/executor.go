// Package executor defines the uniform, capability-erased executor handle
// that the fiber and thread-pool schedulers both implement, and that the
// task and cancellation packages depend on without knowing which scheduler
// backs a given reference.
package executor

import "time"

// WorkItem is a unit of enqueued work: either a coroutine resume closure or
// a type-erased nullary callable. Both collapse to the same Go type.
type WorkItem = func()

// Ref is an opaque handle comprising a pointer to a scheduler and its
// capability surface. It is cheap to copy and does not own the underlying
// scheduler; a coroutine promise may hold it across suspension points.
type Ref interface {
	// Execute submits item to run at the earliest opportunity. Some
	// implementations may run it inline when policy allows.
	Execute(item WorkItem)
	// Schedule is equivalent to Execute but never runs item inline; it
	// always crosses a submit boundary.
	Schedule(item WorkItem)
	// ScheduleAt enqueues item into the timer set, to run at or after the
	// monotonic deadline t.
	ScheduleAt(item WorkItem, t time.Time)
	// IsValid reports whether this reference still targets a live
	// scheduler.
	IsValid() bool
}
