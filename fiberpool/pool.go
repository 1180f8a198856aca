// Package fiberpool implements the stackful-fiber scheduler: N worker
// goroutines multiplexing up to M concurrently-running "fibers" over an MPMC
// ready queue and a deadline-ordered timer set.
//
// Go has no portable, toolchain-unverifiable way to hand-roll a register
// level context switch, and does not need one: a goroutine already is a
// stackful, preemptible coroutine multiplexed M:N onto OS threads by the Go
// runtime. This package's "context switch" is therefore a channel handoff:
// dispatching a work item spawns it on its own goroutine gated by a
// semaphore.Weighted bounding the number of concurrently-running item
// bodies at M, and "resuming on any worker" falls out for free because the
// Go scheduler may run that goroutine's continuation on any OS thread once
// it becomes runnable again.
package fiberpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NGIN-ORG/NGIN.Base-sub001/executor"
	"github.com/NGIN-ORG/NGIN.Base-sub001/internal/ring"
	"github.com/NGIN-ORG/NGIN.Base-sub001/logx"
	"github.com/NGIN-ORG/NGIN.Base-sub001/syncx"
)

// FiberState mirrors the fiber state machine: Idle -> Running ->
// (Parked -> Idle | Terminated -> Idle).
type FiberState int32

const (
	FiberIdle FiberState = iota
	FiberRunning
	FiberParked
	FiberTerminated
)

func (s FiberState) String() string {
	switch s {
	case FiberIdle:
		return "idle"
	case FiberRunning:
		return "running"
	case FiberParked:
		return "parked"
	case FiberTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type timerEntry struct {
	deadline time.Time
	item     executor.WorkItem
}

type fiber struct {
	state atomic.Int32
}

// Pool is a fiber scheduler: N workers, M fiber slots, one shared ready
// queue, and one shared deadline-ordered timer set (the "global overflow
// shard"; true per-worker shard ownership needs a goroutine-affinity
// primitive Go does not expose without unsafe runtime introspection, so
// this implementation uses a single shard guarded by a Spinlock instead).
type Pool struct {
	opts options

	readyMu sync.Mutex
	ready   *ring.Buffer[executor.WorkItem]
	cond    *syncx.Cond

	timerLock syncx.Spinlock
	timers    []timerEntry

	sem       *semaphore.Weighted
	fibers    []fiber
	slotsMu   sync.Mutex
	freeSlots []int

	active atomic.Int64

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New starts a fiber scheduler with n worker goroutines multiplexing up to
// m fibers.
func New(n, m int, opts ...Option) *Pool {
	if n <= 0 {
		n = 1
	}
	if m <= 0 {
		m = n
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	freeSlots := make([]int, m)
	for i := range freeSlots {
		freeSlots[i] = i
	}
	p := &Pool{
		opts:      o,
		ready:     ring.New[executor.WorkItem](64),
		cond:      syncx.NewCond(),
		sem:       semaphore.NewWeighted(int64(m)),
		fibers:    make([]fiber, m),
		freeSlots: freeSlots,
	}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.workerLoop()
	}
	return p
}

// Execute submits item to the ready queue. This implementation never runs
// a submission inline: work always crosses the submit boundary rather than
// borrowing the caller's stack.
func (p *Pool) Execute(item executor.WorkItem) {
	p.enqueueReady(item)
}

// Schedule is equivalent to Execute here: this implementation never runs a
// submission inline.
func (p *Pool) Schedule(item executor.WorkItem) {
	p.enqueueReady(item)
}

// ScheduleAt enqueues item into the timer set to run at or after t.
func (p *Pool) ScheduleAt(item executor.WorkItem, t time.Time) {
	if p.closed.Load() {
		logx.Warnf(p.opts.logger, "fiberpool: schedule-at after close dropped", nil)
		return
	}
	p.timerLock.Lock()
	p.timers = ring.SortedInsert(p.timers, timerEntry{deadline: t, item: item}, func(e timerEntry) int64 {
		return e.deadline.UnixNano()
	})
	p.timerLock.Unlock()
	p.opts.metrics.addSubmitted()
	p.cond.NotifyOne()
}

// IsValid reports whether the pool is still accepting work.
func (p *Pool) IsValid() bool { return !p.closed.Load() }

// ActiveFibers reports the number of fiber bodies currently running.
func (p *Pool) ActiveFibers() int64 { return p.active.Load() }

// Metrics returns a snapshot of the counters attached via WithMetrics, or a
// zero snapshot if no Metrics was attached.
func (p *Pool) Metrics() MetricsSnapshot { return p.opts.metrics.Snapshot() }

func (p *Pool) enqueueReady(item executor.WorkItem) {
	if p.closed.Load() {
		logx.Warnf(p.opts.logger, "fiberpool: submit after close dropped", nil)
		return
	}
	p.readyMu.Lock()
	p.ready.PushBack(item)
	p.readyMu.Unlock()
	p.opts.metrics.addSubmitted()
	p.cond.NotifyOne()
}

func (p *Pool) popReady() (executor.WorkItem, bool) {
	p.readyMu.Lock()
	defer p.readyMu.Unlock()
	return p.ready.PopFront()
}

// drainRipeTimers moves every timer entry whose deadline has elapsed into
// the ready queue, and reports the deadline of the earliest remaining
// timer (zero Time if none).
func (p *Pool) drainRipeTimers(now time.Time) time.Time {
	p.timerLock.Lock()
	i := 0
	for i < len(p.timers) && !p.timers[i].deadline.After(now) {
		i++
	}
	ripe := p.timers[:i]
	p.timers = p.timers[i:]
	var next time.Time
	if len(p.timers) > 0 {
		next = p.timers[0].deadline
	}
	p.timerLock.Unlock()

	if len(ripe) > 0 {
		p.readyMu.Lock()
		for _, e := range ripe {
			p.ready.PushBack(e.item)
		}
		p.readyMu.Unlock()
	}
	return next
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		if p.closed.Load() {
			return
		}

		// Sample the generation before checking the queues: any Notify
		// racing in after this point (and before the Wait below) still
		// bumps the generation past g, so WaitFrom/WaitTimeout return
		// immediately instead of missing the wakeup.
		g := p.cond.Generation()

		if item, ok := p.popReady(); ok {
			p.dispatch(item)
			continue
		}

		next := p.drainRipeTimers(time.Now())
		if item, ok := p.popReady(); ok {
			p.dispatch(item)
			continue
		}

		if p.closed.Load() {
			return
		}
		if next.IsZero() {
			p.cond.WaitFrom(g)
		} else {
			d := time.Until(next)
			if d <= 0 {
				continue
			}
			p.cond.WaitTimeout(g, d)
		}
	}
}

// dispatch acquires a fiber slot (blocking if all M are busy, bounding
// concurrency as required), marks a slot Running, and runs item on a fresh
// goroutine that represents that fiber's execution context.
func (p *Pool) dispatch(item executor.WorkItem) {
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		return
	}
	slot := p.acquireSlot()
	p.fibers[slot].state.Store(int32(FiberRunning))
	p.active.Add(1)
	p.opts.metrics.addDispatched()

	// Tracked by the same WaitGroup Close() drains: called synchronously
	// from this worker's own goroutine, which itself holds its Done() open
	// until it returns, so this Add can never race a concurrent Wait
	// observing the counter at zero.
	p.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.opts.metrics.addPanic()
				logx.Errorf(p.opts.logger, "fiberpool: fiber panic", map[string]any{"recover": r})
				// A panicked body leaves its slot Terminated until reuse;
				// acquireSlot settles it back to Idle.
				p.fibers[slot].state.Store(int32(FiberTerminated))
			} else {
				p.fibers[slot].state.Store(int32(FiberIdle))
			}
			p.active.Add(-1)
			p.opts.metrics.addCompleted()
			p.releaseSlot(slot)
			p.sem.Release(1)
			p.wg.Done()
		}()
		item()
	}()
}

// Close stops accepting new work and waits for all in-flight fiber bodies
// to finish. Queued-but-not-yet-dispatched items are discarded.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	// Wake every worker parked in WaitFrom/WaitTimeout so each observes
	// closed and exits instead of blocking forever on an empty queue.
	p.cond.NotifyAll()
	p.wg.Wait()
}

// acquireSlot pops a free fiber slot index reserved by the semaphore
// acquire that precedes this call (so the free list is never empty here).
func (p *Pool) acquireSlot() int {
	p.slotsMu.Lock()
	defer p.slotsMu.Unlock()
	last := len(p.freeSlots) - 1
	slot := p.freeSlots[last]
	p.freeSlots = p.freeSlots[:last]
	p.fibers[slot].state.Store(int32(FiberIdle))
	return slot
}

// releaseSlot returns slot to the free list once its fiber body has
// finished, making it available to the next dispatch.
func (p *Pool) releaseSlot(slot int) {
	p.slotsMu.Lock()
	p.freeSlots = append(p.freeSlots, slot)
	p.slotsMu.Unlock()
}

// FiberStates returns a snapshot of every fiber slot's current state, for
// tests and metrics to observe the per-slot state machine.
func (p *Pool) FiberStates() []FiberState {
	states := make([]FiberState, len(p.fibers))
	for i := range p.fibers {
		states[i] = FiberState(p.fibers[i].state.Load())
	}
	return states
}
