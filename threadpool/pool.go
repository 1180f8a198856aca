// Package threadpool implements the thread-pool scheduler: the same
// external executor.Ref contract as fiberpool, but with a fixed set of N
// worker goroutines and no pooled stack. Each dispatched item runs inline,
// to completion, on whichever worker goroutine pops it off the ready queue
// -- there is no per-item goroutine spawn the way fiberpool.dispatch does
// one per fiber. Callers must only ever submit short, non-blocking work
// items here: a work item that blocks its calling goroutine (rather than
// suspending cooperatively via the executor) ties up that worker until it
// unblocks, and once all N workers are stuck this way the pool deadlocks,
// since nothing is left to drain the queue the unblocking event is
// waiting on. The task package relies on this: Task bodies and generator
// producers always run on their own dedicated goroutine rather than being
// submitted as a work item, precisely to keep this pool's worker set free.
package threadpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/NGIN-ORG/NGIN.Base-sub001/executor"
	"github.com/NGIN-ORG/NGIN.Base-sub001/internal/ring"
	"github.com/NGIN-ORG/NGIN.Base-sub001/logx"
	"github.com/NGIN-ORG/NGIN.Base-sub001/syncx"
)

type timerEntry struct {
	deadline time.Time
	item     executor.WorkItem
}

// Pool is a thread-pool scheduler: N worker goroutines draining a shared
// ready queue and a shared deadline-ordered delay queue.
type Pool struct {
	opts options

	readyMu sync.Mutex
	ready   *ring.Buffer[executor.WorkItem]
	cond    *syncx.Cond

	timerLock syncx.Spinlock
	timers    []timerEntry

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New starts a thread-pool scheduler with n worker goroutines.
func New(n int, opts ...Option) *Pool {
	if n <= 0 {
		n = 1
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool{
		opts:  o,
		ready: ring.New[executor.WorkItem](64),
		cond:  syncx.NewCond(),
	}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.workerLoop()
	}
	return p
}

// Execute submits item to the ready queue.
func (p *Pool) Execute(item executor.WorkItem) { p.enqueueReady(item) }

// Schedule is equivalent to Execute: this implementation never inlines.
func (p *Pool) Schedule(item executor.WorkItem) { p.enqueueReady(item) }

// ScheduleAt enqueues item into the delay queue to run at or after t.
func (p *Pool) ScheduleAt(item executor.WorkItem, t time.Time) {
	if p.closed.Load() {
		logx.Warnf(p.opts.logger, "threadpool: schedule-at after close dropped", nil)
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

// Metrics returns a snapshot of the counters attached via WithMetrics, or a
// zero snapshot if no Metrics was attached.
func (p *Pool) Metrics() MetricsSnapshot { return p.opts.metrics.Snapshot() }

func (p *Pool) enqueueReady(item executor.WorkItem) {
	if p.closed.Load() {
		logx.Warnf(p.opts.logger, "threadpool: submit after close dropped", nil)
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
			p.runSafely(item)
			continue
		}

		next := p.drainRipeTimers(time.Now())
		if item, ok := p.popReady(); ok {
			p.runSafely(item)
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

func (p *Pool) runSafely(item executor.WorkItem) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.metrics.addPanic()
			logx.Errorf(p.opts.logger, "threadpool: worker panic", map[string]any{"recover": r})
		}
		p.opts.metrics.addCompleted()
	}()
	item()
}

// Close stops accepting new work and waits for all currently running
// workers to finish their current item.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cond.NotifyAll()
	p.wg.Wait()
}
