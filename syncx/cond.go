package syncx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Cond is the generation-counter condition variable ("AtomicCondition"): a
// single 32-bit atomic generation counter plus a channel rebuilt on every
// notification, giving the same miss-proof semantics a futex-backed
// implementation would without a platform-specific syscall. Generation
// wrap (2^32) is tolerated because waiters test for any inequality, not a
// specific successor value.
type Cond struct {
	gen atomic.Uint32

	mu   sync.Mutex
	wake chan struct{} // closed and replaced on every Notify*
}

// NewCond returns a ready-to-use Cond.
func NewCond() *Cond {
	return &Cond{wake: make(chan struct{})}
}

// Generation returns the current generation counter value, suitable for a
// subsequent Wait(g) call establishing a predicate-loop baseline.
func (c *Cond) Generation() uint32 { return c.gen.Load() }

// Wait blocks until the generation counter differs from its value observed
// at call entry.
func (c *Cond) Wait() {
	c.WaitFrom(c.Generation())
}

// WaitFrom blocks until the generation counter differs from g. It returns
// immediately if that is already true.
func (c *Cond) WaitFrom(g uint32) {
	for {
		c.mu.Lock()
		if c.gen.Load() != g {
			c.mu.Unlock()
			return
		}
		ch := c.wake
		c.mu.Unlock()
		<-ch
		if c.gen.Load() != g {
			return
		}
	}
}

// WaitContext blocks until the generation counter differs from g or ctx is
// done, whichever happens first. It returns ctx.Err() on the latter.
func (c *Cond) WaitContext(ctx context.Context, g uint32) error {
	for {
		if c.gen.Load() != g {
			return nil
		}
		c.mu.Lock()
		if c.gen.Load() != g {
			c.mu.Unlock()
			return nil
		}
		ch := c.wake
		c.mu.Unlock()
		select {
		case <-ch:
			if c.gen.Load() != g {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitTimeout blocks until the generation counter differs from g or d
// elapses. Duration zero or negative returns immediately with timedOut
// true when the generation has not already advanced. It reports whether
// the wait timed out.
func (c *Cond) WaitTimeout(g uint32, d time.Duration) (timedOut bool) {
	if c.gen.Load() != g {
		return false
	}
	if d <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := c.WaitContext(ctx, g)
	return err != nil
}

// NotifyOne wakes at least one waiter. Because the wake mechanism is a
// closed channel broadcast rather than a single-receiver primitive, in
// practice this wakes every currently blocked waiter (a permitted, if not
// minimal, implementation of "notify one"); each re-checks the generation
// and only one proceeds to whatever external resource it was guarding.
func (c *Cond) NotifyOne() { c.notify() }

// NotifyAll wakes every waiter blocked on the current generation.
func (c *Cond) NotifyAll() { c.notify() }

func (c *Cond) notify() {
	c.gen.Add(1)
	c.mu.Lock()
	old := c.wake
	c.wake = make(chan struct{})
	c.mu.Unlock()
	close(old)
}
