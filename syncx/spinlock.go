// Package syncx implements the lock-free cooperative synchronization
// primitives: a backoff spinlock and a generation-counter condition
// variable, grounded on the cache-line-padded CAS state machine used by
// this module's scheduler lineage.
package syncx

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a single atomic-bool lock with try-lock-then-backoff
// acquisition. Fair ordering is not guaranteed. No blocking operation may
// be performed while held; any waiting inside this module's core uses Cond
// instead.
type Spinlock struct {
	locked atomic.Bool
}

// TryLock attempts to acquire the lock without blocking.
func (s *Spinlock) TryLock() bool {
	return s.locked.CompareAndSwap(false, true)
}

// Lock spins (with Gosched backoff after a short busy-spin) until acquired.
func (s *Spinlock) Lock() {
	spins := 0
	for !s.TryLock() {
		if spins < 32 {
			spins++
			continue
		}
		runtime.Gosched()
	}
}

// Unlock releases the lock. Unlocking an already-unlocked Spinlock is a
// contract violation and panics, matching the "no double-unlock" invariant
// debug builds would assert.
func (s *Spinlock) Unlock() {
	if !s.locked.CompareAndSwap(true, false) {
		panic("syncx: Unlock of unlocked Spinlock")
	}
}
