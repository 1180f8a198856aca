package ref

import (
	"sync/atomic"
	"unsafe"

	"github.com/NGIN-ORG/NGIN.Base-sub001/alloc"
)

// controlBlock is the one-allocation control block shared by every Shared
// and Ticket referencing the same object: strong count (initial 1), weak
// count (initial 1, the implicit self-weak held while any strong owner
// exists), the allocator used for the single block allocation, and the
// payload itself.
type controlBlock[T any] struct {
	strong atomic.Int64
	weak   atomic.Int64
	a      alloc.Allocator
	value  T
}

// Shared is a shared-ownership reference; Ticket is its weak counterpart.
// Both wrap a pointer to the same controlBlock[T].
type Shared[T any] struct {
	cb *controlBlock[T]
}

type Ticket[T any] struct {
	cb *controlBlock[T]
}

// MakeShared constructs a new object of type T (a copy of value) through a
// single allocation from a, with strong=1 and weak=1 (the self-weak). As
// with Scoped, a == alloc.System() takes a GC-precise new(controlBlock[T])
// path; any other allocator carves the control block directly out of a's
// raw block, which is only safe for T without interior Go pointers.
func MakeShared[T any](a alloc.Allocator, value T) (Shared[T], error) {
	var cb *controlBlock[T]
	if alloc.IsSystem(a) {
		cb = new(controlBlock[T])
	} else {
		var zero controlBlock[T]
		size := unsafe.Sizeof(zero)
		align := unsafe.Alignof(zero)
		raw := a.Allocate(size, align)
		if raw == nil {
			return Shared[T]{}, ErrOutOfMemory
		}
		cb = (*controlBlock[T])(raw)
	}
	cb.a = a
	cb.value = value
	cb.strong.Store(1)
	cb.weak.Store(1)
	return Shared[T]{cb: cb}, nil
}

// Valid reports whether s references a live control block.
func (s Shared[T]) Valid() bool { return s.cb != nil }

// Get returns a pointer to the shared payload, or nil if s is empty.
// Callers must not dereference it once every Shared has been Released.
func (s Shared[T]) Get() *T {
	if s.cb == nil {
		return nil
	}
	return &s.cb.value
}

// UseCount returns the current strong reference count (diagnostic only,
// racy against concurrent Clone/Release by design -- the contract only
// requires it be accurate in the absence of concurrent mutators).
func (s Shared[T]) UseCount() int64 {
	if s.cb == nil {
		return 0
	}
	return s.cb.strong.Load()
}

// Clone increments the strong count and returns a new Shared referencing
// the same control block.
func (s Shared[T]) Clone() Shared[T] {
	if s.cb == nil {
		return Shared[T]{}
	}
	s.cb.strong.Add(1)
	return Shared[T]{cb: s.cb}
}

// Release decrements the strong count. When it reaches zero, the payload
// is considered destroyed (no further Get is valid) and the self-weak is
// released; if that was the last weak reference, the control block is
// freed through its stored allocator. Calling Release on an empty Shared
// is a no-op.
func (s *Shared[T]) Release() {
	cb := s.cb
	s.cb = nil
	if cb == nil {
		return
	}
	if cb.strong.Add(-1) == 0 {
		releaseWeak(cb)
	}
}

// Weak returns a Ticket referencing s's control block, incrementing the
// weak count.
func (s Shared[T]) Weak() Ticket[T] {
	if s.cb == nil {
		return Ticket[T]{}
	}
	s.cb.weak.Add(1)
	return Ticket[T]{cb: s.cb}
}

// Lock attempts to promote a Ticket to a Shared, succeeding only if the
// strong count has not already reached zero. It uses a CAS-increment loop
// so a concurrent final Release cannot resurrect a destroyed payload.
func (t Ticket[T]) Lock() (Shared[T], bool) {
	if t.cb == nil {
		return Shared[T]{}, false
	}
	for {
		cur := t.cb.strong.Load()
		if cur == 0 {
			return Shared[T]{}, false
		}
		if t.cb.strong.CompareAndSwap(cur, cur+1) {
			return Shared[T]{cb: t.cb}, true
		}
	}
}

// Clone increments the weak count and returns a new Ticket referencing the
// same control block.
func (t Ticket[T]) Clone() Ticket[T] {
	if t.cb == nil {
		return Ticket[T]{}
	}
	t.cb.weak.Add(1)
	return Ticket[T]{cb: t.cb}
}

// Release decrements the weak count, freeing the control block through its
// stored allocator if this was the last weak reference and the payload has
// already been destroyed (strong == 0). Calling Release on an empty
// Ticket is a no-op.
func (t *Ticket[T]) Release() {
	cb := t.cb
	t.cb = nil
	if cb == nil {
		return
	}
	releaseWeak(cb)
}

func releaseWeak[T any](cb *controlBlock[T]) {
	if cb.weak.Add(-1) == 0 {
		var zero controlBlock[T]
		size := unsafe.Sizeof(zero)
		align := unsafe.Alignof(zero)
		cb.a.Deallocate(unsafe.Pointer(cb), size, align)
	}
}
