// Package alloc implements the allocator contract described by the engine's
// memory model: a polymorphic typed-allocator trait with optional ownership
// and capacity queries, plus two concrete allocators (an arena and a
// two-upstream tagged fallback) used to illustrate the contract.
package alloc

import (
	"errors"
	"math"
	"math/bits"
	"unsafe"
)

// ErrOutOfMemory is returned by factory helpers (not Allocator.Allocate
// itself, which signals failure via a nil pointer) when an allocation could
// not be satisfied.
var ErrOutOfMemory = errors.New("alloc: out of memory")

// Allocator is the polymorphic typed-allocator trait. Allocate returns nil
// (never panics) when the request cannot be satisfied. Deallocate must be
// called with the exact size and alignment originally requested; a nil
// pointer is always a no-op.
type Allocator interface {
	Allocate(size, align uintptr) unsafe.Pointer
	Deallocate(p unsafe.Pointer, size, align uintptr)
}

// Owner is implemented by allocators that can answer conservative membership
// queries. Absence of this interface implies only "unknown", never "not
// owned" -- callers must treat a missing Owner the same as an Owns that
// always returns false would be unsafe to assume.
type Owner interface {
	Owns(p unsafe.Pointer) bool
}

// Capacity is implemented by allocators that can report bounds.
type Capacity interface {
	MaxSize() uintptr
	Remaining() uintptr
}

// Traits describes how a composite container propagates an allocator value
// across copy, move, and swap. No type in this module consults it: ref's
// Shared and Scoped keep the allocator they were constructed with.
type Traits struct {
	PropagateOnCopy bool
	PropagateOnMove bool
	PropagateOnSwap bool
	IsAlwaysEqual   bool
}

// TraitsProvider is implemented by allocators with non-default propagation
// traits. Its absence implies the zero Traits (never propagate, not always
// equal), matching the conservative default for a stateful allocator.
type TraitsProvider interface {
	Traits() Traits
}

// DefaultMaxAlign is the alignment guaranteed for any allocation regardless
// of the requested alignment, mirroring C's max_align_t guarantee.
const DefaultMaxAlign = unsafe.Alignof(struct {
	a int64
	b float64
	c unsafe.Pointer
}{})

// NormalizeAlign rounds a up to the next power of two no smaller than
// DefaultMaxAlign, matching the contract's "alignment normalized to a power
// of two >= machine minimum" requirement.
func NormalizeAlign(a uintptr) uintptr {
	if a < DefaultMaxAlign {
		a = DefaultMaxAlign
	}
	if a&(a-1) != 0 {
		a = uintptr(1) << bits.Len(uint(a))
	}
	return a
}

// AlignUp rounds p up to the nearest multiple of align, which must be a
// power of two.
func AlignUp(p, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}

// Owns reports whether a, or any Owner it exposes, claims ownership of p. It
// returns false (meaning "unknown") when a does not implement Owner.
func Owns(a Allocator, p unsafe.Pointer) bool {
	if o, ok := a.(Owner); ok {
		return o.Owns(p)
	}
	return false
}

// MaxSize returns a's reported maximum single allocation size, or
// math.MaxInt64 when a does not implement Capacity.
func MaxSize(a Allocator) uintptr {
	if c, ok := a.(Capacity); ok {
		return c.MaxSize()
	}
	return math.MaxInt64
}

// Remaining returns a's reported remaining capacity, or math.MaxInt64 when a
// does not implement Capacity.
func Remaining(a Allocator) uintptr {
	if c, ok := a.(Capacity); ok {
		return c.Remaining()
	}
	return math.MaxInt64
}
