package ref

import (
	"unsafe"

	"github.com/NGIN-ORG/NGIN.Base-sub001/alloc"
)

// Scoped is a single-owner handle holding a pointer and an allocator by
// value: move-only, with the zero value representing a valid null state.
// Destruction returns the backing block to the allocator (a no-op for the
// system allocator, whose memory the garbage collector already reclaims).
type Scoped[T any] struct {
	ptr   *T
	a     alloc.Allocator
	moved bool
}

// NewScoped constructs a Scoped[T] holding a copy of value, allocated
// through a. When a is alloc.System(), the control value is allocated with
// a plain new(T) so the garbage collector can precisely scan any pointers
// T itself contains; for any other allocator, the value is carved directly
// out of that allocator's raw block via an unsafe reinterpretation, which
// is only safe for payload types without interior Go pointers (POD-style
// payloads).
func NewScoped[T any](a alloc.Allocator, value T) (Scoped[T], error) {
	if alloc.IsSystem(a) {
		p := new(T)
		*p = value
		return Scoped[T]{ptr: p, a: a}, nil
	}

	var zero T
	size := unsafe.Sizeof(zero)
	align := unsafe.Alignof(zero)
	raw := a.Allocate(size, align)
	if raw == nil {
		return Scoped[T]{}, ErrOutOfMemory
	}
	p := (*T)(raw)
	*p = value
	return Scoped[T]{ptr: p, a: a}, nil
}

// Valid reports whether s holds a live object (false for the zero value or
// after Take).
func (s *Scoped[T]) Valid() bool { return s.ptr != nil }

// Get returns a pointer to the owned value, or nil if s is null or
// moved-from.
func (s *Scoped[T]) Get() *T { return s.ptr }

// Take moves the owned value out of s: s becomes the zero (null) Scoped,
// and the returned Scoped owns what s used to own. Self-moves
// (s.Take() assigned back to *s) are idempotent since the receiver is
// cleared before the caller can observe the result.
func (s *Scoped[T]) Take() Scoped[T] {
	out := *s
	*s = Scoped[T]{}
	return out
}

// Release destroys the owned value (if any) and returns its backing memory
// to the allocator it was constructed with. Release is idempotent: calling
// it again on an already-released or null Scoped is a no-op.
func (s *Scoped[T]) Release() {
	if s.ptr == nil {
		return
	}
	var zero T
	size := unsafe.Sizeof(zero)
	align := unsafe.Alignof(zero)
	s.a.Deallocate(unsafe.Pointer(s.ptr), size, align)
	s.ptr = nil
}
