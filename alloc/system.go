package alloc

import (
	"math"
	"runtime"
	"unsafe"
)

// systemAllocator delegates to Go's own allocator (make([]byte, n) under the
// hood) and performs no bookkeeping: Deallocate is a no-op left to the
// garbage collector, and Owns conservatively reports false ("unknown")
// rather than scanning the heap. ref.Shared and ref.Scoped special-case this
// allocator, allocating control blocks with a typed new(T) so the GC can
// precisely scan payloads containing further pointers; see ref's package doc.
type systemAllocator struct{}

var theSystem = &systemAllocator{}

// System returns the process-wide system allocator singleton. It never
// fails an allocation short of the Go runtime itself running out of memory
// (in which case, as with any Go program, the process is terminated by the
// runtime rather than observing a nil pointer).
func System() Allocator { return theSystem }

func (*systemAllocator) Allocate(size, align uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	align = NormalizeAlign(align)
	// Over-allocate to satisfy arbitrary alignment requests, then align up.
	buf := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	aligned := AlignUp(base, align)
	p := unsafe.Pointer(aligned)
	// base/aligned are uintptr, not pointer-typed, so buf has no other
	// GC-visible reference from this point on; keep it alive until p (which
	// may point into the interior of buf) has been returned to the caller.
	runtime.KeepAlive(buf)
	return p
}

func (*systemAllocator) Deallocate(unsafe.Pointer, uintptr, uintptr) {
	// Left to the garbage collector.
}

func (*systemAllocator) Owns(unsafe.Pointer) bool { return false }

func (*systemAllocator) MaxSize() uintptr   { return math.MaxInt64 }
func (*systemAllocator) Remaining() uintptr { return math.MaxInt64 }

// IsSystem reports whether a is the System allocator singleton. ref uses
// this to decide whether it may construct control blocks with a precise,
// GC-scanned new(T) rather than carving raw bytes out of a's block.
func IsSystem(a Allocator) bool { return a == theSystem }
