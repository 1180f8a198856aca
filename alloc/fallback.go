package alloc

import (
	"unsafe"
)

const fallbackMagic uint32 = 0xFA11BAC2

// fallbackHeader is prepended to every allocation routed through the
// tagged path (used when primary/secondary do not both implement Owner).
// It records enough to reconstruct the original Deallocate call and select
// the originating allocator.
type fallbackHeader struct {
	rawBase  uintptr
	rawSize  uintptr
	rawAlign uintptr
	magic    uint32
	tag      uint8 // 0 = primary, 1 = secondary
}

var headerSize = unsafe.Sizeof(fallbackHeader{})
var headerAlign = unsafe.Alignof(fallbackHeader{})

// Fallback is a two-upstream allocator. If both upstreams implement Owner,
// Deallocate routes by Owns; otherwise every allocation is tagged with a
// prepended fallbackHeader identifying its origin. Allocate always tries
// primary first, falling back to secondary on failure.
type Fallback struct {
	primary   Allocator
	secondary Allocator
	tagged    bool
}

// NewFallback constructs a Fallback allocator. Tagging is used automatically
// whenever either upstream does not implement Owner.
func NewFallback(primary, secondary Allocator) *Fallback {
	_, pOwner := primary.(Owner)
	_, sOwner := secondary.(Owner)
	return &Fallback{primary: primary, secondary: secondary, tagged: !(pOwner && sOwner)}
}

func (f *Fallback) Allocate(size, align uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	align = NormalizeAlign(align)
	if !f.tagged {
		if p := f.primary.Allocate(size, align); p != nil {
			return p
		}
		return f.secondary.Allocate(size, align)
	}

	hdrAlign := align
	if headerAlign > hdrAlign {
		hdrAlign = headerAlign
	}
	total := AlignUp(headerSize, align) + size

	if raw := f.primary.Allocate(total, hdrAlign); raw != nil {
		return f.stamp(raw, total, hdrAlign, size, align, 0)
	}
	if raw := f.secondary.Allocate(total, hdrAlign); raw != nil {
		return f.stamp(raw, total, hdrAlign, size, align, 1)
	}
	return nil
}

func (f *Fallback) stamp(raw unsafe.Pointer, total, rawAlign, size, align uintptr, tag uint8) unsafe.Pointer {
	payloadOff := AlignUp(headerSize, align)
	payload := unsafe.Pointer(uintptr(raw) + payloadOff)
	hdr := (*fallbackHeader)(unsafe.Pointer(uintptr(payload) - headerSize))
	*hdr = fallbackHeader{
		rawBase:  uintptr(raw),
		rawSize:  total,
		rawAlign: rawAlign,
		magic:    fallbackMagic,
		tag:      tag,
	}
	return payload
}

func (f *Fallback) Deallocate(p unsafe.Pointer, size, align uintptr) {
	if p == nil {
		return
	}
	if !f.tagged {
		if Owns(f.primary, p) {
			f.primary.Deallocate(p, size, align)
			return
		}
		f.secondary.Deallocate(p, size, align)
		return
	}

	hdr := (*fallbackHeader)(unsafe.Pointer(uintptr(p) - headerSize))
	if hdr.magic != fallbackMagic {
		// Contract violation: not one of our allocations. No-op rather than
		// risk corrupting unrelated memory.
		return
	}
	raw := unsafe.Pointer(hdr.rawBase)
	if hdr.tag == 0 {
		f.primary.Deallocate(raw, hdr.rawSize, hdr.rawAlign)
	} else {
		f.secondary.Deallocate(raw, hdr.rawSize, hdr.rawAlign)
	}
}

func (f *Fallback) Owns(p unsafe.Pointer) bool {
	if !f.tagged {
		return Owns(f.primary, p) || Owns(f.secondary, p)
	}
	hdr := (*fallbackHeader)(unsafe.Pointer(uintptr(p) - headerSize))
	return hdr.magic == fallbackMagic
}

// MaxSize returns the saturating sum of both upstreams' MaxSize.
func (f *Fallback) MaxSize() uintptr { return saturatingAdd(MaxSize(f.primary), MaxSize(f.secondary)) }

// Remaining returns the saturating sum of both upstreams' Remaining.
func (f *Fallback) Remaining() uintptr {
	return saturatingAdd(Remaining(f.primary), Remaining(f.secondary))
}

func saturatingAdd(a, b uintptr) uintptr {
	sum := a + b
	if sum < a {
		return ^uintptr(0)
	}
	return sum
}
