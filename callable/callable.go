// Package callable implements a signature-typed, type-erased invocable,
// grounded on the reflect-based dispatch used elsewhere in this module's
// lineage for dynamic invocation (shallow-copying arbitrary values via
// reflect.Value rather than hand-rolled byte-level small-buffer storage,
// which buys nothing over a plain Go closure and would make the value
// opaque to the garbage collector).
package callable

import (
	"errors"
	"reflect"
)

// ErrBadCall is returned by Invoke on an empty (zero-value or moved-from)
// Callable.
var ErrBadCall = errors.New("callable: invocation of empty callable")

// ErrNotCopyable is returned by Copy when the Callable was constructed with
// NewNotCopyable.
var ErrNotCopyable = errors.New("callable: value is not copy-constructible")

// NoCopy is embedded by a closure's receiver struct to mark it
// non-copy-constructible, mirroring sync.noCopy's role as a vet-visible
// marker. Callable has no way to inspect a plain func value's captures, so
// callers that close over a NoCopy-embedding struct must construct the
// Callable with NewNotCopyable instead of New to make that intent explicit.
type NoCopy struct{}

// Callable is a copy/move-aware, type-erased invocable: "Signature R(Args...)".
// The zero value is empty and behaves as a moved-from callable.
type Callable struct {
	fn       reflect.Value
	copyable bool
}

// New wraps any function value f. f must be a non-nil func; New panics
// otherwise, matching the contract that construction from an incompatible
// signature is a programmer error detected immediately rather than
// deferred to first invocation. The result is copy-constructible; use
// NewNotCopyable for captures that must not be duplicated.
func New(f any) Callable {
	return newCallable(f, true)
}

// NewNotCopyable wraps f the same way New does, but marks the result as not
// copy-constructible: Copy subsequently fails with ErrNotCopyable. Use this
// when f closes over a value embedding NoCopy or otherwise cannot safely be
// duplicated.
func NewNotCopyable(f any) Callable {
	return newCallable(f, false)
}

func newCallable(f any, copyable bool) Callable {
	if f == nil {
		panic("callable: New(nil)")
	}
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic("callable: New requires a non-nil function value")
	}
	return Callable{fn: v, copyable: copyable}
}

// Empty reports whether c holds no callable (zero value, or moved-from via
// Take).
func (c Callable) Empty() bool { return !c.fn.IsValid() }

// Invoke calls the wrapped function with args, returning ErrBadCall if c is
// empty. Panics from the wrapped function are not recovered here; callers
// running inside a scheduler worker rely on that worker's own recovery.
func (c Callable) Invoke(args ...any) (results []any, err error) {
	if c.Empty() {
		return nil, ErrBadCall
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.New(c.fn.Type().In(i)).Elem()
		} else {
			in[i] = reflect.ValueOf(a)
		}
	}
	out := c.fn.Call(in)
	results = make([]any, len(out))
	for i, o := range out {
		results[i] = o.Interface()
	}
	return results, nil
}

// Copy returns an independent copy of c. It fails with ErrNotCopyable if c
// was constructed with NewNotCopyable; embedding NoCopy in a captured value
// does not by itself affect Copy.
func (c Callable) Copy() (Callable, error) {
	if c.Empty() {
		return Callable{}, nil
	}
	if !c.copyable {
		return Callable{}, ErrNotCopyable
	}
	return c, nil
}

// Take moves c out, leaving the receiver's backing storage pointing at an
// empty callable from the caller's perspective. Go values are not aliased
// references, so "move" here means: return c's payload and instruct the
// caller to discard its original handle. Take is provided for API parity
// with the move-only contract; callers that merely want to read should use
// Invoke directly.
func (c *Callable) Take() Callable {
	out := *c
	*c = Callable{}
	return out
}

// Swap exchanges the contents of a and b in O(1), matching the contract's
// requirement that Swap never allocates regardless of inline/heap storage
// (a distinction this reflect-based implementation does not need to make).
func Swap(a, b *Callable) {
	*a, *b = *b, *a
}
