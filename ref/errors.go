// Package ref implements the allocator-parametric smart references:
// move-only Scoped[T], and the shared/weak pair Shared[T]/Ticket[T]
// sharing one control-block allocation per object.
package ref

import "errors"

// ErrOutOfMemory is returned by the factory constructors (NewScoped,
// MakeShared) when the backing allocator cannot satisfy the request. Per
// the allocator contract, Allocate itself never panics; only these
// factories surface the failure, as an error value.
var ErrOutOfMemory = errors.New("ref: out of memory")

// ErrMoved names use of a moved-from Scoped[T]. Scoped's accessors do not
// return it: after Take, Valid reports false and Get returns nil.
var ErrMoved = errors.New("ref: use of moved-from Scoped")
