// Package cancel implements cooperative cancellation: a Source that can
// transition canceled false->true exactly once, a lightweight Token
// referencing that shared state, and Registrations connecting a
// cancellation to a scheduler resume. The design follows the W3C DOM
// AbortController/AbortSignal pattern used by this module's lineage,
// generalized from a two-source "linked state" to Any's n-ary form.
package cancel

import (
	"sync"

	"github.com/NGIN-ORG/NGIN.Base-sub001/executor"
)

// Callback decides whether a firing registration should proceed to
// reschedule its resume handle. Returning true authorizes the resume;
// false suppresses it.
type Callback func() bool

// state is the shared cancellation state owned by a Source and referenced
// by any number of Tokens and Registrations.
type state struct {
	mu       sync.Mutex
	canceled bool
	reason   any
	regs     []*Registration
}

// Source owns a cancellation state and can cancel it exactly once.
type Source struct {
	s *state
}

// NewSource creates a Source with a fresh, not-yet-canceled state.
func NewSource() *Source {
	return &Source{s: &state{}}
}

// Token returns a lightweight reference to this source's state.
func (s *Source) Token() Token {
	return Token{s: s.s}
}

// Cancel transitions the state to canceled, firing every armed
// registration. A nil reason defaults to ErrCanceled. Calling Cancel more
// than once has no additional effect.
func (s *Source) Cancel(reason any) {
	if reason == nil {
		reason = ErrCanceled
	}
	s.s.mu.Lock()
	if s.s.canceled {
		s.s.mu.Unlock()
		return
	}
	s.s.canceled = true
	s.s.reason = reason
	regs := make([]*Registration, len(s.s.regs))
	copy(regs, s.s.regs)
	s.s.regs = nil
	s.s.mu.Unlock()

	for _, r := range regs {
		r.fire(reason)
	}
}

// Token is a lightweight reference to a Source's shared state.
type Token struct {
	s *state
}

// Canceled reports whether the token's source has canceled.
func (t Token) Canceled() bool {
	if t.s == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.canceled
}

// Reason returns the cancellation reason, or nil if not yet canceled.
func (t Token) Reason() any {
	if t.s == nil {
		return nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.reason
}

// ThrowIfCanceled returns a *CanceledError carrying the cancellation reason
// (which it unwraps to when the reason is an error, e.g. ErrCanceled for a
// nil-reason Cancel) when the token's source has canceled, nil otherwise.
func (t Token) ThrowIfCanceled() error {
	if !t.Canceled() {
		return nil
	}
	reason := t.Reason()
	if err, ok := reason.(error); ok {
		return &CanceledError{Reason: err}
	}
	return &CanceledError{Reason: reason}
}

// Valid reports whether this token references a real Source (the zero
// Token is invalid and behaves as never-canceled).
func (t Token) Valid() bool { return t.s != nil }

// Registration connects a cancellation state to a scheduler resume. It
// carries an executor reference, the resume work item, an optional
// callback, an armed flag, and its index in the state's registration slice.
type Registration struct {
	exec   executor.Ref
	resume executor.WorkItem
	cb     Callback
	s      *state
	armed  bool
	index  int
}

// Register arms out against t: if t is already canceled, cb (if non-nil)
// is invoked immediately and, if it authorizes the resume (or is nil), exec
// is asked to Execute resume; otherwise out is appended to the state's
// registration array for later firing by Source.Cancel.
func Register(out *Registration, t Token, exec executor.Ref, resume executor.WorkItem, cb Callback) {
	// Detach first: a reused Registration still armed on another state
	// would otherwise leave that state holding a dangling pointer to out.
	out.Unregister()
	*out = Registration{exec: exec, resume: resume, cb: cb}
	if !t.Valid() {
		return
	}
	out.s = t.s

	t.s.mu.Lock()
	if t.s.canceled {
		reason := t.s.reason
		t.s.mu.Unlock()
		out.invoke(reason)
		return
	}
	out.armed = true
	out.index = len(t.s.regs)
	t.s.regs = append(t.s.regs, out)
	t.s.mu.Unlock()
}

// Unregister detaches out from its state's registration array using the
// recorded index (falling back to a linear scan if the array has shifted),
// so that a firing Source.Cancel will not invoke it.
func (r *Registration) Unregister() {
	if r.s == nil {
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.armed {
		return
	}
	r.armed = false
	regs := r.s.regs
	if r.index < len(regs) && regs[r.index] == r {
		last := len(regs) - 1
		regs[r.index] = regs[last]
		regs[r.index].index = r.index
		r.s.regs = regs[:last]
		return
	}
	for i, reg := range regs {
		if reg == r {
			last := len(regs) - 1
			regs[i] = regs[last]
			regs[i].index = i
			r.s.regs = regs[:last]
			return
		}
	}
}

// Reset detaches out from firing without discarding the struct itself; a
// subsequent firing source will not invoke it again.
func (r *Registration) Reset() { r.Unregister() }

func (r *Registration) fire(reason any) {
	r.s.mu.Lock()
	if !r.armed {
		r.s.mu.Unlock()
		return
	}
	r.armed = false
	r.s.mu.Unlock()
	r.invoke(reason)
}

func (r *Registration) invoke(reason any) {
	proceed := true
	if r.cb != nil {
		proceed = r.cb()
	}
	if proceed && r.resume != nil && r.exec != nil {
		r.exec.Execute(r.resume)
	}
}
