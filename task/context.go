package task

import (
	"sync/atomic"
	"time"

	"github.com/NGIN-ORG/NGIN.Base-sub001/cancel"
	"github.com/NGIN-ORG/NGIN.Base-sub001/executor"
	"github.com/NGIN-ORG/NGIN.Base-sub001/logx"
)

// Context holds the executor reference, cancellation token, and logger bound
// to a running Task. It has no separate owner-chain field: a linked
// cancellation state is kept alive through the token's backing state (see
// WithLinkedCancellation). It is cheap to copy.
type Context struct {
	exec   executor.Ref
	token  cancel.Token
	logger logx.Logger
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithLogger installs l to receive diagnostic log entries from tasks bound
// to this context (recovered body panics). A nil l installs the no-op
// logger.
func WithLogger(l logx.Logger) ContextOption {
	return func(c *Context) {
		if l == nil {
			l = logx.Noop
		}
		c.logger = l
	}
}

// NewContext builds a Context from an executor and a cancellation token.
// The zero Token (cancel.Token{}) is valid and never cancels.
func NewContext(exec executor.Ref, token cancel.Token, opts ...ContextOption) *Context {
	c := &Context{exec: exec, token: token, logger: logx.Noop}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Executor returns the bound executor reference.
func (c *Context) Executor() executor.Ref { return c.exec }

// Token returns the bound cancellation token.
func (c *Context) Token() cancel.Token { return c.token }

// IsCancellationRequested reports whether the bound token has fired.
func (c *Context) IsCancellationRequested() bool { return c.token.Canceled() }

// WithLinkedCancellation returns a Context whose token cancels when either
// c's own token or any of extra fires, per the linked-cancellation design:
// the returned context's cancel.Source (and therefore its registrations) is
// kept alive by the Context value itself holding a reference into the
// composite source via its token's backing state.
func (c *Context) WithLinkedCancellation(extra ...cancel.Token) *Context {
	tokens := append([]cancel.Token{c.token}, extra...)
	composite := cancel.Any(tokens)
	return &Context{exec: c.exec, token: composite.Token(), logger: c.logger}
}

// YieldNow suspends the calling goroutine and schedules its resume on the
// same executor, returning to the caller only once that resume runs. It
// checks cancellation both on entry and on resume, per the suspension-point
// contract.
func (c *Context) YieldNow() error {
	if err := c.checkCanceled(); err != nil {
		return err
	}
	woken := make(chan struct{})
	c.exec.Execute(func() { close(woken) })
	<-woken
	return c.checkCanceled()
}

// Delay suspends until d elapses (computed as a monotonic deadline at call
// time) or the bound token cancels first, whichever happens first.
func (c *Context) Delay(d time.Duration) error {
	if err := c.checkCanceled(); err != nil {
		return err
	}
	if d < 0 {
		d = 0
	}
	deadline := time.Now().Add(d)

	var settled atomic.Bool
	timedOut := make(chan struct{})
	c.exec.ScheduleAt(func() {
		if settled.CompareAndSwap(false, true) {
			close(timedOut)
		}
	}, deadline)

	if !c.token.Valid() {
		<-timedOut
		return nil
	}

	canceledCh := make(chan struct{})
	var reg cancel.Registration
	cancel.Register(&reg, c.token, c.exec, func() {
		if settled.CompareAndSwap(false, true) {
			close(canceledCh)
		}
	}, nil)
	defer reg.Unregister()

	select {
	case <-timedOut:
		return nil
	case <-canceledCh:
		return NewAsyncError(Canceled, c.token.ThrowIfCanceled())
	}
}

func (c *Context) checkCanceled() error {
	if err := c.token.ThrowIfCanceled(); err != nil {
		return NewAsyncError(Canceled, err)
	}
	return nil
}

// inlineExecutor runs work items synchronously on the calling goroutine; it
// bridges cancel.Register's executor-based firing protocol into a direct
// unblock of a local channel.
type inlineExecutor struct{}

func (inlineExecutor) Execute(item func())                 { item() }
func (inlineExecutor) Schedule(item func())                { item() }
func (inlineExecutor) ScheduleAt(item func(), _ time.Time) { item() }
func (inlineExecutor) IsValid() bool                       { return true }
