package task

import (
	"fmt"
	"sync"

	"github.com/NGIN-ORG/NGIN.Base-sub001/cancel"
	"github.com/NGIN-ORG/NGIN.Base-sub001/executor"
	"github.com/NGIN-ORG/NGIN.Base-sub001/logx"
)

// Body is the function a Task[T] runs: the coroutine frame, modeled as a
// single Go function taking the bound Context. Suspension points are plain
// blocking calls on the Context rather than compiler-inserted resume
// machinery.
type Body[T any] func(ctx *Context) (T, error)

// Task owns a result slot (value or AsyncError), a single continuation
// slot, and the executor+token it was started with. It is created already
// running: Start spawns a dedicated goroutine for the body immediately,
// matching this package's "no default global scheduler, always explicit"
// policy -- there is no separate suspended-then-started state machine to
// model in Go, since the goroutine backing the body does not exist until
// Start creates it.
type Task[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
	err  error
	cont executor.WorkItem

	exec   executor.Ref
	token  cancel.Token
	logger logx.Logger
}

// Start binds ctx's executor and cancellation token to a new Task and runs
// its body on a dedicated goroutine, mirroring the promise contract's
// Start(ctx): store exec/token, begin running.
//
// The body does not run as a work item submitted to exec: a Body is free to
// block its goroutine at any suspension point (Await, YieldNow, Delay), and
// on threadpool.Pool those items run inline on a fixed-size worker goroutine
// rather than each getting their own. Submitting the body itself there would
// let enough concurrently-blocked bodies starve every worker and deadlock
// the pool. Only the short, non-blocking resume each suspension point
// installs as its continuation goes through exec.Execute; the body's own
// execution always gets its own goroutine, on both schedulers.
func Start[T any](ctx *Context, body Body[T]) *Task[T] {
	t := &Task[T]{exec: ctx.exec, token: ctx.token, logger: ctx.logger}
	go t.run(body)
	return t
}

func (t *Task[T]) run(body Body[T]) {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf(t.logger, "task: body panic", map[string]any{"recover": r})
			var zero T
			t.complete(zero, NewAsyncError(Fault, fmt.Errorf("panic: %v", r)))
		}
	}()

	childCtx := &Context{exec: t.exec, token: t.token, logger: t.logger}
	if err := childCtx.checkCanceled(); err != nil {
		var zero T
		t.complete(zero, err)
		return
	}

	v, err := body(childCtx)
	if err != nil {
		if ae, ok := err.(*AsyncError); ok {
			t.complete(v, ae)
			return
		}
		t.complete(v, NewAsyncError(Fault, err))
		return
	}
	t.complete(v, nil)
}

// complete publishes the result under the slot lock (release) and, if a
// continuation was installed, schedules it via the executor; the
// continuation's subsequent Await acquire-reads this same lock, giving the
// producer-store/consumer-load ordering the task contract requires.
func (t *Task[T]) complete(v T, err error) {
	t.mu.Lock()
	t.val, t.err, t.done = v, err, true
	cont := t.cont
	t.cont = nil
	t.mu.Unlock()

	if cont != nil {
		t.exec.Execute(cont)
	}
}

// Done reports whether the task has produced a result, corresponding to
// await_ready().
func (t *Task[T]) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Await blocks the calling goroutine until the task completes (or ctx's
// token cancels first), returning the produced value and error. Only one
// Await may be outstanding on a Task at a time, matching the single
// continuation slot in the task's promise.
func (t *Task[T]) Await(ctx *Context) (T, error) {
	t.mu.Lock()
	if t.done {
		v, err := t.val, t.err
		t.mu.Unlock()
		return v, err
	}
	woken := make(chan struct{})
	t.cont = func() { close(woken) }
	t.mu.Unlock()

	if ctx != nil && ctx.token.Valid() {
		canceledCh := make(chan struct{})
		var reg cancel.Registration
		cancel.Register(&reg, ctx.token, inlineExecutor{}, func() { close(canceledCh) }, nil)
		defer reg.Unregister()
		select {
		case <-woken:
		case <-canceledCh:
			var zero T
			return zero, NewAsyncError(Canceled, ctx.token.ThrowIfCanceled())
		}
	} else {
		<-woken
	}

	t.mu.Lock()
	v, err := t.val, t.err
	t.mu.Unlock()
	return v, err
}

// AwaitAny is the type-erased form of Await used by combinators holding a
// heterogeneous slice of awaitables; see the Awaitable interface.
func (t *Task[T]) AwaitAny(ctx *Context) (any, error) {
	return t.Await(ctx)
}

// Awaitable is implemented by *Task[T] for any T, letting combinators such
// as WhenAny/WhenAll/Select operate over a mixed-type slice without
// reflection.
type Awaitable interface {
	AwaitAny(ctx *Context) (any, error)
}
