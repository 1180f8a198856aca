package task

import (
	"sync/atomic"

	"github.com/NGIN-ORG/NGIN.Base-sub001/cancel"
)

type genMsg[T any] struct {
	val T
	err error
	end bool
}

// ProducerBody is the function an AsyncGenerator[T] runs. It calls yield
// for each produced value; yield blocks until a consumer pulls it. If the
// generator's token has canceled by the time that pull arrives, yield hands
// the cancellation to the consumer instead of the value and returns a
// non-nil error; cancellation alone does not unblock a waiting yield. Returning a
// non-nil error from ProducerBody itself is this package's ReturnError
// equivalent: it is surfaced by the next Next call in place of a clean
// end-of-stream.
type ProducerBody[T any] func(ctx *Context, yield func(T) error) error

// AsyncGenerator is a pull generator: the producer yields via the supplied
// yield function, and a single consumer pulls values via Next. Concurrent
// Next calls are forbidden and generators are not restartable.
type AsyncGenerator[T any] struct {
	reqCh  chan struct{}
	respCh chan genMsg[T]
	inUse  atomic.Bool
	// pending records that a canceled Next left its pull request's
	// response undrained; the next Next consumes that response instead of
	// issuing a fresh request, so no produced value is ever lost to a
	// cancellation race. Guarded by inUse rather than its own lock.
	pending bool
}

// NewGenerator starts body on a dedicated goroutine and returns the
// generator handle. The first value is not produced until the first Next
// call pulls it, per the pull-style contract.
//
// The producer goroutine spends its whole lifetime blocked on reqCh/respCh
// handoffs, so it is not submitted through ctx.exec.Execute: on
// threadpool.Pool that would pin a permanently-blocked body onto one of a
// fixed set of worker goroutines instead of a goroutine of its own.
func NewGenerator[T any](ctx *Context, body ProducerBody[T]) *AsyncGenerator[T] {
	g := &AsyncGenerator[T]{
		reqCh:  make(chan struct{}, 1),
		respCh: make(chan genMsg[T], 1),
	}

	childCtx := &Context{exec: ctx.exec, token: ctx.token, logger: ctx.logger}
	go func() {
		yield := func(v T) error {
			<-g.reqCh
			if err := childCtx.checkCanceled(); err != nil {
				g.respCh <- genMsg[T]{err: err}
				return err
			}
			g.respCh <- genMsg[T]{val: v}
			return nil
		}

		err := body(childCtx, yield)
		<-g.reqCh
		if err != nil {
			if ae, ok := err.(*AsyncError); ok {
				g.respCh <- genMsg[T]{err: ae}
			} else {
				g.respCh <- genMsg[T]{err: NewAsyncError(Fault, err)}
			}
			return
		}
		g.respCh <- genMsg[T]{end: true}
	}()

	return g
}

// Next pulls the next value: (value, true, nil) on a produced value,
// (zero, false, nil) on clean end-of-stream, or (zero, false, err) on
// cancellation or a producer-reported error.
func (g *AsyncGenerator[T]) Next(ctx *Context) (T, bool, error) {
	var zero T
	if !g.inUse.CompareAndSwap(false, true) {
		return zero, false, NewAsyncError(InvalidState, errConcurrentNext)
	}
	defer g.inUse.Store(false)

	if !g.pending {
		g.reqCh <- struct{}{}
	}

	if ctx != nil && ctx.token.Valid() {
		canceledCh := make(chan struct{})
		var reg cancel.Registration
		cancel.Register(&reg, ctx.token, inlineExecutor{}, func() { close(canceledCh) }, nil)
		defer reg.Unregister()
		select {
		case msg := <-g.respCh:
			g.pending = false
			return fromGenMsg(msg)
		case <-canceledCh:
			// The producer already observed the outstanding pull request
			// and will push exactly one response into respCh (buffer 1);
			// leave it pending so the next Next consumes it rather than
			// issuing a second request and losing a value.
			g.pending = true
			return zero, false, NewAsyncError(Canceled, ctx.token.ThrowIfCanceled())
		}
	}

	msg := <-g.respCh
	g.pending = false
	return fromGenMsg(msg)
}

func fromGenMsg[T any](msg genMsg[T]) (T, bool, error) {
	if msg.err != nil {
		var zero T
		return zero, false, msg.err
	}
	if msg.end {
		var zero T
		return zero, false, nil
	}
	return msg.val, true, nil
}

var errConcurrentNext = concurrentNextError{}

type concurrentNextError struct{}

func (concurrentNextError) Error() string { return "task: concurrent AsyncGenerator.Next calls are forbidden" }
