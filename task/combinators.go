package task

import (
	"sync"
	"sync/atomic"

	"github.com/NGIN-ORG/NGIN.Base-sub001/cancel"
)

// WhenAny starts awaiting every task concurrently and returns the index of
// whichever completes first. If ctx's token cancels before any child
// completes, WhenAny resolves to AsyncError{Canceled} without canceling the
// children: they continue running independently and their results are
// simply dropped since nothing observes them further.
func WhenAny(ctx *Context, tasks ...Awaitable) (int, error) {
	if len(tasks) == 0 {
		return -1, NewAsyncError(InvalidState, errNoChildren)
	}

	type outcome struct {
		idx int
		err error
	}
	resultCh := make(chan outcome, len(tasks))
	var done atomic.Bool

	// Each child's AwaitAny blocks its calling goroutine until that child
	// settles, so each gets its own goroutine rather than going through
	// ctx.exec.Execute: on threadpool.Pool that executor runs submitted
	// items inline on a fixed worker, and enough concurrently-blocked
	// awaits there would starve every worker.
	for i, t := range tasks {
		i, t := i, t
		go func() {
			_, err := t.AwaitAny(ctx)
			if done.CompareAndSwap(false, true) {
				resultCh <- outcome{idx: i, err: err}
			}
		}()
	}

	if ctx.token.Valid() {
		canceledCh := make(chan struct{})
		var reg cancel.Registration
		cancel.Register(&reg, ctx.token, inlineExecutor{}, func() { close(canceledCh) }, nil)
		defer reg.Unregister()
		select {
		case r := <-resultCh:
			return r.idx, r.err
		case <-canceledCh:
			return -1, NewAsyncError(Canceled, ctx.token.ThrowIfCanceled())
		}
	}

	r := <-resultCh
	return r.idx, r.err
}

// WhenAll awaits every task and returns their results in order. Early
// cancellation resolves WhenAll itself with AsyncError{Canceled} but leaves
// every child running; otherwise, if any child failed, the returned error
// is an *AggregateError collecting every non-nil child error.
func WhenAll(ctx *Context, tasks ...Awaitable) ([]any, error) {
	n := len(tasks)
	if n == 0 {
		return nil, nil
	}
	results := make([]any, n)
	errs := make([]error, n)

	// Same reasoning as WhenAny: each blocking AwaitAny gets its own
	// goroutine instead of riding the executor's work queue.
	var wg sync.WaitGroup
	wg.Add(n)
	for i, t := range tasks {
		i, t := i, t
		go func() {
			defer wg.Done()
			v, err := t.AwaitAny(ctx)
			results[i] = v
			errs[i] = err
		}()
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	if ctx.token.Valid() {
		canceledCh := make(chan struct{})
		var reg cancel.Registration
		cancel.Register(&reg, ctx.token, inlineExecutor{}, func() { close(canceledCh) }, nil)
		defer reg.Unregister()
		select {
		case <-allDone:
		case <-canceledCh:
			return nil, NewAsyncError(Canceled, ctx.token.ThrowIfCanceled())
		}
	} else {
		<-allDone
	}

	var failed []error
	for _, e := range errs {
		if e != nil {
			failed = append(failed, e)
		}
	}
	if len(failed) > 0 {
		return results, &AggregateError{Errors: failed}
	}
	return results, nil
}

// Select is WhenAny, plus re-fetching the winning child's already-settled
// value: a library-level pattern-matched WhenAny over mixed task types,
// expressed through the Awaitable interface rather than reflection.
func Select(ctx *Context, tasks ...Awaitable) (idx int, value any, err error) {
	idx, err = WhenAny(ctx, tasks...)
	if err != nil || idx < 0 {
		return idx, nil, err
	}
	value, _ = tasks[idx].AwaitAny(ctx)
	return idx, value, nil
}

var errNoChildren = noChildrenError{}

type noChildrenError struct{}

func (noChildrenError) Error() string { return "task: combinator requires at least one child task" }
