package threadpool_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NGIN-ORG/NGIN.Base-sub001/threadpool"
)

func TestExecuteRunsWork(t *testing.T) {
	p := threadpool.New(2)
	defer p.Close()

	done := make(chan struct{})
	p.Execute(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("work item did not run")
	}
}

func TestDelayOrdering(t *testing.T) {
	// One worker: with parallel workers the time.Now() stamp and the
	// channel send below would not be atomic, so receive order could not
	// be compared against observed times.
	p := threadpool.New(1)
	defer p.Close()

	const n = 200
	start := time.Now()
	type firing struct {
		i    int
		when time.Time
	}
	results := make(chan firing, n)
	for i := 0; i < n; i++ {
		i := i
		p.ScheduleAt(func() { results <- firing{i: i, when: time.Now()} }, start.Add(time.Duration(i)*time.Microsecond))
	}

	var fired []firing
	for i := 0; i < n; i++ {
		select {
		case f := <-results:
			fired = append(fired, f)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d/%d timers fired", i, n)
		}
	}
	for i := 1; i < len(fired); i++ {
		require.False(t, fired[i].when.Before(fired[i-1].when), "observed monotonic times must be non-decreasing")
	}
}

func TestPanicRecoveredByWorker(t *testing.T) {
	p := threadpool.New(1)
	defer p.Close()

	p.Execute(func() { panic("boom") })

	done := make(chan struct{})
	p.Execute(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped processing work after a panic")
	}
}

func TestConcurrentSubmissionsAllRun(t *testing.T) {
	p := threadpool.New(4)
	defer p.Close()

	const n = 10000
	var sum atomic.Int64
	var wgDone = make(chan struct{})
	go func() {
		for sum.Load() < n {
			time.Sleep(time.Millisecond)
		}
		close(wgDone)
	}()

	for i := 0; i < n; i++ {
		p.Execute(func() { sum.Add(1) })
	}

	select {
	case <-wgDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("only %d/%d executed", sum.Load(), n)
	}
	require.EqualValues(t, n, sum.Load())
}

func TestMetricsCountSubmittedCompletedAndPanics(t *testing.T) {
	m := &threadpool.Metrics{}
	p := threadpool.New(2, threadpool.WithMetrics(m))
	defer p.Close()

	done := make(chan struct{})
	p.Execute(func() { panic("boom") })
	p.Execute(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped processing work")
	}

	require.Eventually(t, func() bool {
		snap := p.Metrics()
		return snap.Submitted >= 2 && snap.Completed >= 2 && snap.Panics >= 1
	}, time.Second, time.Millisecond)
}

func TestNilMetricsOptionIsNoop(t *testing.T) {
	p := threadpool.New(1, threadpool.WithMetrics(nil))
	defer p.Close()
	require.Equal(t, threadpool.MetricsSnapshot{}, p.Metrics())
}
