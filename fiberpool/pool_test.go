package fiberpool_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NGIN-ORG/NGIN.Base-sub001/fiberpool"
)

func TestExecuteRunsWork(t *testing.T) {
	p := fiberpool.New(2, 4)
	defer p.Close()

	done := make(chan struct{})
	p.Execute(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("work item did not run")
	}
}

func TestScheduleAtRespectsDeadline(t *testing.T) {
	p := fiberpool.New(2, 4)
	defer p.Close()

	start := time.Now()
	fired := make(chan time.Time, 1)
	p.ScheduleAt(func() { fired <- time.Now() }, start.Add(50*time.Millisecond))

	select {
	case got := <-fired:
		require.True(t, !got.Before(start.Add(50*time.Millisecond)))
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestBoundedFiberConcurrency(t *testing.T) {
	const m = 3
	p := fiberpool.New(8, m)
	defer p.Close()

	var concurrent atomic.Int64
	var maxSeen atomic.Int64
	release := make(chan struct{})

	for i := 0; i < m*4; i++ {
		p.Execute(func() {
			n := concurrent.Add(1)
			for {
				cur := maxSeen.Load()
				if n <= cur || maxSeen.CompareAndSwap(cur, n) {
					break
				}
			}
			<-release
			concurrent.Add(-1)
		})
	}

	time.Sleep(100 * time.Millisecond)
	require.LessOrEqual(t, maxSeen.Load(), int64(m))
	close(release)
}

func TestYieldFairness(t *testing.T) {
	p := fiberpool.New(4, 16)
	defer p.Close()

	const n = 2000
	var sum atomic.Int64
	doneCh := make(chan struct{}, n)

	var run func(i int)
	run = func(i int) {
		yields := 0
		var step func()
		step = func() {
			yields++
			if yields < 10 {
				p.Execute(step)
				return
			}
			sum.Add(1)
			doneCh <- struct{}{}
		}
		p.Execute(step)
	}

	for i := 0; i < n; i++ {
		run(i)
	}

	for i := 0; i < n; i++ {
		select {
		case <-doneCh:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for completions, got %d/%d", i, n)
		}
	}
	require.EqualValues(t, n, sum.Load())
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	p := fiberpool.New(1, 1)
	p.Close()
	require.False(t, p.IsValid())
	require.NotPanics(t, func() { p.Execute(func() {}) })
}

func TestMetricsCountSubmittedAndCompleted(t *testing.T) {
	m := &fiberpool.Metrics{}
	p := fiberpool.New(2, 4, fiberpool.WithMetrics(m))
	defer p.Close()

	const n = 20
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		p.Execute(func() { done <- struct{}{} })
	}
	for i := 0; i < n; i++ {
		<-done
	}

	require.Eventually(t, func() bool {
		snap := p.Metrics()
		return snap.Submitted >= n && snap.Dispatched >= n && snap.Completed >= n
	}, time.Second, time.Millisecond)
}

func TestNilMetricsOptionIsNoop(t *testing.T) {
	p := fiberpool.New(1, 1, fiberpool.WithMetrics(nil))
	defer p.Close()
	require.Equal(t, fiberpool.MetricsSnapshot{}, p.Metrics())
}

func TestFiberStatesNeverDoubleAssignARunningSlot(t *testing.T) {
	const m = 3
	p := fiberpool.New(m, m)
	defer p.Close()

	const n = 500
	release := make(chan struct{})
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		p.Execute(func() {
			started <- struct{}{}
			<-release
		})
	}

	for i := 0; i < m; i++ {
		<-started
	}

	states := p.FiberStates()
	require.Len(t, states, m)
	running := 0
	for _, s := range states {
		if s == fiberpool.FiberRunning {
			running++
		}
	}
	require.Equal(t, m, running, "exactly one fiber body per slot should be Running while all M slots are saturated")
	close(release)
}
