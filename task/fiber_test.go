package task_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NGIN-ORG/NGIN.Base-sub001/cancel"
	"github.com/NGIN-ORG/NGIN.Base-sub001/fiberpool"
	"github.com/NGIN-ORG/NGIN.Base-sub001/task"
)

func newFiberCtx(t *testing.T) *task.Context {
	t.Helper()
	pool := fiberpool.New(4, 16)
	t.Cleanup(pool.Close)
	return task.NewContext(pool, cancel.Token{})
}

// A body writes a recognizable pattern into a 64 KiB stack buffer, yields
// repeatedly, and re-verifies the pattern after every resume: resumption on
// a different worker must never corrupt state local to the body.
func TestStackIntegrityAcrossYields(t *testing.T) {
	ctx := newFiberCtx(t)

	tk := task.Start(ctx, func(ctx *task.Context) (bool, error) {
		var buf [64 * 1024]byte
		for i := range buf {
			buf[i] = byte(i % 251)
		}
		for yields := 0; yields < 100; yields++ {
			if err := ctx.YieldNow(); err != nil {
				return false, err
			}
			for i := range buf {
				if buf[i] != byte(i%251) {
					return false, nil
				}
			}
		}
		return true, nil
	})

	ok, err := tk.Await(ctx)
	require.NoError(t, err)
	require.True(t, ok, "local buffer must survive every resume intact")
}

func TestTaskRunsOnFiberScheduler(t *testing.T) {
	ctx := newFiberCtx(t)

	tk := task.Start(ctx, func(ctx *task.Context) (int, error) {
		if err := ctx.Delay(10 * time.Millisecond); err != nil {
			return 0, err
		}
		return 7, nil
	})
	v, err := tk.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestGeneratorOnFiberScheduler(t *testing.T) {
	ctx := newFiberCtx(t)

	gen := task.NewGenerator(ctx, func(ctx *task.Context, yield func(int) error) error {
		for i := 0; i < 5; i++ {
			if err := ctx.YieldNow(); err != nil {
				return err
			}
			if err := yield(i * i); err != nil {
				return err
			}
		}
		return nil
	})

	var got []int
	for {
		v, ok, err := gen.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []int{0, 1, 4, 9, 16}, got)
}
