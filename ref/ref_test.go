package ref_test

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/NGIN-ORG/NGIN.Base-sub001/alloc"
	"github.com/NGIN-ORG/NGIN.Base-sub001/ref"
)

func TestScopedBasicOwnership(t *testing.T) {
	s, err := ref.NewScoped(alloc.System(), 42)
	require.NoError(t, err)
	require.True(t, s.Valid())
	require.Equal(t, 42, *s.Get())
	s.Release()
	require.False(t, s.Valid())
}

func TestScopedTakeTransfersOwnership(t *testing.T) {
	s, err := ref.NewScoped(alloc.System(), "hello")
	require.NoError(t, err)
	moved := s.Take()
	require.False(t, s.Valid())
	require.True(t, moved.Valid())
	require.Equal(t, "hello", *moved.Get())
	moved.Release()
}

func TestScopedOnArena(t *testing.T) {
	arena := alloc.NewArena(alloc.System(), 4096, 8)
	defer arena.Release()

	s, err := ref.NewScoped(arena, int64(7))
	require.NoError(t, err)
	require.Equal(t, int64(7), *s.Get())
	require.True(t, arena.Owns(unsafe.Pointer(s.Get())))
	s.Release()
}

func TestSharedUseCountAfterCopiesAndReleases(t *testing.T) {
	s, err := ref.MakeShared(alloc.System(), 100)
	require.NoError(t, err)
	require.EqualValues(t, 1, s.UseCount())

	const k = 5
	copies := make([]ref.Shared[int], k)
	for i := 0; i < k; i++ {
		copies[i] = s.Clone()
	}
	require.EqualValues(t, k+1, s.UseCount())

	for i := 0; i < k; i++ {
		copies[i].Release()
	}
	require.EqualValues(t, 1, s.UseCount())
	require.Equal(t, 100, *s.Get())

	s.Release()
}

func TestTicketLockFailsAfterAllStrongReleased(t *testing.T) {
	s, err := ref.MakeShared(alloc.System(), "payload")
	require.NoError(t, err)
	ticket := s.Weak()

	locked, ok := ticket.Lock()
	require.True(t, ok)
	require.Equal(t, "payload", *locked.Get())
	locked.Release()

	s.Release()

	_, ok = ticket.Lock()
	require.False(t, ok)
	ticket.Release()
}

func TestSharedLifetimeUnderWeakRaces(t *testing.T) {
	s, err := ref.MakeShared(alloc.System(), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	strongHolders := make([]ref.Shared[int], 8)
	for i := range strongHolders {
		strongHolders[i] = s.Clone()
	}
	tickets := make([]ref.Ticket[int], 8)
	for i := range tickets {
		tickets[i] = s.Weak()
	}
	s.Release()

	for i := range strongHolders {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			strongHolders[i].Release()
		}()
	}
	wg.Wait()

	for i := range tickets {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if locked, ok := tickets[i].Lock(); ok {
					locked.Release()
				}
			}
		}()
	}
	wg.Wait()

	for i := range tickets {
		_, ok := tickets[i].Lock()
		require.False(t, ok)
		tickets[i].Release()
	}
}
