package cmap_test

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NGIN-ORG/NGIN.Base-sub001/cmap"
)

func TestInsertGetContains(t *testing.T) {
	m := cmap.New[string, int]()
	m.Insert("a", 1)
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.True(t, m.Contains("a"))
	require.False(t, m.Contains("b"))
}

func TestRemoveSoftDrop(t *testing.T) {
	m := cmap.New[string, int]()
	m.Insert("a", 1)
	require.True(t, m.Remove("a"))
	_, ok := m.Get("a")
	require.False(t, ok)
	require.False(t, m.Remove("a"))
}

func TestSizeTracksLiveEntries(t *testing.T) {
	m := cmap.New[int, int]()
	for i := 0; i < 100; i++ {
		m.Insert(i, i*i)
	}
	require.Equal(t, 100, m.Size())
	for i := 0; i < 50; i++ {
		m.Remove(i)
	}
	require.Equal(t, 50, m.Size())
}

func TestResizeGrowsAndPreservesEntries(t *testing.T) {
	m := cmap.New[int, int]()
	const n = 500
	for i := 0; i < n; i++ {
		m.Insert(i, i)
	}
	require.Equal(t, n, m.Size())
	for i := 0; i < n; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestClearResetsMap(t *testing.T) {
	m := cmap.New[string, int]()
	m.Insert("a", 1)
	m.Clear()
	require.Equal(t, 0, m.Size())
	require.False(t, m.Contains("a"))
}

func TestScavengeCompactsDeadTombstones(t *testing.T) {
	m := cmap.New[int, int]()
	for i := 0; i < 64; i++ {
		m.Insert(i, i)
		m.Remove(i)
	}
	runtime.GC()
	m.Scavenge()
	// Live entries are unaffected by scavenging soft-dropped tombstones.
	m.Insert(1000, 1000)
	v, ok := m.Get(1000)
	require.True(t, ok)
	require.Equal(t, 1000, v)
	require.Equal(t, 1, m.Size())
}

func TestConcurrentInsertGet(t *testing.T) {
	m := cmap.New[string, int]()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			m.Insert(key, i)
			v, ok := m.Get(key)
			require.True(t, ok)
			require.Equal(t, i, v)
		}()
	}
	wg.Wait()
	require.Equal(t, 32, m.Size())
}
