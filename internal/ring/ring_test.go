package ring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NGIN-ORG/NGIN.Base-sub001/internal/ring"
)

func TestBufferFIFOOrder(t *testing.T) {
	b := ring.New[int](4)
	for i := 0; i < 10; i++ {
		b.PushBack(i)
	}
	require.Equal(t, 10, b.Len())
	for i := 0; i < 10; i++ {
		v, ok := b.PopFront()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := b.PopFront()
	require.False(t, ok)
}

func TestBufferGrowsAcrossWrap(t *testing.T) {
	b := ring.New[int](4) // rounded up to the minimum capacity of 8
	for i := 0; i < 8; i++ {
		b.PushBack(i)
	}
	v, _ := b.PopFront()
	require.Equal(t, 0, v)
	b.PushBack(8) // wraps into slot 0
	b.PushBack(9) // forces growth while head is mid-array
	require.Equal(t, 9, b.Len())

	var got []int
	for {
		v, ok := b.PopFront()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestSortedInsertMaintainsOrder(t *testing.T) {
	type entry struct{ deadline int64 }
	var s []entry
	s = ring.SortedInsert(s, entry{30}, func(e entry) int64 { return e.deadline })
	s = ring.SortedInsert(s, entry{10}, func(e entry) int64 { return e.deadline })
	s = ring.SortedInsert(s, entry{20}, func(e entry) int64 { return e.deadline })

	require.Equal(t, []int64{10, 20, 30}, []int64{s[0].deadline, s[1].deadline, s[2].deadline})
}
