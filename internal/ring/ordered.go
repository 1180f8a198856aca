package ring

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// SortedInsert inserts v into a slice sorted in non-decreasing order of
// key(element), keeping it sorted, via a binary search for the insertion
// point. Grounded on the rate-limiter ring buffer's own Insert, which
// performs the identical binary-search-then-shift for timestamp-ordered
// samples; here it orders each scheduler's shared timer-set entries by
// deadline.
func SortedInsert[T any, K constraints.Ordered](s []T, v T, key func(T) K) []T {
	k := key(v)
	i := sort.Search(len(s), func(i int) bool { return key(s[i]) >= k })
	s = append(s, v)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}
