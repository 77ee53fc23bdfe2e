package mathx

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Median returns the middle element of vs (upper middle for even lengths).
// vs is not modified. The zero value is returned for an empty slice.
func Median[T constraints.Ordered](vs []T) T {
	var zero T
	if len(vs) == 0 {
		return zero
	}
	s := slices.Clone(vs)
	slices.Sort(s)
	return s[len(s)/2]
}
