// Package numeric holds small generic helpers shared by the engine packages.
package numeric

import "golang.org/x/exp/constraints"

// Clamp limits v to the closed interval [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Within reports whether lo <= v <= hi.
func Within[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}
