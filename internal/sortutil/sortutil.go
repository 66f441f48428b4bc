package sortutil

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of m in ascending order, so map-driven output
// stays deterministic.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
