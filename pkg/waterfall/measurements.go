package waterfall

import (
	"cmp"
	"maps"
	"slices"
)

// Measurements maps item identity to its latest measured size.
type Measurements[K cmp.Ordered] map[K]Size

// Merge overwrites m with every valid size in batch and reports whether
// anything changed. Invalid sizes are ignored; a previously measured item
// keeps its last valid size.
func (m Measurements[K]) Merge(batch map[K]Size) bool {
	changed := false
	for id, s := range batch {
		if !s.Valid() {
			continue
		}
		if prev, ok := m[id]; ok && prev == s {
			continue
		}
		m[id] = s
		changed = true
	}
	return changed
}

// Clone returns an independent copy of m.
func (m Measurements[K]) Clone() Measurements[K] {
	out := make(Measurements[K], len(m))
	maps.Copy(out, m)
	return out
}

// Equal reports whether m and o hold the same sizes for the same items.
func (m Measurements[K]) Equal(o Measurements[K]) bool {
	return maps.Equal(m, o)
}

// Keys returns the identities of m in ascending order.
func (m Measurements[K]) Keys() []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
