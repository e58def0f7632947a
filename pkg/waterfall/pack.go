package waterfall

import (
	"cmp"
	"slices"
)

// Layout is the result of one packing run. A Layout is never modified after
// it is returned; callers that need a different layout pack again.
type Layout[K cmp.Ordered] struct {
	// Config is the sanitized configuration the layout was packed with.
	Config Config

	// Placements maps each placed item to its top-left offset.
	Placements map[K]Point

	// Frames maps each placed item to its full rectangle.
	Frames map[K]Rect

	// Columns holds the final running extent of each column, including the
	// trailing spacing after the last item.
	Columns []float64

	// Extent is the size of the packed grid along the scroll axis.
	Extent float64
}

// Len returns the number of placed items.
func (l *Layout[K]) Len() int { return len(l.Placements) }

// Bounds returns the placed rectangle for id.
func (l *Layout[K]) Bounds(id K) (Rect, bool) {
	r, ok := l.Frames[id]
	return r, ok
}

// Pack places every valid item of m into the column with the smallest
// running extent.
//
// Items are visited in ascending key order so the result depends only on
// the contents of m, never on map iteration or arrival order. When several
// columns share the minimum extent the lowest column index wins.
//
// An item lands at main-axis position equal to its column's running extent
// and at cross-axis position column*(cross+spacing), where cross is the
// item's own cross size or the fixed slot from cfg.CrossExtent. The column
// then grows by the item's main size plus spacing.
//
// Extent is the longest column minus the trailing spacing, floored at zero.
// A non-positive column count yields an empty layout.
func Pack[K cmp.Ordered](m Measurements[K], cfg Config) Layout[K] {
	cfg = cfg.sanitized()
	l := Layout[K]{
		Config:     cfg,
		Placements: make(map[K]Point),
		Frames:     make(map[K]Rect),
	}
	if cfg.Columns <= 0 {
		return l
	}

	cols := make([]float64, cfg.Columns)
	slot := cfg.Slot()

	for _, id := range m.Keys() {
		s := m[id]
		if !s.Valid() {
			continue
		}
		main, cross := cfg.Axis.split(s)
		if slot > 0 {
			cross = slot
		}

		c := shortest(cols)
		x, y := cfg.Axis.join(cols[c], float64(c)*(cross+cfg.Spacing))
		w, h := cfg.Axis.join(main, cross)

		l.Placements[id] = Point{X: x, Y: y}
		l.Frames[id] = Rect{X: x, Y: y, Width: w, Height: h}
		cols[c] += main + cfg.Spacing
	}

	l.Columns = cols
	l.Extent = max(slices.Max(cols)-cfg.Spacing, 0)
	return l
}

// shortest returns the index of the first column with the minimum extent.
func shortest(cols []float64) int {
	best := 0
	for i := 1; i < len(cols); i++ {
		if cols[i] < cols[best] {
			best = i
		}
	}
	return best
}
