package waterfall

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func heights(w float64, hs ...float64) Measurements[string] {
	m := make(Measurements[string], len(hs))
	for i, h := range hs {
		m[fmt.Sprintf("item%d", i+1)] = Size{Width: w, Height: h}
	}
	return m
}

func TestPackScenario(t *testing.T) {
	m := heights(100, 100, 50, 80, 30, 60)
	l := Pack(m, Config{Columns: 2, Spacing: 10, Axis: Vertical})

	want := map[string]Point{
		"item1": {X: 0, Y: 0},
		"item2": {X: 110, Y: 0},
		"item3": {X: 110, Y: 60},
		"item4": {X: 0, Y: 110},
		"item5": {X: 0, Y: 150}, // tie at 150 goes to column 0
	}
	if diff := cmp.Diff(want, l.Placements); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{220, 150}, l.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if l.Extent != 210 {
		t.Errorf("Extent = %v, want 210", l.Extent)
	}
}

func TestPackEmpty(t *testing.T) {
	l := Pack(Measurements[string]{}, Config{Columns: 3, Spacing: 12})
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if l.Extent != 0 {
		t.Errorf("Extent = %v, want 0", l.Extent)
	}
}

func TestPackColumnCountEdgeCases(t *testing.T) {
	m := heights(50, 10, 20, 30)
	for _, cols := range []int{0, -1, -100} {
		t.Run(fmt.Sprintf("columns=%d", cols), func(t *testing.T) {
			l := Pack(m, Config{Columns: cols, Spacing: 5})
			if l.Len() != 0 {
				t.Errorf("Len() = %d, want 0", l.Len())
			}
			if l.Extent != 0 {
				t.Errorf("Extent = %v, want 0", l.Extent)
			}
			if l.Columns != nil {
				t.Errorf("Columns = %v, want nil", l.Columns)
			}
		})
	}
}

func TestPackSkipsInvalidSizes(t *testing.T) {
	tests := []struct {
		name string
		size Size
	}{
		{"zero", Size{}},
		{"zero width", Size{Width: 0, Height: 40}},
		{"zero height", Size{Width: 40, Height: 0}},
		{"negative width", Size{Width: -1, Height: 40}},
		{"negative height", Size{Width: 40, Height: -5}},
		{"nan", Size{Width: math.NaN(), Height: 40}},
		{"inf", Size{Width: 40, Height: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Measurements[string]{
				"bad":  tt.size,
				"good": {Width: 40, Height: 40},
			}
			l := Pack(m, Config{Columns: 1, Spacing: 4})
			if _, ok := l.Placements["bad"]; ok {
				t.Error("invalid item should not be placed")
			}
			if p := l.Placements["good"]; p != (Point{}) {
				t.Errorf("good item at %v, want origin", p)
			}
			if l.Extent != 40 {
				t.Errorf("Extent = %v, want 40 (invalid item must not grow columns)", l.Extent)
			}
		})
	}
}

func TestPackHorizontalSwapsAxes(t *testing.T) {
	v := Measurements[string]{
		"a": {Width: 30, Height: 100},
		"b": {Width: 30, Height: 50},
		"c": {Width: 30, Height: 20},
	}
	h := make(Measurements[string], len(v))
	for id, s := range v {
		h[id] = Size{Width: s.Height, Height: s.Width}
	}

	lv := Pack(v, Config{Columns: 2, Spacing: 5, Axis: Vertical})
	lh := Pack(h, Config{Columns: 2, Spacing: 5, Axis: Horizontal})

	if lv.Extent != lh.Extent {
		t.Errorf("extents differ: vertical %v, horizontal %v", lv.Extent, lh.Extent)
	}
	for id, p := range lv.Placements {
		q := lh.Placements[id]
		if p.X != q.Y || p.Y != q.X {
			t.Errorf("%s: vertical %v is not the transpose of horizontal %v", id, p, q)
		}
	}
	if r, _ := lh.Bounds("a"); r.Width != 100 || r.Height != 30 {
		t.Errorf("Bounds(a) = %+v, want 100x30", r)
	}
}

func TestPackCrossExtentSlots(t *testing.T) {
	m := Measurements[string]{
		"a": {Width: 10, Height: 40},
		"b": {Width: 500, Height: 40},
		"c": {Width: 70, Height: 40},
	}
	cfg := Config{Columns: 3, Spacing: 10, CrossExtent: 320}
	if got := cfg.Slot(); got != 100 {
		t.Fatalf("Slot() = %v, want 100", got)
	}

	l := Pack(m, cfg)
	want := map[string]Rect{
		"a": {X: 0, Y: 0, Width: 100, Height: 40},
		"b": {X: 110, Y: 0, Width: 100, Height: 40},
		"c": {X: 220, Y: 0, Width: 100, Height: 40},
	}
	if diff := cmp.Diff(want, l.Frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestPackNegativeSpacingClamped(t *testing.T) {
	l := Pack(heights(10, 20, 30), Config{Columns: 1, Spacing: -7})
	if l.Config.Spacing != 0 {
		t.Errorf("Spacing = %v, want 0", l.Config.Spacing)
	}
	if l.Extent != 50 {
		t.Errorf("Extent = %v, want 50", l.Extent)
	}
}

func TestPackDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := make(Measurements[string])
	for i := 0; i < 200; i++ {
		m[fmt.Sprintf("id-%03d", i)] = Size{Width: 80, Height: 10 + rng.Float64()*300}
	}
	cfg := Config{Columns: 4, Spacing: 6.5}

	first := Pack(m, cfg)
	for i := 0; i < 10; i++ {
		// A fresh map with a different insertion order must not matter.
		clone := make(Measurements[string])
		keys := m.Keys()
		rng.Shuffle(len(keys), func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })
		for _, k := range keys {
			clone[k] = m[k]
		}
		got := Pack(clone, cfg)
		if diff := cmp.Diff(first, got); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestPackColumnBalance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		cols := 1 + rng.Intn(6)
		spacing := float64(rng.Intn(3)) * 4
		m := make(Measurements[int])
		largest := 0.0
		for i := 0; i < 1+rng.Intn(60); i++ {
			h := 1 + rng.Float64()*200
			largest = max(largest, h)
			m[i] = Size{Width: 50, Height: h}
		}

		l := Pack(m, Config{Columns: cols, Spacing: spacing})
		lo, hi := l.Columns[0], l.Columns[0]
		for _, c := range l.Columns {
			lo, hi = min(lo, c), max(hi, c)
		}
		// Column extents include spacing, so the bound is one item plus one gap.
		if hi-lo > largest+spacing+1e-9 {
			t.Errorf("trial %d: spread %v exceeds largest item %v + spacing %v", trial, hi-lo, largest, spacing)
		}
		if l.Extent < 0 {
			t.Errorf("trial %d: negative extent %v", trial, l.Extent)
		}
	}
}

func TestShortestTieBreak(t *testing.T) {
	tests := []struct {
		cols []float64
		want int
	}{
		{[]float64{0, 0, 0}, 0},
		{[]float64{5, 3, 3}, 1},
		{[]float64{5, 4, 3}, 2},
		{[]float64{1}, 0},
	}
	for _, tt := range tests {
		if got := shortest(tt.cols); got != tt.want {
			t.Errorf("shortest(%v) = %d, want %d", tt.cols, got, tt.want)
		}
	}
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in      string
		want    Axis
		wantErr bool
	}{
		{"", Vertical, false},
		{"vertical", Vertical, false},
		{"Horizontal", Horizontal, false},
		{"h", Horizontal, false},
		{"diagonal", Vertical, true},
	}
	for _, tt := range tests {
		got, err := ParseAxis(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAxis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAxis(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
