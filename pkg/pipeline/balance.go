package pipeline

import (
	"cmp"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// Balance summarizes how evenly a layout filled its columns.
//
// Fill values are column extents without the trailing spacing, so an empty
// column has fill 0 and the longest column's fill equals the layout extent.
type Balance struct {
	Fills  []float64 `json:"fills"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"stddev"`

	// Spread is Max - Min. Greedy shortest-column packing keeps it at or
	// below the largest item's main size plus the spacing.
	Spread float64 `json:"spread"`
}

// ComputeBalance derives column statistics from l.
func ComputeBalance[K cmp.Ordered](l *waterfall.Layout[K]) Balance {
	return balanceOf(l.Columns, l.Config.Spacing)
}

func balanceOf(columns []float64, spacing float64) Balance {
	if len(columns) == 0 {
		return Balance{Fills: []float64{}}
	}
	fills := make([]float64, len(columns))
	for i, c := range columns {
		fills[i] = max(c-spacing, 0)
	}

	b := Balance{
		Fills: fills,
		Min:   floats.Min(fills),
		Max:   floats.Max(fills),
	}
	b.Mean, b.StdDev = stat.PopMeanStdDev(fills, nil)
	b.Spread = b.Max - b.Min
	return b
}
