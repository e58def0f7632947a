package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/waterfall/pkg/waterfall"
)

func TestComputeBalance(t *testing.T) {
	m := waterfall.Measurements[string]{
		"item1": {Width: 100, Height: 100},
		"item2": {Width: 100, Height: 50},
		"item3": {Width: 100, Height: 80},
		"item4": {Width: 100, Height: 30},
		"item5": {Width: 100, Height: 60},
	}
	l := waterfall.Pack(m, waterfall.Config{Columns: 2, Spacing: 10})

	b := ComputeBalance(&l)

	assert.Equal(t, []float64{210, 140}, b.Fills)
	assert.Equal(t, 140.0, b.Min)
	assert.Equal(t, 210.0, b.Max)
	assert.Equal(t, l.Extent, b.Max, "longest fill equals the extent")
	assert.Equal(t, 175.0, b.Mean)
	assert.InDelta(t, 35.0, b.StdDev, 1e-9)
	assert.Equal(t, 70.0, b.Spread)
}

func TestComputeBalanceEmptyColumns(t *testing.T) {
	l := waterfall.Pack(waterfall.Measurements[string]{"a": {Width: 10, Height: 40}}, waterfall.Config{Columns: 3, Spacing: 5})

	b := ComputeBalance(&l)

	assert.Equal(t, []float64{40, 0, 0}, b.Fills, "empty columns have zero fill, not negative")
	assert.Equal(t, 0.0, b.Min)
	assert.Equal(t, 40.0, b.Spread)
}

func TestComputeBalanceNoColumns(t *testing.T) {
	l := waterfall.Pack(waterfall.Measurements[string]{}, waterfall.Config{Columns: 0})

	b := ComputeBalance(&l)

	assert.Empty(t, b.Fills)
	assert.Zero(t, b.Spread)
	assert.False(t, math.IsNaN(b.StdDev))
}
