package waterfall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeasurementsMerge(t *testing.T) {
	m := Measurements[string]{}

	assert.True(t, m.Merge(map[string]Size{"a": {Width: 10, Height: 20}}), "new item is a change")
	assert.False(t, m.Merge(map[string]Size{"a": {Width: 10, Height: 20}}), "same size is not a change")
	assert.True(t, m.Merge(map[string]Size{"a": {Width: 10, Height: 25}}), "resized item is a change")
	assert.Equal(t, Size{Width: 10, Height: 25}, m["a"], "last write wins")

	assert.False(t, m.Merge(map[string]Size{"a": {Width: 0, Height: 0}}), "invalid size is ignored")
	assert.Equal(t, Size{Width: 10, Height: 25}, m["a"], "invalid size keeps last valid value")

	assert.False(t, m.Merge(map[string]Size{"b": {Width: -1, Height: 5}}))
	assert.NotContains(t, m, "b")

	assert.False(t, m.Merge(nil), "empty batch is not a change")
}

func TestMeasurementsCloneIsIndependent(t *testing.T) {
	m := Measurements[string]{"a": {Width: 1, Height: 1}}
	c := m.Clone()
	c["b"] = Size{Width: 2, Height: 2}

	assert.Len(t, m, 1)
	assert.True(t, m.Equal(Measurements[string]{"a": {Width: 1, Height: 1}}))
	assert.False(t, m.Equal(c))
}

func TestMeasurementsKeysSorted(t *testing.T) {
	m := Measurements[int]{5: {1, 1}, 1: {1, 1}, 3: {1, 1}}
	assert.Equal(t, []int{1, 3, 5}, m.Keys())
}
