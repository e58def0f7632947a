package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/waterfall/pkg/waterfall"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRenderGrid(t *testing.T) {
	l := waterfall.Pack(waterfall.Measurements[string]{
		"a": {Width: 100, Height: 100},
		"b": {Width: 100, Height: 50},
		"c": {Width: 100, Height: 80},
	}, waterfall.Config{Columns: 2, Spacing: 10})

	out := renderGrid(&l, 20, 10)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 10)
	assert.Contains(t, out, "█")

	empty := waterfall.Pack(waterfall.Measurements[string]{}, waterfall.Config{Columns: 2})
	assert.Empty(t, renderGrid(&empty, 20, 10))
}

func TestScaleSpan(t *testing.T) {
	a, b := scaleSpan(0, 50, 0.1, 10)
	assert.Equal(t, 0, a)
	assert.Equal(t, 5, b)

	a, b = scaleSpan(50, 52, 0.1, 10)
	assert.Equal(t, 5, a)
	assert.Equal(t, 6, b, "tiny items keep one cell")

	a, b = scaleSpan(100, 120, 0.1, 10)
	assert.Equal(t, 9, a)
	assert.Equal(t, 10, b, "clamped to the grid")
}

func TestPreviewModelKeys(t *testing.T) {
	ctl := waterfall.NewController(waterfall.Config{Columns: 2}, waterfall.WithDebounce[string](time.Millisecond))
	defer ctl.Close()
	m := newPreviewModel(ctl, nil)

	assert.Contains(t, m.View(), "No layout yet")

	next, _ := m.Update(key("a"))
	m = next.(previewModel)
	assert.Len(t, m.host, previewBatch)
	require.Eventually(t, func() bool { return ctl.Current() != nil }, time.Second, time.Millisecond)

	next, _ = m.Update(key("+"))
	m = next.(previewModel)
	assert.Equal(t, 3, ctl.Config().Columns)

	next, _ = m.Update(key("-"))
	next, _ = next.Update(key("-"))
	next, _ = next.Update(key("-"))
	m = next.(previewModel)
	assert.Equal(t, 1, ctl.Config().Columns, "never below one column")

	require.Eventually(t, func() bool { return ctl.Current().Config.Columns == 1 }, time.Second, time.Millisecond)
	next, _ = m.Update(layoutMsg{layout: ctl.Current()})
	m = next.(previewModel)
	assert.Contains(t, m.View(), "1 columns")
	assert.Contains(t, m.View(), "█")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPreviewModelGrow(t *testing.T) {
	seed := waterfall.Measurements[string]{"a": {Width: 100, Height: 100}}
	ctl := waterfall.NewController(waterfall.Config{Columns: 1}, waterfall.WithDebounce[string](time.Millisecond))
	defer ctl.Close()
	m := newPreviewModel(ctl, seed)

	next, _ := m.Update(key("g"))
	m = next.(previewModel)
	assert.Equal(t, 140.0, m.host["a"].Height)
	assert.Equal(t, 100.0, seed["a"].Height, "the seed is copied")
	require.Eventually(t, func() bool {
		l := ctl.Current()
		return l != nil && l.Extent == 140
	}, time.Second, time.Millisecond)
}
