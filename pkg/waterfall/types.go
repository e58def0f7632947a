package waterfall

import (
	"fmt"
	"math"
	"strings"
)

// =============================================================================
// Axis
// =============================================================================

// Axis is the scroll direction of a grid: the axis along which columns grow.
type Axis int

const (
	// Vertical grids stack items top to bottom; columns sit side by side.
	Vertical Axis = iota
	// Horizontal grids stack items left to right; columns become rows.
	Horizontal
)

// String returns "vertical" or "horizontal".
func (a Axis) String() string {
	switch a {
	case Horizontal:
		return "horizontal"
	default:
		return "vertical"
	}
}

// ParseAxis parses an axis name. The empty string maps to Vertical.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	default:
		return Vertical, fmt.Errorf("invalid axis: %q (must be 'vertical' or 'horizontal')", s)
	}
}

// MarshalText implements encoding.TextMarshaler so axes serialize by name
// in JSON and TOML.
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(text []byte) error {
	v, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// split returns the (main, cross) components of s for this axis.
func (a Axis) split(s Size) (main, cross float64) {
	if a == Horizontal {
		return s.Width, s.Height
	}
	return s.Height, s.Width
}

// join maps (main, cross) coordinates back to screen (x, y).
func (a Axis) join(main, cross float64) (x, y float64) {
	if a == Horizontal {
		return main, cross
	}
	return cross, main
}

// =============================================================================
// Geometry
// =============================================================================

// Size is the measured size of one item.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both components are finite and strictly positive.
// Invalid sizes mean "not yet measured".
func (s Size) Valid() bool {
	return positive(s.Width) && positive(s.Height)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Point is a screen-space offset relative to the grid origin.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the placed rectangle of an item.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Origin returns the top-left corner of r.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// MaxX returns the right edge of r.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge of r.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// =============================================================================
// Config
// =============================================================================

// Config is the explicit layout configuration supplied by the host.
type Config struct {
	// Columns is the number of columns (or rows, for horizontal grids).
	// Values ≤ 0 produce an empty layout.
	Columns int `json:"columns" toml:"columns"`

	// Spacing is the gap between adjacent items on both axes.
	Spacing float64 `json:"spacing" toml:"spacing"`

	// Axis is the scroll direction.
	Axis Axis `json:"axis" toml:"axis"`

	// CrossExtent, when positive, is the container size across columns.
	// Each column then gets a fixed slot of
	// (CrossExtent - Spacing*(Columns-1)) / Columns and items are placed
	// in that slot regardless of their measured cross size.
	CrossExtent float64 `json:"cross_extent,omitempty" toml:"cross_extent"`
}

// sanitized clamps spacing and cross extent to usable values.
func (c Config) sanitized() Config {
	if !(c.Spacing > 0) || math.IsInf(c.Spacing, 0) {
		c.Spacing = 0
	}
	if !positive(c.CrossExtent) {
		c.CrossExtent = 0
	}
	return c
}

// Slot returns the fixed column width derived from CrossExtent, or 0 when
// items keep their own cross size.
func (c Config) Slot() float64 {
	c = c.sanitized()
	if c.Columns <= 0 || c.CrossExtent == 0 {
		return 0
	}
	slot := (c.CrossExtent - c.Spacing*float64(c.Columns-1)) / float64(c.Columns)
	if slot < 0 {
		return 0
	}
	return slot
}
