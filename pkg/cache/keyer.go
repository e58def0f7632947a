package cache

// LayoutKeyOpts holds the packing parameters that influence a layout.
type LayoutKeyOpts struct {
	Columns     int     `json:"columns"`
	Spacing     float64 `json:"spacing"`
	Axis        string  `json:"axis"`
	CrossExtent float64 `json:"cross_extent,omitempty"`
}

// ChartKeyOpts holds the rendering parameters for a column chart.
type ChartKeyOpts struct {
	Title string `json:"title"`
	Theme string `json:"theme,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey keys a packed layout by the hash of its measurements.
	LayoutKey(measurementHash string, opts LayoutKeyOpts) string

	// ChartKey keys rendered chart output by the hash of its layout.
	ChartKey(layoutHash string, opts ChartKeyOpts) string
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(measurementHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", measurementHash, opts)
}

// ChartKey implements Keyer.
func (DefaultKeyer) ChartKey(layoutHash string, opts ChartKeyOpts) string {
	return hashKey("chart", layoutHash, opts)
}
