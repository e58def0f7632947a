// Package pipeline provides the measurement → layout pipeline shared by the
// waterfall CLI commands and the HTTP server.
//
// The packing algorithm itself lives in [waterfall.Pack]; this package adds
// everything an entry point needs around it:
//
//  1. Options: defaults, validation and config-file loading
//  2. Runner: content-addressed layout caching with request coalescing
//  3. Balance: column fill statistics for reports and charts
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Columns: 3, Spacing: 8}
//	result, err := runner.Pack(ctx, measurements, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Layout.Extent)
//
// A Runner can also drive a [waterfall.Controller] so that debounced
// recomputations go through the same cache:
//
//	ctl := waterfall.NewController(opts.Config(),
//	    waterfall.WithPacker(runner.PackFunc(opts)))
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/waterfall/pkg/cache"
	"github.com/matzehuels/waterfall/pkg/errors"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultColumns is the column count used when none is configured.
	DefaultColumns = 2

	// DefaultSpacing is the gap between items in points.
	DefaultSpacing = 8.0

	// DefaultAxis is the scroll direction.
	DefaultAxis = "vertical"

	// DefaultDebounce is the quiet period before a controller recomputes.
	DefaultDebounce = waterfall.DefaultDebounce
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one packing run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Columns     int     `json:"columns,omitempty"`
	Spacing     float64 `json:"spacing,omitempty"`
	Axis        string  `json:"axis,omitempty"`
	CrossExtent float64 `json:"cross_extent,omitempty"`

	// Debounce only applies to controller-driven runs. Zero recomputes on
	// the next timer tick; callers start from DefaultDebounce.
	Debounce time.Duration `json:"-"`

	// Refresh bypasses cached layouts and overwrites them.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the packed layout. It must not be modified.
	Layout *waterfall.Layout[string]

	// MeasurementHash is the content hash of the input measurement set.
	MeasurementHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the layout came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Items    int
	Placed   int
	PackTime time.Duration
	Balance  Balance
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills zero-valued fields with their defaults. Spacing and
// Debounce have meaningful zero values and are left alone.
func (o *Options) SetDefaults() {
	if o.Columns == 0 {
		o.Columns = DefaultColumns
	}
	if o.Axis == "" {
		o.Axis = DefaultAxis
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks user-supplied values. Spacing 0 is a valid choice, so it
// has no default; negative spacing is rejected here even though the packer
// would clamp it.
func (o *Options) Validate() error {
	if err := errors.ValidateColumns(o.Columns); err != nil {
		return err
	}
	if err := errors.ValidateSpacing(o.Spacing); err != nil {
		return err
	}
	if o.CrossExtent < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cross_extent must not be negative, got %v", o.CrossExtent)
	}
	if o.Debounce < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "debounce must not be negative, got %s", o.Debounce)
	}
	if _, err := waterfall.ParseAxis(o.Axis); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidAxis, err, "axis")
	}
	return nil
}

// ValidateAndSetDefaults applies defaults and validates.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Fresh returns a copy of o that ValidateAndSetDefaults checks again.
// Use it before overriding fields of already validated options.
func (o Options) Fresh() Options {
	o.validated = false
	return o
}

// Config returns the packer configuration. Call after ValidateAndSetDefaults.
func (o *Options) Config() waterfall.Config {
	axis, _ := waterfall.ParseAxis(o.Axis)
	return waterfall.Config{
		Columns:     o.Columns,
		Spacing:     o.Spacing,
		Axis:        axis,
		CrossExtent: o.CrossExtent,
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Columns:     o.Columns,
		Spacing:     o.Spacing,
		Axis:        o.Config().Axis.String(),
		CrossExtent: o.CrossExtent,
	}
}
