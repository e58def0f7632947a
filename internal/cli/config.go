package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/waterfall/pkg/pipeline"
)

// layoutFlags binds the packing flags shared by every command that packs.
// Precedence is flags over waterfall.toml over built-in defaults.
type layoutFlags struct {
	configPath  string
	columns     int
	spacing     float64
	axis        string
	crossExtent float64
	debounce    time.Duration
}

func (f *layoutFlags) register(cmd *cobra.Command, withDebounce bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "config file (default: ./"+pipeline.ConfigFileName+" if present)")
	fs.IntVarP(&f.columns, "columns", "c", pipeline.DefaultColumns, "number of columns (rows for horizontal grids)")
	fs.Float64VarP(&f.spacing, "spacing", "s", pipeline.DefaultSpacing, "gap between items")
	fs.StringVar(&f.axis, "axis", pipeline.DefaultAxis, "scroll axis: vertical, horizontal")
	fs.Float64Var(&f.crossExtent, "cross-extent", 0, "container size across columns; gives every column a fixed slot")
	if withDebounce {
		fs.DurationVar(&f.debounce, "debounce", pipeline.DefaultDebounce, "quiet period before recomputing")
	}
}

// resolve merges defaults, the config file and explicitly set flags into
// validated options.
func (c *CLI) resolve(cmd *cobra.Command, f *layoutFlags) (pipeline.Options, error) {
	opts := pipeline.Options{
		Spacing:  pipeline.DefaultSpacing,
		Debounce: pipeline.DefaultDebounce,
		Logger:   c.Logger,
	}

	path := f.configPath
	if path == "" {
		path = pipeline.FindConfigFile(".")
	}
	if path != "" {
		fc, err := pipeline.LoadConfigFile(path)
		if err != nil {
			return opts, err
		}
		if err := fc.Apply(&opts); err != nil {
			return opts, err
		}
		c.Logger.Debug("loaded config", "path", path)
	}

	fs := cmd.Flags()
	if fs.Changed("columns") {
		opts.Columns = f.columns
	}
	if fs.Changed("spacing") {
		opts.Spacing = f.spacing
	}
	if fs.Changed("axis") {
		opts.Axis = f.axis
	}
	if fs.Changed("cross-extent") {
		opts.CrossExtent = f.crossExtent
	}
	if fs.Lookup("debounce") != nil && fs.Changed("debounce") {
		opts.Debounce = f.debounce
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}
