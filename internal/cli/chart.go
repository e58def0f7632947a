package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/waterfall/pkg/chart"
	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/pipeline"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// chartFlags holds the chart command's own flags.
type chartFlags struct {
	output     string
	fromLayout bool
	opts       chart.Options
}

// chartCommand creates the chart command for drawing column fill charts.
func (c *CLI) chartCommand() *cobra.Command {
	var (
		flags   chartFlags
		layout  layoutFlags
		caching cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "chart [items.json]",
		Short: "Chart how evenly a layout fills its columns",
		Long: `Draw one bar per column showing its fill, with the mean marked.

The input is a measurement file, packed with the layout flags first. With
--layout the input is an existing layout file from "waterfall pack".

Formats:
  html  interactive page (default)
  png   static image`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.opts.SetDefaults()
			if err := flags.opts.Validate(); err != nil {
				return err
			}
			opts, err := c.resolve(cmd, &layout)
			if err != nil {
				return err
			}
			return c.runChart(cmd.Context(), args[0], opts, caching, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default: <input>.chart.<format>)")
	cmd.Flags().StringVarP(&flags.opts.Format, "format", "f", chart.FormatHTML, "output format: html, png")
	cmd.Flags().StringVar(&flags.opts.Title, "title", chart.DefaultTitle, "chart title")
	cmd.Flags().StringVar(&flags.opts.Theme, "theme", chart.ThemeLight, "color theme: light, dark")
	cmd.Flags().BoolVar(&flags.fromLayout, "layout", false, "treat the input as a layout file")
	layout.register(cmd, false)
	caching.register(cmd)

	return cmd
}

func (c *CLI) runChart(ctx context.Context, input string, opts pipeline.Options, caching cacheFlags, flags chartFlags) error {
	runner, err := c.newRunner(ctx, caching)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var l *waterfall.Layout[string]
	if flags.fromLayout {
		if l, err = importLayout(input); err != nil {
			return err
		}
	} else {
		m, err := pkgio.ImportMeasurements(input)
		if err != nil {
			return err
		}
		res, err := runner.Pack(ctx, m, opts)
		if err != nil {
			return fmt.Errorf("pack %s: %w", input, err)
		}
		l = res.Layout
	}

	renderer := chart.Renderer{Cache: runner.Cache, Keyer: runner.Keyer, Logger: c.Logger}
	data, cached, err := renderer.Render(ctx, l, flags.opts)
	if err != nil {
		return err
	}

	output := flags.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".chart." + flags.opts.Format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Chart rendered")
	printFile(output)
	printStats(l.Len(), l.Len(), l.Extent, cached)
	printBalance(pipeline.ComputeBalance(l))
	return nil
}

func importLayout(path string) (*waterfall.Layout[string], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := pkgio.ReadLayout(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Layout(), nil
}
