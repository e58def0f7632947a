package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/waterfall/pkg/errors"
	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/pipeline"
)

// Output formats for the pack command.
const (
	formatJSON = "json"
	formatText = "text"
)

// packCommand creates the pack command for packing measurement files.
func (c *CLI) packCommand() *cobra.Command {
	var (
		output  string
		format  string
		jobs    int
		layout  layoutFlags
		caching cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "pack [items.json...]",
		Short: "Pack measurement files into waterfall layouts",
		Long: `Pack one or more measurement files into waterfall layouts.

Each input is a JSON file listing items with their measured width and height.
Every item is placed into the currently shortest column, in id order, so the
same input always yields the same layout.

By default each input writes <input>.layout.json next to it. With a single
input, -o selects the output path ("-" for stdout).

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateFormat(format, formatJSON, formatText); err != nil {
				return err
			}
			if output != "" && len(args) > 1 {
				return errors.New(errors.ErrCodeInvalidInput, "-o requires exactly one input, got %d", len(args))
			}
			opts, err := c.resolve(cmd, &layout)
			if err != nil {
				return err
			}
			return c.runPack(cmd.Context(), args, opts, caching, output, strings.ToLower(format), jobs)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json, text")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files packed concurrently")
	layout.register(cmd, false)
	caching.register(cmd)

	return cmd
}

// packJob is one input file and, once packed, its result.
type packJob struct {
	input  string
	output string
	result *pipeline.Result
}

// runPack packs every input concurrently and reports the results in input order.
func (c *CLI) runPack(ctx context.Context, inputs []string, opts pipeline.Options, caching cacheFlags, output, format string, jobs int) error {
	runner, err := c.newRunner(ctx, caching)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	work := make([]*packJob, len(inputs))
	for i, in := range inputs {
		work[i] = &packJob{input: in, output: outputPath(in, output)}
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Packing %d file(s)...", len(inputs)))
	spinner.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for _, job := range work {
		g.Go(func() error {
			m, err := pkgio.ImportMeasurements(job.input)
			if err != nil {
				return err
			}
			res, err := runner.Pack(gctx, m, opts)
			if err != nil {
				return fmt.Errorf("pack %s: %w", job.input, err)
			}
			job.result = res
			if format == formatJSON && job.output != "-" {
				if err := pkgio.ExportLayout(res.Layout, job.output); err != nil {
					return fmt.Errorf("write output %s: %w", job.output, err)
				}
			}
			return nil
		})
	}
	err = g.Wait()
	spinner.Stop()
	if err != nil {
		printError("Pack failed")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "-" {
		res := work[0].result
		if format == formatText {
			printLayoutText(res)
			return nil
		}
		return pkgio.WriteLayout(res.Layout, os.Stdout)
	}

	prog.done(fmt.Sprintf("Packed %d file(s)", len(work)))
	for _, job := range work {
		res := job.result
		printSuccess("%s", job.input)
		if format == formatJSON {
			printFile(job.output)
		}
		printStats(res.Stats.Items, res.Stats.Placed, res.Layout.Extent, res.CacheHit)
		if format == formatText {
			printBalance(res.Stats.Balance)
		}
	}
	if format == formatJSON && len(work) == 1 {
		printNewline()
		printNextStep("Chart", "waterfall chart "+work[0].input)
	}
	return nil
}

// outputPath derives the layout path for input unless one was given.
func outputPath(input, output string) string {
	if output != "" {
		return output
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".layout.json"
}

// printLayoutText prints one line per placement followed by the balance table.
func printLayoutText(res *pipeline.Result) {
	doc := pkgio.NewLayoutDocument(res.Layout)
	for _, p := range doc.Placements {
		fmt.Printf("%-24s x=%-8s y=%-8s %sx%s\n", p.ID,
			formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Width), formatFloat(p.Height))
	}
	printKeyValue("Extent", formatFloat(doc.Extent))
	printBalance(res.Stats.Balance)
}
