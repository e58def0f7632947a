package cli

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/waterfall/pkg/errors"
	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/pipeline"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// simulateCommand creates the simulate command, which replays a host
// reporting measurements in bursts while images load.
func (c *CLI) simulateCommand() *cobra.Command {
	var (
		sim      simulation
		output   string
		itemsOut string
		layout   layoutFlags
		caching  cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a debounced layout controller with bursts of measurements",
		Long: `Simulate a host that measures items as they load.

Items arrive in bursts. Within a burst every report is closer together than
the debounce window, so the controller coalesces the whole burst into one
recomputation. Between bursts the host pauses long enough for the layout to
be published.

The summary compares how many reports arrived with how many layouts were
actually computed and published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sim.items < 1 || sim.bursts < 1 {
				return errors.New(errors.ErrCodeInvalidInput, "--items and --bursts must be at least 1")
			}
			opts, err := c.resolve(cmd, &layout)
			if err != nil {
				return err
			}
			return c.runSimulate(cmd.Context(), sim, opts, caching, output, itemsOut)
		},
	}

	cmd.Flags().IntVar(&sim.items, "items", 120, "number of items")
	cmd.Flags().IntVar(&sim.bursts, "bursts", 6, "number of load bursts")
	cmd.Flags().DurationVar(&sim.interval, "interval", 2*time.Millisecond, "delay between reports within a burst")
	cmd.Flags().Uint64Var(&sim.seed, "seed", 42, "random seed for sizes and item ids")
	cmd.Flags().Float64Var(&sim.width, "item-width", 120, "measured width of every item")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the final layout to this file")
	cmd.Flags().StringVar(&itemsOut, "items-out", "", "write the final measurement set to this file")
	layout.register(cmd, true)
	caching.register(cmd)

	return cmd
}

func (c *CLI) runSimulate(ctx context.Context, sim simulation, opts pipeline.Options, caching cacheFlags, output, itemsOut string) error {
	runner, err := c.newRunner(ctx, caching)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	ctl := waterfall.NewController(opts.Config(),
		waterfall.WithDebounce[string](opts.Debounce),
		waterfall.WithPacker(runner.PackFunc(opts)),
		waterfall.WithLogger[string](c.Logger))
	defer ctl.Close()

	sim.pause = 3 * opts.Debounce
	sim.logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Simulating %d items in %d bursts...", sim.items, sim.bursts))
	sim.onBurst = func(b, n int) {
		spinner.SetMessage(fmt.Sprintf("Burst %d/%d reported, settling...", b, n))
	}
	spinner.Start()
	measured, err := sim.run(ctx, ctl)
	spinner.Stop()
	if err != nil {
		return err
	}

	l := ctl.Current()
	if l == nil {
		return errors.New(errors.ErrCodeInternal, "controller published no layout")
	}
	stats := ctl.Stats()

	printSuccess("Simulation complete")
	printKeyValue("Controller", ctl.ID())
	printKeyValue("Reports", fmt.Sprintf("%d (%d changed)", stats.Reports, stats.Changes))
	printKeyValue("Scheduled", fmt.Sprintf("%d (%d superseded)", stats.Scheduled, stats.Superseded))
	printKeyValue("Computed", fmt.Sprintf("%d", stats.Computations))
	printKeyValue("Published", fmt.Sprintf("%d (%d dropped)", stats.Published, stats.Dropped))
	printStats(len(measured), l.Len(), l.Extent, false)
	printBalance(pipeline.ComputeBalance(l))

	if output != "" {
		if err := pkgio.ExportLayout(l, output); err != nil {
			return err
		}
		printFile(output)
	}
	if itemsOut != "" {
		f, err := os.Create(itemsOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", itemsOut, err)
		}
		if err := pkgio.WriteMeasurements(measured, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		printFile(itemsOut)
	}
	return nil
}

// =============================================================================
// Simulation
// =============================================================================

// simulation replays a host that discovers items in bursts and measures
// each one once its image has loaded.
type simulation struct {
	items    int
	bursts   int
	interval time.Duration
	pause    time.Duration
	seed     uint64
	width    float64
	logger   *log.Logger
	onBurst  func(burst, bursts int)
}

// run feeds ctl and waits until every scheduled recomputation has either
// published or been discarded. It returns the final host measurement set.
func (s simulation) run(ctx context.Context, ctl *waterfall.Controller[string]) (waterfall.Measurements[string], error) {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], s.seed)
	ids := rand.NewChaCha8(key)
	rng := rand.New(rand.NewPCG(s.seed, s.seed>>1|1))

	host := make(waterfall.Measurements[string], s.items)
	perBurst := (s.items + s.bursts - 1) / s.bursts
	remaining := s.items

	for b := 0; b < s.bursts && remaining > 0; b++ {
		n := min(perBurst, remaining)
		remaining -= n

		pending := make([]string, n)
		for i := range pending {
			u, err := uuid.NewRandomFromReader(ids)
			if err != nil {
				return nil, fmt.Errorf("item id: %w", err)
			}
			pending[i] = u.String()
			host[pending[i]] = waterfall.Size{Width: s.width}
		}
		// Placeholders first: discovered but not yet measured.
		ctl.Report(host)

		for _, id := range pending {
			host[id] = waterfall.Size{Width: s.width, Height: float64(40 + rng.IntN(360))}
			ctl.Report(host)
			if err := sleep(ctx, s.interval); err != nil {
				return nil, err
			}
		}
		if s.logger != nil {
			s.logger.Debug("burst reported", "burst", b, "items", n)
		}
		if s.onBurst != nil {
			s.onBurst(b+1, s.bursts)
		}
		if err := sleep(ctx, s.pause); err != nil {
			return nil, err
		}
	}

	if err := waitQuiescent(ctx, ctl); err != nil {
		return nil, err
	}
	return host, nil
}

// waitQuiescent polls until no recomputation is pending or in flight.
func waitQuiescent(ctx context.Context, ctl *waterfall.Controller[string]) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		st := ctl.Stats()
		if st.Scheduled == st.Superseded+st.Published+st.Dropped {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
