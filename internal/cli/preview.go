package cli

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/pipeline"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// previewCommand creates the interactive preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		layout  layoutFlags
		caching cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "preview [items.json]",
		Short: "Watch a live layout react to measurements in the terminal",
		Long: `Open an interactive terminal preview backed by a debounced controller.

Keys:
  a      add a batch of items
  g      grow a random item
  + / -  add or remove a column
  q      quit

An optional measurement file seeds the preview.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolve(cmd, &layout)
			if err != nil {
				return err
			}
			seed := waterfall.Measurements[string]{}
			if len(args) == 1 {
				if seed, err = pkgio.ImportMeasurements(args[0]); err != nil {
					return err
				}
			}
			return c.runPreview(cmd, opts, caching, seed)
		},
	}

	layout.register(cmd, true)
	caching.register(cmd)
	return cmd
}

func (c *CLI) runPreview(cmd *cobra.Command, opts pipeline.Options, caching cacheFlags, seed waterfall.Measurements[string]) error {
	ctx := cmd.Context()
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

	m := newPreviewModel(ctl, seed)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	unwatch := ctl.Watch(func(l *waterfall.Layout[string]) {
		p.Send(layoutMsg{layout: l})
	})
	defer unwatch()

	if len(seed) > 0 {
		ctl.Report(seed)
	}
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// =============================================================================
// Model
// =============================================================================

// layoutMsg carries a newly published layout into the bubbletea loop.
type layoutMsg struct {
	layout *waterfall.Layout[string]
}

const (
	previewBatch     = 6
	previewWidth     = 120.0
	previewMaxColumn = 12
)

// previewModel owns the host side of the preview: the measurement set it
// reports and the most recent layout the controller published.
type previewModel struct {
	ctl    *waterfall.Controller[string]
	host   waterfall.Measurements[string]
	layout *waterfall.Layout[string]
	rng    *rand.Rand
	width  int
	height int
}

func newPreviewModel(ctl *waterfall.Controller[string], seed waterfall.Measurements[string]) previewModel {
	host := make(waterfall.Measurements[string], len(seed))
	for id, s := range seed {
		host[id] = s
	}
	return previewModel{
		ctl:    ctl,
		host:   host,
		rng:    rand.New(rand.NewPCG(1, 2)),
		width:  80,
		height: 24,
	}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "a":
			for range previewBatch {
				m.host[uuid.NewString()] = waterfall.Size{Width: previewWidth, Height: m.randomHeight()}
			}
			m.ctl.Report(m.host)
		case "g":
			if ids := m.host.Keys(); len(ids) > 0 {
				id := ids[m.rng.IntN(len(ids))]
				s := m.host[id]
				s.Height += 40
				m.host[id] = s
				m.ctl.Report(waterfall.Measurements[string]{id: s})
			}
		case "+", "=":
			m.setColumns(m.ctl.Config().Columns + 1)
		case "-", "_":
			m.setColumns(m.ctl.Config().Columns - 1)
		}
	case layoutMsg:
		m.layout = msg.layout
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m previewModel) setColumns(n int) {
	if n < 1 || n > previewMaxColumn {
		return
	}
	cfg := m.ctl.Config()
	cfg.Columns = n
	m.ctl.Configure(cfg)
}

func (m previewModel) randomHeight() float64 {
	return float64(60 + m.rng.IntN(240))
}

func (m previewModel) View() string {
	var b strings.Builder

	cfg := m.ctl.Config()
	b.WriteString(StyleTitle.Render("Waterfall Preview"))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d columns · %s · %d items", cfg.Columns, cfg.Axis, len(m.host))))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("a add  g grow  +/- columns  q quit"))
	b.WriteString("\n\n")

	if m.layout == nil || m.layout.Len() == 0 {
		b.WriteString(StyleDim.Render("No layout yet. Press a to add items."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(renderGrid(m.layout, max(m.width-2, 10), max(m.height-7, 4)))
	b.WriteString("\n")
	st := m.ctl.Stats()
	b.WriteString(StyleDim.Render(fmt.Sprintf("extent %s · reports %d · computed %d · published %d",
		formatFloat(m.layout.Extent), st.Reports, st.Computations, st.Published)))
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Grid Rendering
// =============================================================================

var gridPalette = []lipgloss.Color{
	colorCyan, colorGreen, colorYellow, colorBlue, colorRed, colorGray,
}

// renderGrid draws the frames of l scaled into a width×height block of
// terminal cells. Each item is filled with one colored block character.
func renderGrid(l *waterfall.Layout[string], width, height int) string {
	var maxX, maxY float64
	for _, r := range l.Frames {
		maxX = max(maxX, r.MaxX())
		maxY = max(maxY, r.MaxY())
	}
	if maxX <= 0 || maxY <= 0 || width <= 0 || height <= 0 {
		return ""
	}
	sx := float64(width) / maxX
	sy := float64(height) / maxY

	cells := make([][]int, height)
	for i := range cells {
		cells[i] = make([]int, width)
	}
	for n, id := range sortedFrameIDs(l) {
		r := l.Frames[id]
		x0, x1 := scaleSpan(r.X, r.MaxX(), sx, width)
		y0, y1 := scaleSpan(r.Y, r.MaxY(), sy, height)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				cells[y][x] = n + 1
			}
		}
	}

	styles := make([]lipgloss.Style, len(gridPalette))
	for i, c := range gridPalette {
		styles[i] = lipgloss.NewStyle().Foreground(c)
	}

	var b strings.Builder
	for y, row := range cells {
		for x := 0; x < len(row); {
			// Render runs of the same item with a single style call.
			end := x
			for end < len(row) && row[end] == row[x] {
				end++
			}
			if row[x] == 0 {
				b.WriteString(strings.Repeat(" ", end-x))
			} else {
				b.WriteString(styles[(row[x]-1)%len(styles)].Render(strings.Repeat("█", end-x)))
			}
			x = end
		}
		if y < len(cells)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// scaleSpan maps [lo, hi) to cell indexes, keeping at least one cell so
// small items stay visible.
func scaleSpan(lo, hi, scale float64, limit int) (int, int) {
	a := min(int(math.Floor(lo*scale)), limit-1)
	b := min(int(math.Floor(hi*scale)), limit)
	if b <= a {
		b = a + 1
	}
	return a, b
}

func sortedFrameIDs(l *waterfall.Layout[string]) []string {
	m := make(waterfall.Measurements[string], len(l.Frames))
	for id := range l.Frames {
		m[id] = waterfall.Size{}
	}
	return m.Keys()
}
