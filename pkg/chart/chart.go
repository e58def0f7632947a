// Package chart renders column fill charts for packed layouts.
//
// Two formats are supported: an interactive HTML page built with go-echarts
// and a static PNG drawn with gonum/plot. Both show one bar per column with
// the column's fill and mark the mean fill, so an unbalanced layout is easy
// to spot.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/waterfall/pkg/errors"
	"github.com/matzehuels/waterfall/pkg/pipeline"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// Supported output formats.
const (
	FormatHTML = "html"
	FormatPNG  = "png"
)

// Supported themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "Column fill"

// Options controls chart rendering.
type Options struct {
	Title  string `json:"title,omitempty"`
	Theme  string `json:"theme,omitempty"`
	Format string `json:"format,omitempty"`
}

// SetDefaults fills empty fields.
func (o *Options) SetDefaults() {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Theme == "" {
		o.Theme = ThemeLight
	}
	if o.Format == "" {
		o.Format = FormatHTML
	}
	o.Format = strings.ToLower(o.Format)
	o.Theme = strings.ToLower(o.Theme)
}

// Validate checks format and theme.
func (o Options) Validate() error {
	if err := errors.ValidateFormat(o.Format, FormatHTML, FormatPNG); err != nil {
		return err
	}
	switch strings.ToLower(o.Theme) {
	case "", ThemeLight, ThemeDark:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown theme %q (use %s or %s)", o.Theme, ThemeLight, ThemeDark)
}

// ContentType returns the MIME type of the rendered format.
func (o Options) ContentType() string {
	if strings.EqualFold(o.Format, FormatPNG) {
		return "image/png"
	}
	return "text/html; charset=utf-8"
}

// Render writes a chart of l's column fills to w in the format of opts.
func Render(w io.Writer, l *waterfall.Layout[string], opts Options) error {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}
	b := pipeline.ComputeBalance(l)
	if opts.Format == FormatPNG {
		return renderPNG(w, b, opts)
	}
	return renderHTML(w, l, b, opts)
}

// Bytes renders into memory, for callers that cache the output.
func Bytes(l *waterfall.Layout[string], opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, l, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func columnLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("col %d", i+1)
	}
	return labels
}

// =============================================================================
// HTML
// =============================================================================

func renderHTML(w io.Writer, l *waterfall.Layout[string], b pipeline.Balance, o Options) error {
	data := make([]opts.BarData, len(b.Fills))
	for i, f := range b.Fills {
		data[i] = opts.BarData{Value: f}
	}

	theme := "white"
	if o.Theme == ThemeDark {
		theme = "dark"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Theme: theme, Width: "100%", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{
			Title: o.Title,
			Subtitle: fmt.Sprintf("%d items · %d columns · %s · extent %.1f · spread %.1f",
				l.Len(), l.Config.Columns, l.Config.Axis, l.Extent, b.Spread),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "fill", Min: 0}),
	)
	bar.SetXAxis(columnLabels(len(data))).
		AddSeries("fill", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			charts.WithMarkLineNameTypeItemOpts(opts.MarkLineNameTypeItem{Name: "mean", Type: "average"}),
		)

	page := components.NewPage()
	page.PageTitle = o.Title
	page.AddCharts(bar)
	return page.Render(w)
}

// =============================================================================
// PNG
// =============================================================================

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 5 * vg.Inch
)

func renderPNG(w io.Writer, b pipeline.Balance, o Options) error {
	p := plot.New()
	p.Title.Text = o.Title
	p.Y.Label.Text = "fill"
	p.Y.Min = 0

	if len(b.Fills) > 0 {
		bars, err := plotter.NewBarChart(plotter.Values(b.Fills), vg.Points(24))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "build bar chart")
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = barFill
		p.Add(bars)
		p.NominalX(columnLabels(len(b.Fills))...)

		mean := plotter.NewFunction(func(float64) float64 { return b.Mean })
		mean.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		mean.Width = vg.Points(1)
		if o.Theme == ThemeDark {
			mean.Color = darkForeground
		}
		p.Add(mean)
		p.Legend.Add("mean", mean)
		p.Legend.Top = true
	}

	if o.Theme == ThemeDark {
		darken(p)
	}

	wt, err := p.WriterTo(pngWidth, pngHeight, FormatPNG)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	_, err = wt.WriteTo(w)
	return err
}

var (
	darkBackground = color.RGBA{R: 0x1f, G: 0x22, B: 0x2a, A: 0xff}
	darkForeground = color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}
	barFill        = color.RGBA{R: 0x2a, G: 0x9d, B: 0x8f, A: 0xff}
)

func darken(p *plot.Plot) {
	p.BackgroundColor = darkBackground
	p.Title.TextStyle.Color = darkForeground
	p.Legend.TextStyle.Color = darkForeground
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.LineStyle.Color = darkForeground
		ax.Label.TextStyle.Color = darkForeground
		ax.Tick.Label.Color = darkForeground
		ax.Tick.LineStyle.Color = darkForeground
	}
}
