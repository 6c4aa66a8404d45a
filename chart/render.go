package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an image encoding for Render.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ContentType returns the MIME type of images in format f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

const (
	DefaultWidth  = 800
	DefaultHeight = 300
)

var (
	// ErrUnsupported is returned for kinds that can only be drawn client-side.
	ErrUnsupported = errors.New("chart kind cannot be rendered server-side")

	// ErrNoData is returned when a config has no datasets or values.
	ErrNoData = errors.New("chart has no data")
)

// RenderOptions sizes the image. Zero fields use the defaults.
type RenderOptions struct {
	Title  string
	Width  int
	Height int
}

// Render draws cfg to w as a PNG or SVG image.
func Render(w io.Writer, cfg Config, format Format, opts RenderOptions) error {
	if cfg.Kind == KindRadar {
		return ErrUnsupported
	}
	if len(cfg.Data.Datasets) == 0 {
		return ErrNoData
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	provider := gochart.PNG
	switch format {
	case FormatPNG, "":
	case FormatSVG:
		provider = gochart.SVG
	default:
		return fmt.Errorf("unknown image format %q", format)
	}

	var err error
	switch cfg.Kind {
	case KindLine:
		err = renderLine(w, provider, cfg, opts)
	case KindBar, KindHorizontalBar, KindHistogram:
		err = renderBar(w, provider, cfg, opts)
	case KindStackedBar:
		err = renderStacked(w, provider, cfg, opts)
	case KindPie:
		err = renderPie(w, provider, cfg, opts)
	case KindScatter:
		err = renderScatter(w, provider, cfg, opts)
	default:
		return fmt.Errorf("unknown chart kind %q", cfg.Kind)
	}
	if err != nil {
		return fmt.Errorf("rendering %s chart: %w", cfg.Kind, err)
	}
	return nil
}

func renderLine(w io.Writer, rp gochart.RendererProvider, cfg Config, opts RenderOptions) error {
	labels := cfg.Data.Labels
	if len(labels) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(labels))
	ticks := make([]gochart.Tick, len(labels))
	for i, l := range labels {
		xs[i] = float64(i)
		ticks[i] = gochart.Tick{Value: float64(i), Label: l}
	}

	var all []float64
	series := make([]gochart.Series, 0, len(cfg.Data.Datasets))
	for i, ds := range cfg.Data.Datasets {
		ys := fit(ds.Data, len(xs))
		all = append(all, ys...)
		x := xs
		if len(x) == 1 {
			// go-chart needs a non-empty x range
			x, ys = []float64{0, 1}, []float64{ys[0], ys[0]}
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    ds.Label,
			XValues: x,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: color(ds.BorderColor, i),
				StrokeWidth: 2,
			},
		})
	}

	ch := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		XAxis:  gochart.XAxis{Name: axisName(cfg, true), Ticks: ticks},
		YAxis:  gochart.YAxis{Name: axisName(cfg, false), Range: yRange(all)},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch.Render(rp, w)
}

func renderScatter(w io.Writer, rp gochart.RendererProvider, cfg Config, opts RenderOptions) error {
	var all, allX []float64
	series := make([]gochart.Series, 0, len(cfg.Data.Datasets))
	for i, ds := range cfg.Data.Datasets {
		if len(ds.Points) == 0 {
			continue
		}
		xs := make([]float64, len(ds.Points))
		ys := make([]float64, len(ds.Points))
		for j, p := range ds.Points {
			xs[j], ys[j] = p.X, p.Y
		}
		allX = append(allX, xs...)
		all = append(all, ys...)
		c := color(ds.BackgroundColor, i)
		series = append(series, gochart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeWidth: gochart.Disabled,
				DotWidth:    4,
				DotColor:    c,
			},
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	ch := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		XAxis:  gochart.XAxis{Name: axisName(cfg, true), Range: xRange(allX)},
		YAxis:  gochart.YAxis{Name: axisName(cfg, false), Range: yRange(all)},
		Series: series,
	}
	return ch.Render(rp, w)
}

// renderBar draws the first dataset. go-chart only draws vertical bars, so
// horizontal bar configs render the same way.
func renderBar(w io.Writer, rp gochart.RendererProvider, cfg Config, opts RenderOptions) error {
	ds := cfg.Data.Datasets[0]
	values := fit(ds.Data, len(cfg.Data.Labels))
	if len(values) == 0 {
		return ErrNoData
	}

	c := color(ds.BackgroundColor, 0)
	bars := make([]gochart.Value, len(values))
	for i, v := range values {
		bars[i] = gochart.Value{
			Label: cfg.Data.Labels[i],
			Value: v,
			Style: gochart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1},
		}
	}

	bc := gochart.BarChart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		YAxis:  gochart.YAxis{Name: axisName(cfg, false), Range: yRange(values)},
		Bars:   bars,
	}
	return bc.Render(rp, w)
}

func renderStacked(w io.Writer, rp gochart.RendererProvider, cfg Config, opts RenderOptions) error {
	labels := cfg.Data.Labels
	if len(labels) == 0 {
		return ErrNoData
	}

	bars := make([]gochart.StackedBar, len(labels))
	for i, l := range labels {
		bar := gochart.StackedBar{Name: l}
		for j, ds := range cfg.Data.Datasets {
			v := 0.0
			if i < len(ds.Data) {
				v = ds.Data[i]
			}
			c := color(ds.BackgroundColor, j)
			bar.Values = append(bar.Values, gochart.Value{
				Label: ds.Label,
				Value: v,
				Style: gochart.Style{FillColor: c, StrokeColor: c},
			})
		}
		bars[i] = bar
	}

	sbc := gochart.StackedBarChart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Bars:   bars,
	}
	return sbc.Render(rp, w)
}

func renderPie(w io.Writer, rp gochart.RendererProvider, cfg Config, opts RenderOptions) error {
	ds := cfg.Data.Datasets[0]
	var values []gochart.Value
	for i, v := range ds.Data {
		if v <= 0 {
			continue
		}
		label := ""
		if i < len(cfg.Data.Labels) {
			label = cfg.Data.Labels[i]
		}
		values = append(values, gochart.Value{
			Label: label,
			Value: v,
			Style: gochart.Style{FillColor: colorAt(ds.BackgroundColor, i)},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pc := gochart.PieChart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Values: values,
	}
	return pc.Render(rp, w)
}

// fit pads or truncates values to n entries.
func fit(values []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, values)
	return out
}

// yRange anchors the value axis at zero and keeps it non-empty when all
// values are equal.
func yRange(values []float64) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

// color picks the first configured color, falling back to the palette.
func color(c Colors, i int) drawing.Color {
	if len(c) > 0 && c[0] != "" {
		return drawing.ColorFromHex(strings.TrimPrefix(c[0], "#"))
	}
	return drawing.ColorFromHex(strings.TrimPrefix(Palette[i%len(Palette)], "#"))
}

// xRange widens a degenerate x range around its single value.
func xRange(values []float64) *gochart.ContinuousRange {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	return &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

func colorAt(c Colors, i int) drawing.Color {
	if i < len(c) && c[i] != "" {
		return drawing.ColorFromHex(strings.TrimPrefix(c[i], "#"))
	}
	return color(nil, i)
}

func axisName(cfg Config, x bool) string {
	if cfg.Options.Scales == nil {
		return ""
	}
	if x {
		return cfg.Options.Scales.X.Title.Text
	}
	return cfg.Options.Scales.Y.Title.Text
}
