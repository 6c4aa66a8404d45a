// Package chart turns extracted infobox numbers into chart configurations
// and images.
//
// A [Config] mirrors the object Chart.js expects, so a browser front end can
// draw it directly. [Render] draws the same config server-side as PNG or SVG.
package chart

import (
	"encoding/json"
	"fmt"
)

// Kind is the chart style.
type Kind string

const (
	KindLine          Kind = "line"
	KindBar           Kind = "bar"
	KindHorizontalBar Kind = "horizontal_bar"
	KindHistogram     Kind = "histogram"
	KindStackedBar    Kind = "stacked_bar"
	KindPie           Kind = "pie"
	KindScatter       Kind = "scatter"
	KindRadar         Kind = "radar"
)

// Kinds lists every supported kind.
var Kinds = []Kind{
	KindLine, KindBar, KindHorizontalBar, KindHistogram,
	KindStackedBar, KindPie, KindScatter, KindRadar,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// Palette is the default dataset color cycle.
var Palette = []string{"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0"}

// Config is a Chart.js chart definition.
type Config struct {
	Kind    Kind    `json:"-"`
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Data holds category labels and datasets.
type Data struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

// Point is one scatter plot sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is one series. Points is used by scatter charts, Data by all
// others.
type Dataset struct {
	Label                string    `json:"label,omitempty"`
	Data                 []float64 `json:"-"`
	Points               []Point   `json:"-"`
	BackgroundColor      Colors    `json:"backgroundColor,omitempty"`
	HoverBackgroundColor Colors    `json:"hoverBackgroundColor,omitempty"`
	BorderColor          Colors    `json:"borderColor,omitempty"`
	BorderWidth          int       `json:"borderWidth,omitempty"`
	Fill                 *bool     `json:"fill,omitempty"`
}

// MarshalJSON writes Points or Data under the "data" key.
func (d Dataset) MarshalJSON() ([]byte, error) {
	type alias Dataset
	out := struct {
		alias
		Data any `json:"data"`
	}{alias: alias(d)}
	if d.Points != nil {
		out.Data = d.Points
	} else {
		out.Data = d.Data
	}
	return json.Marshal(out)
}

// Colors is a single color or one color per data point.
type Colors []string

// MarshalJSON writes a lone color as a string.
func (c Colors) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

// Options holds the subset of Chart.js options the builders set.
type Options struct {
	IndexAxis  string   `json:"indexAxis,omitempty"`
	Responsive bool     `json:"responsive,omitempty"`
	Scales     *Scales  `json:"scales,omitempty"`
	Plugins    *Plugins `json:"plugins,omitempty"`
}

// Scales configures the cartesian axes.
type Scales struct {
	X Axis `json:"x"`
	Y Axis `json:"y"`
}

// Axis configures one axis.
type Axis struct {
	Title       AxisTitle `json:"title"`
	BeginAtZero bool      `json:"beginAtZero,omitempty"`
	Stacked     bool      `json:"stacked,omitempty"`
}

// AxisTitle is an axis caption.
type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Plugins configures the legend and tooltip.
type Plugins struct {
	Legend  *Legend  `json:"legend,omitempty"`
	Tooltip *Tooltip `json:"tooltip,omitempty"`
}

// Legend places the legend.
type Legend struct {
	Position string `json:"position"`
}

// Tooltip toggles tooltips.
type Tooltip struct {
	Enabled bool `json:"enabled"`
}

// Axes names the x and y axes. Empty names fall back to per-kind defaults.
type Axes struct {
	X string
	Y string
}

// defaultAxes are the captions used when the caller gives none.
var defaultAxes = map[Kind]Axes{
	KindLine:          {X: "月份", Y: "值"},
	KindBar:           {X: "类别", Y: "值"},
	KindHorizontalBar: {X: "值", Y: "类别"},
	KindHistogram:     {X: "数据范围", Y: "频率"},
	KindStackedBar:    {X: "类别", Y: "值"},
	KindScatter:       {X: "X轴", Y: "Y轴"},
}

// Build assembles a config for kind from one or more series. Labels come
// from the first series. Pie charts use only the first series; every other
// kind draws one dataset per series.
func Build(kind Kind, axes Axes, series ...Series) (Config, error) {
	if len(series) == 0 {
		return Config{}, fmt.Errorf("no series for %s chart", kind)
	}

	def := defaultAxes[kind]
	if axes.X == "" {
		axes.X = def.X
	}
	if axes.Y == "" {
		axes.Y = def.Y
	}

	cfg := Config{Kind: kind, Type: string(kind)}
	if kind != KindScatter {
		cfg.Data.Labels = series[0].labels()
	}

	switch kind {
	case KindLine:
		for i, s := range series {
			color := Palette[i%len(Palette)]
			fill := false
			cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
				Label:       s.Name,
				Data:        s.Values,
				BorderColor: Colors{color},
				Fill:        &fill,
			})
		}
		cfg.Options.Scales = cartesian(axes, true, false)

	case KindBar, KindHorizontalBar, KindHistogram:
		cfg.Type = "bar"
		for i, s := range series {
			color := Palette[i%len(Palette)]
			cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
				Label:           s.Name,
				Data:            s.Values,
				BackgroundColor: Colors{color},
				BorderColor:     Colors{color},
				BorderWidth:     1,
			})
		}
		if kind == KindHorizontalBar {
			cfg.Options.IndexAxis = "y"
			cfg.Options.Scales = cartesian(axes, false, false)
		} else {
			cfg.Options.Scales = cartesian(axes, true, false)
		}

	case KindStackedBar:
		cfg.Type = "bar"
		for i, s := range series {
			cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
				Label:           s.Name,
				Data:            s.Values,
				BackgroundColor: Colors{Palette[i%len(Palette)]},
			})
		}
		cfg.Options.Scales = cartesian(axes, true, true)
		cfg.Options.Plugins = &Plugins{Legend: &Legend{Position: "top"}}

	case KindPie:
		colors := make(Colors, len(series[0].Values))
		for i := range colors {
			colors[i] = Palette[i%len(Palette)]
		}
		cfg.Data.Datasets = []Dataset{{
			Data:                 series[0].Values,
			BackgroundColor:      colors,
			HoverBackgroundColor: colors,
		}}
		cfg.Options.Responsive = true
		cfg.Options.Plugins = &Plugins{
			Legend:  &Legend{Position: "top"},
			Tooltip: &Tooltip{Enabled: true},
		}

	case KindScatter:
		for i, s := range series {
			color := Palette[i%len(Palette)]
			cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
				Label:           s.Name,
				Points:          s.points(),
				BackgroundColor: Colors{color},
				BorderColor:     Colors{color},
				BorderWidth:     1,
			})
		}
		cfg.Options.Scales = cartesian(axes, false, false)

	case KindRadar:
		for i, s := range series {
			color := Palette[i%len(Palette)]
			cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
				Label:       s.Name,
				Data:        s.Values,
				BorderColor: Colors{color},
			})
		}
		cfg.Options.Plugins = &Plugins{Legend: &Legend{Position: "top"}}

	default:
		return Config{}, fmt.Errorf("unknown chart kind %q", kind)
	}

	return cfg, nil
}

func cartesian(axes Axes, beginAtZero, stacked bool) *Scales {
	return &Scales{
		X: Axis{Title: AxisTitle{Display: true, Text: axes.X}, Stacked: stacked},
		Y: Axis{Title: AxisTitle{Display: true, Text: axes.Y}, BeginAtZero: beginAtZero, Stacked: stacked},
	}
}

// Line builds a line chart with one dataset per series.
func Line(axes Axes, series ...Series) (Config, error) { return Build(KindLine, axes, series...) }

// Bar builds a vertical bar chart.
func Bar(axes Axes, series ...Series) (Config, error) { return Build(KindBar, axes, series...) }

// HorizontalBar builds a bar chart indexed on the y axis.
func HorizontalBar(axes Axes, series ...Series) (Config, error) {
	return Build(KindHorizontalBar, axes, series...)
}

// Histogram builds a bar chart of bucket frequencies.
func Histogram(axes Axes, series ...Series) (Config, error) {
	return Build(KindHistogram, axes, series...)
}

// StackedBar builds a bar chart with datasets stacked per label.
func StackedBar(axes Axes, series ...Series) (Config, error) {
	return Build(KindStackedBar, axes, series...)
}

// Pie builds a pie chart from the first series.
func Pie(series ...Series) (Config, error) { return Build(KindPie, Axes{}, series...) }

// Scatter builds an x/y scatter plot.
func Scatter(axes Axes, series ...Series) (Config, error) { return Build(KindScatter, axes, series...) }

// Radar builds a radar chart. Radar charts cannot be passed to Render.
func Radar(series ...Series) (Config, error) { return Build(KindRadar, Axes{}, series...) }
