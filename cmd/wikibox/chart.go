package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/wikibox"
	"github.com/tsawler/wikibox/chart"
)

type chartOptions struct {
	section string
	field   string
	kind    string
	out     string
	format  string
	title   string
	xLabel  string
	yLabel  string
	width   int
	height  int
}

func newChartCmd(a *app) *cobra.Command {
	opts := &chartOptions{}

	cmd := &cobra.Command{
		Use:   "chart <source>...",
		Short: "Chart one infobox field across pages",
		Long: `Take the first infobox of every source, read one field from each and draw
the values as a chart. The output format follows --format or the extension of
--out; json prints the Chart.js configuration instead of an image.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChart(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.section, "section", "", "section holding the field (default: any)")
	cmd.Flags().StringVar(&opts.field, "field", "", "field to chart")
	cmd.Flags().StringVarP(&opts.kind, "type", "t", string(chart.KindBar), "chart type: "+kindList())
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "png, svg or json (default from --out, else png)")
	cmd.Flags().StringVar(&opts.title, "title", "", "chart title")
	cmd.Flags().StringVar(&opts.xLabel, "x-label", "", "x axis title")
	cmd.Flags().StringVar(&opts.yLabel, "y-label", "", "y axis title")
	cmd.Flags().IntVar(&opts.width, "width", chart.DefaultWidth, "image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", chart.DefaultHeight, "image height in pixels")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func (a *app) runChart(cmd *cobra.Command, opts *chartOptions, args []string) error {
	kind, err := chart.ParseKind(opts.kind)
	if err != nil {
		return err
	}
	format, err := outputFormat(opts.format, opts.out)
	if err != nil {
		return err
	}

	exts := make([]*wikibox.Extractor, len(args))
	for i, src := range args {
		exts[i] = a.open(src)
	}
	series, err := wikibox.Series(cmd.Context(), opts.field, opts.section, opts.field, exts...)
	if err != nil {
		return err
	}

	cfg, err := chart.Build(kind, chart.Axes{X: opts.xLabel, Y: opts.yLabel}, series)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	err = chart.Render(w, cfg, format, chart.RenderOptions{
		Title:  opts.title,
		Width:  opts.width,
		Height: opts.height,
	})
	if err != nil {
		return err
	}
	if opts.out != "" {
		a.log.WithField("file", opts.out).Info("chart written")
	}
	return nil
}

// outputFormat picks the format from the flag, falling back to the output
// file's extension and then PNG.
func outputFormat(flag, out string) (chart.Format, error) {
	name := strings.ToLower(flag)
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	switch name {
	case "", "png":
		return chart.FormatPNG, nil
	case "svg":
		return chart.FormatSVG, nil
	case "json":
		return "json", nil
	}
	return "", errors.New("format must be png, svg or json")
}

func kindList() string {
	names := make([]string, len(chart.Kinds))
	for i, k := range chart.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
