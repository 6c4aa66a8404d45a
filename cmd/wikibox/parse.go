package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/wikibox/infobox"
)

type parseOptions struct {
	format   string
	sections []string
	fields   []string
}

// sourceResult is one entry of multi-source JSON output.
type sourceResult struct {
	Source    string              `json:"source"`
	Infoboxes []*infobox.Document `json:"infoboxes"`
}

func newParseCmd(a *app) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <source>...",
		Short: "Print the infoboxes of one or more pages",
		Long: `Parse every infobox on each source and print it as JSON or Markdown.
With several sources the JSON output is an array of {source, infoboxes}.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json or markdown")
	cmd.Flags().StringSliceVar(&opts.sections, "section", nil, "only these sections")
	cmd.Flags().StringSliceVar(&opts.fields, "field", nil, "only these fields")
	return cmd
}

func (a *app) runParse(cmd *cobra.Command, opts *parseOptions, args []string) error {
	format := strings.ToLower(opts.format)
	if format != "json" && format != "markdown" && format != "md" {
		return fmt.Errorf("unknown format %q (want json or markdown)", opts.format)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	results := make([]sourceResult, 0, len(args))

	printed := 0
	for _, src := range args {
		ext := a.open(src).Sections(opts.sections...).Fields(opts.fields...)

		if format == "json" {
			docs, err := ext.Infoboxes(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			if docs == nil {
				docs = []*infobox.Document{}
			}
			results = append(results, sourceResult{Source: src, Infoboxes: docs})
			continue
		}

		md, err := ext.Markdown(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		if md == "" {
			a.log.WithField("source", src).Warn("no infobox found")
			continue
		}
		if printed > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, md)
		printed++
	}

	if format != "json" {
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0].Infoboxes)
	}
	return enc.Encode(results)
}
