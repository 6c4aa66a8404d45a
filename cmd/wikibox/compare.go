package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsawler/wikibox/compare"
)

// defaultCompareSelector picks the body paragraphs of an article.
const defaultCompareSelector = "#mw-content-text p"

func newCompareCmd(a *app) *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "compare <source1> <source2>",
		Short: "Compare the text of two pages with a chat model",
		Long: `Select text from two pages with a CSS selector and ask the configured
OpenAI-compatible model (llm.* settings) to compare them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			texts := make([]string, 2)
			for i, src := range args {
				sel, err := a.open(src).Select(ctx, selector)
				if err != nil {
					return fmt.Errorf("%s: %w", src, err)
				}
				if sel == nil {
					return fmt.Errorf("%s: nothing matched %q", src, selector)
				}
				texts[i] = sel.Content
			}

			result, err := compare.NewFromConfig(a.cfg.LLM).Compare(ctx, texts[0], texts[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&selector, "selector", "s", defaultCompareSelector, "CSS selector for the text to compare")
	return cmd
}
