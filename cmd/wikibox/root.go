package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tsawler/wikibox"
	"github.com/tsawler/wikibox/config"
	"github.com/tsawler/wikibox/internal/logging"
	"github.com/tsawler/wikibox/server"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	browser    bool
	wiki       string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "wikibox",
		Short: "Extract and chart Wikipedia infobox data",
		Long: `wikibox reads the infobox tables of Wikipedia articles into typed records.
Sources may be page URLs, saved HTML files or bare article titles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.browser {
				cfg.Fetch.Browser = true
			}
			if a.wiki != "" {
				cfg.Fetch.BaseURL = a.wiki
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Log)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./wikibox.yaml)")
	root.PersistentFlags().BoolVar(&a.browser, "browser", false, "fetch pages with headless Chrome")
	root.PersistentFlags().StringVar(&a.wiki, "wiki", "", "wiki that bare titles resolve against")

	root.AddCommand(newParseCmd(a))
	root.AddCommand(newChartCmd(a))
	root.AddCommand(newCompareCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// open returns an extractor for src configured from the loaded settings.
func (a *app) open(src string) *wikibox.Extractor {
	a.log.WithField(logging.FieldURL, src).Debug("loading source")
	return wikibox.Open(src).
		Wiki(a.cfg.Fetch.BaseURL).
		WithFetcher(server.NewFetcher(a.cfg.Fetch))
}
