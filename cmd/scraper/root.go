package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aluiziolira/go-scrape-offers/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Harvest vehicle offers into per-manufacturer tables",
		Long: `scraper walks the catalog of every manufacturer listed in the
manufacturers file, extracts each offer into a row of the column schema and
writes one table per manufacturer. The tables are then combined into a single
dataset.

Configuration is read from scraper.yaml in the working directory or in
$XDG_CONFIG_HOME/go-scrape-offers, then from SCRAPER_* environment variables,
then from flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newCombineCmd())
	return cmd
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"verbose":       "verbose",
	"base-url":      "base_url",
	"schema":        "schema_file",
	"manufacturers": "manufacturers_file",
	"output-dir":    "output_dir",
	"combined-file": "combined_file",
	"format":        "output_format",
	"max-pages":     "max_pages",
	"concurrency":   "concurrency",
	"offer-delay":   "offer_delay",
	"page-delay":    "page_delay",
	"timeout":       "timeout",
	"rps":           "requests_per_second",
	"dedupe-cache":  "dedupe_cache_size",
	"user-agent":    "user_agent",
	"metrics-addr":  "metrics_addr",
}

// loadConfig binds the command's flags over the file and environment
// layers and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	var bindErr error
	bind := func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	}
	cmd.Flags().VisitAll(bind)
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
