package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-offers/config"
	"github.com/aluiziolira/go-scrape-offers/pipeline"
)

func newCombineCmd() *cobra.Command {
	d := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Concatenate the per-manufacturer CSV tables into one file",
		Long: `combine appends the CSV table of every manufacturer in the manufacturers
file, header rows included, into the combined file. Tables that are missing
or unreadable are logged and skipped.`,
		Args: cobra.NoArgs,
		RunE: runCombineCmd,
	}

	f := cmd.Flags()
	f.String("manufacturers", d.ManufacturersFile, "Manufacturers file, one slug per line")
	f.StringP("output-dir", "o", d.OutputDir, "Directory holding the per-manufacturer tables")
	f.String("combined-file", d.CombinedFile, "Combined CSV path, relative to the output directory's parent")

	return cmd
}

func runCombineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, _ := newLogger(os.Stdout, cfg.Verbose)

	manufacturers, err := config.LoadManufacturers(cfg.ManufacturersFile)
	if err != nil {
		return fmt.Errorf("load manufacturers: %w", err)
	}

	dest := combinedPath(cfg)
	result, err := pipeline.Combine(cfg.OutputDir, manufacturers, dest, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "combined %d tables (%d records, %d skipped) into %s\n",
		result.Tables, result.Records, len(result.Skipped), dest)
	return nil
}
