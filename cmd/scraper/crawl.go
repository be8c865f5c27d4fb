package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-offers/config"
	"github.com/aluiziolira/go-scrape-offers/models"
	"github.com/aluiziolira/go-scrape-offers/pipeline"
	"github.com/aluiziolira/go-scrape-offers/scraper"
)

func newCrawlCmd() *cobra.Command {
	d := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every manufacturer and write its offers table",
		Long: `crawl visits the catalog of each manufacturer in order, fetches its offers
with bounded concurrency and writes one table per manufacturer to the output
directory. Unreachable pages and malformed offers are logged and skipped.

After the last manufacturer the CSV tables are combined into a single file
unless --no-combine is given. SIGINT or SIGTERM stops the crawl after the
current page; rows collected so far are still written.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	f := cmd.Flags()
	f.String("base-url", d.BaseURL, "Catalog base URL; the manufacturer is appended as a path segment")
	f.String("schema", d.SchemaFile, "Column schema file, one column name per line")
	f.String("manufacturers", d.ManufacturersFile, "Manufacturers file, one slug per line")
	f.StringP("output-dir", "o", d.OutputDir, "Directory for per-manufacturer tables")
	f.String("combined-file", d.CombinedFile, "Combined CSV path, relative to the output directory's parent")
	f.StringP("format", "f", d.OutputFormat, "Output format: csv, json, sqlite, or dual")
	f.IntP("max-pages", "p", d.MaxPages, fmt.Sprintf("Maximum catalog pages per manufacturer (at most %d)", config.PageCeiling))
	f.IntP("concurrency", "n", d.Concurrency, "Concurrent offer fetches per page")
	f.Duration("offer-delay", d.OfferDelay, "Pause after each extracted offer")
	f.Duration("page-delay", d.PageDelay, "Pause between catalog pages")
	f.Duration("timeout", d.Timeout, "Per-request timeout")
	f.Float64("rps", d.RequestsPerSecond, "Request rate cap across all fetches (0 disables)")
	f.Int("dedupe-cache", d.DedupeCacheSize, "Skip offer links repeated within a manufacturer, remembering this many (0 disables)")
	f.String("user-agent", d.UserAgent, "User-Agent header")
	f.String("metrics-addr", d.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	f.Bool("no-combine", false, "Skip combining the tables after the crawl")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noCombine, err := cmd.Flags().GetBool("no-combine")
	if err != nil {
		return err
	}

	logger, _ := newLogger(os.Stdout, cfg.Verbose)
	slog.SetDefault(logger)

	schema, err := config.LoadSchema(cfg.SchemaFile)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	manufacturers, err := config.LoadManufacturers(cfg.ManufacturersFile)
	if err != nil {
		return fmt.Errorf("load manufacturers: %w", err)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputDir, schema)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	p := pipeline.NewPipeline(writer, schema, logger)

	metrics := scraper.NewMetrics()
	s, err := scraper.NewScraper(cfg, schema, p, scraper.WithLogger(logger), scraper.WithMetrics(metrics))
	if err != nil {
		_ = p.Close()
		return fmt.Errorf("initialise scraper: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, finishing the current page")
	}()

	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics, logger)

	logger.Info("starting crawl",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("manufacturers", len(manufacturers)),
		slog.Int("columns", len(schema)),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Int("concurrency", cfg.Concurrency),
		slog.String("format", cfg.OutputFormat),
	)

	result := s.Run(ctx, manufacturers)

	if err := writer.Validate(); err != nil {
		logger.Error("output validation failed", slog.Any("error", err))
	}
	if err := p.Close(); err != nil {
		logger.Error("closing output failed", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	combined := ""
	if !noCombine && hasCSVTables(cfg.OutputFormat) {
		combined = combinedPath(cfg)
		if _, err := pipeline.Combine(cfg.OutputDir, manufacturers, combined, logger); err != nil {
			logger.Error("combining tables failed", slog.Any("error", err))
			combined = ""
		}
	}

	printSummary(cmd.OutOrStdout(), result, p.GetMetrics(), cfg.OutputDir, combined)
	return nil
}

func createWriter(format, dir string, schema models.Schema) (pipeline.OutputWriter, error) {
	switch format {
	case "csv":
		return pipeline.NewCSVWriter(dir, schema)
	case "json":
		return pipeline.NewJSONWriter(dir)
	case "sqlite":
		return pipeline.NewSQLiteWriter(dir, schema)
	case "dual":
		return pipeline.NewDualWriter(dir, schema)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func hasCSVTables(format string) bool {
	return format == "csv" || format == "dual"
}

// combinedPath places the combined file next to the tables directory, so
// that outputs/data/*.csv combine into outputs/offers.csv.
func combinedPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.CombinedFile) {
		return cfg.CombinedFile
	}
	return filepath.Join(filepath.Dir(filepath.Clean(cfg.OutputDir)), cfg.CombinedFile)
}

func startMetricsServer(addr string, metrics *scraper.Metrics, logger *slog.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func printSummary(w io.Writer, result *models.ScraperResult, metrics map[string]interface{}, outputDir, combined string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Crawl complete")

	for _, mr := range result.Manufacturers {
		status := "ok"
		switch {
		case mr.PersistErr != nil:
			status = "not saved: " + mr.PersistErr.Error()
		case mr.Interrupted:
			status = "interrupted"
		case mr.PageCountDefaulted:
			status = "page count unknown"
		}
		fmt.Fprintf(w, "  %-16s %5d offers  %3d/%d pages failed  %s\n",
			mr.Manufacturer, mr.OfferCount, mr.FailedPages, mr.PageCount, status)
	}

	fmt.Fprintf(w, "  Total offers:  %d\n", result.TotalOffers)
	fmt.Fprintf(w, "  Pages:         %d\n", result.PageCount)
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}
	fmt.Fprintf(w, "  Requests:      %d (%.2f%% ok)\n", result.RequestCount, successRate)
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(w, "  Validation:    %v\n", valErrors)
	}

	duration := result.EndTime.Sub(result.StartTime)
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	if duration.Seconds() > 0 {
		fmt.Fprintf(w, "  Offers/sec:    %.2f\n", float64(result.TotalOffers)/duration.Seconds())
	}
	fmt.Fprintf(w, "  Output dir:    %s\n", outputDir)
	if combined != "" {
		fmt.Fprintf(w, "  Combined file: %s\n", combined)
	}
	fmt.Fprintln(w, separator)
}
