package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-offers/parser"
)

// PageCeiling is the hard upper bound on pages crawled per manufacturer.
const PageCeiling = 500

// Config holds scraper configuration.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	SchemaFile        string        `mapstructure:"schema_file"`
	ManufacturersFile string        `mapstructure:"manufacturers_file"`
	OutputDir         string        `mapstructure:"output_dir"`
	CombinedFile      string        `mapstructure:"combined_file"`
	OutputFormat      string        `mapstructure:"output_format"` // csv, json, sqlite, or dual
	MaxPages          int           `mapstructure:"max_pages"`
	Concurrency       int           `mapstructure:"concurrency"`
	OfferDelay        time.Duration `mapstructure:"offer_delay"`
	PageDelay         time.Duration `mapstructure:"page_delay"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	DedupeCacheSize   int           `mapstructure:"dedupe_cache_size"`
	UserAgent         string        `mapstructure:"user_agent"`
	Verbose           bool          `mapstructure:"verbose"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`

	Selectors parser.Selectors  `mapstructure:"selectors"`
	Fields    parser.FieldNames `mapstructure:"fields"`
}

// DefaultConfig returns defaults for the otomoto.pl passenger car catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.otomoto.pl/osobowe/",
		SchemaFile:        "inputs/header.txt",
		ManufacturersFile: "inputs/manufacturers.txt",
		OutputDir:         "outputs/data",
		CombinedFile:      "offers.csv",
		OutputFormat:      "csv",
		MaxPages:          PageCeiling,
		Concurrency:       8,
		OfferDelay:        250 * time.Millisecond,
		PageDelay:         200 * time.Millisecond,
		Timeout:           10 * time.Second,
		RequestsPerSecond: 0,
		DedupeCacheSize:   0,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:           false,
		Selectors:         parser.DefaultSelectors(),
		Fields:            parser.DefaultFieldNames(),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.SchemaFile == "" {
		return fmt.Errorf("schema file cannot be empty")
	}
	if c.ManufacturersFile == "" {
		return fmt.Errorf("manufacturers file cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.CombinedFile == "" {
		return fmt.Errorf("combined file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "sqlite", "dual":
	default:
		return fmt.Errorf("output format must be csv, json, sqlite, or dual")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.MaxPages > PageCeiling {
		return fmt.Errorf("max pages cannot exceed %d", PageCeiling)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.OfferDelay < 0 {
		return fmt.Errorf("offer delay cannot be negative")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.DedupeCacheSize < 0 {
		return fmt.Errorf("dedupe cache size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Fields.Price == "" || c.Fields.Currency == "" || c.Fields.PriceDetails == "" {
		return fmt.Errorf("price field names cannot be empty")
	}
	if err := validateSelectors(c.Selectors); err != nil {
		return err
	}

	return nil
}

func validateSelectors(s parser.Selectors) error {
	required := map[string]string{
		"param_item":        s.ParamItem,
		"param_label":       s.ParamLabel,
		"param_value":       s.ParamValue,
		"feature_item":      s.FeatureItem,
		"price_number":      s.PriceNumber,
		"price_currency":    s.PriceCurrency,
		"price_details":     s.PriceDetails,
		"results_container": s.ResultsContainer,
		"listing_card":      s.ListingCard,
		"listing_anchor":    s.ListingAnchor,
		"pagination_item":   s.PaginationItem,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("selector %s cannot be empty", name)
		}
	}
	return nil
}
