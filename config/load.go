package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName names the configuration directory and the environment prefix.
const AppName = "go-scrape-offers"

// EnvPrefix is prepended to every environment override, e.g.
// SCRAPER_CONCURRENCY or SCRAPER_SELECTORS_PRICE_NUMBER.
const EnvPrefix = "SCRAPER"

// Load builds a Config from defaults, an optional YAML file and the
// environment, in increasing order of precedence. Flags already bound to v
// take precedence over all of them. An explicit path must exist; without
// one the file is searched for in the working directory and in
// $XDG_CONFIG_HOME/go-scrape-offers, and its absence is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scraper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Dir returns the per-user configuration directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("schema_file", d.SchemaFile)
	v.SetDefault("manufacturers_file", d.ManufacturersFile)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("combined_file", d.CombinedFile)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("max_pages", d.MaxPages)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("offer_delay", d.OfferDelay)
	v.SetDefault("page_delay", d.PageDelay)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("dedupe_cache_size", d.DedupeCacheSize)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("metrics_addr", d.MetricsAddr)

	v.SetDefault("selectors.param_item", d.Selectors.ParamItem)
	v.SetDefault("selectors.param_label", d.Selectors.ParamLabel)
	v.SetDefault("selectors.param_value", d.Selectors.ParamValue)
	v.SetDefault("selectors.feature_item", d.Selectors.FeatureItem)
	v.SetDefault("selectors.price_number", d.Selectors.PriceNumber)
	v.SetDefault("selectors.price_currency", d.Selectors.PriceCurrency)
	v.SetDefault("selectors.price_details", d.Selectors.PriceDetails)
	v.SetDefault("selectors.results_container", d.Selectors.ResultsContainer)
	v.SetDefault("selectors.listing_card", d.Selectors.ListingCard)
	v.SetDefault("selectors.listing_anchor", d.Selectors.ListingAnchor)
	v.SetDefault("selectors.pagination_item", d.Selectors.PaginationItem)

	v.SetDefault("fields.price", d.Fields.Price)
	v.SetDefault("fields.currency", d.Fields.Currency)
	v.SetDefault("fields.price_details", d.Fields.PriceDetails)
}
