package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative concurrency",
			mutate: func(cfg *Config) {
				cfg.Concurrency = -1
			},
			wantErr: "concurrency",
		},
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "max pages above ceiling",
			mutate: func(cfg *Config) {
				cfg.MaxPages = PageCeiling + 1
			},
			wantErr: "max pages",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative page delay",
			mutate: func(cfg *Config) {
				cfg.PageDelay = -time.Millisecond
			},
			wantErr: "page delay",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.ResultsContainer = ""
			},
			wantErr: "results_container",
		},
		{
			name: "empty price field",
			mutate: func(cfg *Config) {
				cfg.Fields.Currency = ""
			},
			wantErr: "price field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.BaseURL != def.BaseURL || cfg.Concurrency != def.Concurrency || cfg.OfferDelay != def.OfferDelay {
		t.Fatalf("loaded config %+v does not match defaults", cfg)
	}
	if cfg.Selectors != def.Selectors {
		t.Fatalf("selectors = %+v, want %+v", cfg.Selectors, def.Selectors)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scraper.yaml")
	content := `
base_url: https://catalog.example.test/cars/
concurrency: 4
page_delay: 1s
selectors:
  listing_card: div.card
fields:
  price: Cena
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCRAPER_CONCURRENCY", "6")
	t.Setenv("SCRAPER_SELECTORS_PRICE_NUMBER", "span.amount")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.BaseURL != "https://catalog.example.test/cars/" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Concurrency != 6 {
		t.Errorf("concurrency = %d, want env override 6", cfg.Concurrency)
	}
	if cfg.PageDelay != time.Second {
		t.Errorf("page delay = %v, want 1s", cfg.PageDelay)
	}
	if cfg.Selectors.ListingCard != "div.card" {
		t.Errorf("listing card selector = %q", cfg.Selectors.ListingCard)
	}
	if cfg.Selectors.PriceNumber != "span.amount" {
		t.Errorf("price selector = %q, want env override", cfg.Selectors.PriceNumber)
	}
	if cfg.Selectors.ParamItem != DefaultConfig().Selectors.ParamItem {
		t.Errorf("param item selector should keep default, got %q", cfg.Selectors.ParamItem)
	}
	if cfg.Fields.Price != "Cena" || cfg.Fields.Currency != "Currency" {
		t.Errorf("fields = %+v", cfg.Fields)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manufacturers.txt")
	content := "\ufeffaudi\r\nbmw  \n\n  alfa-romeo\t\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadManufacturers(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"audi", "bmw", "alfa-romeo"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSchema(filepath.Join(dir, "header.txt"))
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("missing file error = %v, want ErrInputNotFound", err)
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("\n \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSchema(empty); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("empty file error = %v, want ErrEmptyInput", err)
	}

	dup := filepath.Join(dir, "dup.txt")
	if err := os.WriteFile(dup, []byte("Price\nMake\nPrice\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSchema(dup); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate column error = %v", err)
	}
}
