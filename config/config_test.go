package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FetchWorkers != 8 || cfg.ParseWorkers != 2 {
		t.Errorf("expected default workers 8/2, got %d/%d", cfg.FetchWorkers, cfg.ParseWorkers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
site: mercadolibre
fetch_workers: 5
request_timeout: 15s
price:
  min: 10000
  max: 30000
reject_keywords: [venta]
histogram:
  bucket_width: 2500
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PARSE_WORKERS", "3")
	t.Setenv("PG_DSN", "postgres://u:p@localhost:5432/rent")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Site != "mercadolibre" {
		t.Errorf("site: got %q", cfg.Site)
	}
	if cfg.FetchWorkers != 5 || cfg.ParseWorkers != 3 {
		t.Errorf("workers: got %d/%d", cfg.FetchWorkers, cfg.ParseWorkers)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("request_timeout: got %v", cfg.RequestTimeout)
	}
	if cfg.Price.Min != 10000 || cfg.Price.Max != 30000 {
		t.Errorf("price range: got [%v, %v]", cfg.Price.Min, cfg.Price.Max)
	}
	// untouched nested field keeps its default
	if cfg.Price.DecimalSep != "," {
		t.Errorf("decimal_sep: got %q", cfg.Price.DecimalSep)
	}
	if len(cfg.RejectKeywords) != 1 || cfg.RejectKeywords[0] != "venta" {
		t.Errorf("reject_keywords: got %v", cfg.RejectKeywords)
	}
	if cfg.Histogram.BucketWidth != 2500 {
		t.Errorf("bucket_width: got %v", cfg.Histogram.BucketWidth)
	}
	if cfg.PostgresDSN == "" {
		t.Error("expected PG_DSN override")
	}
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("FETCH_WORKERS", "many")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for non-numeric FETCH_WORKERS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"inverted price range", func(c *Config) { c.Price.Min, c.Price.Max = 30000, 10000 }, false},
		{"equal price bounds", func(c *Config) { c.Price.Min, c.Price.Max = 20000, 20000 }, true},
		{"zero fetch workers", func(c *Config) { c.FetchWorkers = 0 }, false},
		{"zero content queue", func(c *Config) { c.ContentQueueSize = 0 }, false},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, false},
		{"unknown record policy", func(c *Config) { c.RecordErrors = "ignore" }, false},
		{"abort record policy", func(c *Config) { c.RecordErrors = RecordErrorsAbort }, true},
		{"zero bucket width", func(c *Config) { c.Histogram.BucketWidth = 0 }, false},
		{"percentile above 100", func(c *Config) { c.Histogram.Percentile = 101 }, false},
		{"same separators", func(c *Config) { c.Price.DecimalSep = "." }, false},
		{"inverted delays", func(c *Config) { c.MinDelay, c.MaxDelay = 2*time.Second, time.Second }, false},
		{"no retries", func(c *Config) { c.MaxRetries = 0 }, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
