package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportHTTP    = "http"
	TransportBrowser = "browser"

	RecordErrorsSkip  = "skip"
	RecordErrorsAbort = "abort"
)

type PriceConfig struct {
	Min          float64  `yaml:"min"`
	Max          float64  `yaml:"max"`
	Sentinels    []string `yaml:"sentinels"`
	ThousandsSep string   `yaml:"thousands_sep"`
	DecimalSep   string   `yaml:"decimal_sep"`
}

type HistogramConfig struct {
	BucketWidth float64 `yaml:"bucket_width"`
	Percentile  float64 `yaml:"percentile"`
}

type Config struct {
	Site      string `yaml:"site"`
	Transport string `yaml:"transport"`

	FetchWorkers     int `yaml:"fetch_workers"`
	ParseWorkers     int `yaml:"parse_workers"`
	QueueSize        int `yaml:"queue_size"`
	ContentQueueSize int `yaml:"content_queue_size"`

	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MinDelay         time.Duration `yaml:"min_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	MaxRetries       int           `yaml:"max_retries"`
	Headless         bool          `yaml:"headless"`
	UserAgent        string        `yaml:"user_agent"`
	ProgressInterval time.Duration `yaml:"progress_interval"`

	Price          PriceConfig     `yaml:"price"`
	RejectKeywords []string        `yaml:"reject_keywords"`
	RecordErrors   string          `yaml:"record_errors"`
	Histogram      HistogramConfig `yaml:"histogram"`

	CSVPath     string `yaml:"csv_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`
	MetricsAddr string `yaml:"metrics_addr"`
	Schedule    string `yaml:"schedule"`
}

func DefaultConfig() *Config {
	return &Config{
		Site:             "lavoz",
		Transport:        TransportHTTP,
		FetchWorkers:     8,
		ParseWorkers:     2,
		QueueSize:        64,
		ContentQueueSize: 16,
		RequestTimeout:   60 * time.Second,
		MaxRetries:       1,
		Headless:         true,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ProgressInterval: 100 * time.Millisecond,
		Price: PriceConfig{
			Min:          5000,
			Max:          30000,
			Sentinels:    []string{"consultar", "U$S"},
			ThousandsSep: ".",
			DecimalSep:   ",",
		},
		RejectKeywords: []string{
			"inversiones", "inversión", "amueblado", "amoblado", "amoblados",
			"venta", "vendo", "temporal", "temporario", "temporada",
		},
		RecordErrors: RecordErrorsSkip,
		Histogram: HistogramConfig{
			BucketWidth: 1000,
			Percentile:  90,
		},
		CSVPath: "output/listings.csv",
	}
}

// Load reads the YAML file at path on top of DefaultConfig, then applies environment
// overrides. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCRAPER_SITE"); v != "" {
		c.Site = v
	}
	if v := os.Getenv("SCRAPER_TRANSPORT"); v != "" {
		c.Transport = v
	}
	if v := os.Getenv("FETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FETCH_WORKERS: %w", err)
		}
		c.FetchWorkers = n
	}
	if v := os.Getenv("PARSE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PARSE_WORKERS: %w", err)
		}
		c.ParseWorkers = n
	}
	if v := os.Getenv("CSV_PATH"); v != "" {
		c.CSVPath = v
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("SCHEDULE"); v != "" {
		c.Schedule = v
	}
	return nil
}

// Validate checks that the knobs describe a runnable pipeline.
func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site is required")
	}
	if c.Transport != TransportHTTP && c.Transport != TransportBrowser {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportHTTP, TransportBrowser, c.Transport)
	}
	if c.FetchWorkers < 1 || c.ParseWorkers < 1 {
		return fmt.Errorf("fetch_workers and parse_workers must be positive")
	}
	if c.QueueSize < 1 || c.ContentQueueSize < 1 {
		return fmt.Errorf("queue_size and content_queue_size must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max_delay must be >= min_delay")
	}
	if c.Price.Min > c.Price.Max {
		return fmt.Errorf("price.min (%.2f) must be <= price.max (%.2f)", c.Price.Min, c.Price.Max)
	}
	if c.Price.ThousandsSep == c.Price.DecimalSep {
		return fmt.Errorf("price.thousands_sep and price.decimal_sep must differ")
	}
	if c.RecordErrors != RecordErrorsSkip && c.RecordErrors != RecordErrorsAbort {
		return fmt.Errorf("record_errors must be %q or %q, got %q", RecordErrorsSkip, RecordErrorsAbort, c.RecordErrors)
	}
	if c.Histogram.BucketWidth <= 0 {
		return fmt.Errorf("histogram.bucket_width must be positive")
	}
	if c.Histogram.Percentile < 0 || c.Histogram.Percentile > 100 {
		return fmt.Errorf("histogram.percentile must be within [0, 100]")
	}
	return nil
}
