package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"rent-scraper/config"
	"rent-scraper/metrics"
	"rent-scraper/storage"
	"rent-scraper/utils"
)

func main() {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config")
	site := flag.String("site", "", "site to scrape (lavoz, mercadolibre); overrides the config")
	once := flag.Bool("once", false, "run once and exit even if a schedule is configured")
	flag.Parse()

	if err := run(*cfgPath, *site, *once); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfgPath, site string, once bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if site != "" {
		cfg.Site = site
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	utils.Info("Scraper starting | site=%s transport=%s fetchers=%d parsers=%d price=[%.0f, %.0f]",
		cfg.Site, cfg.Transport, cfg.FetchWorkers, cfg.ParseWorkers, cfg.Price.Min, cfg.Price.Max)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				utils.Error("Metrics server stopped: %v", err)
			}
		}()
		utils.Info("Metrics on http://%s/metrics", cfg.MetricsAddr)
	}

	var rec storage.Recorder
	if cfg.SQLitePath != "" {
		sr, err := storage.NewSQLiteRecorder(cfg.SQLitePath)
		if err != nil {
			utils.Warn("Init sqlite recorder failed, using noop: %v", err)
			rec = storage.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = storage.NewNoopRecorder()
	}
	defer rec.Close()

	var pg *storage.PostgresWriter
	if cfg.PostgresDSN != "" {
		pg, err = storage.NewPostgresWriter(ctx, cfg.PostgresDSN, cfg.Site)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	a, err := newApp(cfg, m, rec, pg)
	if err != nil {
		return err
	}

	if cfg.Schedule == "" || once {
		return a.runOnce(ctx)
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := a.runOnce(ctx); err != nil {
			utils.Error("Scheduled run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("register schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	utils.Info("Scheduled with %q. Press Ctrl+C to stop.", cfg.Schedule)

	<-ctx.Done()
	utils.Info("Shutdown signal received, waiting for the current run...")
	<-c.Stop().Done()
	utils.Info("Scraper stopped")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
