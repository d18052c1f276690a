package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"rent-scraper/config"
	"rent-scraper/metrics"
	"rent-scraper/models"
	"rent-scraper/scraper"
	"rent-scraper/scraper/lavoz"
	"rent-scraper/scraper/mercadolibre"
	"rent-scraper/services"
	"rent-scraper/storage"
	"rent-scraper/utils"
)

// app holds what survives between scheduled runs.
type app struct {
	cfg       *config.Config
	site      scraper.Site
	validator *scraper.Validator
	metrics   *metrics.Metrics
	recorder  storage.Recorder
	postgres  *storage.PostgresWriter
	csv       *storage.CSVWriter
}

func newApp(cfg *config.Config, m *metrics.Metrics, rec storage.Recorder, pg *storage.PostgresWriter) (*app, error) {
	site, err := newSite(cfg.Site)
	if err != nil {
		return nil, err
	}

	validator, err := scraper.NewValidator(scraper.Rules{
		MinPrice:       cfg.Price.Min,
		MaxPrice:       cfg.Price.Max,
		PriceSentinels: cfg.Price.Sentinels,
		RejectKeywords: cfg.RejectKeywords,
		ThousandsSep:   cfg.Price.ThousandsSep,
		DecimalSep:     cfg.Price.DecimalSep,
	})
	if err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}

	return &app{
		cfg:       cfg,
		site:      site,
		validator: validator,
		metrics:   m,
		recorder:  rec,
		postgres:  pg,
		csv:       storage.NewCSVWriter(cfg.CSVPath),
	}, nil
}

func newSite(name string) (scraper.Site, error) {
	switch name {
	case "lavoz":
		return lavoz.New(), nil
	case "mercadolibre":
		return mercadolibre.New(), nil
	}
	return nil, fmt.Errorf("unknown site %q (want lavoz or mercadolibre)", name)
}

func newFetcher(cfg *config.Config) scraper.Fetcher {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = utils.RandomUserAgent()
	}
	if cfg.Transport == config.TransportBrowser {
		return scraper.NewBrowserFetcher(cfg.Headless, userAgent, cfg.RequestTimeout)
	}
	return scraper.NewHTTPFetcher(cfg.RequestTimeout, userAgent)
}

// runOnce enumerates, scrapes, stores and reports one full pass over the site.
func (a *app) runOnce(ctx context.Context) error {
	utils.Section("Scraping " + a.site.Name())
	start := time.Now()

	// a fresh fetcher per run, so no browser idles between scheduled runs
	fetcher := newFetcher(a.cfg)
	defer fetcher.Close()

	discovery, err := scraper.NewEnumerator(a.site, fetcher).Enumerate(ctx, a.site.Seeds())
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}
	utils.Info("Site reports %d listings over %d pages", discovery.Total, len(discovery.Tasks))

	pipeline := scraper.NewPipeline(a.site, fetcher, a.validator, scraper.Options{
		FetchWorkers:       a.cfg.FetchWorkers,
		ParseWorkers:       a.cfg.ParseWorkers,
		QueueSize:          a.cfg.QueueSize,
		ContentQueueSize:   a.cfg.ContentQueueSize,
		MaxRetries:         a.cfg.MaxRetries,
		MinDelay:           a.cfg.MinDelay,
		MaxDelay:           a.cfg.MaxDelay,
		AbortOnRecordError: a.cfg.RecordErrors == config.RecordErrorsAbort,
		Metrics:            a.metrics,
		Progress: scraper.ProgressReporter{
			Interval: a.cfg.ProgressInterval,
			Report:   func(s scraper.Snapshot) { utils.Progress("%s", s) },
		},
	})

	res, err := pipeline.Run(ctx, discovery.Tasks)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	listings := services.CleanListings(res.Listings)
	report := services.GenerateReport(listings, services.ReportOptions{
		Site:         a.site.Name(),
		Reported:     discovery.Total,
		Rejected:     rejectedByReason(res.Rejected),
		RecordErrors: res.RecordErrors,
		Elapsed:      time.Since(start),
		BucketWidth:  a.cfg.Histogram.BucketWidth,
		Percentile:   a.cfg.Histogram.Percentile,
	})

	if err := a.save(ctx, listings, report); err != nil {
		return err
	}

	previous, err := a.recorder.RecentRuns(a.site.Name(), 1)
	if err != nil {
		utils.Warn("Could not read run history: %v", err)
	}
	if err := a.recorder.RecordRun(storage.NewRunRecord(start, report)); err != nil {
		utils.Warn("Could not record run: %v", err)
	}

	printSummary(listings, report)
	services.PrintReport(os.Stdout, report)
	if len(previous) > 0 {
		printTrend(previous[0], report)
	}
	return nil
}

func (a *app) save(ctx context.Context, listings []models.Listing, report services.Report) error {
	if err := a.csv.Write(listings); err != nil {
		return fmt.Errorf("save csv: %w", err)
	}
	if report.HistogramErr == nil {
		if err := a.csv.AppendHistogram(report.Histogram); err != nil {
			return fmt.Errorf("save histogram: %w", err)
		}
	}

	if a.postgres == nil {
		return nil
	}
	if err := a.postgres.WriteBatch(ctx, listings); err != nil {
		return fmt.Errorf("save listings to PostgreSQL: %w", err)
	}
	utils.Success("Saved %d listings to PostgreSQL", len(listings))
	return nil
}

func rejectedByReason(rejected map[scraper.Rejection]int) map[string]int {
	out := make(map[string]int, len(rejected))
	for r, n := range rejected {
		out[r.String()] = n
	}
	return out
}

func printSummary(listings []models.Listing, report services.Report) {
	owners, agencies := services.PartitionByOwner(listings)

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║                SCRAPE COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Printf("║  Total listings : %-26d ║\n", len(listings))
	fmt.Printf("║  Owners         : %-26d ║\n", len(owners))
	fmt.Printf("║  Agencies       : %-26d ║\n", len(agencies))
	fmt.Printf("║  Elapsed        : %-26s ║\n", report.Elapsed.Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()
}

func printTrend(prev storage.RunRecord, report services.Report) {
	if prev.MedianAll == 0 || report.All.Err != nil {
		return
	}
	delta := (report.All.Summary.Median - prev.MedianAll) / prev.MedianAll * 100
	fmt.Printf("\nMedian price %.2f vs %.2f on %s (%+.1f%%)\n",
		report.All.Summary.Median, prev.MedianAll, prev.StartedAt.Format("2006-01-02 15:04"), delta)
}
