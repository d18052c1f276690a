package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the scraper's Prometheus collectors on a private registry,
// so several pipelines (and tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	QueuedPages     prometheus.Gauge
	InFlightFetches prometheus.Gauge
	PendingContent  prometheus.Gauge

	PagesFetched  prometheus.Counter
	FetchFailures prometheus.Counter
	FetchDuration prometheus.Histogram
	PageErrors    prometheus.Counter
	RecordErrors  prometheus.Counter
	Listings      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueuedPages: f.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_queued_pages",
			Help: "Page tasks waiting in the work queue",
		}),
		InFlightFetches: f.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_inflight_fetches",
			Help: "Fetches currently in progress",
		}),
		PendingContent: f.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_pending_content",
			Help: "Fetched pages waiting to be parsed",
		}),
		PagesFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "scraper_pages_fetched_total",
			Help: "Pages fetched successfully",
		}),
		FetchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "scraper_fetch_failures_total",
			Help: "Page fetches that failed after all attempts",
		}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Page fetch latency including retries",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		PageErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scraper_page_errors_total",
			Help: "Pages whose listings could not be extracted",
		}),
		RecordErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scraper_record_errors_total",
			Help: "Listings skipped because their price could not be parsed",
		}),
		Listings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_listings_total",
			Help: "Candidate listings by filter outcome",
		}, []string{"outcome"}),
	}
}

// ObserveQueues records one progress snapshot.
func (m *Metrics) ObserveQueues(queued, inFlight, pendingContent int) {
	m.QueuedPages.Set(float64(queued))
	m.InFlightFetches.Set(float64(inFlight))
	m.PendingContent.Set(float64(pendingContent))
}

func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	m.FetchDuration.Observe(d.Seconds())
	if err != nil {
		m.FetchFailures.Inc()
		return
	}
	m.PagesFetched.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
