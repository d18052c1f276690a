package scraper

import (
	"context"
	"fmt"
	"time"

	"rent-scraper/metrics"
)

// Snapshot is a point-in-time view of the pipeline queues.
type Snapshot struct {
	Queued         int
	InFlight       int
	PendingContent int
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Pages to fetch: [%d] - Content to process: [%d] - Pending requests: [%d]",
		s.Queued, s.PendingContent, s.InFlight)
}

// ProgressReporter samples the pipeline at a fixed cadence. It only reads
// counters, so a slow Report never holds back a worker.
type ProgressReporter struct {
	Interval time.Duration
	Report   func(Snapshot)
	Metrics  *metrics.Metrics
}

func (r ProgressReporter) run(ctx context.Context, sample func() Snapshot) {
	if r.Interval <= 0 {
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := sample()
			if r.Metrics != nil {
				r.Metrics.ObserveQueues(s.Queued, s.InFlight, s.PendingContent)
			}
			if r.Report != nil {
				r.Report(s)
			}
		}
	}
}
