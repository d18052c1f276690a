package storage

import (
	"time"

	"rent-scraper/services"
)

// RunRecord is the outcome of one scrape run.
type RunRecord struct {
	StartedAt    time.Time
	Site         string
	Reported     int
	Accepted     int
	Rejected     int
	RecordErrors int
	Elapsed      time.Duration

	// Zero when the partition had no listings.
	MedianAll      float64
	MedianOwners   float64
	MedianAgencies float64

	Histogram services.Histogram
}

// NewRunRecord flattens a report into the row stored per run.
func NewRunRecord(startedAt time.Time, report services.Report) *RunRecord {
	rec := &RunRecord{
		StartedAt:    startedAt,
		Site:         report.Site,
		Reported:     report.Reported,
		Accepted:     report.Relevant,
		RecordErrors: report.RecordErrors,
		Elapsed:      report.Elapsed,
		Histogram:    report.Histogram,
	}
	for _, n := range report.Rejected {
		rec.Rejected += n
	}
	if report.All.Err == nil {
		rec.MedianAll = report.All.Summary.Median
	}
	if report.Owners.Err == nil {
		rec.MedianOwners = report.Owners.Summary.Median
	}
	if report.Agencies.Err == nil {
		rec.MedianAgencies = report.Agencies.Summary.Median
	}
	return rec
}

// Recorder keeps the history of runs for comparison over time.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecentRuns(site string, limit int) ([]RunRecord, error)
	Close() error
}
