package services

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"rent-scraper/models"
)

// ErrEmptyPartition is returned when a statistic is asked of zero listings.
// Callers decide whether to skip that partition's report or abort.
var ErrEmptyPartition = errors.New("partition has no listings")

type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	// PercentileRank is P, Percentile the nearest-rank value at P.
	PercentileRank float64
	Percentile     float64
}

// Summarize computes count, min, max, mean, median and the nearest-rank percentile p.
func Summarize(values []float64, p float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptyPartition
	}
	data := stats.Float64Data(values)

	min, err := stats.Min(data)
	if err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}
	max, err := stats.Max(data)
	if err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	median, err := Median(values)
	if err != nil {
		return Summary{}, err
	}
	pct, err := Percentile(values, p)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Count:          len(values),
		Min:            min,
		Max:            max,
		Mean:           mean,
		Median:         median,
		PercentileRank: p,
		Percentile:     pct,
	}, nil
}

// Median averages the two middle values when the count is even. The input is not reordered.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyPartition
	}
	m, err := stats.Median(stats.Float64Data(values))
	if err != nil {
		return 0, fmt.Errorf("median: %w", err)
	}
	return m, nil
}

// Percentile selects sorted[round(n*p/100)], clamped to the last element.
// p = 0 is the minimum and p = 100 the maximum.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyPartition
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile %v out of [0, 100]", p)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Round(float64(len(sorted)) * p / 100))
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx], nil
}

// PartitionByOwner splits listings into those published by the owner and by an agency.
func PartitionByOwner(listings []models.Listing) (owners, agencies []models.Listing) {
	for _, l := range listings {
		if l.IsOwner {
			owners = append(owners, l)
		} else {
			agencies = append(agencies, l)
		}
	}
	return owners, agencies
}

func Prices(listings []models.Listing) []float64 {
	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.Price
	}
	return prices
}

// Section is the summary of one partition, or why there is none.
type Section struct {
	Name    string
	Summary Summary
	Err     error
}

type Report struct {
	Site         string
	Reported     int
	Relevant     int
	Ignored      int
	Rejected     map[string]int
	RecordErrors int
	Elapsed      time.Duration

	All       Section
	Owners    Section
	Agencies  Section
	Histogram Histogram
	// HistogramErr is set when no histogram could be built.
	HistogramErr error
}

type ReportOptions struct {
	Site         string
	Reported     int
	Rejected     map[string]int
	RecordErrors int
	Elapsed      time.Duration
	BucketWidth  float64
	Percentile   float64
}

// GenerateReport computes the per-partition summaries and the price histogram.
func GenerateReport(listings []models.Listing, opts ReportOptions) Report {
	owners, agencies := PartitionByOwner(listings)

	report := Report{
		Site:         opts.Site,
		Reported:     opts.Reported,
		Relevant:     len(listings),
		Rejected:     opts.Rejected,
		RecordErrors: opts.RecordErrors,
		Elapsed:      opts.Elapsed,
		All:          section("All apartments", listings, opts.Percentile),
		Owners:       section("Owners", owners, opts.Percentile),
		Agencies:     section("Agencies", agencies, opts.Percentile),
	}
	if ignored := opts.Reported - len(listings); ignored > 0 {
		report.Ignored = ignored
	}

	report.Histogram, report.HistogramErr = BuildHistogram(Prices(listings), opts.BucketWidth)
	return report
}

func section(name string, listings []models.Listing, p float64) Section {
	s, err := Summarize(Prices(listings), p)
	if err != nil {
		err = fmt.Errorf("%s: %w", strings.ToLower(name), err)
	}
	return Section{Name: name, Summary: s, Err: err}
}

func PrintReport(w io.Writer, report Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌──────────────────────────────────────────────────────────────┐")
	fmt.Fprintf(w, "│ %-60s │\n", "Rental Market Insights — "+report.Site)
	fmt.Fprintln(w, "├───────────────────────────────┬──────────────────────────────┤")
	fmt.Fprintf(w, "│ %-29s │ %-28d │\n", "Total listings reported", report.Reported)
	fmt.Fprintf(w, "│ %-29s │ %-28d │\n", "Relevant listings processed", report.Relevant)
	fmt.Fprintf(w, "│ %-29s │ %-28d │\n", "Ignored listings", report.Ignored)
	for _, reason := range sortedKeys(report.Rejected) {
		fmt.Fprintf(w, "│ %-29s │ %-28d │\n", "  rejected: "+reason, report.Rejected[reason])
	}
	fmt.Fprintf(w, "│ %-29s │ %-28d │\n", "Malformed listings", report.RecordErrors)
	fmt.Fprintf(w, "│ %-29s │ %-28s │\n", "Elapsed", report.Elapsed.Round(time.Millisecond).String())
	fmt.Fprintln(w, "└───────────────────────────────┴──────────────────────────────┘")

	for _, s := range []Section{report.All, report.Owners, report.Agencies} {
		printSection(w, s)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌──────────────────────────────────────────────┬───────────────┐")
	fmt.Fprintln(w, "│ Price range                                  │ Listings      │")
	fmt.Fprintln(w, "├──────────────────────────────────────────────┼───────────────┤")
	if report.HistogramErr != nil {
		fmt.Fprintf(w, "│ %-44s │ %-13s │\n", report.HistogramErr.Error(), "-")
	}
	for _, b := range report.Histogram.Buckets {
		fmt.Fprintf(w, "│ %-44s │ %-13d │\n", b.Label(), b.Count)
	}
	fmt.Fprintln(w, "└──────────────────────────────────────────────┴───────────────┘")
}

func printSection(w io.Writer, s Section) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌───────────────────────────────┬──────────────────────────────┐")
	fmt.Fprintf(w, "│ %-29s │ %-28s │\n", s.Name, "")
	fmt.Fprintln(w, "├───────────────────────────────┼──────────────────────────────┤")
	if s.Err != nil {
		fmt.Fprintf(w, "│ %-29s │ %-28s │\n", "Total", "0 (no listings)")
		fmt.Fprintln(w, "└───────────────────────────────┴──────────────────────────────┘")
		return
	}
	fmt.Fprintf(w, "│ %-29s │ %-28d │\n", "Total", s.Summary.Count)
	fmt.Fprintf(w, "│ %-29s │ %-28.2f │\n", "Max price", s.Summary.Max)
	fmt.Fprintf(w, "│ %-29s │ %-28.2f │\n", "Min price", s.Summary.Min)
	fmt.Fprintf(w, "│ %-29s │ %-28.2f │\n", "AVG price", s.Summary.Mean)
	fmt.Fprintf(w, "│ %-29s │ %-28.2f │\n", "MEDIAN price", s.Summary.Median)
	fmt.Fprintf(w, "│ %-29s │ %-28.2f │\n", fmt.Sprintf("P%g price", s.Summary.PercentileRank), s.Summary.Percentile)
	fmt.Fprintln(w, "└───────────────────────────────┴──────────────────────────────┘")
}

// CleanListings trims fields and drops listings without a url or seen twice in this run.
func CleanListings(listings []models.Listing) []models.Listing {
	seen := make(map[string]bool)
	cleaned := make([]models.Listing, 0, len(listings))

	for _, l := range listings {
		l.URL = strings.TrimSpace(l.URL)
		l.ID = strings.TrimSpace(l.ID)

		if l.URL == "" {
			continue
		}

		if seen[l.URL] {
			continue
		}

		seen[l.URL] = true
		cleaned = append(cleaned, l)
	}

	return cleaned
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
