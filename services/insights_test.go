package services

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"rent-scraper/models"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd count", []float64{30000, 10000, 20000}, 20000},
		{"even count averages middle pair", []float64{20000, 10000}, 15000},
		{"single value", []float64{12000}, 12000},
		{"four values", []float64{8000, 12000, 16000, 30000}, 14000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Median(tt.values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	values := []float64{30000, 10000, 20000}
	if _, err := Median(values); err != nil {
		t.Fatal(err)
	}
	if values[0] != 30000 || values[1] != 10000 || values[2] != 20000 {
		t.Errorf("input was reordered: %v", values)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10000, 20000, 30000, 40000, 50000, 60000, 70000, 80000, 90000, 100000}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10000},
		{10, 20000},
		{50, 60000},
		{90, 100000},
		{100, 100000},
	}

	for _, tt := range tests {
		got, err := Percentile(values, tt.p)
		if err != nil {
			t.Fatalf("P%v: unexpected error: %v", tt.p, err)
		}
		if got != tt.want {
			t.Errorf("P%v: expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestPercentile_Extremes(t *testing.T) {
	values := []float64{18000, 7000, 25000, 12000}

	lo, _ := Percentile(values, 0)
	hi, _ := Percentile(values, 100)
	if lo != 7000 {
		t.Errorf("P0 should be the minimum, got %v", lo)
	}
	if hi != 25000 {
		t.Errorf("P100 should be the maximum, got %v", hi)
	}

	if _, err := Percentile(values, 101); err == nil {
		t.Error("expected error for p above 100")
	}
	if _, err := Percentile(values, -1); err == nil {
		t.Error("expected error for negative p")
	}
}

func TestEmptyPartition(t *testing.T) {
	if _, err := Median(nil); !errors.Is(err, ErrEmptyPartition) {
		t.Errorf("Median: expected ErrEmptyPartition, got %v", err)
	}
	if _, err := Percentile(nil, 90); !errors.Is(err, ErrEmptyPartition) {
		t.Errorf("Percentile: expected ErrEmptyPartition, got %v", err)
	}
	if _, err := Summarize([]float64{}, 90); !errors.Is(err, ErrEmptyPartition) {
		t.Errorf("Summarize: expected ErrEmptyPartition, got %v", err)
	}
	if _, err := BuildHistogram(nil, 1000); !errors.Is(err, ErrEmptyPartition) {
		t.Errorf("BuildHistogram: expected ErrEmptyPartition, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{12000, 15000, 20000, 25000}, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Count != 4 {
		t.Errorf("count: got %d", s.Count)
	}
	if s.Min != 12000 || s.Max != 25000 {
		t.Errorf("min/max: got %v/%v", s.Min, s.Max)
	}
	if s.Mean != 18000 {
		t.Errorf("mean: got %v", s.Mean)
	}
	if s.Median != 17500 {
		t.Errorf("median: got %v", s.Median)
	}
	if s.PercentileRank != 90 || s.Percentile != 25000 {
		t.Errorf("P90: got P%v=%v", s.PercentileRank, s.Percentile)
	}
	if s.Min > s.Median || s.Median > s.Max {
		t.Errorf("expected min <= median <= max, got %v %v %v", s.Min, s.Median, s.Max)
	}
}

func TestBuildHistogram(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		width   float64
		buckets int
		first   float64
	}{
		{"spread", []float64{12500, 15000, 19500}, 1000, 8, 12000},
		{"max on a bucket edge gets its own bucket", []float64{12000, 15000, 20000}, 1000, 9, 12000},
		{"single value", []float64{15000}, 1000, 1, 15000},
		{"wide buckets", []float64{5000, 29999}, 10000, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := BuildHistogram(tt.values, tt.width)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(h.Buckets) != tt.buckets {
				t.Fatalf("expected %d buckets, got %d", tt.buckets, len(h.Buckets))
			}
			if h.Buckets[0].Lo != tt.first {
				t.Errorf("first bucket starts at %v, expected %v", h.Buckets[0].Lo, tt.first)
			}
			if h.Total() != len(tt.values) {
				t.Errorf("bucket counts sum to %d, expected %d", h.Total(), len(tt.values))
			}

			for i, b := range h.Buckets {
				if b.Hi-b.Lo != tt.width {
					t.Errorf("bucket %d has width %v", i, b.Hi-b.Lo)
				}
				if i > 0 && h.Buckets[i-1].Hi != b.Lo {
					t.Errorf("bucket %d is not contiguous with bucket %d", i, i-1)
				}
			}

			for _, v := range tt.values {
				idx := int(math.Floor((v - h.Buckets[0].Lo) / tt.width))
				b := h.Buckets[idx]
				if v < b.Lo || v >= b.Hi {
					t.Errorf("value %v outside its bucket [%v, %v)", v, b.Lo, b.Hi)
				}
			}
		})
	}
}

func TestBuildHistogram_BadWidth(t *testing.T) {
	if _, err := BuildHistogram([]float64{1}, 0); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := BuildHistogram([]float64{1}, -500); err == nil {
		t.Error("expected error for negative width")
	}
}

func TestBucketLabel(t *testing.T) {
	b := Bucket{Lo: 12000, Hi: 13000}
	if got := b.Label(); got != "12000 - 13000" {
		t.Errorf("got %q", got)
	}
}

func TestPartitionByOwner(t *testing.T) {
	listings := []models.Listing{
		{URL: "a", Price: 10000, IsOwner: true},
		{URL: "b", Price: 20000},
		{URL: "c", Price: 15000, IsOwner: true},
	}

	owners, agencies := PartitionByOwner(listings)
	if len(owners)+len(agencies) != len(listings) {
		t.Fatalf("partitions lose listings: %d + %d != %d", len(owners), len(agencies), len(listings))
	}
	if len(owners) != 2 || len(agencies) != 1 {
		t.Errorf("expected 2 owners / 1 agency, got %d/%d", len(owners), len(agencies))
	}
}

func TestCleanListings(t *testing.T) {
	listings := []models.Listing{
		{ID: " 1 ", URL: "https://x/1", Price: 12000},
		{ID: "1", URL: "https://x/1 ", Price: 12000},
		{ID: "2", URL: "", Price: 15000},
		{ID: "3", URL: "https://x/3", Price: 20000},
	}

	cleaned := CleanListings(listings)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(cleaned))
	}
	if cleaned[0].ID != "1" {
		t.Errorf("id not trimmed: %q", cleaned[0].ID)
	}
}

func TestGenerateReport(t *testing.T) {
	listings := []models.Listing{
		{URL: "https://x/1", Price: 12000, IsOwner: true},
		{URL: "https://x/2", Price: 15000},
		{URL: "https://x/3", Price: 20000},
	}

	report := GenerateReport(listings, ReportOptions{
		Site:         "lavoz",
		Reported:     5,
		Rejected:     map[string]int{"above_max_price": 1, "below_min_price": 1},
		RecordErrors: 0,
		Elapsed:      1500 * time.Millisecond,
		BucketWidth:  1000,
		Percentile:   90,
	})

	if report.Relevant != 3 || report.Ignored != 2 {
		t.Errorf("relevant/ignored: got %d/%d", report.Relevant, report.Ignored)
	}
	if report.All.Err != nil {
		t.Fatalf("all: unexpected error: %v", report.All.Err)
	}
	if report.All.Summary.Median != 15000 {
		t.Errorf("median: expected 15000, got %v", report.All.Summary.Median)
	}
	if report.Owners.Summary.Count+report.Agencies.Summary.Count != report.All.Summary.Count {
		t.Error("owner and agency counts do not add up to the total")
	}
	if report.HistogramErr != nil || report.Histogram.Total() != 3 {
		t.Errorf("histogram: err=%v total=%d", report.HistogramErr, report.Histogram.Total())
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()
	for _, want := range []string{"lavoz", "MEDIAN price", "15000.00", "rejected: above_max_price", "12000 - 13000"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}
}

func TestGenerateReport_EmptyPartition(t *testing.T) {
	listings := []models.Listing{{URL: "https://x/1", Price: 12000}}

	report := GenerateReport(listings, ReportOptions{BucketWidth: 1000, Percentile: 90})
	if !errors.Is(report.Owners.Err, ErrEmptyPartition) {
		t.Errorf("owners: expected ErrEmptyPartition, got %v", report.Owners.Err)
	}
	if report.Agencies.Err != nil {
		t.Errorf("agencies: unexpected error: %v", report.Agencies.Err)
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	if !strings.Contains(buf.String(), "0 (no listings)") {
		t.Error("empty partition not reported")
	}
}
