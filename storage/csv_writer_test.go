package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rent-scraper/models"
	"rent-scraper/services"
)

func TestCSVWriter_WriteAndAppendHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "listings.csv")
	w := NewCSVWriter(path)

	listings := []models.Listing{
		{ID: "101", Price: 12000, IsOwner: true, URL: "https://x/101"},
		{ID: "102", Price: 15000.5, URL: "https://x/102?a=1,b=2"},
	}
	if err := w.Write(listings); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := services.BuildHistogram([]float64{12000, 15000.5}, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AppendHistogram(h); err != nil {
		t.Fatalf("append histogram: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	sections := strings.SplitN(string(data), "\n\n", 2)
	if len(sections) != 2 {
		t.Fatalf("expected listings and histogram sections, got:\n%s", data)
	}

	rows, err := csv.NewReader(strings.NewReader(sections[0])).ReadAll()
	if err != nil {
		t.Fatalf("listings section is not valid csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "id,price,published_by_owner,url" {
		t.Errorf("header: got %v", rows[0])
	}
	if rows[1][1] != "12000" || rows[1][2] != "true" {
		t.Errorf("row 1: got %v", rows[1])
	}
	if rows[2][3] != "https://x/102?a=1,b=2" {
		t.Errorf("url with comma not round-tripped: %q", rows[2][3])
	}

	hist, err := csv.NewReader(strings.NewReader(sections[1])).ReadAll()
	if err != nil {
		t.Fatalf("histogram section is not valid csv: %v", err)
	}
	if strings.Join(hist[0], ",") != "range,listings" {
		t.Errorf("histogram header: got %v", hist[0])
	}
	if len(hist)-1 != len(h.Buckets) {
		t.Errorf("expected %d bucket rows, got %d", len(h.Buckets), len(hist)-1)
	}
	if hist[1][0] != "12000 - 13000" || hist[1][1] != "1" {
		t.Errorf("first bucket row: got %v", hist[1])
	}
}

func TestCSVWriter_EmptyRunWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	if err := NewCSVWriter(path).Write(nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "id,price,published_by_owner,url" {
		t.Errorf("got %q", data)
	}
}
