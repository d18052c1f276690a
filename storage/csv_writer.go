package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"rent-scraper/models"
	"rent-scraper/services"
	"rent-scraper/utils"
)

// CSVWriter saves the accepted listings of a run, followed by its price histogram.
type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (w *CSVWriter) Path() string { return w.path }

// Write replaces the file with one row per listing.
//
// CSV columns: id, price, published_by_owner, url
func (w *CSVWriter) Write(listings []models.Listing) error {
	if len(listings) == 0 {
		utils.Warn("No listings to write")
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Write([]string{"id", "price", "published_by_owner", "url"})

	for _, l := range listings {
		writer.Write([]string{
			l.ID,
			strconv.FormatFloat(l.Price, 'f', -1, 64),
			strconv.FormatBool(l.IsOwner),
			l.URL,
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	utils.Success("Saved %d listings → %s", len(listings), w.path)
	return nil
}

// AppendHistogram adds a blank line and a "range, listings" table after the listings.
func (w *CSVWriter) AppendHistogram(h services.Histogram) error {
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString("\n"); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	writer := csv.NewWriter(file)
	writer.Write([]string{"range", "listings"})
	for _, b := range h.Buckets {
		writer.Write([]string{b.Label(), strconv.Itoa(b.Count)})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}
