package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"rent-scraper/models"
)

// fakeSite serves candidates by page url and pagination by partition.
type fakeSite struct {
	pages      map[string][]models.Candidate
	badPages   map[string]bool
	pagination map[string]Pagination
	discoverFn func(seed models.Seed) error
}

func (s *fakeSite) Name() string { return "fake" }

func (s *fakeSite) Seeds() []models.Seed { return nil }

func (s *fakeSite) PageURL(seed models.Seed, i int, pageSize int) string {
	return seed.URL + "?page=" + strconv.Itoa(i)
}

func (s *fakeSite) Discover(seed models.Seed, _ string) (Pagination, error) {
	if s.discoverFn != nil {
		if err := s.discoverFn(seed); err != nil {
			return Pagination{}, err
		}
	}
	p, ok := s.pagination[seed.Partition]
	if !ok {
		return Pagination{}, errors.New("results summary not found")
	}
	return p, nil
}

func (s *fakeSite) Extract(raw models.RawContent) ([]models.Candidate, error) {
	if s.badPages[raw.Task.URL] {
		return nil, errors.New("markup changed")
	}
	return s.pages[raw.Task.URL], nil
}

// fakeFetcher echoes the url as the body.
type fakeFetcher struct {
	delay  time.Duration
	fail   map[string]error
	block  bool
	mu     sync.Mutex
	calls  map[string]int
	closed bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.fail[url]; err != nil {
		return "", err
	}
	return url, nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func (f *fakeFetcher) callsFor(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func candidate(page, n int, price string) models.Candidate {
	return models.Candidate{
		ID:       fmt.Sprintf("%d-%d", page, n),
		Title:    "Departamento 1 dormitorio",
		RawPrice: price,
		URL:      fmt.Sprintf("https://example.com/departamentos/%d%02d/", page, n),
	}
}

func tasksFor(urls ...string) []models.PageTask {
	tasks := make([]models.PageTask, len(urls))
	for i, u := range urls {
		tasks[i] = models.PageTask{URL: u, Page: i + 1, Partition: "all"}
	}
	return tasks
}

func testValidator(min, max float64) *Validator {
	v, err := NewValidator(Rules{
		MinPrice:       min,
		MaxPrice:       max,
		PriceSentinels: []string{"consultar", "U$S"},
		RejectKeywords: []string{"temporario", "venta"},
	})
	if err != nil {
		panic(err)
	}
	return v
}
