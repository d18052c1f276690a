package scraper

import (
	"context"
	"errors"
	"fmt"

	"rent-scraper/models"
	"rent-scraper/utils"
)

// Discovery is the outcome of probing every seed.
type Discovery struct {
	Tasks []models.PageTask
	// Total is the listing count reported by the site across partitions that succeeded.
	Total  int
	Failed []error
}

// Enumerator turns seeds into the ordered list of page tasks.
type Enumerator struct {
	site    Site
	fetcher Fetcher
}

func NewEnumerator(site Site, fetcher Fetcher) *Enumerator {
	return &Enumerator{site: site, fetcher: fetcher}
}

// Enumerate probes each seed once. A partition whose probe fails is skipped;
// the call only fails when no partition could be enumerated.
func (e *Enumerator) Enumerate(ctx context.Context, seeds []models.Seed) (Discovery, error) {
	var out Discovery

	for _, seed := range seeds {
		tasks, total, err := e.enumerateSeed(ctx, seed)
		if err != nil {
			if ctx.Err() != nil {
				return Discovery{}, ctx.Err()
			}
			utils.Warn("Skipping partition %q: %v", seed.Partition, err)
			out.Failed = append(out.Failed, err)
			continue
		}
		utils.Info("Partition %q: %d listings over %d pages", seed.Partition, total, len(tasks))
		out.Tasks = append(out.Tasks, tasks...)
		out.Total += total
	}

	if len(out.Failed) == len(seeds) {
		if len(seeds) == 0 {
			return out, errors.New("no seeds to enumerate")
		}
		return out, fmt.Errorf("every partition failed discovery: %w", errors.Join(out.Failed...))
	}
	return out, nil
}

func (e *Enumerator) enumerateSeed(ctx context.Context, seed models.Seed) ([]models.PageTask, int, error) {
	probeURL := e.site.PageURL(seed, 0, 0)
	body, err := e.fetcher.Fetch(ctx, probeURL)
	if err != nil {
		return nil, 0, &DiscoveryError{Partition: seed.Partition, URL: probeURL, Err: err}
	}

	p, err := e.site.Discover(seed, body)
	if err != nil {
		return nil, 0, &DiscoveryError{Partition: seed.Partition, URL: probeURL, Err: err}
	}

	pages := PageCount(p)
	tasks := make([]models.PageTask, 0, pages)
	for i := 0; i < pages; i++ {
		tasks = append(tasks, models.PageTask{
			URL:       e.site.PageURL(seed, i, p.PageSize),
			Page:      i + 1,
			Partition: seed.Partition,
			Owner:     seed.Owner,
		})
	}
	return tasks, p.Total, nil
}

// PageCount resolves how many pages cover a partition. A page size or last page
// that cannot describe the reported total falls back to a single page.
func PageCount(p Pagination) int {
	if p.Total <= 0 && p.LastPage <= 0 {
		return 0
	}

	if p.LastPage > 0 {
		if p.PageSize > 0 && p.Total > 0 && (p.LastPage-1)*p.PageSize >= p.Total {
			return 1
		}
		return p.LastPage
	}

	if p.PageSize <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
