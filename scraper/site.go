package scraper

import "rent-scraper/models"

// Pagination is what a probe page says about its partition. Either PageSize or
// LastPage may be zero when the site does not expose it.
type Pagination struct {
	Total    int
	PageSize int
	LastPage int
}

// Site holds the site-specific rules: seeds, page addressing, discovery and extraction.
type Site interface {
	Name() string
	Seeds() []models.Seed
	// PageURL addresses page index i (zero-based) of a partition.
	PageURL(seed models.Seed, i int, pageSize int) string
	Discover(seed models.Seed, body string) (Pagination, error)
	Extract(raw models.RawContent) ([]models.Candidate, error)
}
