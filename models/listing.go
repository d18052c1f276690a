package models

// Owner tells who published the listings of a page, when the page itself decides it.
type Owner int

const (
	OwnerUnknown Owner = iota
	OwnerDirect
	OwnerAgency
)

// Listing is an accepted rental record.
type Listing struct {
	ID        string
	Price     float64
	IsOwner   bool
	URL       string
	Partition string
}

// Seed is the first page of one logical partition (e.g. "owners", "agencies").
type Seed struct {
	Partition string
	URL       string
	Owner     Owner
}

// PageTask is one listing page to fetch. Treat as immutable once enqueued.
type PageTask struct {
	URL       string
	Page      int
	Partition string
	Owner     Owner
}

// RawContent is the fetched body of a page together with the task it came from.
type RawContent struct {
	Task PageTask
	Body string
}

// Candidate is one listing element extracted from a page, not yet validated.
type Candidate struct {
	ID          string
	Title       string
	Description string
	RawPrice    string
	IsOwner     bool
	URL         string
}
