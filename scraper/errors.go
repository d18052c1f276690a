package scraper

import "fmt"

// DiscoveryError means the pagination probe of a partition did not carry the
// expected summary fields. The partition is dropped.
type DiscoveryError struct {
	Partition string
	URL       string
	Err       error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s (%s): %v", e.Partition, e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// TransportError is a failed page fetch. It aborts the run.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RecordError is a single listing whose price could not be parsed.
type RecordError struct {
	URL      string
	RawPrice string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("listing %s: price %q: %v", e.URL, e.RawPrice, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
