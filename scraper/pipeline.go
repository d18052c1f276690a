package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rent-scraper/metrics"
	"rent-scraper/models"
	"rent-scraper/utils"
)

type Options struct {
	FetchWorkers     int
	ParseWorkers     int
	QueueSize        int
	ContentQueueSize int

	MaxRetries   int
	RetryBackoff time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration

	// AbortOnRecordError turns a single unparseable price into a fatal run error.
	AbortOnRecordError bool

	Progress ProgressReporter
	Metrics  *metrics.Metrics
}

// Result is the drained output of one run.
type Result struct {
	Listings     []models.Listing
	Pages        int
	Candidates   int
	Rejected     map[Rejection]int
	RecordErrors int
	PageErrors   int
}

func (r Result) RejectedTotal() int {
	n := 0
	for _, c := range r.Rejected {
		n += c
	}
	return n
}

// Pipeline fetches page tasks with a pool of fetch workers and hands the bodies
// to a smaller pool of parse workers through a bounded content queue.
type Pipeline struct {
	site      Site
	fetcher   Fetcher
	validator *Validator
	opts      Options
}

func NewPipeline(site Site, fetcher Fetcher, validator *Validator, opts Options) *Pipeline {
	if opts.FetchWorkers < 1 {
		opts.FetchWorkers = 1
	}
	if opts.ParseWorkers < 1 {
		opts.ParseWorkers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.ContentQueueSize < 1 {
		opts.ContentQueueSize = 1
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Progress.Metrics == nil {
		opts.Progress.Metrics = opts.Metrics
	}
	return &Pipeline{site: site, fetcher: fetcher, validator: validator, opts: opts}
}

// parseBuffer is owned by exactly one parse worker until the run has drained.
type parseBuffer struct {
	listings     []models.Listing
	pages        int
	candidates   int
	rejected     map[Rejection]int
	recordErrors int
	pageErrors   int
}

// run is the state of one Run call.
//
// fetchPending counts every task from the moment it is handed to Run until its
// content has been queued (or it failed), so queued and in-flight fetches are
// one number and a dequeued task is never invisible. parsePending is raised
// before a body is queued and lowered after it is parsed. Because the raise
// happens while the task still holds fetchPending, fetchPending reaching zero
// means no further parse work can appear.
type run struct {
	p        *Pipeline
	tasks    chan models.PageTask
	contents chan models.RawContent

	fetchPending sync.WaitGroup
	parsePending sync.WaitGroup
	inFlight     atomic.Int64

	buffers []parseBuffer
}

// Run processes every task and returns once both stages have drained.
// A TransportError (or a RecordError under AbortOnRecordError) cancels the run.
func (p *Pipeline) Run(ctx context.Context, tasks []models.PageTask) (Result, error) {
	if len(tasks) == 0 {
		return Result{Rejected: make(map[Rejection]int)}, nil
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	r := &run{
		p:        p,
		tasks:    make(chan models.PageTask, p.opts.QueueSize),
		contents: make(chan models.RawContent, p.opts.ContentQueueSize),
		buffers:  make([]parseBuffer, p.opts.ParseWorkers),
	}
	r.fetchPending.Add(len(tasks))

	utils.Info("Pipeline starting | pages=%d fetchers=%d parsers=%d", len(tasks), p.opts.FetchWorkers, p.opts.ParseWorkers)

	g, gctx := errgroup.WithContext(runCtx)
	for i := 1; i <= p.opts.FetchWorkers; i++ {
		g.Go(func() error { return r.fetchWorker(gctx) })
	}
	for i := range r.buffers {
		buf := &r.buffers[i]
		buf.rejected = make(map[Rejection]int)
		g.Go(func() error { return r.parseWorker(gctx, buf) })
	}
	g.Go(func() error {
		r.enqueue(gctx, tasks)
		return nil
	})

	drained := make(chan struct{})
	go func() {
		r.fetchPending.Wait()
		r.parsePending.Wait()
		close(drained)
	}()

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		p.opts.Progress.run(gctx, r.snapshot)
	}()

	completed := false
	select {
	case <-drained:
		completed = true
		stop()
	case <-gctx.Done():
	}

	err := g.Wait()
	<-progressDone

	if !completed {
		r.discard()
		if err == nil {
			err = ctx.Err()
		}
	}
	if err != nil {
		return Result{}, err
	}
	return r.collect(), nil
}

func (r *run) enqueue(ctx context.Context, tasks []models.PageTask) {
	for i, task := range tasks {
		select {
		case r.tasks <- task:
		case <-ctx.Done():
			r.fetchPending.Add(-(len(tasks) - i))
			return
		}
	}
}

func (r *run) fetchWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-r.tasks:
			if err := r.fetch(ctx, task); err != nil {
				return err
			}
		}
	}
}

func (r *run) fetch(ctx context.Context, task models.PageTask) error {
	defer r.fetchPending.Done()
	opts := r.p.opts

	utils.RandomDelay(ctx, opts.MinDelay, opts.MaxDelay)

	r.inFlight.Add(1)
	start := time.Now()
	attempts := 0
	var body string
	err := utils.Retry(ctx, opts.MaxRetries, opts.RetryBackoff, func() error {
		attempts++
		var fetchErr error
		body, fetchErr = r.p.fetcher.Fetch(ctx, task.URL)
		return fetchErr
	})
	r.inFlight.Add(-1)

	if err != nil && ctx.Err() != nil {
		// shutting down, not a transport failure of this page
		return nil
	}
	opts.Metrics.ObserveFetch(time.Since(start), err)
	if err != nil {
		utils.Error("Page %d (%s) failed: %v", task.Page, task.URL, err)
		return &TransportError{URL: task.URL, Attempts: attempts, Err: err}
	}

	r.parsePending.Add(1)
	select {
	case r.contents <- models.RawContent{Task: task, Body: body}:
		return nil
	case <-ctx.Done():
		r.parsePending.Done()
		return nil
	}
}

func (r *run) parseWorker(ctx context.Context, buf *parseBuffer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-r.contents:
			err := r.parse(raw, buf)
			r.parsePending.Done()
			if err != nil {
				return err
			}
		}
	}
}

func (r *run) parse(raw models.RawContent, buf *parseBuffer) error {
	m := r.p.opts.Metrics
	buf.pages++

	candidates, err := r.p.site.Extract(raw)
	if err != nil {
		buf.pageErrors++
		m.PageErrors.Inc()
		utils.Warn("Page %d (%s) could not be extracted: %v", raw.Task.Page, raw.Task.URL, err)
		if r.p.opts.AbortOnRecordError {
			return err
		}
		return nil
	}

	for _, c := range candidates {
		buf.candidates++
		listing, rejection, err := r.p.validator.Check(c)
		if err != nil {
			buf.recordErrors++
			m.RecordErrors.Inc()
			utils.Warn("Skipping listing: %v", err)
			if r.p.opts.AbortOnRecordError {
				return err
			}
			continue
		}
		m.Listings.WithLabelValues(rejection.String()).Inc()
		if rejection != Accepted {
			buf.rejected[rejection]++
			continue
		}
		listing.Partition = raw.Task.Partition
		buf.listings = append(buf.listings, listing)
	}
	return nil
}

func (r *run) snapshot() Snapshot {
	return Snapshot{
		Queued:         len(r.tasks),
		InFlight:       int(r.inFlight.Load()),
		PendingContent: len(r.contents),
	}
}

// discard releases work left in the queues after an aborted run so the drain
// watcher can finish.
func (r *run) discard() {
	for {
		select {
		case <-r.tasks:
			r.fetchPending.Done()
		case <-r.contents:
			r.parsePending.Done()
		default:
			return
		}
	}
}

// collect merges the per-worker buffers. Only called after every worker has returned.
func (r *run) collect() Result {
	res := Result{Rejected: make(map[Rejection]int)}

	total := 0
	for _, b := range r.buffers {
		total += len(b.listings)
	}
	res.Listings = make([]models.Listing, 0, total)

	for _, b := range r.buffers {
		res.Listings = append(res.Listings, b.listings...)
		res.Pages += b.pages
		res.Candidates += b.candidates
		res.RecordErrors += b.recordErrors
		res.PageErrors += b.pageErrors
		for k, v := range b.rejected {
			res.Rejected[k] += v
		}
	}

	utils.Success("Pages parsed: %d | Listings accepted: %d | Rejected: %d | Record errors: %d",
		res.Pages, len(res.Listings), res.RejectedTotal(), res.RecordErrors)
	return res
}
