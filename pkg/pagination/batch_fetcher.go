package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/logging"
	"github.com/rs/zerolog/log"
)

// ErrMissingPages indicates that not every page could be fetched.
var ErrMissingPages = errors.New("missing pages")

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int

	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default batch fetcher configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches one page of a stored result set.
type PageFetcher interface {
	FetchPage(ctx context.Context, path, token string, offset, count int) ([]dav.Response, error)
}

// Listing identifies the stored result set to fetch from.
type Listing struct {
	// Path is the collection that was listed
	Path string

	// Token is the result set token returned by the initiating request
	Token string

	// Total is the number of records in the result set
	Total int

	// PageSize is the number of records per page
	PageSize int
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	Offset    int
	Responses []dav.Response
	Error     error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// Offsets returns the page offsets from start up to total.
func Offsets(start, total, pageSize int) []int {
	if pageSize <= 0 {
		return nil
	}
	var out []int
	for off := start; off < total; off += pageSize {
		out = append(out, off)
	}
	return out
}

// FetchFrom fetches every page of l starting at offset start using a worker
// pool. It returns the pages fetched so far keyed by offset; on the first
// failure the remaining work is cancelled and the error is returned together
// with the partial results.
func (bf *BatchFetcher) FetchFrom(ctx context.Context, l Listing, start int) (map[int][]dav.Response, error) {
	begin := time.Now()
	offsets := Offsets(start, l.Total, l.PageSize)
	results := make(map[int][]dav.Response, len(offsets))
	if len(offsets) == 0 {
		return results, nil
	}

	log.Info().
		Str("path", l.Path).
		Int(logging.FieldTotal, l.Total).
		Int("pages", len(offsets)).
		Msg("Starting parallel page fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int)
	pageResults := make(chan PageResult)

	go func() {
		defer close(pageQueue)
		for _, off := range offsets {
			select {
			case pageQueue <- off:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	workers := min(bf.config.MaxConcurrency, len(offsets))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, l, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page at offset %d: %w", result.Offset, result.Error)
				cancel()
			}
			continue
		}
		results[result.Offset] = result.Responses
	}

	if firstErr == nil && len(results) != len(offsets) {
		firstErr = fmt.Errorf("%w: got %d of %d pages", ErrMissingPages, len(results), len(offsets))
	}
	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", len(offsets)).
			Msg("Page fetch failed - returning partial results")
		return results, firstErr
	}

	log.Info().
		Str("path", l.Path).
		Int("pages", len(results)).
		Dur(logging.FieldDuration, time.Since(begin)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, l Listing, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for offset := range pageQueue {
		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		responses, err := bf.fetcher.FetchPage(pageCtx, l.Path, l.Token, offset, l.PageSize)
		cancel()

		select {
		case results <- PageResult{Offset: offset, Responses: responses, Error: err}:
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}
		if err != nil {
			return
		}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

// Assemble concatenates pages in offset order.
func Assemble(pages map[int][]dav.Response, total, pageSize int) []dav.Response {
	out := make([]dav.Response, 0, total)
	for _, off := range Offsets(0, total, pageSize) {
		out = append(out, pages[off]...)
	}
	return out
}
