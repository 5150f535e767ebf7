// Package pagination fetches the remaining pages of a paginated listing in
// parallel once the initiating request has returned a token and a total.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(davClient, pagination.DefaultConfig())
//	pages, err := fetcher.FetchFrom(ctx, pagination.Listing{
//		Path:     "/files/",
//		Token:    token,
//		Total:    total,
//		PageSize: 100,
//	}, 100)
//
// The batch fetcher:
//   - Splits [start, total) into page offsets
//   - Spawns a worker pool (default 4 workers)
//   - Stops handing out pages after the first failure
//   - Returns partial results together with the error
//
// Pages are keyed by offset; Assemble restores listing order.
package pagination
