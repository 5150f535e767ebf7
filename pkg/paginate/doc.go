// Package paginate splits large listing responses into pages.
//
// The plugin drives three states from request headers:
//
//   - no X-Paginate header: the listing passes through unchanged
//   - X-Paginate: true: the complete listing is converted to records and
//     stored in a cache.Cache, the first page is returned with
//     X-Paginate-Token and X-Paginate-Total
//   - X-Paginate-Token and X-Paginate-Offset: the page is read from the cache
//     and the listing is not enumerated
//
// X-Paginate-Count overrides the configured page size. An unknown or expired
// token falls through to normal processing.
//
//	plugin, err := paginate.New(pages, paginate.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	handler := dav.NewServer(lister, logger, plugin)
package paginate
