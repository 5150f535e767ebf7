// Package cache stores the complete result set of a paginated listing and
// serves slices of it by (request key, token, offset, count).
//
// A result set is written once by Store, which consumes a record sequence
// incrementally and returns a fresh token scoped to the request key. A
// failure carried by the sequence aborts the store and removes what was
// already written. Tokens
// from one key are never readable under another. Sets stay readable for TTL
// (one hour) after they were stored.
//
// Two backends implement Cache:
//
//   - SQLCache keeps one row per record in the dav_page_cache table
//     (database/sql, SQLite via modernc.org/sqlite). Expired rows are
//     invisible to Get and removed by Cleanup.
//   - RedisCache keeps a list per token plus a count key and lets Redis
//     expire them. Cleanup is a no-op.
//
// # Basic Usage
//
//	db, err := cache.OpenSQLite("dav-pages.db")
//	if err != nil {
//		return err
//	}
//	pages := cache.NewSQLCache(db, cache.DefaultConfig())
//	if err := pages.Migrate(ctx); err != nil {
//		return err
//	}
//
//	key := cache.KeyFromRequest(r).String()
//	conv := record.NewConverter(resources)
//	token, total, err := pages.Store(ctx, key, record.Checked(conv.All(), conv.Err))
//	...
//	page, err := pages.Get(ctx, key, token, 100, 100)
//
// # Expiry
//
//	go cache.RunCleanup(ctx, pages, 5*time.Minute, logger)
//
// # Metrics
//
//   - dav_pagecache_rows_stored_total{backend}
//   - dav_pagecache_rows_served_total{backend}
//   - dav_pagecache_misses_total{backend}
//   - dav_pagecache_errors_total{backend,operation}
//   - dav_pagecache_cleanup_deleted_total{backend}
package cache
