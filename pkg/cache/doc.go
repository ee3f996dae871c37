// Package cache stores fetched table pages in Redis.
//
// A page is identified by its endpoint, limit and paging state. Paging states
// are issued by the server and a given state always resumes at the same
// position, so a continuation page can be answered from cache while its entry
// is fresh. The server's Expires header bounds an entry's lifetime; without one
// the manager's default TTL applies.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.PageKey{
//		Endpoint:    "/view/shop/orders",
//		Limit:       50,
//		PagingState: "AAEAAAAI",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the server, then
//		entry, _ = manager.ResponseToEntry(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - table_scroll_cache_hits_total - Cache hits
//   - table_scroll_cache_misses_total - Cache misses
//   - table_scroll_cache_stored_bytes_total - Bytes written to cache
//   - table_scroll_cache_errors_total{operation} - Cache operation errors
package cache
