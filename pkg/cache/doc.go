// Package cache persists the people crawl between runs so that a repeat run can
// skip the page fan-out when the upstream catalogue has not grown.
//
// A PageCache records how many people pages were fetched and the raw records
// they held. It is stored as one JSON blob, either in a file (the default) or
// under a single Redis key:
//
//	store := cache.NewFileStore("./files/cache/cache.json")
//	// or
//	store := cache.NewRedisStore(redisClient, cache.CacheKey{BaseURL: "https://swapi.dev/api/"})
//
// The Planner decides which page range a run has to fetch:
//
//   - no entry: pages [0, DefaultPageCount)
//   - entry whose LastPageNumber matches ceil(distinct film characters / PageSize):
//     reuse the cached records and fetch nothing
//   - otherwise: refetch pages [0, computed count) and drop the cached records
//
// After the fan-out, Commit overwrites the entry wholesale, and only when the
// new end page is larger than the cached one, so LastPageNumber never shrinks.
//
// Any read or decode failure other than a missing entry is fatal.
//
// # Metrics
//
//   - swapi_page_cache_hits_total{backend}
//   - swapi_page_cache_misses_total{backend}
//   - swapi_page_cache_errors_total{backend, operation}
//   - swapi_page_cache_size_bytes{backend}
package cache
