// Package cache stores layout results between runs.
//
// A layout is expensive to converge, so after a run the node positions are
// written to a [Cache] under a key derived from the graph's content. The next
// run over the same graph seeds its positions from the cached snapshot and
// usually converges in a fraction of the iterations.
//
// Three backends are provided:
//
//   - [FileCache] stores one JSON file per key under a directory (CLI default)
//   - [RedisCache] stores entries in Redis with a key prefix (shared servers)
//   - [NullCache] never stores anything (caching disabled)
//
// Keys are produced by a [Keyer]. [ScopedKeyer] namespaces the keys of one
// deployment, and [Instrument] reports hits and misses to the observability
// hooks.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry owned by the cache.
	Clear(ctx context.Context) error
	Close() error
}
