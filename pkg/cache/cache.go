// Package cache stores computed layouts keyed by the content they were
// computed from.
//
// Three backends satisfy [Cache]:
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: stores nothing, for --no-cache runs and tests
//
// Keys are produced by a [Keyer] so the same measurement set and packing
// configuration always maps to the same entry regardless of backend.
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	// LayoutTTL bounds how long a packed layout is reused. Layouts are a pure
	// function of their key, so the TTL only limits disk and memory growth.
	LayoutTTL = 7 * 24 * time.Hour

	// ChartTTL bounds how long a rendered chart is reused.
	ChartTTL = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss with ok == false and a nil error. Implementations must
// be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
