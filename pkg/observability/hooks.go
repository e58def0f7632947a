// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about packing runs, debounce scheduling, cache operations and
// HTTP requests served by the API.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPackHooks(&myPackHooks{})
//	    observability.SetControllerHooks(&myControllerHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pack().OnPackStart(ctx, items, columns)
//	// ... pack ...
//	observability.Pack().OnPackComplete(ctx, items, placed, extent, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pack Hooks
// =============================================================================

// PackHooks receives events from packing runs. Packing itself cannot
// fail, so every OnPackStart is followed by exactly one OnPackComplete.
type PackHooks interface {
	OnPackStart(ctx context.Context, items, columns int)
	OnPackComplete(ctx context.Context, items, placed int, extent float64, duration time.Duration)
}

// =============================================================================
// Controller Hooks
// =============================================================================

// ControllerHooks receives events from debounce controllers.
type ControllerHooks interface {
	// OnReport records an incoming measurement batch.
	OnReport(ctx context.Context, controller string, batch int, changed bool)

	// OnSchedule records a newly scheduled recomputation. superseded is true
	// when a pending recomputation was cancelled to make room for it.
	OnSchedule(ctx context.Context, controller string, generation uint64, superseded bool)

	// OnPublish records a layout becoming the current result.
	OnPublish(ctx context.Context, controller string, generation uint64, duration time.Duration)

	// OnDrop records a finished computation that was not published.
	OnDrop(ctx context.Context, controller string, generation uint64, reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records a completed HTTP response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPackHooks is a no-op implementation of PackHooks.
type NoopPackHooks struct{}

func (NoopPackHooks) OnPackStart(context.Context, int, int) {}
func (NoopPackHooks) OnPackComplete(context.Context, int, int, float64, time.Duration) {}

// NoopControllerHooks is a no-op implementation of ControllerHooks.
type NoopControllerHooks struct{}

func (NoopControllerHooks) OnReport(context.Context, string, int, bool)              {}
func (NoopControllerHooks) OnSchedule(context.Context, string, uint64, bool)         {}
func (NoopControllerHooks) OnPublish(context.Context, string, uint64, time.Duration) {}
func (NoopControllerHooks) OnDrop(context.Context, string, uint64, string)           {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	packHooks       PackHooks       = NoopPackHooks{}
	controllerHooks ControllerHooks = NoopControllerHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetPackHooks registers custom pack hooks.
// This should be called once at application startup.
func SetPackHooks(h PackHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		packHooks = h
	}
}

// SetControllerHooks registers custom controller hooks.
func SetControllerHooks(h ControllerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		controllerHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pack returns the registered pack hooks.
func Pack() PackHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return packHooks
}

// Controller returns the registered controller hooks.
func Controller() ControllerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return controllerHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	packHooks = NoopPackHooks{}
	controllerHooks = NoopControllerHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
