package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/waterfall/pkg/cache"
	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/observability"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// cacheKeyType labels layout entries in cache hook events.
const cacheKeyType = "layout"

// Runner encapsulates pack execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// Concurrent calls for the same measurement set and options are coalesced
// into a single pack. The shared pack is detached from any one caller's
// cancellation; each caller stops waiting when its own context ends.
// Multiple goroutines can safely share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Pack packs m with caching. The returned layout may be shared with other
// callers and must not be modified.
func (r *Runner) Pack(ctx context.Context, m waterfall.Measurements[string], opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	hash, err := cache.HashJSON(m)
	if err != nil {
		return nil, fmt.Errorf("hash measurements: %w", err)
	}
	key := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.pack(detached, key, m, opts)
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		r.Logger.Debug("pack abandoned by caller", "key", key, "error", ctx.Err())
		return nil, ctx.Err()
	case out = <-ch:
	}
	if out.Err != nil {
		return nil, out.Err
	}

	res := *out.Val.(*Result)
	res.MeasurementHash = hash
	if out.Shared {
		r.Logger.Debug("coalesced pack", "key", key)
	}
	return &res, nil
}

// Cached returns the layout previously packed for the measurement hash
// and options, without packing. The bool is false on a cache miss.
func (r *Runner) Cached(ctx context.Context, hash string, opts Options) (*Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, fmt.Errorf("invalid options: %w", err)
	}
	start := time.Now()
	key := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())
	l, ok := r.lookup(ctx, key)
	if !ok {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false, nil
	}
	res := r.result(l, l.Len(), time.Since(start), true)
	res.MeasurementHash = hash
	return res, true, nil
}

// PackFunc adapts the runner to a controller pack step so debounced
// recomputations share the cache with one-shot runs. The controller's
// config takes precedence over the packing fields of opts. Configs the
// runner would reject, such as zero columns, are packed directly without
// caching so the controller keeps its own edge-case semantics.
func (r *Runner) PackFunc(opts Options) waterfall.PackFunc[string] {
	return func(ctx context.Context, m waterfall.Measurements[string], cfg waterfall.Config) (waterfall.Layout[string], error) {
		o := opts.Fresh()
		o.Columns = cfg.Columns
		o.Spacing = cfg.Spacing
		o.Axis = cfg.Axis.String()
		o.CrossExtent = cfg.CrossExtent
		if cfg.Columns <= 0 || o.Validate() != nil {
			return waterfall.DefaultPackFunc(ctx, m, cfg)
		}

		res, err := r.Pack(ctx, m, o)
		if err != nil {
			return waterfall.Layout[string]{}, err
		}
		return *res.Layout, nil
	}
}

func (r *Runner) pack(ctx context.Context, key string, m waterfall.Measurements[string], opts Options) (*Result, error) {
	start := time.Now()

	if !opts.Refresh {
		if l, ok := r.lookup(ctx, key); ok {
			return r.result(l, len(m), time.Since(start), true), nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, cacheKeyType)

	observability.Pack().OnPackStart(ctx, len(m), opts.Columns)
	l := waterfall.Pack(m, opts.Config())
	elapsed := time.Since(start)
	observability.Pack().OnPackComplete(ctx, len(m), l.Len(), l.Extent, elapsed)

	r.store(ctx, key, &l)

	r.Logger.Debug("packed layout",
		"items", len(m),
		"placed", l.Len(),
		"extent", l.Extent,
		"duration", elapsed)

	return r.result(&l, len(m), elapsed, false), nil
}

// lookup returns a cached layout. Read and decode failures count as misses.
func (r *Runner) lookup(ctx context.Context, key string) (*waterfall.Layout[string], bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	doc, err := pkgio.ReadLayout(bytes.NewReader(data))
	if err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "error", err)
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	return doc.Layout(), true
}

func (r *Runner) store(ctx context.Context, key string, l *waterfall.Layout[string]) {
	var buf bytes.Buffer
	if err := pkgio.WriteLayout(l, &buf); err != nil {
		r.Logger.Warn("encode layout for cache", "error", err)
		return
	}
	if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.LayoutTTL); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, buf.Len())
}

func (r *Runner) result(l *waterfall.Layout[string], items int, elapsed time.Duration, hit bool) *Result {
	return &Result{
		Layout:   l,
		CacheHit: hit,
		Stats: Stats{
			Items:    items,
			Placed:   l.Len(),
			PackTime: elapsed,
			Balance:  ComputeBalance(l),
		},
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
