package chart

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/waterfall/pkg/cache"
	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/observability"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

const cacheKeyType = "chart"

// Renderer renders charts through a cache keyed by layout content, so the
// same layout and options are drawn once per ChartTTL.
type Renderer struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// Render returns the chart bytes for l and whether they came from cache.
// Cache failures are logged and fall back to rendering.
func (r Renderer) Render(ctx context.Context, l *waterfall.Layout[string], opts Options) ([]byte, bool, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}
	c, keyer, logger := r.Cache, r.Keyer, r.Logger
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}

	layoutHash, err := cache.HashJSON(pkgio.NewLayoutDocument(l))
	if err != nil {
		return nil, false, err
	}
	key := keyer.ChartKey(layoutHash+":"+opts.Format, cache.ChartKeyOpts{Title: opts.Title, Theme: opts.Theme})

	data, hit, err := c.Get(ctx, key)
	if err != nil {
		logger.Warn("chart cache read failed", "key", key, "error", err)
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, cacheKeyType)
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, cacheKeyType)

	if data, err = Bytes(l, opts); err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, key, data, cache.ChartTTL); err != nil {
		logger.Warn("chart cache write failed", "key", key, "error", err)
		return data, false, nil
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
	return data, false, nil
}
