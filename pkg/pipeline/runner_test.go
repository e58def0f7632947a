package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/waterfall/pkg/cache"
	"github.com/matzehuels/waterfall/pkg/observability"
	"github.com/matzehuels/waterfall/pkg/waterfall"
)

// memCache is an in-memory cache.Cache that counts operations.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets atomic.Int64
	sets atomic.Int64
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.sets.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

// blockingCache parks every Get until release is closed.
type blockingCache struct {
	*memCache
	entered chan struct{}
	release chan struct{}
}

func newBlockingCache() *blockingCache {
	return &blockingCache{
		memCache: newMemCache(),
		entered:  make(chan struct{}, 8),
		release:  make(chan struct{}),
	}
}

func (c *blockingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.entered <- struct{}{}
	<-c.release
	return c.memCache.Get(ctx, key)
}

// packCounter counts pack hook events.
type packCounter struct {
	starts    atomic.Int64
	completes atomic.Int64
}

func (p *packCounter) OnPackStart(context.Context, int, int) { p.starts.Add(1) }

func (p *packCounter) OnPackComplete(context.Context, int, int, float64, time.Duration) {
	p.completes.Add(1)
}

func scenario() waterfall.Measurements[string] {
	return waterfall.Measurements[string]{
		"item1": {Width: 100, Height: 100},
		"item2": {Width: 100, Height: 50},
		"item3": {Width: 100, Height: 80},
		"item4": {Width: 100, Height: 30},
		"item5": {Width: 100, Height: 60},
	}
}

func TestRunnerPackCaches(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Pack(ctx, scenario(), Options{Columns: 2, Spacing: 10})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 210.0, first.Layout.Extent)
	assert.Equal(t, 5, first.Stats.Items)
	assert.Equal(t, 5, first.Stats.Placed)
	assert.Equal(t, 70.0, first.Stats.Balance.Spread)
	assert.NotEmpty(t, first.MeasurementHash)

	second, err := r.Pack(ctx, scenario(), Options{Columns: 2, Spacing: 10})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.MeasurementHash, second.MeasurementHash)
	assert.Equal(t, first.Layout, second.Layout, "cached layout round-trips exactly")
	assert.Equal(t, int64(1), c.sets.Load())

	third, err := r.Pack(ctx, scenario(), Options{Columns: 3, Spacing: 10})
	require.NoError(t, err)
	assert.False(t, third.CacheHit, "different options use a different key")
}

func TestRunnerPackRefresh(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	ctx := context.Background()

	_, err := r.Pack(ctx, scenario(), Options{Columns: 2})
	require.NoError(t, err)

	res, err := r.Pack(ctx, scenario(), Options{Columns: 2, Refresh: true})
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, int64(2), c.sets.Load(), "refresh overwrites the entry")
}

func TestRunnerPackInvalidOptions(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Pack(context.Background(), scenario(), Options{Columns: 2, Axis: "diagonal"})
	assert.Error(t, err)
}

func TestRunnerPackCanceled(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Pack(ctx, scenario(), Options{Columns: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerDiscardsCorruptEntry(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	ctx := context.Background()

	opts := Options{Columns: 2}
	first, err := r.Pack(ctx, scenario(), opts)
	require.NoError(t, err)

	for k := range c.data {
		c.data[k] = []byte("garbage")
	}

	res, err := r.Pack(ctx, scenario(), opts)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, first.Layout.Extent, res.Layout.Extent)
}

func TestRunnerPackFuncDrivesController(t *testing.T) {
	hooks := &packCounter{}
	observability.SetPackHooks(hooks)
	defer observability.Reset()

	c := newMemCache()
	r := NewRunner(c, nil, nil)
	opts := Options{Columns: 2, Spacing: 10}

	ctl := waterfall.NewController(opts.Config(),
		waterfall.WithDebounce[string](10*time.Millisecond),
		waterfall.WithPacker(r.PackFunc(opts)))
	defer ctl.Close()

	done := make(chan *waterfall.Layout[string], 1)
	ctl.Watch(func(l *waterfall.Layout[string]) { done <- l })
	ctl.Report(scenario())

	select {
	case l := <-done:
		assert.Equal(t, 210.0, l.Extent)
	case <-time.After(2 * time.Second):
		t.Fatal("controller never published")
	}
	assert.Equal(t, int64(1), c.sets.Load(), "controller runs go through the cache")
	assert.Equal(t, int64(1), hooks.starts.Load())
	assert.Equal(t, int64(1), hooks.completes.Load())

	// A later one-shot run for the same input is a cache hit.
	res, err := r.Pack(context.Background(), scenario(), opts)
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
}

func TestRunnerPackFuncZeroColumns(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	pack := r.PackFunc(Options{})

	l, err := pack(context.Background(), scenario(), waterfall.Config{Columns: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0.0, l.Extent)
	assert.Zero(t, c.sets.Load(), "edge-case configs bypass the cache")
}

func TestRunnerCoalescesConcurrentPacks(t *testing.T) {
	r := NewRunner(newMemCache(), nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Pack(ctx, scenario(), Options{Columns: 2, Spacing: 10})
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res, "result %d", i)
		assert.Equal(t, 210.0, res.Layout.Extent)
	}
}

func TestRunnerCoalescedCallerSurvivesOtherCancel(t *testing.T) {
	c := newBlockingCache()
	r := NewRunner(c, nil, nil)
	opts := Options{Columns: 2, Spacing: 10}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Pack(ctxA, scenario(), opts)
		errA <- err
	}()
	select {
	case <-c.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first pack never reached the cache")
	}

	type outcome struct {
		res *Result
		err error
	}
	outB := make(chan outcome, 1)
	go func() {
		res, err := r.Pack(context.Background(), scenario(), opts)
		outB <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled, "a cancelled caller stops waiting while the pack is blocked")
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(c.release)
	select {
	case got := <-outB:
		require.NoError(t, got.err)
		assert.Equal(t, 210.0, got.res.Layout.Extent)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never returned")
	}
}

func TestRunnerPackHooksPaired(t *testing.T) {
	hooks := &packCounter{}
	observability.SetPackHooks(hooks)
	defer observability.Reset()

	r := NewRunner(newMemCache(), nil, nil)
	for range 3 {
		_, err := r.Pack(context.Background(), scenario(), Options{Columns: 2, Refresh: true})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), hooks.starts.Load())
	assert.Equal(t, hooks.starts.Load(), hooks.completes.Load())
}

func TestRunnerCached(t *testing.T) {
	r := NewRunner(newMemCache(), nil, nil)
	ctx := context.Background()
	opts := Options{Columns: 2, Spacing: 10}

	packed, err := r.Pack(ctx, scenario(), opts)
	require.NoError(t, err)

	got, ok, err := r.Cached(ctx, packed.MeasurementHash, opts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.CacheHit)
	assert.Equal(t, packed.Layout, got.Layout)
	assert.Equal(t, packed.MeasurementHash, got.MeasurementHash)

	_, ok, err = r.Cached(ctx, packed.MeasurementHash, Options{Columns: 4})
	require.NoError(t, err)
	assert.False(t, ok, "other options miss")

	_, _, err = r.Cached(ctx, packed.MeasurementHash, Options{Columns: 2, Axis: "diagonal"})
	assert.Error(t, err)
}
