package waterfall

import (
	"cmp"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/waterfall/pkg/observability"
)

// DefaultDebounce is the quiet period a Controller waits after the last
// changing report before it recomputes.
const DefaultDebounce = 50 * time.Millisecond

// PackFunc computes a layout from a measurement snapshot. The snapshot is
// owned by the callee. Implementations should return ctx.Err() promptly
// once ctx is cancelled; the Controller discards the result either way.
type PackFunc[K cmp.Ordered] func(ctx context.Context, m Measurements[K], cfg Config) (Layout[K], error)

// DefaultPackFunc wraps Pack as a PackFunc.
func DefaultPackFunc[K cmp.Ordered](ctx context.Context, m Measurements[K], cfg Config) (Layout[K], error) {
	if err := ctx.Err(); err != nil {
		return Layout[K]{}, err
	}
	return Pack(m, cfg), nil
}

// Unwatch removes a watcher registered with Controller.Watch.
type Unwatch func()

// ControllerStats counts what a Controller has done since it was created.
type ControllerStats struct {
	Reports      uint64 // batches received
	Changes      uint64 // batches that changed the measurement set or config
	Scheduled    uint64 // recomputations scheduled
	Superseded   uint64 // pending recomputations cancelled before they ran
	Computations uint64 // pack invocations
	Published    uint64 // layouts that became current
	Dropped      uint64 // recomputations discarded as stale or after Close
}

// ControllerOption configures a Controller.
type ControllerOption[K cmp.Ordered] func(*Controller[K])

// WithDebounce sets the debounce window. Non-positive values schedule the
// recomputation on the next timer tick.
func WithDebounce[K cmp.Ordered](d time.Duration) ControllerOption[K] {
	return func(c *Controller[K]) {
		if d < 0 {
			d = 0
		}
		c.debounce = d
	}
}

// WithPacker replaces the pack step.
func WithPacker[K cmp.Ordered](fn PackFunc[K]) ControllerOption[K] {
	return func(c *Controller[K]) {
		if fn != nil {
			c.pack = fn
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger[K cmp.Ordered](l *log.Logger) ControllerOption[K] {
	return func(c *Controller[K]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithID sets the identifier used in logs and hook events. A random UUID is
// used by default.
func WithID[K cmp.Ordered](id string) ControllerOption[K] {
	return func(c *Controller[K]) {
		if id != "" {
			c.id = id
		}
	}
}

// Controller turns a noisy stream of measurement batches into debounced
// layout recomputations for one grid instance.
//
// Report and Configure merge state and, when it changed, cancel any pending
// recomputation and schedule a new one after the debounce window. The
// recomputation packs an immutable snapshot on the timer goroutine and
// publishes the result only if no newer recomputation was scheduled in the
// meantime and the Controller is still open.
//
// All methods are safe for concurrent use.
type Controller[K cmp.Ordered] struct {
	id       string
	debounce time.Duration
	pack     PackFunc[K]
	logger   *log.Logger

	mu           sync.Mutex
	cfg          Config
	measurements Measurements[K]
	reported     bool
	generation   uint64
	timer        *time.Timer
	cancel       context.CancelFunc
	closed       bool
	watchers     []*watcher[K]
	nextWatcher  uint64
	stats        ControllerStats

	// publishMu orders publications so watchers observe layouts in
	// generation order.
	publishMu sync.Mutex
	current   atomic.Pointer[Layout[K]]
}

type watcher[K cmp.Ordered] struct {
	id     uint64
	fn     func(*Layout[K])
	active bool
}

// NewController creates a Controller for one grid instance.
func NewController[K cmp.Ordered](cfg Config, opts ...ControllerOption[K]) *Controller[K] {
	c := &Controller[K]{
		id:           uuid.NewString(),
		debounce:     DefaultDebounce,
		pack:         DefaultPackFunc[K],
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
		cfg:          cfg,
		measurements: make(Measurements[K]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the controller identifier used in logs and hooks.
func (c *Controller[K]) ID() string { return c.id }

// Report merges a batch of measured sizes. The host re-reports every visible
// item on each layout pass; batches that leave the measurement set unchanged
// are ignored and do not reset the debounce timer. An empty first batch is a
// change, so the host observes an empty layout through the normal path.
func (c *Controller[K]) Report(batch map[K]Size) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stats.Reports++

	changed := c.measurements.Merge(batch)
	if !c.reported {
		changed = true
		c.reported = true
	}
	var next schedule
	if changed {
		c.stats.Changes++
		next = c.scheduleLocked()
	}
	c.mu.Unlock()

	observability.Controller().OnReport(context.Background(), c.id, len(batch), changed)
	if changed {
		c.notifySchedule(next)
	}
}

// Configure replaces the layout configuration. A configuration that packs
// differently reschedules a recomputation once the host has reported at
// least once.
func (c *Controller[K]) Configure(cfg Config) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	same := cfg.sanitized() == c.cfg.sanitized()
	c.cfg = cfg
	if same || !c.reported {
		c.mu.Unlock()
		return
	}
	c.stats.Changes++
	next := c.scheduleLocked()
	c.mu.Unlock()

	c.notifySchedule(next)
}

// Config returns the current configuration.
func (c *Controller[K]) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Current returns the last published layout, or nil before the first
// publication. The returned layout must not be modified.
func (c *Controller[K]) Current() *Layout[K] {
	return c.current.Load()
}

// Watch registers fn to be called after each publication with the new
// layout. Watchers run on the publishing goroutine in registration order
// and must not block for long.
func (c *Controller[K]) Watch(fn func(*Layout[K])) Unwatch {
	c.mu.Lock()
	c.nextWatcher++
	w := &watcher[K]{id: c.nextWatcher, fn: fn, active: true}
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		w.active = false
		kept := c.watchers[:0]
		for _, other := range c.watchers {
			if other.active {
				kept = append(kept, other)
			}
		}
		c.watchers = kept
	}
}

// Stats returns a snapshot of the controller counters.
func (c *Controller[K]) Stats() ControllerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close cancels any pending or in-flight recomputation and releases the
// measurement set. No layout becomes current after Close returns.
// Close is idempotent.
func (c *Controller[K]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.stopLocked() {
		c.stats.Superseded++
	}
	c.measurements = make(Measurements[K])
	c.watchers = nil
	c.logger.Debug("controller closed", "id", c.id)
}

// schedule describes a recomputation queued by scheduleLocked.
type schedule struct {
	ctx        context.Context
	generation uint64
	superseded bool
}

// scheduleLocked supersedes any pending recomputation with a new one.
// Hooks for it are emitted by notifySchedule once c.mu is released.
func (c *Controller[K]) scheduleLocked() schedule {
	superseded := c.stopLocked()
	if superseded {
		c.stats.Superseded++
	}

	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.timer = time.AfterFunc(c.debounce, func() { c.run(ctx, gen) })
	c.stats.Scheduled++

	c.logger.Debug("recompute scheduled", "id", c.id, "generation", gen, "superseded", superseded)
	return schedule{ctx: ctx, generation: gen, superseded: superseded}
}

func (c *Controller[K]) notifySchedule(s schedule) {
	observability.Controller().OnSchedule(s.ctx, c.id, s.generation, s.superseded)
}

// stopLocked cancels the pending timer and the in-flight context. It
// reports whether a timer was stopped before it fired.
func (c *Controller[K]) stopLocked() bool {
	stopped := false
	if c.timer != nil {
		stopped = c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return stopped
}

// run is the scheduled recomputation for generation gen.
func (c *Controller[K]) run(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation || ctx.Err() != nil {
		reason := "superseded"
		if c.closed {
			reason = "closed"
		}
		c.mu.Unlock()
		// The timer fired while Close or a newer report was stopping it.
		c.drop(ctx, gen, reason)
		return
	}
	snapshot := c.measurements.Clone()
	cfg := c.cfg
	c.stats.Computations++
	c.mu.Unlock()

	start := time.Now()
	layout, err := c.pack(ctx, snapshot, cfg)
	elapsed := time.Since(start)
	if err != nil {
		c.drop(ctx, gen, "pack: "+err.Error())
		return
	}
	c.publish(ctx, gen, &layout, elapsed)
}

func (c *Controller[K]) publish(ctx context.Context, gen uint64, layout *Layout[K], elapsed time.Duration) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		c.drop(ctx, gen, "closed")
		return
	case gen != c.generation || ctx.Err() != nil:
		c.mu.Unlock()
		c.drop(ctx, gen, "superseded")
		return
	}
	c.current.Store(layout)
	c.stats.Published++
	watchers := make([]*watcher[K], 0, len(c.watchers))
	for _, w := range c.watchers {
		if w.active {
			watchers = append(watchers, w)
		}
	}
	c.mu.Unlock()

	observability.Controller().OnPublish(ctx, c.id, gen, elapsed)
	c.logger.Debug("layout published",
		"id", c.id,
		"generation", gen,
		"items", layout.Len(),
		"extent", layout.Extent,
		"duration", elapsed)

	for _, w := range watchers {
		w.fn(layout)
	}
}

func (c *Controller[K]) drop(ctx context.Context, gen uint64, reason string) {
	c.mu.Lock()
	c.stats.Dropped++
	c.mu.Unlock()
	observability.Controller().OnDrop(ctx, c.id, gen, reason)
	c.logger.Debug("layout dropped", "id", c.id, "generation", gen, "reason", reason)
}
