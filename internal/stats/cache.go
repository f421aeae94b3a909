package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/mmenanno/inventory-browser/internal/store"
)

// DefaultTTL is how long a computed snapshot is served before it is recomputed
const DefaultTTL = 5 * time.Minute

// ErrStorageRead wraps any failure to read the item collection during a recomputation
var ErrStorageRead = errors.New("failed to read item collection")

const flightKey = "stats"

// Cache holds at most one snapshot of the item collection. A held snapshot
// is served until its TTL elapses or Invalidate is called; the next Get
// after that reads the collection again. Expiry is checked lazily on Get.
//
// Invalidate does not cancel a recomputation that is already reading the
// collection, so a snapshot computed from the pre-change collection can
// still be stored after an invalidation that raced with it.
type Cache struct {
	reader store.Reader
	ttl    time.Duration
	clock  clockwork.Clock

	mu         sync.RWMutex
	snapshot   *Snapshot
	computedAt time.Time

	group   singleflight.Group
	metrics *metrics
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL sets how long a snapshot stays fresh. A TTL of zero or less
// disables memoization; every Get recomputes.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock replaces the wall clock, mostly for tests
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithRegisterer registers the cache metrics with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.metrics = newMetrics(reg)
	}
}

// NewCache creates an empty stats cache over reader
func NewCache(reader store.Reader, opts ...Option) *Cache {
	c := &Cache{
		reader: reader,
		ttl:    DefaultTTL,
		clock:  clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}

	return c
}

// Get returns the current snapshot and whether it was served from memory.
// A failed read is returned to the caller and leaves any held snapshot as
// it was; nothing is retried. Cancelling ctx abandons the wait but does not
// abort a read that other callers are sharing.
func (c *Cache) Get(ctx context.Context) (Snapshot, bool, error) {
	if snap, ok := c.fresh(); ok {
		c.metrics.hits.Inc()
		return snap, true, nil
	}

	// Callers arriving during a recomputation share its result
	readCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		// Another flight may have refreshed the slot since our check
		if snap, ok := c.fresh(); ok {
			c.metrics.hits.Inc()
			return flightResult{snapshot: snap, cached: true}, nil
		}
		c.metrics.misses.Inc()
		snap, err := c.recompute(readCtx)
		return flightResult{snapshot: snap}, err
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, false, res.Err
		}
		fr := res.Val.(flightResult)
		return fr.snapshot, fr.cached, nil
	}
}

type flightResult struct {
	snapshot Snapshot
	cached   bool
}

// Invalidate drops the held snapshot. Safe to call at any time, including
// on an empty cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.computedAt = time.Time{}
	c.metrics.invalidations.Inc()
}

// TTL returns the configured freshness window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) fresh() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return Snapshot{}, false
	}

	if c.clock.Since(c.computedAt) >= c.ttl {
		return Snapshot{}, false
	}

	return *c.snapshot, true
}

func (c *Cache) recompute(ctx context.Context) (Snapshot, error) {
	c.metrics.recomputes.Inc()

	list, err := c.reader.ReadAll(ctx)
	if err != nil {
		c.metrics.errors.Inc()
		return Snapshot{}, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	now := c.clock.Now()
	snap := Compute(list, now)

	c.mu.Lock()
	c.snapshot = &snap
	c.computedAt = now
	c.mu.Unlock()

	return snap, nil
}
