package stats

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmenanno/inventory-browser/internal/items"
)

var errDisk = errors.New("disk on fire")

// fakeReader counts ReadAll calls and returns whatever it is currently set to
type fakeReader struct {
	mu    sync.Mutex
	list  []items.Item
	err   error
	calls atomic.Int32

	// when set, ReadAll signals started and waits on release
	started chan struct{}
	release chan struct{}

	// ctx.Err() as seen by the last ReadAll once released
	ctxErr error
}

func (r *fakeReader) ReadAll(ctx context.Context) ([]items.Item, error) {
	r.calls.Add(1)

	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxErr = ctx.Err()
	if r.err != nil {
		return nil, r.err
	}
	return append([]items.Item(nil), r.list...), nil
}

func (r *fakeReader) set(list []items.Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = list
	r.err = err
}

var threeItems = []items.Item{
	{ID: 1, Name: "a", Category: "A", Price: 10},
	{ID: 2, Name: "b", Category: "A", Price: 20},
	{ID: 3, Name: "c", Category: "B", Price: 30},
}

func newTestCache(reader *fakeReader) (*Cache, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	return NewCache(reader, WithClock(clock), WithTTL(300*time.Second)), clock
}

func TestCache_FirstGetComputes(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)

	snap, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 20.0, snap.AveragePrice)
	assert.Equal(t, 2, snap.CategoryCount)
	assert.Equal(t, clock.Now(), snap.ComputedAt)
	assert.Equal(t, int32(1), reader.calls.Load())
}

func TestCache_EmptyCollection(t *testing.T) {
	reader := &fakeReader{list: []items.Item{}}
	cache, _ := newTestCache(reader)

	snap, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.AveragePrice)
	assert.Equal(t, 0, snap.CategoryCount)
}

func TestCache_HitWithinTTL(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)

	first, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	// The collection changes but nothing tells the cache
	reader.set(threeItems[:1], nil)
	clock.Advance(299 * time.Second)

	second, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), reader.calls.Load())
}

func TestCache_TTLSchedule(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)
	ctx := context.Background()

	// t=0: miss
	first, cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	// t=60s: hit
	clock.Advance(60 * time.Second)
	_, cached, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, cached)

	// t=400s: miss, recomputed
	clock.Advance(340 * time.Second)
	third, cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.True(t, third.ComputedAt.After(first.ComputedAt))
	assert.Equal(t, 400*time.Second, third.ComputedAt.Sub(first.ComputedAt))

	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestCache_ExpiresExactlyAtTTL(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)

	_, _, err := cache.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(300 * time.Second)
	_, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestCache_InvalidateForcesRead(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)
	ctx := context.Background()

	_, _, err := cache.Get(ctx)
	require.NoError(t, err)

	reader.set(threeItems[:1], nil)
	clock.Advance(time.Second)
	cache.Invalidate()

	snap, cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 10.0, snap.AveragePrice)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestCache_InvalidateIsIdempotent(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, _ := newTestCache(reader)

	// On an empty cache
	cache.Invalidate()
	cache.Invalidate()

	_, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	cache.Invalidate()
	cache.Invalidate()

	_, cached, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestCache_ReadErrorOnFirstGet(t *testing.T) {
	reader := &fakeReader{err: errDisk}
	cache, _ := newTestCache(reader)

	snap, cached, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageRead)
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, cached)
	assert.Equal(t, Snapshot{}, snap)

	// No synthetic snapshot was stored; the next call reads again
	reader.set(threeItems, nil)
	snap, cached, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestCache_ReadErrorAfterTTLDoesNotServeStale(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)
	ctx := context.Background()

	_, _, err := cache.Get(ctx)
	require.NoError(t, err)

	// t=400s: expired, and the read fails
	clock.Advance(400 * time.Second)
	reader.set(nil, errDisk)

	_, _, err = cache.Get(ctx)
	require.ErrorIs(t, err, ErrStorageRead)

	// The old snapshot was not refreshed by the failure: still expired, so
	// the next call reads (and fails) again instead of re-serving it
	_, cached, err := cache.Get(ctx)
	require.ErrorIs(t, err, ErrStorageRead)
	assert.False(t, cached)
	assert.Equal(t, int32(3), reader.calls.Load())

	// Storage recovers at t=401s
	clock.Advance(time.Second)
	reader.set(threeItems[2:], nil)

	snap, cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 30.0, snap.AveragePrice)
	assert.Equal(t, clock.Now(), snap.ComputedAt)
}

func TestCache_ReadErrorAfterInvalidate(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache, clock := newTestCache(reader)
	ctx := context.Background()

	_, _, err := cache.Get(ctx)
	require.NoError(t, err)

	// t=10s: invalidated, then the forced read fails
	clock.Advance(10 * time.Second)
	cache.Invalidate()
	reader.set(nil, errDisk)

	_, _, err = cache.Get(ctx)
	require.ErrorIs(t, err, ErrStorageRead)

	// Still within the first snapshot's TTL, but the slot was cleared, so there is
	// nothing to serve and the read is attempted again
	clock.Advance(10 * time.Second)
	_, cached, err := cache.Get(ctx)
	require.ErrorIs(t, err, ErrStorageRead)
	assert.False(t, cached)
	assert.Equal(t, int32(3), reader.calls.Load())
}

func TestCache_ZeroTTLAlwaysRecomputes(t *testing.T) {
	reader := &fakeReader{list: threeItems}
	cache := NewCache(reader, WithTTL(0), WithClock(clockwork.NewFakeClock()))

	for i := 0; i < 3; i++ {
		_, cached, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, int32(3), reader.calls.Load())
}

func TestCache_DefaultTTL(t *testing.T) {
	cache := NewCache(&fakeReader{})
	assert.Equal(t, 5*time.Minute, cache.TTL())
}

func TestCache_ConcurrentGetsShareOneRead(t *testing.T) {
	reader := &fakeReader{
		list:    threeItems,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache, _ := newTestCache(reader)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan Snapshot, callers)

	get := func() {
		defer wg.Done()
		snap, _, err := cache.Get(context.Background())
		assert.NoError(t, err)
		results <- snap
	}

	wg.Add(1)
	go get()
	<-reader.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go get()
	}

	// Give the other callers time to join the in-flight read
	time.Sleep(50 * time.Millisecond)
	close(reader.release)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), reader.calls.Load())
	for snap := range results {
		assert.Equal(t, 3, snap.Total)
	}

	// One lookup missed; the others waited on it
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.metrics.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.metrics.recomputes))
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	reader := &fakeReader{
		list:    threeItems,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache, _ := newTestCache(reader)

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := cache.Get(leaderCtx)
		leaderErr <- err
	}()
	<-reader.started

	type result struct {
		snap Snapshot
		err  error
	}
	other := make(chan result, 1)
	go func() {
		snap, _, err := cache.Get(context.Background())
		other <- result{snap, err}
	}()

	// Let the second caller join the read, then drop the first one
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(reader.release)
	got := <-other
	require.NoError(t, got.err)
	assert.Equal(t, 3, got.snap.Total)
	assert.Equal(t, int32(1), reader.calls.Load())

	reader.mu.Lock()
	assert.NoError(t, reader.ctxErr)
	reader.mu.Unlock()

	// The shared read completed and was stored
	reader.started = nil
	_, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestCache_CancelledContextReturnsImmediately(t *testing.T) {
	reader := &fakeReader{
		list:    threeItems,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache, _ := newTestCache(reader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, cached, err := cache.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, cached)

	close(reader.release)
}

func TestCache_InvalidateDuringRecompute(t *testing.T) {
	reader := &fakeReader{
		list:    threeItems,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache, _ := newTestCache(reader)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, err := cache.Get(context.Background())
		assert.NoError(t, err)
	}()

	<-reader.started
	cache.Invalidate()
	close(reader.release)
	<-done

	// The in-flight result lands after the invalidation and is served
	reader.started = nil
	_, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(1), reader.calls.Load())
}

func TestCache_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reader := &fakeReader{list: threeItems}
	clock := clockwork.NewFakeClock()
	cache := NewCache(reader, WithClock(clock), WithRegisterer(reg))
	ctx := context.Background()

	_, _, _ = cache.Get(ctx)
	_, _, _ = cache.Get(ctx)
	cache.Invalidate()
	reader.set(nil, errDisk)
	_, _, _ = cache.Get(ctx)

	assert.Equal(t, 1.0, testutil.ToFloat64(cache.metrics.hits))
	assert.Equal(t, 2.0, testutil.ToFloat64(cache.metrics.misses))
	assert.Equal(t, 2.0, testutil.ToFloat64(cache.metrics.recomputes))
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.metrics.errors))
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.metrics.invalidations))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
