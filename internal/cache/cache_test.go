package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/clock"
)

func newTestCache(maxSize int) (*Cache, *clock.Fake) {
	fake := clock.NewFake(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(Options{MaxSize: maxSize, Clock: fake}), fake
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	c, fake := newTestCache(10)

	c.Set("k", "v", 60*time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, int64(1), c.Stats().Hits)

	fake.Advance(61 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ExpiredRemoved)
	assert.Equal(t, 0, stats.Size)
}

func TestCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(2)

	c.Set("A", 1, time.Minute)
	c.Set("B", 2, time.Minute)
	_, ok := c.Get("A")
	require.True(t, ok)
	c.Set("C", 3, time.Minute)

	_, ok = c.Get("B")
	assert.False(t, ok, "B was least recently used")
	_, ok = c.Get("A")
	assert.True(t, ok)
	_, ok = c.Get("C")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_UpdateExistingKeyDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(2)

	c.Set("A", 1, time.Minute)
	c.Set("B", 2, time.Minute)
	c.Set("A", 10, time.Minute)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(0), c.Stats().Evictions)
	v, _ := c.Get("A")
	assert.Equal(t, 10, v)
}

func TestCache_InvalidatePattern(t *testing.T) {
	c, _ := newTestCache(10)
	c.Set("case_stats:all", 1, time.Minute)
	c.Set("case_stats:open", 2, time.Minute)
	c.Set("case:42", 3, time.Minute)

	removed := c.InvalidatePattern("case_stats*")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())

	assert.True(t, c.Delete("case:42"))
	assert.False(t, c.Delete("case:42"))
}

func TestCache_SweepRemovesExpiredOnly(t *testing.T) {
	c, fake := newTestCache(10)
	c.Set("short", 1, 10*time.Second)
	c.Set("long", 2, time.Hour)

	fake.Advance(11 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.Stats().ExpiredRemoved)
}

func TestCache_ClearKeepsCounters(t *testing.T) {
	c, _ := newTestCache(10)
	c.Set("a", 1, time.Minute)
	c.Get("a")
	c.Get("missing")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCache_GetOrLoadDeduplicates(t *testing.T) {
	c, _ := newTestCache(10)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad("agg", time.Minute, func() (any, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	v, ok := c.Get("agg")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestCache_GetOrLoadErrorIsNotCached(t *testing.T) {
	c, _ := newTestCache(10)
	_, err := c.GetOrLoad("agg", time.Minute, func() (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCache_StartAndClose(t *testing.T) {
	c := New(Options{SweepInterval: 5 * time.Millisecond})
	c.Set("x", 1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c.Start(ctx)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	c.Close()
	c.Close()
}
