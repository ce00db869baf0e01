package cache

import (
	"container/list"
	"context"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/case-service/internal/clock"
)

const (
	defaultMaxSize       = 1000
	defaultTTL           = 5 * time.Minute
	defaultSweepInterval = time.Minute
)

// Entry is a cached value plus its bookkeeping.
type Entry struct {
	Key          string
	Value        any
	CreatedAt    time.Time
	ExpiresAt    time.Time
	AccessCount  int64
	LastAccessed time.Time
}

// Stats reports cache counters. Everything except Size only grows.
type Stats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Evictions      int64   `json:"evictions"`
	ExpiredRemoved int64   `json:"expired_removals"`
	Size           int     `json:"size"`
	MaxSize        int     `json:"max_size"`
	HitRate        float64 `json:"hit_rate"`
}

// Options configures a Cache.
type Options struct {
	MaxSize       int
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Clock         clock.Clock
	Logger        *zap.Logger
}

// Cache is a thread-safe TTL cache with least-recently-used eviction.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64
	expired   int64

	sweepEvery time.Duration
	clock      clock.Clock
	logger     *zap.Logger
	loads      singleflight.Group

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a cache. Zero option values fall back to defaults.
func New(opts Options) *Cache {
	if opts.MaxSize <= 0 {
		opts.MaxSize = defaultMaxSize
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		maxSize:    opts.MaxSize,
		ttl:        opts.DefaultTTL,
		sweepEvery: opts.SweepInterval,
		clock:      clock.OrReal(opts.Clock),
		logger:     opts.Logger,
		stop:       make(chan struct{}),
	}
}

// Get returns the value for key. Expired entries are removed and count as misses.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := elem.Value.(*Entry)
	now := c.clock.Now()
	if !now.Before(entry.ExpiresAt) {
		c.removeElement(elem)
		c.expired++
		c.misses++
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = now
	c.lru.MoveToFront(elem)
	c.hits++
	return entry.Value, true
}

// Set stores value under key. A ttl <= 0 uses the default TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*Entry)
		entry.Value = value
		entry.CreatedAt = now
		entry.ExpiresAt = now.Add(ttl)
		entry.LastAccessed = now
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}
	c.items[key] = c.lru.PushFront(entry)
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// Clear removes every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

// InvalidatePattern removes every key matching the glob pattern and returns the count.
func (c *Cache) InvalidatePattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.items {
		matched, err := path.Match(pattern, key)
		if err != nil {
			c.logger.Warn("invalid cache pattern", zap.String("pattern", pattern), zap.Error(err))
			return removed
		}
		if matched {
			c.removeElement(elem)
			removed++
		}
	}
	return removed
}

// GetOrLoad returns the cached value or calls load once per key across concurrent callers
// and caches its result for ttl.
func (c *Cache) GetOrLoad(key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.loads.Do(key, func() (any, error) {
		value, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
	return v, err
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:           c.hits,
		Misses:         c.misses,
		Evictions:      c.evictions,
		ExpiredRemoved: c.expired,
		Size:           c.lru.Len(),
		MaxSize:        c.maxSize,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if !now.Before(elem.Value.(*Entry).ExpiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	c.expired += int64(removed)
	return removed
}

// Start runs the background sweeper until ctx is done or Close is called.
func (c *Cache) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					c.logger.Debug("cache sweep", zap.Int("removed", n))
				}
			}
		}
	}()
}

// Close stops the sweeper and waits for it to exit.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

func (c *Cache) evictOldest() {
	if elem := c.lru.Back(); elem != nil {
		c.removeElement(elem)
		c.evictions++
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	c.lru.Remove(elem)
	delete(c.items, elem.Value.(*Entry).Key)
}
