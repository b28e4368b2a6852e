package cache

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/spectro"
)

// DefaultMaxBytes is the default budget for decoded tile pixels (256 MiB).
const DefaultMaxBytes int64 = 256 << 20

// Loader fetches and decodes one tile. It is called at most once at a time
// per key.
type Loader func(ctx context.Context) (image.Image, error)

// Option configures a TileCache.
type Option func(*TileCache)

// WithMaxBytes sets the byte budget. Non-positive values are ignored.
func WithMaxBytes(n int64) Option {
	return func(c *TileCache) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithMaxAge makes entries older than d stale; stale entries are reloaded on
// the next GetOrLoad. Zero (the default) keeps entries until evicted.
func WithMaxAge(d time.Duration) Option {
	return func(c *TileCache) {
		c.maxAge = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TileCache) {
		if now != nil {
			c.now = now
		}
	}
}

// TileCache is a byte-budgeted LRU cache of decoded tiles with in-flight
// load deduplication.
type TileCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	lru     lruList

	maxBytes int64
	maxAge   time.Duration
	now      func() time.Time

	inflight singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	loads     atomic.Uint64
	failures  atomic.Uint64
}

type cacheEntry struct {
	img    image.Image
	stored time.Time
	node   *lruNode
}

// New creates an empty tile cache.
func New(opts ...Option) *TileCache {
	c := &TileCache{
		entries:  make(map[string]*cacheEntry),
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the tile for key, loading it with load on a miss.
//
// If another caller is already loading the same key, GetOrLoad waits for that
// load instead of starting its own. If ctx is done first, GetOrLoad returns
// ctx.Err() while the shared load continues in the background.
func (c *TileCache) GetOrLoad(ctx context.Context, key Key, load Loader) (image.Image, error) {
	sig := key.String()
	if img, ok := c.lookup(sig); ok {
		c.hits.Add(1)
		return img, nil
	}
	c.misses.Add(1)

	// The load outlives any single waiter.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(sig, func() (any, error) {
		if img, ok := c.lookup(sig); ok {
			return img, nil
		}
		c.loads.Add(1)
		img, err := load(loadCtx)
		if err != nil {
			c.failures.Add(1)
			spectro.Logger().Debug("cache: load failed", "key", sig, "err", err)
			return nil, err
		}
		c.store(sig, img)
		return img, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(image.Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns a fresh cached tile without loading. A hit marks the entry as
// most recently used.
func (c *TileCache) Get(key Key) (image.Image, bool) {
	img, ok := c.lookup(key.String())
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return img, ok
}

// Contains reports whether a fresh entry exists for key, without touching
// recency or statistics.
func (c *TileCache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	return ok && !c.staleLocked(e)
}

// Delete removes the entry for key. It reports whether one was present.
func (c *TileCache) Delete(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return false
	}
	c.removeLocked(key.String(), e)
	return true
}

// Purge removes every entry. In-flight loads are not affected and will store
// their results when they complete.
func (c *TileCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lru.Reset()
}

// Len returns the number of cached tiles.
func (c *TileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the total size of cached tiles.
func (c *TileCache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Bytes()
}

// MaxBytes returns the byte budget.
func (c *TileCache) MaxBytes() int64 {
	return c.maxBytes
}

// Stats returns current cache statistics.
func (c *TileCache) Stats() Stats {
	c.mu.Lock()
	n, b := len(c.entries), c.lru.Bytes()
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       n,
		Bytes:     b,
		MaxBytes:  c.maxBytes,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
		Loads:     c.loads.Load(),
		Failures:  c.failures.Load(),
	}
}

// ResetStats resets all statistics counters to zero.
func (c *TileCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.loads.Store(0)
	c.failures.Store(0)
}

func (c *TileCache) lookup(sig string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sig]
	if !ok {
		return nil, false
	}
	if c.staleLocked(e) {
		c.removeLocked(sig, e)
		return nil, false
	}
	c.lru.Touch(e.node)
	return e.img, true
}

func (c *TileCache) store(sig string, img image.Image) {
	size := ImageBytes(img)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[sig]; ok {
		c.removeLocked(sig, old)
	}
	c.entries[sig] = &cacheEntry{
		img:    img,
		stored: c.now(),
		node:   c.lru.PushFront(sig, size),
	}

	for c.lru.Bytes() > c.maxBytes && c.lru.Len() > 1 {
		oldest := c.lru.Back()
		spectro.Logger().Debug("cache: evict", "key", oldest.sig, "bytes", oldest.size)
		c.removeLocked(oldest.sig, c.entries[oldest.sig])
		c.evictions.Add(1)
	}
}

// Caller must hold c.mu.
func (c *TileCache) staleLocked(e *cacheEntry) bool {
	return c.maxAge > 0 && c.now().Sub(e.stored) > c.maxAge
}

// Caller must hold c.mu.
func (c *TileCache) removeLocked(sig string, e *cacheEntry) {
	c.lru.Remove(e.node)
	delete(c.entries, sig)
}

// ImageBytes returns the memory held by img's pixel buffers.
func ImageBytes(img image.Image) int64 {
	switch m := img.(type) {
	case nil:
		return 0
	case *image.RGBA:
		return int64(len(m.Pix))
	case *image.NRGBA:
		return int64(len(m.Pix))
	case *image.RGBA64:
		return int64(len(m.Pix))
	case *image.Gray:
		return int64(len(m.Pix))
	case *image.Gray16:
		return int64(len(m.Pix))
	case *image.Paletted:
		return int64(len(m.Pix))
	case *image.YCbCr:
		return int64(len(m.Y) + len(m.Cb) + len(m.Cr))
	default:
		b := img.Bounds()
		return int64(b.Dx()) * int64(b.Dy()) * 4
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Bytes is the total size of cached images.
	Bytes int64
	// MaxBytes is the configured budget.
	MaxBytes int64
	// Hits and Misses count lookups.
	Hits   uint64
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Evictions counts entries dropped to stay within budget.
	Evictions uint64
	// Loads counts loader invocations; Failures those that returned an error.
	Loads    uint64
	Failures uint64
}
