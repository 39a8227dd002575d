package bytekit

import (
	"bytekit/store"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is a threadsafe wrapper binding the selected store
// implementation to Buffer values.
type Cache struct {
	mu          sync.RWMutex
	store       store.Store
	opts        CacheOptions
	hits        int64
	misses      int64
	initialized int32
	closed      int32
}

// CacheOptions
type CacheOptions struct {
	CacheType   store.CacheType
	MaxBytes    int64
	CleanupTime time.Duration
	OnEvicted   func(key string, value store.Value)
}

// DefaultCacheOptions
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		CacheType:   store.LRU,
		MaxBytes:    8 * 1024 * 1024,
		CleanupTime: time.Minute,
		OnEvicted:   nil,
	}
}

// NewCache
func NewCache(opts CacheOptions) *Cache {
	return &Cache{
		opts: opts,
	}
}

// ensureInitialized lazily creates the underlying store on first use.
func (c *Cache) ensureInitialized() {
	if atomic.LoadInt32(&c.initialized) == 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized == 0 {
		c.store = store.NewStore(c.opts.CacheType, store.Options{
			MaxBytes:        c.opts.MaxBytes,
			CleanupInterval: c.opts.CleanupTime,
			OnEvicted:       c.opts.OnEvicted,
		})
		atomic.StoreInt32(&c.initialized, 1)
		logrus.Infof("cache initialized with type %s, max bytes %d", c.opts.CacheType, c.opts.MaxBytes)
	}
}

// Add stores a buffer under key.
func (c *Cache) Add(key string, value Buffer) {
	if atomic.LoadInt32(&c.closed) == 1 {
		logrus.Warnf("Attempted to add to a closed cache: %s", key)
		return
	}
	c.ensureInitialized()
	if err := c.store.Set(key, value); err != nil {
		logrus.Warnf("Failed to add key %s to cache: %v", key, err)
	}
}

// Get returns the cached buffer, tracking hit/miss metrics.
func (c *Cache) Get(ctx context.Context, key string) (value Buffer, ok bool) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return Buffer{}, false
	}

	if atomic.LoadInt32(&c.initialized) == 0 {
		atomic.AddInt64(&c.misses, 1)
		return Buffer{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Close may have released the store after the atomic checks.
	if c.store == nil {
		atomic.AddInt64(&c.misses, 1)
		return Buffer{}, false
	}

	val, ok := c.store.Get(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return Buffer{}, false
	}
	atomic.AddInt64(&c.hits, 1)
	if b, ok := val.(Buffer); ok {
		return b, true
	}

	logrus.Warnf("Failed to assert value for key %s to Buffer", key)
	atomic.AddInt64(&c.misses, 1)
	return Buffer{}, false
}

// GetWithTTL returns the cached buffer and its remaining TTL when the
// backend tracks expiration; zero TTL means the entry does not expire.
func (c *Cache) GetWithTTL(ctx context.Context, key string) (Buffer, time.Duration, bool) {
	if atomic.LoadInt32(&c.closed) == 1 || atomic.LoadInt32(&c.initialized) == 0 {
		return Buffer{}, 0, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return Buffer{}, 0, false
	}

	var (
		val store.Value
		ttl time.Duration
		ok  bool
	)
	if inspector, can := c.store.(interface {
		GetWithExpiration(key string) (store.Value, time.Duration, bool)
	}); can {
		val, ttl, ok = inspector.GetWithExpiration(key)
	} else {
		val, ok = c.store.Get(key)
	}
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return Buffer{}, 0, false
	}
	atomic.AddInt64(&c.hits, 1)
	if b, bok := val.(Buffer); bok {
		return b, ttl, true
	}

	logrus.Warnf("Failed to assert value for key %s to Buffer", key)
	atomic.AddInt64(&c.misses, 1)
	return Buffer{}, 0, false
}

// UpdateExpiration resets or removes the TTL of an existing key.
// Returns false when the key is missing or the backend does not track
// expiration.
func (c *Cache) UpdateExpiration(key string, expiration time.Duration) bool {
	if atomic.LoadInt32(&c.closed) == 1 || atomic.LoadInt32(&c.initialized) == 0 {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return false
	}
	if updater, ok := c.store.(interface {
		UpdateExpiration(key string, expiration time.Duration) bool
	}); ok {
		return updater.UpdateExpiration(key, expiration)
	}
	return false
}

// SetMaxBytes adjusts the size limit, evicting down to it when the
// backend supports resizing. Takes effect at initialization otherwise.
func (c *Cache) SetMaxBytes(maxBytes int64) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return
	}

	c.mu.Lock()
	c.opts.MaxBytes = maxBytes
	st := c.store
	c.mu.Unlock()

	if st != nil {
		if resizer, ok := st.(interface{ SetMaxBytes(maxBytes int64) }); ok {
			resizer.SetMaxBytes(maxBytes)
		}
	}
}

// AddWithExpiration stores a buffer with a TTL derived from
// expirationTime.
func (c *Cache) AddWithExpiration(key string, value Buffer, expirationTime time.Time) {
	if atomic.LoadInt32(&c.closed) == 1 {
		logrus.Warnf("Attempted to add to a closed cache: %s", key)
		return
	}
	c.ensureInitialized()
	expiration := time.Until(expirationTime)
	if expiration <= 0 {
		logrus.Warnf("Attempted to add key %s with expired time in the past: %v", key, expirationTime)
		return
	}

	if err := c.store.SetWithExpiration(key, value, expiration); err != nil {
		logrus.Warnf("Failed to add key %s to cache: %v", key, err)
	}
}

// Delete key
func (c *Cache) Delete(key string) bool {
	if atomic.LoadInt32(&c.closed) == 1 || atomic.LoadInt32(&c.initialized) == 0 {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return false
	}
	return c.store.Delete(key)
}

// Clear
func (c *Cache) Clear() {
	if atomic.LoadInt32(&c.closed) == 1 || atomic.LoadInt32(&c.initialized) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return
	}
	c.store.Clear()

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Len
func (c *Cache) Len() int {
	if atomic.LoadInt32(&c.closed) == 1 || atomic.LoadInt32(&c.initialized) == 0 {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return 0
	}
	return c.store.Len()
}

// Close releases the underlying store and freezes the cache.
func (c *Cache) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		c.store.Close()
		c.store = nil
	}

	atomic.StoreInt32(&c.initialized, 0)
	logrus.Infof("cache closed,hits:%d,misses:%d", atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses))
}

// Stats exposes cache-level metrics and size.
func (c *Cache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"initialized": atomic.LoadInt32(&c.initialized) == 1,
		"hits":        atomic.LoadInt64(&c.hits),
		"misses":      atomic.LoadInt64(&c.misses),
		"closed":      atomic.LoadInt32(&c.closed) == 1,
	}
	if atomic.LoadInt32(&c.initialized) == 1 {
		stats["size"] = c.Len()

		c.mu.RLock()
		if sizer, ok := c.store.(interface {
			UsedBytes() int64
			MaxBytes() int64
		}); ok {
			stats["used_bytes"] = sizer.UsedBytes()
			stats["max_bytes"] = sizer.MaxBytes()
		}
		c.mu.RUnlock()

		totalRequests := atomic.LoadInt64(&c.hits) + atomic.LoadInt64(&c.misses)
		if totalRequests > 0 {
			stats["hit_rate"] = float64(atomic.LoadInt64(&c.hits)) / float64(totalRequests)
		} else {
			stats["hit_rate"] = 0.0
		}
	}
	return stats
}
