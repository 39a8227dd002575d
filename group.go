package bytekit

import (
	"bytekit/singleflight"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	groupsMu sync.RWMutex
	groups   = make(map[string]*Group)
)

// ErrKeyRequired key must not be empty
var ErrKeyRequired = errors.New("key is required")

// ErrValueRequired value must not be empty
var ErrValueRequired = errors.New("value is required")

// ErrGroupClosed group has been closed
var ErrGroupClosed = errors.New("group closed")

// Getter loads the raw bytes for a key on cache miss.
type Getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, key string) ([]byte, error)

// Get implements Getter.
func (f GetterFunc) Get(ctx context.Context, key string) ([]byte, error) { return f(ctx, key) }

// Group is a named buffer namespace with load-through semantics.
type Group struct {
	name       string
	getter     Getter
	mainCache  *Cache
	loader     *singleflight.Group
	expiration time.Duration // 0 means entries never expire
	closed     int32
	stats      groupStats
}

// groupStats holds the group's counters.
type groupStats struct {
	loads        int64
	localHits    int64
	localMisses  int64
	loaderHits   int64
	loaderErrors int64
	loadDuration int64
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithExpiration sets the TTL applied to loaded and stored buffers.
func WithExpiration(expiration time.Duration) GroupOption {
	return func(g *Group) {
		g.expiration = expiration
	}
}

// WithCacheOptions overrides the main cache configuration.
func WithCacheOptions(opts CacheOptions) GroupOption {
	return func(g *Group) {
		g.mainCache = NewCache(opts)
	}
}

// NewGroup creates a group and registers it globally by name.
func NewGroup(name string, cacheBytes int64, getter Getter, opts ...GroupOption) *Group {
	if getter == nil {
		panic("nil Getter")
	}
	cacheOpts := DefaultCacheOptions()
	cacheOpts.MaxBytes = cacheBytes
	g := &Group{
		name:      name,
		getter:    getter,
		mainCache: NewCache(cacheOpts),
		loader:    &singleflight.Group{},
	}

	for _, opt := range opts {
		opt(g)
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()

	if _, dup := groups[name]; dup {
		panic("duplicate registration of group " + name)
	}

	groups[name] = g
	logrus.Infof("buffer group %s created with cacheBytes= %d,expiration= %s", name, cacheBytes, g.expiration)
	return g
}

// GetGroup returns the group registered under name, or nil.
func GetGroup(name string) *Group {
	groupsMu.RLock()
	defer groupsMu.RUnlock()
	return groups[name]
}

// Get returns the buffer for key, loading it on a local miss.
func (g *Group) Get(ctx context.Context, key string) (Buffer, error) {
	if atomic.LoadInt32(&g.closed) == 1 {
		return Buffer{}, ErrGroupClosed
	}

	if key == "" {
		return Buffer{}, ErrKeyRequired
	}

	if v, ok := g.mainCache.Get(ctx, key); ok {
		atomic.AddInt64(&g.stats.localHits, 1)
		return v, nil
	}
	atomic.AddInt64(&g.stats.localMisses, 1)
	return g.load(ctx, key)
}

// Set stores value under key without going through the getter.
func (g *Group) Set(ctx context.Context, key string, value []byte) error {
	if atomic.LoadInt32(&g.closed) == 1 {
		return ErrGroupClosed
	}

	if key == "" {
		return ErrKeyRequired
	}
	if len(value) == 0 {
		return ErrValueRequired
	}

	view := FromBytes(value)

	if g.expiration > 0 {
		g.mainCache.AddWithExpiration(key, view, time.Now().Add(g.expiration))
	} else {
		g.mainCache.Add(key, view)
	}
	return nil
}

// Delete removes key from the group.
func (g *Group) Delete(ctx context.Context, key string) error {
	if atomic.LoadInt32(&g.closed) == 1 {
		return ErrGroupClosed
	}
	if key == "" {
		return ErrKeyRequired
	}

	g.mainCache.Delete(key)
	return nil
}

// Clear empties the group's cache.
func (g *Group) Clear() {
	if atomic.LoadInt32(&g.closed) == 1 {
		return
	}
	g.mainCache.Clear()
	logrus.Infof("buffer group %s cleared", g.name)
}

// Close shuts the group down and unregisters it.
func (g *Group) Close() error {
	if !atomic.CompareAndSwapInt32(&g.closed, 0, 1) {
		return nil
	}

	if g.mainCache != nil {
		g.mainCache.Close()
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()
	delete(groups, g.name)
	logrus.Infof("buffer group %s closed", g.name)
	return nil
}

// load fetches through the singleflight loader so concurrent misses on
// the same key run the getter once.
func (g *Group) load(ctx context.Context, key string) (value Buffer, err error) {
	startTime := time.Now()
	viewi, err := g.loader.Do(key, func() (interface{}, error) { return g.loadData(ctx, key) })

	loadDuration := time.Since(startTime).Nanoseconds()
	atomic.AddInt64(&g.stats.loadDuration, loadDuration)
	atomic.AddInt64(&g.stats.loads, 1)

	if err != nil {
		atomic.AddInt64(&g.stats.loaderErrors, 1)
		return Buffer{}, err
	}
	view := viewi.(Buffer)

	if g.expiration > 0 {
		g.mainCache.AddWithExpiration(key, view, time.Now().Add(g.expiration))
	} else {
		g.mainCache.Add(key, view)
	}
	return view, nil
}

// loadData runs the getter and wraps the result.
func (g *Group) loadData(ctx context.Context, key string) (interface{}, error) {
	bytes, err := g.getter.Get(ctx, key)
	if err != nil {
		return Buffer{}, fmt.Errorf("getter failed: %v", err)
	}
	atomic.AddInt64(&g.stats.loaderHits, 1)
	return FromBytes(bytes), nil
}

// Stats returns the group's counters and derived rates.
func (g *Group) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"name":          g.name,
		"closed":        atomic.LoadInt32(&g.closed) == 1,
		"expiration":    g.expiration,
		"loads":         atomic.LoadInt64(&g.stats.loads),
		"local_hits":    atomic.LoadInt64(&g.stats.localHits),
		"local_misses":  atomic.LoadInt64(&g.stats.localMisses),
		"loader_hits":   atomic.LoadInt64(&g.stats.loaderHits),
		"loader_errors": atomic.LoadInt64(&g.stats.loaderErrors),
	}
	totalGets := atomic.LoadInt64(&g.stats.localHits) + atomic.LoadInt64(&g.stats.localMisses)
	if totalGets > 0 {
		stats["local_hit_rate"] = float64(atomic.LoadInt64(&g.stats.localHits)) / float64(totalGets)
	}

	totalLoads := atomic.LoadInt64(&g.stats.loaderHits) + atomic.LoadInt64(&g.stats.loaderErrors)
	if totalLoads > 0 {
		stats["loader_hit_rate"] = float64(atomic.LoadInt64(&g.stats.loaderHits)) / float64(totalLoads)
	}

	if g.mainCache != nil {
		cacheStats := g.mainCache.Stats()
		for k, v := range cacheStats {
			stats["cache_"+k] = v
		}
	}
	return stats
}

// ListGroups returns the names of all registered groups.
func ListGroups() []string {
	groupsMu.RLock()
	defer groupsMu.RUnlock()
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	return names
}

// DestroyGroup closes and unregisters the named group.
func DestroyGroup(name string) bool {
	groupsMu.Lock()
	g, ok := groups[name]
	groupsMu.Unlock()

	if ok {
		g.Close()
		logrus.Infof("buffer group %s destroyed", name)
		return true
	}
	return false
}

// DestroyAllGroups closes and unregisters every group.
func DestroyAllGroups() {
	for _, name := range ListGroups() {
		DestroyGroup(name)
	}
}
