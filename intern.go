package bytekit

import (
	"sync"
	"sync/atomic"
)

// Intern deduplicates equal buffers, returning one canonical Buffer per
// distinct byte sequence. Buckets are keyed by Buffer.Hash with an Equal
// check on collision, so hash collisions never conflate distinct
// sequences.
type Intern struct {
	mu      sync.RWMutex
	buckets map[uint64][]Buffer
	hits    int64
	misses  int64
}

// NewIntern creates an empty pool.
func NewIntern() *Intern {
	return &Intern{
		buckets: make(map[uint64][]Buffer),
	}
}

// Canonical returns the pool's representative for b, adding b as the
// representative if no equal buffer was seen before.
func (in *Intern) Canonical(b Buffer) Buffer {
	h := b.Hash()

	in.mu.RLock()
	for _, cand := range in.buckets[h] {
		if cand.Equal(b) {
			in.mu.RUnlock()
			atomic.AddInt64(&in.hits, 1)
			return cand
		}
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	// Re-check under the write lock.
	for _, cand := range in.buckets[h] {
		if cand.Equal(b) {
			atomic.AddInt64(&in.hits, 1)
			return cand
		}
	}
	in.buckets[h] = append(in.buckets[h], b)
	atomic.AddInt64(&in.misses, 1)
	return b
}

// Len returns the number of distinct buffers held.
func (in *Intern) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	n := 0
	for _, bucket := range in.buckets {
		n += len(bucket)
	}
	return n
}

// Stats exposes pool-level metrics.
func (in *Intern) Stats() map[string]interface{} {
	hits := atomic.LoadInt64(&in.hits)
	misses := atomic.LoadInt64(&in.misses)
	stats := map[string]interface{}{
		"hits":     hits,
		"misses":   misses,
		"distinct": in.Len(),
	}
	if total := hits + misses; total > 0 {
		stats["hit_rate"] = float64(hits) / float64(total)
	}
	return stats
}

// Clear drops all canonical buffers and resets the counters.
func (in *Intern) Clear() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.buckets = make(map[uint64][]Buffer)
	atomic.StoreInt64(&in.hits, 0)
	atomic.StoreInt64(&in.misses, 0)
}
