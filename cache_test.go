package bytekit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCacheAddAndGet(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	c.Add("k1", FromString("v1"))

	v, ok := c.Get(context.Background(), "k1")
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if got, _ := v.Text(); got != "v1" {
		t.Errorf("Expected 'v1', got '%s'", got)
	}
}

func TestCacheMissTracking(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	c.Add("present", FromString("x"))

	if _, ok := c.Get(context.Background(), "absent"); ok {
		t.Fatal("Get should miss for absent key")
	}
	c.Get(context.Background(), "present")

	stats := c.Stats()
	if stats["hits"].(int64) != 1 {
		t.Errorf("hits = %v, want 1", stats["hits"])
	}
	if stats["misses"].(int64) != 1 {
		t.Errorf("misses = %v, want 1", stats["misses"])
	}
}

func TestCacheExpiration(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	c.AddWithExpiration("short", FromString("v"), time.Now().Add(50*time.Millisecond))

	if _, ok := c.Get(context.Background(), "short"); !ok {
		t.Fatal("value should exist before expiration")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get(context.Background(), "short"); ok {
		t.Error("value should be gone after expiration")
	}
}

func TestCacheExpiredDeadlineRejected(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	c.AddWithExpiration("past", FromString("v"), time.Now().Add(-time.Second))

	if _, ok := c.Get(context.Background(), "past"); ok {
		t.Error("value with a past deadline must not be stored")
	}
}

func TestCacheTTLInspection(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	ctx := context.Background()
	c.AddWithExpiration("short", FromString("v"), time.Now().Add(time.Minute))

	v, ttl, ok := c.GetWithTTL(ctx, "short")
	if !ok {
		t.Fatal("GetWithTTL failed: key not found")
	}
	if got, _ := v.Text(); got != "v" {
		t.Errorf("Expected 'v', got '%s'", got)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("remaining TTL = %v, want in (0, 1m]", ttl)
	}

	c.Add("forever", FromString("x"))
	_, ttl, ok = c.GetWithTTL(ctx, "forever")
	if !ok || ttl != 0 {
		t.Errorf("non-expiring entry: ttl = %v ok = %v, want 0 true", ttl, ok)
	}

	if !c.UpdateExpiration("short", time.Hour) {
		t.Fatal("UpdateExpiration should succeed for existing key")
	}
	_, ttl, _ = c.GetWithTTL(ctx, "short")
	if ttl <= time.Minute {
		t.Errorf("remaining TTL after extension = %v, want > 1m", ttl)
	}

	if c.UpdateExpiration("missing", time.Hour) {
		t.Error("UpdateExpiration should fail for missing key")
	}
}

func TestCacheStatsReportBytes(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	c.Add("k1", FromString("0123456789"))

	stats := c.Stats()
	if stats["used_bytes"].(int64) != 12 {
		t.Errorf("used_bytes = %v, want 12", stats["used_bytes"])
	}
	if stats["max_bytes"].(int64) != 8*1024*1024 {
		t.Errorf("max_bytes = %v, want default limit", stats["max_bytes"])
	}
}

func TestCacheSetMaxBytesEvicts(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	defer c.Close()

	ctx := context.Background()
	c.Add("k1", FromString("0123456789"))
	c.Add("k2", FromString("0123456789"))

	// Shrinking below the combined footprint evicts the oldest entry.
	c.SetMaxBytes(15)

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("k1 should have been evicted by the shrink")
	}
	if _, ok := c.Get(ctx, "k2"); !ok {
		t.Error("k2 should survive the shrink")
	}
}

func TestCacheConcurrentGetAndClose(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	c.Add("k", FromString("v"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Get(context.Background(), "k")
				c.GetWithTTL(context.Background(), "k")
				c.Len()
				c.Delete("other")
				c.Stats()
			}
		}()
	}

	// Closing mid-flight must never panic a reader.
	c.Close()
	wg.Wait()
}

func TestCacheClosed(t *testing.T) {
	c := NewCache(DefaultCacheOptions())
	c.Add("k", FromString("v"))
	c.Close()

	c.Add("k2", FromString("v2"))
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("Get on a closed cache must miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len on a closed cache = %d, want 0", c.Len())
	}

	// Close is idempotent.
	c.Close()
}
