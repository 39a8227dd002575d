package store

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type storeTestValue struct {
	data string
}

func (t storeTestValue) Len() int {
	return len(t.data)
}

func TestNewStore(t *testing.T) {
	for _, cacheType := range []CacheType{LRU, LRU2} {
		options := NewOptions()
		options.MaxBytes = 100
		cache := NewStore(cacheType, options)
		if cache == nil {
			t.Fatalf("NewStore(%s) should return a valid cache", cacheType)
		}

		testValue := storeTestValue{data: "test_store_value"}
		if err := cache.Set("test_store_key", testValue); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		value, ok := cache.Get("test_store_key")
		if !ok {
			t.Fatalf("Get failed on %s: key not found", cacheType)
		}
		if tv, ok := value.(storeTestValue); !ok || tv.data != "test_store_value" {
			t.Errorf("unexpected value on %s: %v", cacheType, value)
		}

		cache.Close()
	}
}

func TestNewStoreDefaultsToLRU(t *testing.T) {
	cache := NewStore(CacheType("unknown"), NewOptions())
	defer cache.Close()

	if _, ok := cache.(*lruCache); !ok {
		t.Error("unknown cache type should fall back to LRU")
	}
}

func TestNewStoreWithExpiration(t *testing.T) {
	options := NewOptions()
	options.MaxBytes = 100
	options.CleanupInterval = 10 * time.Millisecond
	cache := NewStore(LRU, options)
	defer cache.Close()

	err := cache.SetWithExpiration("exp_store_test", storeTestValue{data: "exp_store_value"}, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("SetWithExpiration failed: %v", err)
	}

	if _, ok := cache.Get("exp_store_test"); !ok {
		t.Error("Value should exist immediately after setting")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := cache.Get("exp_store_test"); ok {
		t.Error("Value should be expired and not retrievable")
	}
}

func TestLRU2PromotionOnSecondTouch(t *testing.T) {
	options := NewOptions()
	options.MaxBytes = 1024
	cache := NewStore(LRU2, options).(*lru2Cache)
	defer cache.Close()

	cache.Set("k", storeTestValue{data: "v"})

	if _, ok := cache.candidates["k"]; !ok {
		t.Fatal("first touch should land on the candidate list")
	}

	if _, ok := cache.Get("k"); !ok {
		t.Fatal("Get failed: key not found")
	}

	if _, ok := cache.mainItems["k"]; !ok {
		t.Error("second touch should promote to the main list")
	}
	if _, ok := cache.candidates["k"]; ok {
		t.Error("promoted key should leave the candidate list")
	}
}

func TestLRU2EvictsCandidatesFirst(t *testing.T) {
	var evicted []string
	options := NewOptions()
	options.MaxBytes = 30
	options.OnEvicted = func(key string, value Value) {
		evicted = append(evicted, key)
	}
	cache := NewStore(LRU2, options).(*lru2Cache)
	defer cache.Close()

	// k1 is promoted to the main list; k2 and k3 stay candidates.
	cache.Set("k1", storeTestValue{data: "0123456789"})
	cache.Get("k1")
	cache.Set("k2", storeTestValue{data: "0123456789"})
	cache.Set("k3", storeTestValue{data: "0123456789"})

	if _, ok := cache.Get("k1"); !ok {
		t.Error("promoted key should survive candidate eviction")
	}
	if len(evicted) == 0 || evicted[0] != "k2" {
		t.Errorf("evicted = %v, want k2 evicted first", evicted)
	}
}

func TestLRU2ExpirationUnsupportedWarns(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	options := NewOptions()
	options.MaxBytes = 100
	cache := NewStore(LRU2, options)
	defer cache.Close()

	err := cache.SetWithExpiration("ttl_key", storeTestValue{data: "v"}, time.Minute)
	if err != nil {
		t.Fatalf("SetWithExpiration failed: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatal("expected a warning when the backend ignores a TTL")
	}
	if !strings.Contains(entry.Message, "ttl_key") {
		t.Errorf("warning should name the key, got %q", entry.Message)
	}

	// The value is stored regardless.
	if _, ok := cache.Get("ttl_key"); !ok {
		t.Error("value should be stored despite the ignored TTL")
	}

	// A zero expiration stays quiet.
	hook.Reset()
	cache.Set("plain_key", storeTestValue{data: "v"})
	if hook.LastEntry() != nil {
		t.Error("Set without TTL should not warn")
	}
}

func TestStoreDelete(t *testing.T) {
	options := NewOptions()
	options.MaxBytes = 100
	cache := NewStore(LRU2, options)
	defer cache.Close()

	testValue := storeTestValue{data: "delete_store_value"}
	if err := cache.Set("delete_store_test", testValue); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if !cache.Delete("delete_store_test") {
		t.Error("Delete should return true when key exists")
	}
	if _, ok := cache.Get("delete_store_test"); ok {
		t.Error("Value should be deleted after Delete call")
	}
}
