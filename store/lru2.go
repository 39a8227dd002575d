package store

import (
	"container/list"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// lru2Cache implements LRU-2: new keys land on a candidate list and are
// promoted to the main list on their second touch, so one-shot keys
// never displace the working set.
type lru2Cache struct {
	mu            sync.RWMutex
	mainList      *list.List
	candidateList *list.List
	mainItems     map[string]*list.Element
	candidates    map[string]*list.Element
	maxBytes      int64
	usedBytes     int64
	onEvicted     func(key string, value Value)
}

// lru2Entry
type lru2Entry struct {
	key   string
	value Value
	count int
}

func newLRU2Cache(options Options) *lru2Cache {
	return &lru2Cache{
		mainList:      list.New(),
		candidateList: list.New(),
		mainItems:     make(map[string]*list.Element),
		candidates:    make(map[string]*list.Element),
		maxBytes:      options.MaxBytes,
		onEvicted:     options.OnEvicted,
	}
}

// Get looks the key up in the main list first, then promotes a
// candidate on its second touch.
func (c *lru2Cache) Get(key string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.mainItems[key]; ok {
		c.mainList.MoveToBack(elem)
		return elem.Value.(*lru2Entry).value, true
	}

	if elem, ok := c.candidates[key]; ok {
		entry := elem.Value.(*lru2Entry)
		c.candidateList.Remove(elem)
		delete(c.candidates, key)

		entry.count++
		c.mainItems[key] = c.mainList.PushBack(entry)

		return entry.value, true
	}

	return nil, false
}

// Set
func (c *lru2Cache) Set(key string, value Value) error {
	return c.SetWithExpiration(key, value, 0)
}

// SetWithExpiration stores a value; the LRU-2 backend does not track
// per-key TTL, a nonzero expiration is ignored with a warning.
func (c *lru2Cache) SetWithExpiration(key string, value Value, expiration time.Duration) error {
	if value == nil {
		c.Delete(key)
		return nil
	}
	if expiration > 0 {
		logrus.Warnf("lru2 store does not support TTL, ignoring expiration for key %s", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.mainItems[key]; ok {
		entry := elem.Value.(*lru2Entry)
		c.usedBytes -= int64(entry.value.Len() + len(key))
		entry.value = value
		c.usedBytes += int64(value.Len() + len(key))
		c.mainList.MoveToBack(elem)
	} else if elem, ok := c.candidates[key]; ok {
		// Second touch via Set also promotes.
		entry := elem.Value.(*lru2Entry)
		c.usedBytes -= int64(entry.value.Len() + len(key))
		entry.value = value
		entry.count++
		c.candidateList.Remove(elem)
		delete(c.candidates, key)
		c.mainItems[key] = c.mainList.PushBack(entry)
		c.usedBytes += int64(value.Len() + len(key))
	} else {
		entry := &lru2Entry{
			key:   key,
			value: value,
			count: 1,
		}
		c.candidates[key] = c.candidateList.PushBack(entry)
		c.usedBytes += int64(value.Len() + len(key))
	}

	c.evictIfNeeded()

	return nil
}

// Delete
func (c *lru2Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.mainItems[key]; ok {
		c.removeItem(elem, true)
		delete(c.mainItems, key)
		return true
	}

	if elem, ok := c.candidates[key]; ok {
		c.removeItem(elem, false)
		delete(c.candidates, key)
		return true
	}

	return false
}

// removeItem unlinks an entry and triggers onEvicted.
func (c *lru2Cache) removeItem(elem *list.Element, isMain bool) {
	entry := elem.Value.(*lru2Entry)
	if isMain {
		c.mainList.Remove(elem)
	} else {
		c.candidateList.Remove(elem)
	}

	c.usedBytes -= int64(entry.value.Len() + len(entry.key))

	if c.onEvicted != nil {
		c.onEvicted(entry.key, entry.value)
	}
}

// Clear
func (c *lru2Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.mainItems {
		c.removeItem(elem, true)
		delete(c.mainItems, key)
	}

	for key, elem := range c.candidates {
		c.removeItem(elem, false)
		delete(c.candidates, key)
	}
}

// evictIfNeeded drops candidates first, then the oldest main entries,
// until the cache fits in maxBytes.
func (c *lru2Cache) evictIfNeeded() {
	if c.maxBytes <= 0 {
		return
	}
	for c.usedBytes > c.maxBytes && c.candidateList.Len() > 0 {
		elem := c.candidateList.Front()
		entry := elem.Value.(*lru2Entry)
		c.removeItem(elem, false)
		delete(c.candidates, entry.key)
	}
	for c.usedBytes > c.maxBytes && c.mainList.Len() > 0 {
		elem := c.mainList.Front()
		entry := elem.Value.(*lru2Entry)
		c.removeItem(elem, true)
		delete(c.mainItems, entry.key)
	}
}

// Len
func (c *lru2Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mainItems) + len(c.candidates)
}

// Close
func (c *lru2Cache) Close() {
	c.Clear()
}
