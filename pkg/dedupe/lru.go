package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is the in-process default: a bounded set of recent fingerprints
// with least-recently-used eviction. Safe for concurrent use.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	order    *list.List               // front = most recent
	entries  map[string]*list.Element // fingerprint -> node holding it
}

// NewLRUCache builds a cache with the given capacity and window. Non-positive
// arguments fall back to the package defaults.
func NewLRUCache(capacity int, window time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &LRUCache{
		capacity: capacity,
		window:   window,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Seen implements Cache.
func (c *LRUCache) Seen(text string, now time.Time) bool {
	fp := Fingerprint(text, now, c.window)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[fp]; ok {
		c.order.MoveToFront(el)
		return true
	}

	c.entries[fp] = c.order.PushFront(fp)
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(string))
	}
	return false
}

// Len returns the current number of tracked fingerprints.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
