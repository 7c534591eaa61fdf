package resolver

import (
	"container/list"
	"context"
	"sync"

	"github.com/dishplayapp/dishplay-server/internal/domain"
)

// ResultCache stores web-search and generated outcomes keyed by normalized
// query key. Implementations must be concurrency-safe.
//
// A cache that errors is treated as a miss by the resolver; it never fails a
// resolution.
type ResultCache interface {
	// Get returns the cached entry for key, or nil when absent.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	// Put stores an entry, replacing any existing one for the same key.
	Put(ctx context.Context, entry domain.CacheEntry) error
}

// DefaultCacheCapacity bounds the in-memory cache when no capacity is
// configured.
const DefaultCacheCapacity = 4096

// LRUCache is a bounded in-memory ResultCache with least-recently-used
// eviction. Get refreshes recency; Put inserts at the front and evicts the
// oldest entry when full.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// NewLRUCache creates a cache holding at most capacity entries.
func NewLRUCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &LRUCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the entry for key, refreshing its recency.
func (c *LRUCache) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	c.order.MoveToFront(elem)
	entry := elem.Value.(domain.CacheEntry)
	return &entry, nil
}

// Put stores an entry, evicting the least recently used one when full.
func (c *LRUCache) Put(_ context.Context, entry domain.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[entry.Key]; ok {
		elem.Value = entry
		c.order.MoveToFront(elem)
		return nil
	}

	c.items[entry.Key] = c.order.PushFront(entry)
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(domain.CacheEntry).Key)
	}
	return nil
}

// Clear drops every cached entry.
func (c *LRUCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
	return nil
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
