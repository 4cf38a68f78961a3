// Package cache provides the process-local caches of the engine and the
// invalidation plumbing that keeps them in step with database writes.
package cache

import (
	"container/list"
	"strings"
	"sync"
)

// LRU is a fixed-capacity least-recently-used cache keyed by string.
type LRU[V any] struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type entry[V any] struct {
	key   string
	value V
}

// NewLRU creates a cache holding at most capacity entries. Capacity below 1 is treated as 1.
func NewLRU[V any](capacity int) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached value for key if present.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Set stores value for key, evicting the oldest entry if at capacity.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[V]).value = value
		return
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}
}

// Invalidate drops key.
func (c *LRU[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// InvalidatePrefix drops every key starting with prefix and returns how many were dropped.
func (c *LRU[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.order.Remove(elem)
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Purge empties the cache.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
