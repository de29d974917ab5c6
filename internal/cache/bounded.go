// Package cache holds the in-process bounded cache and the Redis client wrapper.
package cache

import (
	"container/list"
	"sync"
)

// Bounded is a fixed-capacity LRU map safe for concurrent use.
// When a clone function is set, values are copied on Put and on Get so
// callers never share backing storage with the cache.
type Bounded[V any] struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	capacity int
	clone    func(V) V

	hits      uint64
	misses    uint64
	evictions uint64
}

type boundedEntry[V any] struct {
	key   string
	value V
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// NewBounded creates a cache holding at most capacity entries (minimum 1).
func NewBounded[V any](capacity int, clone func(V) V) *Bounded[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[V]{
		entries:  make(map[string]*list.Element, capacity),
		lru:      list.New(),
		capacity: capacity,
		clone:    clone,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *Bounded[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	c.lru.MoveToFront(el)
	c.hits++
	return c.copy(el.Value.(*boundedEntry[V]).value), true
}

// Put stores value under key, evicting the least recently used entry when full.
func (c *Bounded[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value = c.copy(value)
	if el, ok := c.entries[key]; ok {
		el.Value.(*boundedEntry[V]).value = value
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.capacity {
		c.evictOldest()
	}

	c.entries[key] = c.lru.PushFront(&boundedEntry[V]{key: key, value: value})
}

// Evict removes key and reports whether it was present.
func (c *Bounded[V]) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.lru.Remove(el)
	delete(c.entries, key)
	return true
}

func (c *Bounded[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Bounded[V]) Capacity() int {
	return c.capacity
}

func (c *Bounded[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// caller holds c.mu
func (c *Bounded[V]) evictOldest() {
	el := c.lru.Back()
	if el == nil {
		return
	}
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*boundedEntry[V]).key)
	c.evictions++
}

func (c *Bounded[V]) copy(v V) V {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// CloneFloat32s copies a vector; nil stays nil.
func CloneFloat32s(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
