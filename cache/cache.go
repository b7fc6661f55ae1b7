// Package cache provides a sharded, byte-budgeted LRU used to reuse
// rasterized stroke tiles across identical content. Keys carry a content
// hash and a zoom bucket, so a pasted duplicate of a stroke can paint from
// the tiles its twin already rendered.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// shardCount is a power of two so shard selection is a bitwise AND.
	shardCount = 16
	shardMask  = shardCount - 1

	// DefaultBudget is the default total byte budget, split across shards.
	DefaultBudget = 64 << 20
)

// Hasher computes a shard-selection hash for a key.
type Hasher[K any] func(K) uint64

// Key identifies a rasterization result: the stroke's content hash plus
// the zoom bucket it was rendered for. Translation is excluded from
// content hashes, so identical strokes at different positions share tiles.
type Key struct {
	Content uint64
	Zoom    int32
}

// ZoomBucket quantizes a zoom factor into the cache's zoom granularity.
// Buckets are 1% wide to match the render scale tolerance.
func ZoomBucket(zoom float64) int32 {
	return int32(zoom * 100)
}

// KeyHasher mixes a Key for shard selection.
func KeyHasher(k Key) uint64 {
	h := fnv.New64a()
	var buf [12]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(k.Content >> (8 * i))
	}
	for i := 0; i < 4; i++ {
		buf[8+i] = byte(uint32(k.Zoom) >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// Cache is a sharded LRU bounded by a byte budget instead of an entry
// count, since tile payloads vary by orders of magnitude. Each shard has
// its own lock; statistics are atomic.
type Cache[K comparable, V any] struct {
	shards [shardCount]*shard[K, V]
	hasher Hasher[K]
	cost   func(V) int
	budget int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V] // most recent
	tail    *entry[K, V] // eviction end
	used    int
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	cost       int
	prev, next *entry[K, V]
}

// Stats is a point-in-time view of cache behavior.
type Stats struct {
	Len       int
	UsedBytes int
	Budget    int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New creates a cache with the given total byte budget. The cost function
// reports an entry's size in bytes; entries larger than a shard's budget
// are never admitted. A budget <= 0 selects DefaultBudget.
func New[K comparable, V any](budget int, hasher Hasher[K], cost func(V) int) *Cache[K, V] {
	if budget <= 0 {
		budget = DefaultBudget
	}
	c := &Cache[K, V]{hasher: hasher, cost: cost, budget: budget}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{entries: make(map[K]*entry[K, V])}
	}
	return c
}

func (c *Cache[K, V]) getShard(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// perShardBudget rounds up so the shard budgets cover the total.
func (c *Cache[K, V]) perShardBudget() int {
	return (c.budget + shardCount - 1) / shardCount
}

// Get returns the cached value for key, refreshing its recency on a hit.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	s := c.getShard(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.moveToFront(e)
	v := e.value
	s.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// Set stores value under key, evicting least-recently-used entries until
// the shard fits its budget. Values are stored as-is and must be treated
// as read-only once cached. Oversized values are silently not admitted.
func (c *Cache[K, V]) Set(key K, value V) {
	cost := c.cost(value)
	limit := c.perShardBudget()
	if cost > limit {
		return
	}

	s := c.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.used += cost - e.cost
		e.value = value
		e.cost = cost
		s.moveToFront(e)
	} else {
		e := &entry[K, V]{key: key, value: value, cost: cost}
		s.entries[key] = e
		s.pushFront(e)
		s.used += cost
	}

	for s.used > limit && s.tail != nil {
		old := s.tail
		s.unlink(old)
		delete(s.entries, old.key)
		s.used -= old.cost
		c.evictions.Add(1)
	}
}

// Delete removes the entry for key, reporting whether it existed.
func (c *Cache[K, V]) Delete(key K) bool {
	s := c.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.unlink(e)
	delete(s.entries, key)
	s.used -= e.cost
	return true
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[K]*entry[K, V])
		s.head, s.tail = nil, nil
		s.used = 0
		s.mu.Unlock()
	}
}

// Len returns the total entry count across shards.
func (c *Cache[K, V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// UsedBytes returns the summed cost of all cached entries.
func (c *Cache[K, V]) UsedBytes() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.used
		s.mu.Unlock()
	}
	return n
}

// Stats returns current counters and sizes.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		UsedBytes: c.UsedBytes(),
		Budget:    c.budget,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (s *shard[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *shard[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (s *shard[K, V]) moveToFront(e *entry[K, V]) {
	if s.head == e {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}
