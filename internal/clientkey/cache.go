package clientkey

import "sync"

// cacheKey identifies one memoized normalization result.
type cacheKey struct {
	ip   string
	bits int
}

// Cache is a bounded memoization cache with FIFO eviction.
//
// Entries are keyed by (raw address, subnet size) and never mutated after
// insertion. When the cache is full, adding a new entry evicts exactly the
// oldest-inserted one; insertion order is tracked explicitly in a queue
// rather than relying on any container's iteration order.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]string
	order    []cacheKey

	hits   int64
	misses int64
}

// NewCache creates a cache holding at most capacity entries. A capacity
// below 1 falls back to DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}

	return &Cache{
		capacity: capacity,
		entries:  make(map[cacheKey]string, capacity),
	}
}

// Get returns the memoized result for (ip, bits), if present.
func (c *Cache) Get(ip string, bits int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[cacheKey{ip: ip, bits: bits}]
	if ok {
		c.hits++
	} else {
		c.misses++
	}

	return value, ok
}

// Add memoizes the result for (ip, bits), evicting the oldest entry when
// the cache is full. If the key is already present the call is a no-op:
// concurrent callers racing to compute the same key all produce the same
// value, so the first insert wins and the queue stays duplicate-free.
func (c *Cache) Add(ip string, bits int, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{ip: ip, bits: bits}
	if _, ok := c.entries[key]; ok {
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = value
	c.order = append(c.order, key)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns the cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}
