package cache

import "sync/atomic"

// LRU is the single-tier variant of Cache, implementing the same
// contract as Tiered without promotion semantics.
type LRU struct {
	t *tier

	hits      uint64
	misses    uint64
	evictions uint64
}

func newLRU(size int) *LRU {
	return &LRU{t: newTierStore(size)}
}

// Get returns the value for key, promoting it to most-recently-used.
func (c *LRU) Get(key string) (any, bool) {
	c.t.mu.Lock()
	e, ok := c.t.get(key)
	c.t.mu.Unlock()
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	atomic.AddUint64(&c.hits, 1)
	return e.val, true
}

// Put inserts key/val, evicting the LRU entry if the cache is full.
func (c *LRU) Put(key string, val any) {
	c.t.mu.Lock()
	victim := c.t.put(key, val)
	c.t.mu.Unlock()
	if victim != nil {
		atomic.AddUint64(&c.evictions, 1)
	}
}

// PutTier ignores the tier argument since LRU has only one level; it
// exists so LRU satisfies Cache.
func (c *LRU) PutTier(key string, val any, _ Tier) {
	c.Put(key, val)
}

// Evict removes key.
func (c *LRU) Evict(key string) {
	c.t.mu.Lock()
	c.t.remove(key)
	c.t.mu.Unlock()
}

// Clear empties the cache and resets statistics.
func (c *LRU) Clear() {
	c.t.mu.Lock()
	c.t.clear()
	c.t.mu.Unlock()
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
	atomic.StoreUint64(&c.evictions, 0)
}

// Stats reports cumulative hits/misses/evictions and current size.
func (c *LRU) Stats() Stats {
	c.t.mu.Lock()
	size := c.t.len()
	c.t.mu.Unlock()
	return Stats{
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
		Size:      size,
	}
}

var _ Cache = (*LRU)(nil)
