package cache

import (
	"sync/atomic"
)

// Tiered implements the three-level hot/warm/cold promotion cache of
// spec.md's tiered-cache design: reads check L1 then L2 then L3; hits in
// a colder tier accumulate a per-key counter and are promoted once the
// counter crosses the threshold, cascading the hotter tier's own LRU
// victim down a level.
type Tiered struct {
	tiers     [3]*tier
	threshold int

	hits      uint64
	misses    uint64
	evictions uint64
}

func newTiered(l1, l2, l3, threshold int) *Tiered {
	return &Tiered{
		tiers: [3]*tier{
			newTierStore(l1),
			newTierStore(l2),
			newTierStore(l3),
		},
		threshold: threshold,
	}
}

// Get checks L1, then L2, then L3, promoting on repeated colder-tier
// hits.
func (c *Tiered) Get(key string) (any, bool) {
	for level := 0; level < 3; level++ {
		t := c.tiers[level]
		t.mu.Lock()
		e, ok := t.get(key)
		if !ok {
			t.mu.Unlock()
			continue
		}
		val := e.val
		if level == 0 {
			t.mu.Unlock()
			atomic.AddUint64(&c.hits, 1)
			return val, true
		}
		e.accesses++
		promote := e.accesses > c.threshold
		if promote {
			t.remove(key)
		}
		t.mu.Unlock()

		if promote {
			c.promote(level, key, val)
		}
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	return nil, false
}

// promote moves key/val up one tier from level, cascading the hotter
// tier's evicted entry down into the tier it vacated.
func (c *Tiered) promote(level int, key string, val any) {
	target := level - 1
	hotter := c.tiers[target]
	hotter.mu.Lock()
	victim := hotter.put(key, val)
	hotter.mu.Unlock()

	if victim != nil {
		colder := c.tiers[level]
		colder.mu.Lock()
		colder.put(victim.key, victim.val)
		colder.mu.Unlock()
	}
}

// Put inserts into L2 (warm), the documented default tier.
func (c *Tiered) Put(key string, val any) {
	c.PutTier(key, val, TierWarm)
}

// PutTier inserts into the given tier explicitly, evicting that tier's
// LRU victim into the next colder tier if present.
func (c *Tiered) PutTier(key string, val any, level Tier) {
	idx := int(level)
	if idx < 0 || idx > 2 {
		idx = int(TierWarm)
	}
	t := c.tiers[idx]
	t.mu.Lock()
	victim := t.put(key, val)
	t.mu.Unlock()

	if victim != nil {
		atomic.AddUint64(&c.evictions, 1)
		if idx < 2 {
			colder := c.tiers[idx+1]
			colder.mu.Lock()
			colder.put(victim.key, victim.val)
			colder.mu.Unlock()
		}
	}
}

// Evict removes key from whichever tier holds it.
func (c *Tiered) Evict(key string) {
	for _, t := range c.tiers {
		t.mu.Lock()
		t.remove(key)
		t.mu.Unlock()
	}
}

// Clear empties every tier and resets statistics.
func (c *Tiered) Clear() {
	for _, t := range c.tiers {
		t.mu.Lock()
		t.clear()
		t.mu.Unlock()
	}
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
	atomic.StoreUint64(&c.evictions, 0)
}

// Stats reports cumulative hits/misses/evictions and the current total
// size across all tiers.
func (c *Tiered) Stats() Stats {
	size := 0
	for _, t := range c.tiers {
		t.mu.Lock()
		size += t.len()
		t.mu.Unlock()
	}
	return Stats{
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
		Size:      size,
	}
}

var _ Cache = (*Tiered)(nil)
