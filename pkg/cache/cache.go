// Package cache provides the tiered hot/warm/cold lookup cache that sits
// in front of the catalog and vector index, plus a simpler single-tier
// LRU variant behind the same interface.
package cache

import (
	"container/list"
	"sync"
)

// Kind selects which Cache implementation New constructs.
type Kind string

const (
	KindTiered Kind = "tiered"
	KindLRU    Kind = "lru"
)

// Tier names a promotion level in the Tiered cache. Put without an
// explicit tier targets TierWarm.
type Tier int

const (
	TierHot Tier = iota
	TierWarm
	TierCold
)

// Stats summarizes cache activity for observability.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// HitRate returns Hits/(Hits+Misses), or 0 when there have been no
// lookups yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the abstract contract shared by Tiered and LRU so callers
// never branch on which implementation they hold.
type Cache interface {
	Get(key string) (any, bool)
	Put(key string, val any)
	PutTier(key string, val any, tier Tier)
	Evict(key string)
	Clear()
	Stats() Stats
}

// Config parameterizes New.
type Config struct {
	Kind Kind

	// Tiered-only fields.
	L1Size              int
	L2Size              int
	L3Size              int
	PromotionThreshold  int

	// LRU-only field.
	LRUSize int
}

// New constructs a Cache of the requested Kind, applying defaults for
// any zero-valued size fields.
func New(cfg Config) Cache {
	switch cfg.Kind {
	case KindLRU:
		size := cfg.LRUSize
		if size <= 0 {
			size = 1000
		}
		return newLRU(size)
	default:
		l1, l2, l3, thr := cfg.L1Size, cfg.L2Size, cfg.L3Size, cfg.PromotionThreshold
		if l1 <= 0 {
			l1 = 200
		}
		if l2 <= 0 {
			l2 = 1000
		}
		if l3 <= 0 {
			l3 = 10000
		}
		if thr <= 0 {
			thr = 5
		}
		return newTiered(l1, l2, l3, thr)
	}
}

type entry struct {
	key      string
	val      any
	accesses int
}

// tier is a bounded LRU ring: a doubly linked list for recency order and
// a map for O(1) lookup, guarded by its own mutex so tiers never block
// each other.
type tier struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newTierStore(capacity int) *tier {
	return &tier{
		capacity: capacity,
		order:    list.New(),
		index:    map[string]*list.Element{},
	}
}

// get returns the entry and moves it to the front (most recent). The
// caller must hold t.mu.
func (t *tier) get(key string) (*entry, bool) {
	el, ok := t.index[key]
	if !ok {
		return nil, false
	}
	t.order.MoveToFront(el)
	return el.Value.(*entry), true
}

// put inserts or overwrites key, evicting the LRU victim when over
// capacity. Returns the evicted entry, if any. The caller must hold t.mu.
func (t *tier) put(key string, val any) *entry {
	if el, ok := t.index[key]; ok {
		t.order.MoveToFront(el)
		el.Value.(*entry).val = val
		return nil
	}
	e := &entry{key: key, val: val}
	el := t.order.PushFront(e)
	t.index[key] = el
	if t.order.Len() > t.capacity {
		back := t.order.Back()
		if back != nil {
			t.order.Remove(back)
			victim := back.Value.(*entry)
			delete(t.index, victim.key)
			return victim
		}
	}
	return nil
}

func (t *tier) remove(key string) {
	if el, ok := t.index[key]; ok {
		t.order.Remove(el)
		delete(t.index, key)
	}
}

func (t *tier) clear() {
	t.order.Init()
	t.index = map[string]*list.Element{}
}

func (t *tier) len() int {
	return t.order.Len()
}
