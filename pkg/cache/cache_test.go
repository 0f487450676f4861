package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetPutEvict(t *testing.T) {
	c := New(Config{Kind: KindLRU, LRUSize: 2})

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Put("c", 3) // evicts b, the LRU since a was just touched

	_, ok = c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("c")
	assert.True(t, ok)

	c.Evict("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestLRUClearResetsStats(t *testing.T) {
	c := New(Config{Kind: KindLRU, LRUSize: 10})
	c.Put("a", 1)
	c.Get("a")
	c.Get("missing")
	c.Clear()

	stats := c.Stats()
	assert.Equal(t, Stats{}, stats)
}

func TestTieredReadsHotThenWarmThenCold(t *testing.T) {
	c := New(Config{Kind: KindTiered, L1Size: 2, L2Size: 2, L3Size: 2, PromotionThreshold: 5})
	c.PutTier("cold-key", "cold-val", TierCold)

	v, ok := c.Get("cold-key")
	require.True(t, ok)
	assert.Equal(t, "cold-val", v)
}

func TestTieredPromotesAfterThreshold(t *testing.T) {
	c := New(Config{Kind: KindTiered, L1Size: 5, L2Size: 5, L3Size: 5, PromotionThreshold: 2})
	c.PutTier("k", "v", TierCold)

	for i := 0; i < 2; i++ {
		_, ok := c.Get("k")
		require.True(t, ok)
	}
	// third read crosses the threshold and promotes cold -> warm
	_, ok := c.Get("k")
	require.True(t, ok)

	tiered := c.(*Tiered)
	tiered.tiers[2].mu.Lock()
	_, stillCold := tiered.tiers[2].index["k"]
	tiered.tiers[2].mu.Unlock()
	assert.False(t, stillCold, "key should have been promoted out of the cold tier")

	tiered.tiers[1].mu.Lock()
	_, nowWarm := tiered.tiers[1].index["k"]
	tiered.tiers[1].mu.Unlock()
	assert.True(t, nowWarm, "key should now be in the warm tier")
}

func TestTieredPutDefaultsToWarm(t *testing.T) {
	c := New(Config{Kind: KindTiered, L1Size: 2, L2Size: 2, L3Size: 2, PromotionThreshold: 5})
	c.Put("x", 42)

	tiered := c.(*Tiered)
	tiered.tiers[1].mu.Lock()
	_, ok := tiered.tiers[1].index["x"]
	tiered.tiers[1].mu.Unlock()
	assert.True(t, ok)
}

func TestTieredMissIncrementsStats(t *testing.T) {
	c := New(Config{Kind: KindTiered})
	_, ok := c.Get("nope")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestHitRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		expected float64
	}{
		{name: "no reads", stats: Stats{}, expected: 0},
		{name: "all hits", stats: Stats{Hits: 10}, expected: 1},
		{name: "half hits", stats: Stats{Hits: 5, Misses: 5}, expected: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.stats.HitRate(), 1e-9)
		})
	}
}
