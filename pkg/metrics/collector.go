package metrics

import (
	"time"

	"github.com/swstevens/agentic-cag-system/pkg/cache"
)

// SizeCounter is satisfied by any store that can report how many
// records it holds without arguments (vectorindex.Index). The catalog's
// and the deck store's Count methods take arguments, so callers wrap
// them in a closure to satisfy this interface — see cmd/cagserver's
// countFunc.
type SizeCounter interface {
	Count() (int, error)
}

// CacheReporter is satisfied by cache.Cache.
type CacheReporter interface {
	Stats() cache.Stats
}

// Collector periodically samples cache, catalog, deck-store, and
// embedding sizes into the package-level gauges. The LLM, orchestrator,
// and API counters and histograms are updated inline by their owning
// components instead; the cache hit/miss/eviction counters and the
// catalog, vector-search, and deck-store duration histograms are
// registered but no component updates them.
type Collector struct {
	cache      CacheReporter
	catalog    SizeCounter
	decks      SizeCounter
	embeddings SizeCounter
	interval   time.Duration
	stopCh     chan struct{}
}

// NewCollector builds a Collector. Any of catalog, decks, and embeddings
// may be nil when that backend is not configured; the corresponding
// gauge is then left untouched.
func NewCollector(c CacheReporter, catalogCount, decks, embeddings SizeCounter) *Collector {
	return &Collector{
		cache:      c,
		catalog:    catalogCount,
		decks:      decks,
		embeddings: embeddings,
		interval:   15 * time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Start begins periodic collection in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector's background goroutine.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.cache != nil {
		stats := c.cache.Stats()
		CacheSize.WithLabelValues("total").Set(float64(stats.Size))
	}
	if c.catalog != nil {
		if n, err := c.catalog.Count(); err == nil {
			CatalogCardsTotal.Set(float64(n))
		}
	}
	if c.decks != nil {
		if n, err := c.decks.Count(); err == nil {
			DecksStoredTotal.Set(float64(n))
		}
	}
	if c.embeddings != nil {
		if n, err := c.embeddings.Count(); err == nil {
			VectorEmbeddingsTotal.Set(float64(n))
		}
	}
}
