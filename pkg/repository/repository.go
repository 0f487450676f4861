// Package repository is the unified card lookup facade consulted by the
// agent builder and modification executor: cache first, catalog/vector
// index on miss, write-through on catalog hits.
package repository

import (
	"context"
	"strings"

	"github.com/swstevens/agentic-cag-system/pkg/cache"
	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/log"
	"github.com/swstevens/agentic-cag-system/pkg/vectorindex"
)

// Catalog narrows *catalog.Store to the operations the repository needs,
// so tests can substitute a fake.
type Catalog interface {
	GetByID(ctx context.Context, id string) (card.Card, error)
	GetByName(ctx context.Context, name string) (card.Card, error)
	Search(ctx context.Context, f catalog.Filters, limit int) ([]card.Card, error)
}

// VectorIndex narrows *vectorindex.Index to the operation the repository
// needs for semantic search.
type VectorIndex interface {
	Search(queryText string, k int, filter vectorindex.SearchFilter) ([]vectorindex.Hit, error)
}

// Repository is the facade combining a Cache, a Catalog, and a
// VectorIndex behind the single lookup surface builder/modexec use.
type Repository struct {
	cache   cache.Cache
	catalog Catalog
	vectors VectorIndex
}

// New builds a Repository over the given components. vectors may be nil
// when semantic search is unavailable; SemanticSearch then degrades to
// an empty result rather than erroring.
func New(c cache.Cache, cat Catalog, vectors VectorIndex) *Repository {
	return &Repository{cache: c, catalog: cat, vectors: vectors}
}

func nameKey(name string) string {
	return "card:" + strings.ToLower(strings.TrimSpace(name))
}

func idKey(id string) string {
	return "card_id:" + id
}

// GetByName consults the cache under card:lower(name) before the
// catalog; catalog hits are written into the cache's cold tier.
func (r *Repository) GetByName(ctx context.Context, name string) (card.Card, error) {
	key := nameKey(name)
	if v, ok := r.cache.Get(key); ok {
		return v.(card.Card), nil
	}

	c, err := r.catalog.GetByName(ctx, name)
	if err != nil {
		return card.Card{}, err
	}
	r.cache.PutTier(key, c, cache.TierCold)
	r.cache.PutTier(idKey(c.ID), c, cache.TierCold)
	return c, nil
}

// GetByID consults the cache under card_id:id before the catalog,
// identical miss policy to GetByName.
func (r *Repository) GetByID(ctx context.Context, id string) (card.Card, error) {
	key := idKey(id)
	if v, ok := r.cache.Get(key); ok {
		return v.(card.Card), nil
	}

	c, err := r.catalog.GetByID(ctx, id)
	if err != nil {
		return card.Card{}, err
	}
	r.cache.PutTier(key, c, cache.TierCold)
	r.cache.PutTier(nameKey(c.Name), c, cache.TierCold)
	return c, nil
}

// Search delegates to the catalog. Results are not cached as a set;
// individual cards are opportunistically warmed into the cold tier.
func (r *Repository) Search(ctx context.Context, f catalog.Filters, limit int) ([]card.Card, error) {
	results, err := r.catalog.Search(ctx, f, limit)
	if err != nil {
		return nil, err
	}
	for _, c := range results {
		r.cache.PutTier(idKey(c.ID), c, cache.TierCold)
	}
	return results, nil
}

// SemanticSearch delegates to the vector index and hydrates hits from
// the catalog. A vector-index failure (or absence) degrades to an
// empty result with a logged warning rather than failing the caller —
// semantic search augments catalog lookups, it never gates them.
func (r *Repository) SemanticSearch(ctx context.Context, query string, f *catalog.Filters, limit int) ([]card.Card, error) {
	if r.vectors == nil {
		return nil, nil
	}

	var filter vectorindex.SearchFilter
	if f != nil {
		filter = filterFromCatalog(*f)
	}

	hits, err := r.vectors.Search(query, limit, filter)
	if err != nil {
		log.WithComponent("repository").Warn().Err(err).Msg("semantic search degraded to empty result")
		return nil, nil
	}

	out := make([]card.Card, 0, len(hits))
	for _, h := range hits {
		c, err := r.GetByID(ctx, h.CardID)
		if err != nil {
			log.WithComponent("repository").Warn().Str("card_id", h.CardID).Msg("semantic hit missing from catalog")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func filterFromCatalog(f catalog.Filters) vectorindex.SearchFilter {
	return func(m vectorindex.Metadata) bool {
		if f.Rarity != "" && m.Rarity != f.Rarity {
			return false
		}
		if f.LegalFormat != "" {
			legal := false
			for _, fmtName := range m.Legal {
				if fmtName == f.LegalFormat {
					legal = true
					break
				}
			}
			if !legal {
				return false
			}
		}
		return true
	}
}

// Preload warms the cache for a batch of card names, returning the
// count successfully loaded. Unresolvable names are skipped silently;
// callers that need per-name results should use GetByName directly.
func (r *Repository) Preload(ctx context.Context, names []string) int {
	loaded := 0
	for _, name := range names {
		if _, err := r.GetByName(ctx, name); err == nil {
			loaded++
		}
	}
	return loaded
}
