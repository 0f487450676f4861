/*
Package metrics provides Prometheus metrics collection and exposition
for the deck engine.

Instrumentation covers the tiered cache, catalog store, vector index,
deck store, LLM structured-output calls, the FSM orchestrator, and the
REST API surface. Metrics are exposed at /metrics for scraping.

# Metrics catalog

Cache:
  - cag_cache_hits_total{tier}, cag_cache_misses_total,
    cag_cache_evictions_total, cag_cache_size{tier}

Catalog:
  - cag_catalog_cards_total, cag_catalog_query_duration_seconds{operation}

Vector index:
  - cag_vector_search_duration_seconds, cag_vector_embeddings_total

Deck store:
  - cag_decks_stored_total, cag_deckstore_op_duration_seconds{operation}

LLM:
  - cag_llm_calls_total{schema,outcome}, cag_llm_call_duration_seconds{schema},
    cag_llm_parse_failures_total{schema}

Orchestrator:
  - cag_orchestrator_iterations, cag_orchestrator_runs_total{flow,reason},
    cag_orchestrator_quality_score

API:
  - cag_api_requests_total{route,status}, cag_api_request_duration_seconds{route}

# Usage

	timer := metrics.NewTimer()
	cards, err := catalogStore.Search(ctx, filters, limit)
	timer.ObserveDurationVec(metrics.CatalogQueryDuration, "search")

A Collector samples point-in-time sizes (cache entries, catalog/deck/
embedding counts) on a ticker; the LLM, orchestrator, and API counters and
histograms are updated inline by the component that performs the
operation. The cache hit/miss/eviction counters and the catalog query,
vector search, and deck-store operation histograms are registered and
exported, but no component updates them.
*/
package metrics
