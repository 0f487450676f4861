package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_cache_hits_total",
			Help: "Total cache hits by tier",
		},
		[]string{"tier"},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cag_cache_misses_total",
			Help: "Total cache misses across all tiers",
		},
	)

	CacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cag_cache_evictions_total",
			Help: "Total cache evictions",
		},
	)

	CacheSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cag_cache_size",
			Help: "Current number of entries by tier",
		},
		[]string{"tier"},
	)

	// Catalog metrics
	CatalogCardsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cag_catalog_cards_total",
			Help: "Total number of cards in the catalog",
		},
	)

	CatalogQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cag_catalog_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Vector index metrics
	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cag_vector_search_duration_seconds",
			Help:    "Semantic search duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorEmbeddingsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cag_vector_embeddings_total",
			Help: "Total number of stored card embeddings",
		},
	)

	// Deck store metrics
	DecksStoredTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cag_decks_stored_total",
			Help: "Total number of persisted decks",
		},
	)

	DeckStoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cag_deckstore_op_duration_seconds",
			Help:    "Deck store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// LLM call metrics
	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_llm_calls_total",
			Help: "Total structured-output LLM calls by schema and outcome",
		},
		[]string{"schema", "outcome"},
	)

	LLMCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cag_llm_call_duration_seconds",
			Help:    "LLM structured-output call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"schema"},
	)

	LLMParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_llm_parse_failures_total",
			Help: "Total structured-output parse failures by schema, after retry exhaustion",
		},
		[]string{"schema"},
	)

	// Orchestrator metrics
	OrchestratorIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cag_orchestrator_iterations",
			Help:    "Number of build/refine iterations per new-deck request",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	OrchestratorRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_orchestrator_runs_total",
			Help: "Total orchestrator runs by flow and terminal reason",
		},
		[]string{"flow", "reason"},
	)

	OrchestratorQualityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cag_orchestrator_quality_score",
			Help:    "Overall quality score at orchestrator termination",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cag_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cag_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		CacheSize,
		CatalogCardsTotal,
		CatalogQueryDuration,
		VectorSearchDuration,
		VectorEmbeddingsTotal,
		DecksStoredTotal,
		DeckStoreOpDuration,
		LLMCallsTotal,
		LLMCallDuration,
		LLMParseFailuresTotal,
		OrchestratorIterations,
		OrchestratorRunsTotal,
		OrchestratorQualityScore,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
