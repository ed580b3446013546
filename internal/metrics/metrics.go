package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recs_http_requests_in_flight",
			Help: "Requests currently being served.",
		},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_recommendations_total",
			Help: "Pipeline runs by outcome (ok, empty, fallback, error).",
		},
		[]string{"outcome"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recs_pipeline_stage_duration_seconds",
			Help:    "Duration of each recommendation pipeline stage.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	PipelineCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recs_pipeline_candidates",
			Help:    "Number of venues surviving each pipeline stage.",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"stage"},
	)

	EmbeddingCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_embedding_cache_lookups_total",
			Help: "Query embedding lookups by the tier that answered (local, redis, miss).",
		},
		[]string{"tier"},
	)

	LLMBreakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recs_llm_breaker_open",
			Help: "1 when the named language model circuit breaker is open.",
		},
		[]string{"name"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_events_published_total",
			Help: "Domain events published to NATS by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPInFlight,
		RecommendationsTotal,
		PipelineStageDuration,
		PipelineCandidates,
		EmbeddingCacheLookups,
		LLMBreakerOpen,
		EventsPublishedTotal,
	)
}
