package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests tracks cache lookups by the tier that answered (l1, l2, none)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"tier"},
	)

	// CacheErrors tracks remote tier failures swallowed by the cache manager
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_cache_errors_total",
			Help: "Total number of remote cache tier errors",
		},
		[]string{"op"},
	)

	// RetryAttempts tracks retries scheduled by the retry executor
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_retry_attempts_total",
			Help: "Total number of retried attempts",
		},
		[]string{"operation", "kind"},
	)

	// InferenceCalls tracks calls to the inference service by outcome
	InferenceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_inference_calls_total",
			Help: "Total number of inference calls",
		},
		[]string{"outcome"},
	)

	// InferenceLatency tracks inference latency including retries
	InferenceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placefinder_inference_latency_seconds",
			Help:    "Inference call latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	// CandidatesProcessed tracks candidates seen by the extraction engine
	CandidatesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_candidates_total",
			Help: "Total number of candidates by extraction outcome",
		},
		[]string{"outcome"},
	)

	// AnalysesTotal tracks orchestrated analyses by outcome
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_analyses_total",
			Help: "Total number of analyses",
		},
		[]string{"outcome"},
	)

	// AnalysisLatency tracks end-to-end analysis latency
	AnalysisLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placefinder_analysis_latency_seconds",
			Help:    "End-to-end analysis latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cached"},
	)
)
