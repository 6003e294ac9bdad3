package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbsearch",
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval calls",
		},
		[]string{"strategy", "status"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbsearch",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds, embedding included",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)

	FieldSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbsearch",
			Name:      "field_search_duration_seconds",
			Help:      "Single vector field search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend", "field"},
	)

	FieldSearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbsearch",
			Name:      "field_search_errors_total",
			Help:      "Total failed vector field searches",
		},
		[]string{"backend", "field"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(FieldSearchDuration)
	prometheus.MustRegister(FieldSearchErrorsTotal)
	retrievalMetricsRegistered = true
}

// Retrieval status label values.
const (
	StatusOK             = "ok"
	StatusInvalidQuery   = "invalid_query"
	StatusEmbeddingError = "embedding_error"
	StatusRetrievalError = "retrieval_error"
	StatusTimeout        = "timeout"
	StatusPayloadError   = "payload_error"
	StatusCanceled       = "canceled"
	StatusInternalError  = "internal_error"
)
