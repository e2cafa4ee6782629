package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and corpus Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"space", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds (encode, score, rank, join)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"space"},
	)

	CorpusDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "corpus_documents",
			Help:      "Number of documents in the loaded corpus",
		},
	)

	CorpusDimensions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "corpus_dimensions",
			Help:      "Embedding dimensionality per space",
		},
		[]string{"space"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and corpus metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CorpusDocuments)
	prometheus.MustRegister(CorpusDimensions)
	searchMetricsRegistered = true
}
