package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of product searches",
		},
		[]string{"mode", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end product search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	// SearchStageDuration splits a search into embed, retrieve, fuse, assemble and rerank.
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of individual search stages in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	SearchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of products returned per search",
			Buckets:   []float64{0, 1, 3, 5, 10, 25, 50, 100},
		},
		[]string{"mode"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchResults)
	searchMetricsRegistered = true
}

// ObserveSearch records the outcome of one search.
func ObserveSearch(mode string, err error, elapsed time.Duration, results int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	SearchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		SearchResults.WithLabelValues(mode).Observe(float64(results))
	}
}

// ObserveStage records the duration of one search stage started at start.
func ObserveStage(stage string, start time.Time) {
	SearchStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
