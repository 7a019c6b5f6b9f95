package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridiron_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridiron_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	rankingsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridiron_rankings_computed_total",
		Help: "Ranking computations by operation.",
	}, []string{"operation"})

	populationSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridiron_population_entities",
		Help:    "Number of entities per ranked population.",
		Buckets: []float64{8, 16, 32, 64, 128, 256, 512, 1024, 4096},
	})

	snapshotsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridiron_snapshots_ingested_total",
		Help: "Population snapshots ingested by kind.",
	}, []string{"kind"})
)

func observeRanking(operation string, populationLen int) {
	rankingsComputed.WithLabelValues(operation).Inc()
	populationSize.Observe(float64(populationLen))
}
