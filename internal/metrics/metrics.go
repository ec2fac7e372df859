package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_upstream_api_calls_total",
			Help: "Total upstream provider API calls",
		},
		[]string{"source", "endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridpulse_upstream_api_latency_seconds",
			Help:    "Upstream provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "endpoint"},
	)

	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_records_ingested_total",
			Help: "Grid metric records successfully written",
		},
		[]string{"source"},
	)

	CollectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_collector_runs_total",
			Help: "Collector run outcomes",
		},
		[]string{"source", "status"},
	)
)
