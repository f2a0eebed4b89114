package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Route request outcomes.
const (
	OutcomeFound        = "found"
	OutcomeNotConnected = "not_connected"
	OutcomeNotFound     = "node_not_found"
	OutcomeInvalid      = "invalid"
)

type Metrics struct {
	RouteRequests *prometheus.CounterVec
	SolveSeconds  prometheus.Histogram
	GraphBuilds   prometheus.Counter
	BuildSeconds  prometheus.Histogram
	CachedGraphs  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RouteRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "planner_route_requests_total",
			Help: "Total number of shortest-path requests by outcome.",
		}, []string{"outcome"}),
		SolveSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_solve_duration_seconds",
			Help:    "Duration of shortest-path searches.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		GraphBuilds: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "planner_graph_builds_total",
			Help: "Total number of proximity graphs built.",
		}),
		BuildSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_graph_build_duration_seconds",
			Help:    "Duration of proximity graph builds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		CachedGraphs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "planner_cached_graphs",
			Help: "Number of proximity graphs currently cached.",
		}),
	}
}
