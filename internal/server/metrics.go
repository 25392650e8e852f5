// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions metrics by the logical endpoint name rather than
// the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// adviseRequestsTotal counts completed /api/advise requests, partitioned
	// by outcome: "ok", "bad_request", "not_initialized", or "error".
	adviseRequestsTotal *prometheus.CounterVec

	// adviseDurationSeconds records the wall-clock duration of each
	// /api/advise request including retrieval and generation.
	adviseDurationSeconds *prometheus.HistogramVec

	// adviseInFlight is the number of /api/advise requests currently running.
	adviseInFlight prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default,
// which keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		adviseRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "givetide",
			Subsystem: "advise",
			Name:      "requests_total",
			Help:      "Total number of /api/advise requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		adviseDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "givetide",
			Subsystem: "advise",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/advise requests including retrieval and generation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		adviseInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "givetide",
			Subsystem: "advise",
			Name:      "in_flight",
			Help:      "Number of /api/advise requests currently being served.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "givetide",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "givetide",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
