package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizationRuns counts optimization runs by outcome
	OptimizationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimization_runs_total", Help: "Optimization runs by outcome."},
		[]string{"outcome"},
	)
	// OptimizationDuration records optimization wall time in seconds
	OptimizationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimization_duration_seconds", Help: "Optimization duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}},
	)
	// PointsAssigned counts collection points placed on routes
	PointsAssigned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "points_assigned_total", Help: "Collection points assigned to routes."},
	)
	// PointsUnassigned counts collection points no route could serve
	PointsUnassigned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "points_unassigned_total", Help: "Collection points left unassigned."},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizationRuns)
		Registry.MustRegister(OptimizationDuration)
		Registry.MustRegister(PointsAssigned)
		Registry.MustRegister(PointsUnassigned)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
