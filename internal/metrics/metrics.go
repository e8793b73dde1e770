package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanRuns counts scheduling runs by outcome (ok, invalid, error).
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pickplan_runs_total", Help: "Scheduling runs by outcome."},
		[]string{"outcome"},
	)
	// PlanOrders counts orders by how a run treated them: placed, displaced or unscheduled.
	PlanOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pickplan_orders_total", Help: "Orders seen by scheduling runs, by result."},
		[]string{"result"},
	)
	PlanEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pickplan_evictions_total", Help: "Orders evicted from a picker queue to make room."},
	)
	PlanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "pickplan_run_duration_seconds", Help: "Scheduling run duration in seconds.", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1}},
	)

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

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests, HTTPDuration,
			PlanRuns, PlanOrders, PlanEvictions, PlanDuration,
			WebhookDeliveries, WebhookLatency,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
