// Package observability exposes the prometheus metrics of the store.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the store's instrumentation. All methods are nil-safe
// so callers can run unmetered.
type Metrics struct {
	Registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	eventsEmitted     prometheus.Counter
	handlerErrors     prometheus.Counter
	embeddingCalls    *prometheus.CounterVec
	limiterActive     prometheus.Gauge
	limiterPending    prometheus.Gauge
}

// New creates a metrics bundle backed by its own registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Store operations by name and outcome.",
		}, []string{"op", "status"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		eventsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events appended to the log.",
		}),
		handlerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Subscriber handler failures.",
		}),
		embeddingCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_calls_total",
			Help:      "Embedding computations by backend.",
		}, []string{"backend"}),
		limiterActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "limiter_active",
			Help:      "Permits currently held.",
		}),
		limiterPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "limiter_pending",
			Help:      "Goroutines waiting for a permit.",
		}),
	}
}

// ObserveOp records one store operation.
func (m *Metrics) ObserveOp(op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// EventEmitted counts one appended event.
func (m *Metrics) EventEmitted() {
	if m == nil {
		return
	}
	m.eventsEmitted.Inc()
}

// HandlerError counts one failed subscriber invocation.
func (m *Metrics) HandlerError() {
	if m == nil {
		return
	}
	m.handlerErrors.Inc()
}

// EmbeddingCall counts one embedding computation.
func (m *Metrics) EmbeddingCall(backend string) {
	if m == nil {
		return
	}
	m.embeddingCalls.WithLabelValues(backend).Inc()
}

// SetLimiter updates the limiter gauges.
func (m *Metrics) SetLimiter(active, pending int) {
	if m == nil {
		return
	}
	m.limiterActive.Set(float64(active))
	m.limiterPending.Set(float64(pending))
}
