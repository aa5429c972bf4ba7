package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels of an operation.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics owns a registry of its own so that tests and multiple servers in
// one process do not collide on the global one.
type Metrics struct {
	registry   *prometheus.Registry
	Operations *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
}

func New() *Metrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "order",
		Subsystem: "graphql",
		Name:      "operations_total",
		Help:      "Total number of GraphQL operations by result.",
	}, []string{"operation", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "order",
		Subsystem: "graphql",
		Name:      "operation_duration_ms",
		Help:      "GraphQL operation latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		operations,
		latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{registry: registry, Operations: operations, LatencyMS: latency}
}

// ObserveOperation records one executed operation.
func (m *Metrics) ObserveOperation(operation string, failed bool, elapsed time.Duration) {
	result := ResultSuccess
	if failed {
		result = ResultError
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.LatencyMS.WithLabelValues(operation).Observe(float64(elapsed.Microseconds()) / 1000)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
