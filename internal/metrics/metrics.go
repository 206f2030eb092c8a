// Package metrics records Prometheus metrics from server and schema events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/gqltools/internal/eventbus"
	events "github.com/hanpama/gqltools/internal/events"
)

// Metrics holds the collectors. Create one per registry.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	QueryCacheHits    prometheus.Counter
	SchemaTypes       prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gqltools",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method and status code",
			},
			[]string{"method", "status"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gqltools",
				Subsystem: "graphql",
				Name:      "operations_total",
				Help:      "GraphQL operations by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gqltools",
				Subsystem: "graphql",
				Name:      "operation_duration_seconds",
				Help:      "Duration of GraphQL operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		QueryCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gqltools",
			Subsystem: "graphql",
			Name:      "query_cache_hits_total",
			Help:      "Requests served from the validated query cache",
		}),
		SchemaTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gqltools",
			Subsystem: "schema",
			Name:      "types",
			Help:      "Named types in the served schema",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.HTTPRequests, m.OperationsTotal, m.OperationDuration, m.QueryCacheHits, m.SchemaTypes)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Subscribe records events published on b until the returned function is
// called.
func (m *Metrics) Subscribe(b *eventbus.Bus) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.On(b, func(_ context.Context, e events.HTTPFinish) {
			m.HTTPRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.On(b, func(_ context.Context, e events.GraphQLFinish) {
			opType := e.OperationType
			if opType == "" {
				opType = "unknown"
			}
			outcome := "ok"
			if len(e.Errors) > 0 {
				outcome = "error"
			}
			m.OperationsTotal.WithLabelValues(opType, outcome).Inc()
			m.OperationDuration.WithLabelValues(opType).Observe(e.Duration.Seconds())
			if e.Cached {
				m.QueryCacheHits.Inc()
			}
		}),
		eventbus.On(b, func(_ context.Context, e events.SchemaBuilt) {
			if e.Err == nil {
				m.SchemaTypes.Set(float64(e.Types))
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
