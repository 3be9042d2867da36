// Package monitor exposes the gateway's Prometheus metrics.
package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signal_gateway"

// Metrics owns its registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	SignalsTotal    *prometheus.CounterVec
	OrderOutcomes   *prometheus.CounterVec
	ExchangeLatency *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors plus the Go runtime and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Alerts handled, by terminal status.",
		}, []string{"status"}),
		OrderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_outcomes_total",
			Help:      "Per-account dispatch outcomes.",
		}, []string{"mode", "classification"}),
		ExchangeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_request_seconds",
			Help:      "Exchange order call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests.",
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(
		m.SignalsTotal,
		m.OrderOutcomes,
		m.ExchangeLatency,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SignalHandled(status string) {
	m.SignalsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) OrderOutcome(mode, classification string) {
	m.OrderOutcomes.WithLabelValues(mode, classification).Inc()
}

func (m *Metrics) ExchangeCall(mode string, d time.Duration) {
	m.ExchangeLatency.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) HTTPRequest(method, route string, code int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
