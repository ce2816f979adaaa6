// Package metrics owns the Prometheus registry exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	httpRequests  *prometheus.CounterVec
	authFailures  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New builds a registry with the Postboard counters plus the standard Go
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postboard",
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts, by operation.",
		}, []string{"op"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postboard",
			Name:      "notifications_total",
			Help:      "Notification dispatch outcomes, by template and result.",
		}, []string{"template", "result"}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.authFailures,
		m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) AuthFailure(op string) {
	m.authFailures.WithLabelValues(op).Inc()
}

// Notification records a dispatch outcome; result is "sent" or "failed".
func (m *Metrics) Notification(template, result string) {
	m.notifications.WithLabelValues(template, result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
