// ABOUTME: Prometheus metrics for proxied Odoo calls and auth outcomes.
// ABOUTME: Exposed on a configurable path when metrics are enabled.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// ProxiedCalls counts dispatched remote calls by transport and outcome.
	ProxiedCalls *prometheus.CounterVec

	// AuthFailures counts rejected requests by transport.
	AuthFailures *prometheus.CounterVec
}

// New creates and registers the bridge collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ProxiedCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoo_bridge_proxied_calls_total",
			Help: "Proxied Odoo calls by transport and outcome.",
		}, []string{"transport", "outcome"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoo_bridge_auth_failures_total",
			Help: "Requests rejected for missing or invalid tokens.",
		}, []string{"transport"}),
	}

	registry.MustRegister(m.ProxiedCalls, m.AuthFailures)
	return m
}

// Handler returns the scrape handler for the bridge registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
