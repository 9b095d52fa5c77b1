// Package metrics holds the Prometheus collectors exported at /metrics.
//
// Each [Metrics] owns its own registry so that several instances can live
// in one process (tests, embedded use) without duplicate registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes recorded by [Metrics.ObserveLookup].
const (
	OutcomeOK      = "ok"
	OutcomeWarning = "warning"
	OutcomeError   = "error"
)

// Metrics groups the netbadge collectors.
type Metrics struct {
	registry *prometheus.Registry

	badgeRenders   *prometheus.CounterVec
	refreshSkipped prometheus.Counter
	statusLookups  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry, together
// with the standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		badgeRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbadge_badge_renders_total",
			Help: "Number of badge renders by variant",
		}, []string{"variant"}),
		refreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netbadge_refresh_skipped_total",
			Help: "Number of poll cycles skipped because the previous cycle was in flight",
		}),
		statusLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbadge_status_lookups_total",
			Help: "Number of network status lookups served by outcome",
		}, []string{"outcome"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbadge_provider_errors_total",
			Help: "Number of failed IP provider requests by provider",
		}, []string{"provider"}),
	}

	m.registry.MustRegister(
		m.badgeRenders,
		m.refreshSkipped,
		m.statusLookups,
		m.providerErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRender counts one badge render.
func (m *Metrics) ObserveRender(variant string) {
	m.badgeRenders.WithLabelValues(variant).Inc()
}

// ObserveSkip counts one skipped poll cycle.
func (m *Metrics) ObserveSkip() {
	m.refreshSkipped.Inc()
}

// ObserveLookup counts one served status lookup.
func (m *Metrics) ObserveLookup(outcome string) {
	m.statusLookups.WithLabelValues(outcome).Inc()
}

// ObserveProviderError counts one failed provider request.
func (m *Metrics) ObserveProviderError(provider string) {
	m.providerErrors.WithLabelValues(provider).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
