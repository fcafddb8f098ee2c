package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the storefront's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	CartMutations    *prometheus.CounterVec
	CheckoutLinks    *prometheus.CounterVec
	GuardDecisions   *prometheus.CounterVec
	CatalogRefreshes *prometheus.CounterVec
	SessionChanges   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagstore_cart_mutations_total",
			Help: "Cart mutations by operation.",
		}, []string{"op"}),
		CheckoutLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagstore_checkout_links_total",
			Help: "WhatsApp checkout links built, by kind.",
		}, []string{"kind"}),
		GuardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagstore_admin_guard_decisions_total",
			Help: "Admin guard resolutions by final state.",
		}, []string{"state"}),
		CatalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagstore_catalog_refreshes_total",
			Help: "Catalog snapshot refreshes by result.",
		}, []string{"result"}),
		SessionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagstore_session_changes_total",
			Help: "Identity session changes by kind.",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagstore_http_requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bagstore_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	m.registry.MustRegister(
		m.CartMutations,
		m.CheckoutLinks,
		m.GuardDecisions,
		m.CatalogRefreshes,
		m.SessionChanges,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry is the gatherer served on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method string, status int, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(seconds)
}
