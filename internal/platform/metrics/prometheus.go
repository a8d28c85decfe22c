package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager holds the service's Prometheus collectors on a private registry.
type MetricsManager struct {
	Registry             *prometheus.Registry
	ListingsPostedTotal  prometheus.Counter
	ListingsEditedTotal  prometheus.Counter
	ListingsDeletedTotal prometheus.Counter
	SellerContactsTotal  prometheus.Counter
	ListingsExpiredTotal prometheus.Counter
	ListingsSyncedTotal  prometheus.Counter
	SyncFailuresTotal    prometheus.Counter
	StoreDegraded        prometheus.Gauge
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestLatency   *prometheus.HistogramVec
}

func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &MetricsManager{
		Registry:             registry,
		ListingsPostedTotal:  counter("listings_posted_total", "Total number of listings posted."),
		ListingsEditedTotal:  counter("listings_edited_total", "Total number of listing edits."),
		ListingsDeletedTotal: counter("listings_deleted_total", "Total number of listings deleted."),
		SellerContactsTotal:  counter("seller_contacts_total", "Total number of contact-seller actions."),
		ListingsExpiredTotal: counter("listings_expired_total", "Total number of listings removed by the retention sweep."),
		ListingsSyncedTotal:  counter("listings_synced_total", "Total number of listings pushed by the synchronizer."),
		SyncFailuresTotal:    counter("sync_failures_total", "Total number of failed synchronization attempts."),
		StoreDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_degraded",
			Help:      "1 when the listing store runs in memory only.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_latency_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.ListingsPostedTotal,
		m.ListingsEditedTotal,
		m.ListingsDeletedTotal,
		m.SellerContactsTotal,
		m.ListingsExpiredTotal,
		m.ListingsSyncedTotal,
		m.SyncFailuresTotal,
		m.StoreDegraded,
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *MetricsManager) ListingPosted()   { m.ListingsPostedTotal.Inc() }
func (m *MetricsManager) ListingEdited()   { m.ListingsEditedTotal.Inc() }
func (m *MetricsManager) ListingDeleted()  { m.ListingsDeletedTotal.Inc() }
func (m *MetricsManager) SellerContacted() { m.SellerContactsTotal.Inc() }
func (m *MetricsManager) ListingSynced()   { m.ListingsSyncedTotal.Inc() }
func (m *MetricsManager) SyncFailed()      { m.SyncFailuresTotal.Inc() }

func (m *MetricsManager) ListingsExpired(n int) {
	m.ListingsExpiredTotal.Add(float64(n))
}

// SetDegraded is passed to the store as its degraded hook.
func (m *MetricsManager) SetDegraded(error) {
	m.StoreDegraded.Set(1)
}
