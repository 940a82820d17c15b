// Package metrics holds the Prometheus collectors of the query service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"BuoyWatch.api/internal/models"
)

const namespace = "buoywatch"

// Metrics is a set of collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	storeQueries  *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	quarantined   *prometheus.CounterVec
	deviceStatus  *prometheus.GaugeVec
	readingAge    *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_queries_total",
			Help:      "Reading store queries by operation and outcome.",
		}, []string{"op", "outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Reading store query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		quarantined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quarantined_readings_total",
			Help:      "Readings excluded from statistics because they failed validation.",
		}, []string{"device_id"}),
		deviceStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_status",
			Help:      "Freshness of the latest reading: 2 live, 1 recent, 0 offline.",
		}, []string{"device_id"}),
		readingAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_reading_age_seconds",
			Help:      "Age of the most recent reading per device.",
		}, []string{"device_id"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeQueries,
		m.storeDuration,
		m.quarantined,
		m.deviceStatus,
		m.readingAge,
		m.httpRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStoreQuery records one store round trip.
func (m *Metrics) ObserveStoreQuery(op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeQueries.WithLabelValues(op, outcome).Inc()
	m.storeDuration.WithLabelValues(op).Observe(took.Seconds())
}

// AddQuarantined counts readings that failed validation.
func (m *Metrics) AddQuarantined(deviceID string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.quarantined.WithLabelValues(deviceID).Add(float64(n))
}

// SetStatus publishes the device's freshness and, when known, its age.
func (m *Metrics) SetStatus(deviceID string, status models.Status, age time.Duration, known bool) {
	if m == nil {
		return
	}
	m.deviceStatus.WithLabelValues(deviceID).Set(status.Gauge())
	if known {
		m.readingAge.WithLabelValues(deviceID).Set(age.Seconds())
	}
}

// CountRequest records a served HTTP request.
func (m *Metrics) CountRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
