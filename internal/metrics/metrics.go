package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	storeQueries  *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	alertsRaised  *prometheus.CounterVec
	breakerOpen   prometheus.Gauge
}

// New registers the service collectors on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biogas_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biogas_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biogas_store_queries_total",
			Help: "Store queries by intent and outcome (ok, error, timeout, unavailable, canceled).",
		}, []string{"intent", "outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biogas_store_query_duration_seconds",
			Help:    "Time from issuing a store query until its row stream completes.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"intent"}),
		alertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biogas_alerts_raised_total",
			Help: "Threshold alerts produced by /api/alerts, by parameter.",
		}, []string{"parameter"}),
		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "biogas_store_breaker_open",
			Help: "1 while the store circuit breaker is open, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.storeQueries,
		m.storeDuration,
		m.alertsRaised,
		m.breakerOpen,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveQuery(intent, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.storeQueries.WithLabelValues(intent, outcome).Inc()
	m.storeDuration.WithLabelValues(intent).Observe(elapsed.Seconds())
}

func (m *Metrics) AlertRaised(parameter string) {
	if m == nil {
		return
	}
	m.alertsRaised.WithLabelValues(parameter).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.breakerOpen.Set(1)
		return
	}
	m.breakerOpen.Set(0)
}
