// Package metrics exposes gateway and poller activity as Prometheus
// series.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/poller"
)

const namespace = "transferwatch"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	polls           *prometheus.CounterVec
	pollDuration    *prometheus.HistogramVec
	consecutive     *prometheus.GaugeVec
	lastSuccess     *prometheus.GaugeVec
	objectURLs      prometheus.Gauge
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests sent to the automation node, by operation and status code (0 = transport failure).",
		}, []string{"operation", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests to the automation node.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "attempts_total",
			Help:      "Poll attempts by widget label and outcome.",
		}, []string{"label", "outcome"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of poll fetches by widget label.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"label"}),
		consecutive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "consecutive_failures",
			Help:      "Failures since the last successful attempt.",
		}, []string{"label"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful attempt.",
		}, []string{"label"}),
		objectURLs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "object_urls",
			Help:      "Report URLs currently awaiting release.",
		}),
	}

	m.registry.MustRegister(
		m.requests, m.requestDuration,
		m.polls, m.pollDuration, m.consecutive, m.lastSuccess,
		m.objectURLs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest implements gateway.Observer.
func (m *Metrics) ObserveRequest(operation string, statusCode int, d time.Duration) {
	m.requests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObservePoll implements poller.Observer.
func (m *Metrics) ObservePoll(a poller.Attempt) {
	outcome := "success"
	if !a.OK() {
		outcome = "failure"
	}
	m.polls.WithLabelValues(a.Label, outcome).Inc()
	m.pollDuration.WithLabelValues(a.Label).Observe(a.Duration.Seconds())

	if a.OK() {
		m.consecutive.WithLabelValues(a.Label).Set(0)
		m.lastSuccess.WithLabelValues(a.Label).Set(float64(a.StartedAt.Unix()))
		return
	}
	m.consecutive.WithLabelValues(a.Label).Inc()
}

// SetObjectURLs records how many report URLs are outstanding.
func (m *Metrics) SetObjectURLs(n int) {
	m.objectURLs.Set(float64(n))
}

var (
	_ gateway.Observer = (*Metrics)(nil)
	_ poller.Observer  = (*Metrics)(nil)
)
