package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imgproxy/internal/cleanup"
)

// Metrics holds Prometheus collectors on a private registry so several
// servers (and tests) can coexist in one process.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	reads           *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	sweepDeleted    prometheus.Counter
	sweepFailed     prometheus.Counter
	sweepBytes      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgproxy_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imgproxy_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgproxy_uploads_total",
			Help: "Accepted uploads by outcome (uploaded or existing).",
		}, []string{"status"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgproxy_reads_total",
			Help: "Token-gated reads by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgproxy_rate_limited_total",
			Help: "Requests rejected by a limiter.",
		}, []string{"limiter"}),
		sweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgproxy_cleanup_deleted_total",
			Help: "Expired records removed by cleanup sweeps.",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgproxy_cleanup_failed_total",
			Help: "Expired records a sweep could not remove.",
		}),
		sweepBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgproxy_cleanup_reclaimed_bytes_total",
			Help: "Blob bytes reclaimed by cleanup sweeps.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.uploads,
		m.reads,
		m.rateLimited,
		m.sweepDeleted,
		m.sweepFailed,
		m.sweepBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSweep records the outcome of a cleanup sweep.
func (m *Metrics) ObserveSweep(result cleanup.Result, _ error) {
	if m == nil || result.DryRun {
		return
	}
	m.sweepDeleted.Add(float64(result.Deleted))
	m.sweepFailed.Add(float64(result.Failed))
	m.sweepBytes.Add(float64(result.ReclaimedBytes))
}

func (m *Metrics) observeRequest(route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) observeUpload(status string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(status).Inc()
}

func (m *Metrics) observeRead(result string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}
