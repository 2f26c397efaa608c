package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the prometheus collectors exported on /metrics.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	tokensRevoked   prometheus.Counter
	gateRejections  *prometheus.CounterVec
	logins          *prometheus.CounterVec
	blacklistSize   prometheus.Gauge
}

// NewMetrics builds a dedicated registry with process and runtime collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_http_errors_total",
			Help: "Total number of HTTP requests answered with an error body",
		}, []string{"method", "path", "code"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_tokens_issued_total",
			Help: "Total number of tokens minted",
		}, []string{"type"}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_tokens_revoked_total",
			Help: "Total number of tokens added to the blacklist",
		}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_gate_rejections_total",
			Help: "Total number of requests rejected by the authorization gate",
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		blacklistSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blog_blacklist_size",
			Help: "Number of tokens currently held in the blacklist",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.tokensIssued,
		m.tokensRevoked,
		m.gateRejections,
		m.logins,
		m.blacklistSize,
	)
	return m
}

// Registry exposes the registry for the HTTP exposition handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, path, code).Inc()
}

// TokenIssued counts a minted token of the given type.
func (m *Metrics) TokenIssued(tokenType string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(tokenType).Inc()
}

// TokenRevoked counts a blacklist insertion.
func (m *Metrics) TokenRevoked() {
	if m == nil {
		return
	}
	m.tokensRevoked.Inc()
}

// GateRejected counts a request refused by the authorization gate.
func (m *Metrics) GateRejected(reason string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(reason).Inc()
}

// LoginOutcome counts a login attempt.
func (m *Metrics) LoginOutcome(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// SetBlacklistSize publishes the current blacklist cardinality.
func (m *Metrics) SetBlacklistSize(n int) {
	if m == nil {
		return
	}
	m.blacklistSize.Set(float64(n))
}
