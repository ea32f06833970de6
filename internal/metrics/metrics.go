// Package metrics collects and exposes Prometheus metrics for the auth flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid_input"
	OutcomeError    = "error"
)

// Recorder is the metrics surface used by the service layer and HTTP middleware.
type Recorder interface {
	RecordLogin(outcome string)
	RecordRefresh(outcome string)
	RecordLogout(outcome string)
	RecordSessionsRevoked(count int)
	RecordHTTPRequest(route string, statusCode int, duration time.Duration)
}

// Nop records nothing.
type Nop struct{}

func (Nop) RecordLogin(string)                           {}
func (Nop) RecordRefresh(string)                         {}
func (Nop) RecordLogout(string)                          {}
func (Nop) RecordSessionsRevoked(int)                    {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}

// Collector is the Prometheus Recorder.
type Collector struct {
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	logouts     *prometheus.CounterVec
	revocations prometheus.Counter
	httpLatency *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentorhub_auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentorhub_auth_refreshes_total",
			Help: "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentorhub_auth_logouts_total",
			Help: "Logouts by outcome.",
		}, []string{"outcome"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mentorhub_auth_sessions_revoked_total",
			Help: "Sessions moved to the revoked state.",
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mentorhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.refreshes,
		c.logouts,
		c.revocations,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogout(outcome string) {
	c.logouts.WithLabelValues(outcome).Inc()
}

// RecordSessionsRevoked adds count newly revoked sessions.
func (c *Collector) RecordSessionsRevoked(count int) {
	if count > 0 {
		c.revocations.Add(float64(count))
	}
}

func (c *Collector) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	c.httpLatency.WithLabelValues(route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
