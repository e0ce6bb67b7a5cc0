package rpc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the fetcher counters. A nil *Metrics is a no-op.
type Metrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	inflight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the fetcher collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "akashx",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Upstream requests by endpoint and HTTP status.",
		}, []string{"endpoint", "code"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "akashx",
			Subsystem: "rpc",
			Name:      "errors_total",
			Help:      "Upstream requests that failed (transport or non-200).",
		}, []string{"endpoint"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "akashx",
			Subsystem: "rpc",
			Name:      "in_flight",
			Help:      "Reserved or running requests per endpoint.",
		}, []string{"endpoint"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "akashx",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Upstream round trip latency, excluding throttling pauses.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.requests, m.errors, m.inflight, m.duration)
	return m
}

func (m *Metrics) inFlight(ep string, delta float64) {
	if m == nil {
		return
	}
	m.inflight.WithLabelValues(ep).Add(delta)
}

func (m *Metrics) observe(ep string, status int, took time.Duration, err error) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(ep, code).Inc()
	m.duration.WithLabelValues(ep).Observe(took.Seconds())
	if err != nil {
		m.errors.WithLabelValues(ep).Inc()
	}
}
