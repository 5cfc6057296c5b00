// Package observability exposes Prometheus metrics for upstream F5AI calls.
package observability

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"f5gate/internal/core"
	"f5gate/internal/llmclient"
)

// LLMBuckets spans 100ms to 120s, the range of a non-streamed generation.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics holds the collectors updated by the llmclient hooks.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  *prometheus.GaugeVec
	errorsVec *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "f5gate_upstream_requests_total",
			Help: "Upstream requests by endpoint, model and status code",
		}, []string{"provider", "endpoint", "model", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "f5gate_upstream_request_duration_seconds",
			Help:    "Upstream request latency",
			Buckets: LLMBuckets,
		}, []string{"provider", "endpoint", "model"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "f5gate_upstream_requests_in_flight",
			Help: "Upstream requests currently waiting for a response",
		}, []string{"provider", "endpoint"}),
		errorsVec: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "f5gate_upstream_errors_total",
			Help: "Failed upstream requests by error type",
		}, []string{"provider", "endpoint", "type"}),
	}
}

// Hooks returns llmclient hooks that record into m.
func (m *Metrics) Hooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestStart: func(ctx context.Context, info llmclient.RequestInfo) context.Context {
			m.inFlight.WithLabelValues(info.Provider, info.Endpoint).Inc()
			return ctx
		},
		OnRequestEnd: func(_ context.Context, info llmclient.ResponseInfo) {
			m.inFlight.WithLabelValues(info.Provider, info.Endpoint).Dec()
			m.requests.WithLabelValues(info.Provider, info.Endpoint, info.Model, statusLabel(info.StatusCode)).Inc()
			m.duration.WithLabelValues(info.Provider, info.Endpoint, info.Model).Observe(info.Duration.Seconds())
			if info.Err != nil {
				m.errorsVec.WithLabelValues(info.Provider, info.Endpoint, errorType(info.Err)).Inc()
			}
		},
	}
}

// NewPrometheusHooks registers metrics on the default registerer and returns
// their hooks.
func NewPrometheusHooks() llmclient.Hooks {
	return NewMetrics(nil).Hooks()
}

func statusLabel(code int) string {
	if code == 0 {
		return "network_error"
	}
	return strconv.Itoa(code)
}

func errorType(err error) string {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		return string(gwErr.Type)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "unknown"
}
