package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded for each Plaid call.
const (
	OutcomeSuccess        = "success"
	OutcomeAPIError       = "api_error"
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
)

// PlaidMetrics records latency and outcomes of outbound Plaid requests.
type PlaidMetrics struct {
	duration  *prometheus.HistogramVec
	requests  *prometheus.CounterVec
	apiErrors *prometheus.CounterVec
}

// NewPlaidMetrics registers the Plaid client metrics on the provided registerer.
func NewPlaidMetrics(reg prometheus.Registerer) *PlaidMetrics {
	if reg == nil {
		return &PlaidMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plaid_request_duration_seconds",
		Help:    "Duration of Plaid API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plaid_requests_total",
		Help: "Plaid API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	apiErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plaid_api_errors_total",
		Help: "Plaid API error responses by endpoint and error code.",
	}, []string{"endpoint", "error_code"})
	reg.MustRegister(duration, requests, apiErrors)
	return &PlaidMetrics{
		duration:  duration,
		requests:  requests,
		apiErrors: apiErrors,
	}
}

// ObserveRequest records one completed call.
func (m *PlaidMetrics) ObserveRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil || m.duration == nil || m.requests == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	m.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
	m.requests.WithLabelValues(endpoint, normalizeLabel(outcome)).Inc()
}

// IncAPIError counts an error envelope returned by Plaid.
func (m *PlaidMetrics) IncAPIError(endpoint, errorCode string) {
	if m == nil || m.apiErrors == nil {
		return
	}
	m.apiErrors.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(errorCode)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
