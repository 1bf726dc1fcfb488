package httpclient

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	// RequestsTotal counts outbound requests by client, method and status
	// ("error" when no response was received).
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"client", "method", "status"},
	)

	// RequestDuration observes outbound request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"client", "method"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	breakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Requests rejected without being sent because the breaker was open",
		},
		[]string{"name"},
	)
)

func observe(client, method string, resp *http.Response, err error, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(client, method, statusLabel(resp, err)).Inc()
	RequestDuration.WithLabelValues(client, method).Observe(elapsed.Seconds())
}

func setBreakerState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	default:
		v = -1
	}
	breakerState.WithLabelValues(name).Set(v)
}
