package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a gateway call
const (
	outcomeSuccess         = "success"
	outcomeSimulated       = "simulated"
	outcomeConfiguration   = "configuration_error"
	outcomeTimeout         = "timeout"
	outcomeTransportError  = "transport_error"
	outcomeHTTPError       = "http_error"
	outcomeInvalidEnvelope = "invalid_envelope"
	outcomeBusinessError   = "business_error"
)

var (
	// Gateway calls partitioned by operation, environment and outcome
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of gateway calls",
		},
		[]string{"operation", "environment", "outcome"},
	)

	// Gateway call latency in seconds; simulated and unconfigured calls are not observed
	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway call latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "environment"},
	)
)

func recordGatewayCall(op GatewayOperation, env, outcome string, started *time.Time) {
	gatewayRequestsTotal.WithLabelValues(string(op), env, outcome).Inc()
	if started != nil {
		gatewayRequestDuration.WithLabelValues(string(op), env).Observe(time.Since(*started).Seconds())
	}
}
