package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Callback outcomes
const (
	callbackOutcomeApplied      = "applied"
	callbackOutcomeUnchanged    = "unchanged"
	callbackOutcomeIgnored      = "ignored_terminal"
	callbackOutcomeNotFound     = "not_found"
	callbackOutcomeUnauthorized = "unauthorized"
	callbackOutcomeMalformed    = "malformed"
	callbackOutcomeFailed       = "failed"
)

var gatewayCallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_callbacks_total",
		Help: "Total number of inbound gateway callbacks by outcome",
	},
	[]string{"outcome"},
)

func recordCallback(outcome string) {
	gatewayCallbacksTotal.WithLabelValues(outcome).Inc()
}
