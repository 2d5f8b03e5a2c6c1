package utils

import (
	"time"
)

type contextKey string

// RequestIDKey carries the request id through context.Context
const RequestIDKey contextKey = "request_id"

// RequestIDHeader is read and echoed by the request id middleware
const RequestIDHeader = "X-Request-ID"

// Gateway scheduling constants
const (
	// MinimumSendLead is the earliest a campaign may be scheduled relative to now
	MinimumSendLead = time.Hour

	// SendTimeGranularity is the minute boundary the gateway accepts send times on
	SendTimeGranularity = 10 * time.Minute

	// GatewaySendTimeLayout is the wire format of a send time (Asia/Seoul wall clock)
	GatewaySendTimeLayout = "200601021504"
)

// Gateway envelope constants
const (
	GatewaySuccessCode = "S000001"

	CorrelationIDHeader = "X-Correlation-Id"
)

// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
const CORSMaxAge = 86400

// MaxTestSendRecipients bounds a single test-send call
const MaxTestSendRecipients = 20
