// Package services provides the gateway integration: environment resolution, transport and the request/response client
package services

import (
	"errors"
	"fmt"
)

// ErrGatewayCredentialMissing is returned when the resolved environment has no API key
// and the operation may not be simulated
var ErrGatewayCredentialMissing = errors.New("gateway credential is not configured")

// GatewayTransportError reports a failure to get a successful HTTP exchange with the gateway.
// StatusCode is zero when no response was received.
type GatewayTransportError struct {
	Op         GatewayOperation
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *GatewayTransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("gateway %s timed out: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s failed with HTTP %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
	}
}

func (e *GatewayTransportError) Unwrap() error {
	return e.Err
}

// GatewayBusinessError is a transport-level success whose envelope carries a failure code
type GatewayBusinessError struct {
	Op      GatewayOperation
	Code    string
	Message string
}

func (e *GatewayBusinessError) Error() string {
	return fmt.Sprintf("gateway %s rejected with %s: %s", e.Op, e.Code, e.Message)
}

// IsGatewayTimeout reports whether err is a transport timeout
func IsGatewayTimeout(err error) bool {
	var te *GatewayTransportError
	return errors.As(err, &te) && te.Timeout
}

// IsGatewayOutcomeUnknown reports whether the gateway may have acted on the request despite err.
// Only business rejections, 4xx answers and failures raised before sending are definite.
func IsGatewayOutcomeUnknown(err error) bool {
	var te *GatewayTransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode < 400 || te.StatusCode >= 500
}

// IsGatewayTransportError reports whether err is a transport failure
func IsGatewayTransportError(err error) bool {
	var te *GatewayTransportError
	return errors.As(err, &te)
}

// IsGatewayBusinessError reports whether err is a gateway business rejection
func IsGatewayBusinessError(err error) bool {
	var be *GatewayBusinessError
	return errors.As(err, &be)
}

// IsGatewayNotFound reports whether the gateway answered 404
func IsGatewayNotFound(err error) bool {
	var te *GatewayTransportError
	return errors.As(err, &te) && te.StatusCode == 404
}
