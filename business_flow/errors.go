// Package businessflow contains the campaign lifecycle: compilation, scheduling, state machine, orchestration and reconciliation
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/gateway-campaign-broker/app/services"
	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/repository"
)

// Business flow error constants
var (
	ErrValidation          = errors.New("validation failed")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrOperationInFlight   = errors.New("another gateway operation is in flight for this campaign")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrCampaignUUIDInvalid = errors.New("campaign UUID is invalid")

	// ErrReconciliationMismatch marks a callback naming a campaign we do not hold
	ErrReconciliationMismatch = errors.New("callback does not match any campaign")

	ErrCallbackUnauthorized = errors.New("callback secret mismatch")
	ErrCallbackMalformed    = errors.New("callback payload is malformed")
)

// ErrorKind classifies failures for callers and the HTTP layer
type ErrorKind string

const (
	KindConfiguration          ErrorKind = "configuration"
	KindValidation             ErrorKind = "validation"
	KindTransport              ErrorKind = "transport"
	KindBusiness               ErrorKind = "business"
	KindReconciliationMismatch ErrorKind = "reconciliation_mismatch"
	KindStateConflict          ErrorKind = "state_conflict"
	KindNotFound               ErrorKind = "not_found"
	KindInternal               ErrorKind = "internal"
)

// KindOf returns the kind of err; unclassified errors are internal
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrGatewayCredentialMissing):
		return KindConfiguration
	case errors.Is(err, ErrValidation), errors.Is(err, ErrCampaignUUIDInvalid), errors.Is(err, ErrCallbackMalformed):
		return KindValidation
	case services.IsGatewayTransportError(err):
		return KindTransport
	case services.IsGatewayBusinessError(err):
		return KindBusiness
	case errors.Is(err, ErrReconciliationMismatch):
		return KindReconciliationMismatch
	case errors.Is(err, ErrPreconditionFailed), errors.Is(err, ErrOperationInFlight), errors.Is(err, repository.ErrCampaignConflict):
		return KindStateConflict
	case errors.Is(err, ErrCampaignNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// ValidationError reports malformed local input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PreconditionFailedError reports an operation the campaign's state does not allow
type PreconditionFailedError struct {
	Operation string
	Status    models.StatusCode
	Reason    string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("cannot %s campaign in status %s(%d): %s", e.Operation, e.Status.Status(), e.Status, e.Reason)
}

func (e *PreconditionFailedError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

func preconditionFailed(op string, c *models.Campaign, reason string) *PreconditionFailedError {
	return &PreconditionFailedError{Operation: op, Status: c.StatusCode, Reason: reason}
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

func IsOperationInFlight(err error) bool {
	return errors.Is(err, ErrOperationInFlight)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsReconciliationMismatch(err error) bool {
	return errors.Is(err, ErrReconciliationMismatch)
}
