// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/dto"
	"github.com/amirphl/gateway-campaign-broker/app/logger"
	"github.com/amirphl/gateway-campaign-broker/app/middleware"
	"github.com/amirphl/gateway-campaign-broker/app/services"
	businessflow "github.com/amirphl/gateway-campaign-broker/business_flow"
)

// DefaultRequestTimeout bounds a request end to end when no SERVER_REQUEST_TIMEOUT is configured
const DefaultRequestTimeout = 30 * time.Second

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func validationMessages(err error) []string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages
}

func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// requestContext carries the request id into the flows and bounds the request
func requestContext(c fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if id := requestid.FromContext(c); id != "" {
		ctx = logger.ContextWithRequestID(ctx, id)
	}
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if id := requestid.FromContext(c); id != "" {
		metadata.SetRequestID(id)
	}
	if operator, ok := c.Locals(middleware.LocalOperator).(string); ok {
		metadata.SetOperator(operator)
	}
	return metadata
}

// flowError maps a business flow failure onto the HTTP response by its kind
func flowError(c fiber.Ctx, log *zap.Logger, err error, message, code string) error {
	switch businessflow.KindOf(err) {
	case businessflow.KindValidation:
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	case businessflow.KindNotFound:
		return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	case businessflow.KindStateConflict:
		if businessflow.IsOperationInFlight(err) {
			return errorResponse(c, fiber.StatusConflict, "Another gateway operation is in progress for this campaign", "OPERATION_IN_FLIGHT", nil)
		}
		return errorResponse(c, fiber.StatusConflict, "Operation not allowed in the current campaign state", "PRECONDITION_FAILED", err.Error())
	case businessflow.KindBusiness:
		var be *services.GatewayBusinessError
		errors.As(err, &be)
		return errorResponse(c, fiber.StatusUnprocessableEntity, be.Message, "GATEWAY_REJECTED", fiber.Map{
			"gateway_code": be.Code,
			"operation":    be.Op,
		})
	case businessflow.KindTransport:
		log.Warn("Gateway transport failure", zap.Error(err))
		return errorResponse(c, fiber.StatusBadGateway, "Gateway is unavailable", "GATEWAY_UNAVAILABLE", fiber.Map{
			"timeout":         services.IsGatewayTimeout(err),
			"outcome_unknown": services.IsGatewayOutcomeUnknown(err),
		})
	case businessflow.KindConfiguration:
		log.Error("Gateway is not configured", zap.Error(err))
		return errorResponse(c, fiber.StatusServiceUnavailable, "Gateway is not configured for this environment", "GATEWAY_NOT_CONFIGURED", nil)
	default:
		log.Error(message, zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, message, code, nil)
	}
}
