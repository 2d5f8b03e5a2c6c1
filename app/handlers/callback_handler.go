package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	businessflow "github.com/amirphl/gateway-campaign-broker/business_flow"
)

// CallbackHandler receives gateway status callbacks
type CallbackHandler struct {
	callbackFlow businessflow.CallbackFlow
	timeout      time.Duration
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(callbackFlow businessflow.CallbackFlow, timeout time.Duration) *CallbackHandler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &CallbackHandler{callbackFlow: callbackFlow, timeout: timeout}
}

// HandleCallback answers with the status chosen by the callback flow; only 500 makes the gateway retry
func (h *CallbackHandler) HandleCallback(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	header := func(name string) string { return c.Get(name) }
	result := h.callbackFlow.HandleCallback(ctx, header, c.Body(), clientMetadata(c))
	return c.Status(result.HTTPStatus).JSON(result.Body)
}
