package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/dto"
	"github.com/amirphl/gateway-campaign-broker/app/logger"
	businessflow "github.com/amirphl/gateway-campaign-broker/business_flow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	UpdateTargeting(c fiber.Ctx) error
	RegisterCampaign(c fiber.Ctx) error
	ReconcileRegistration(c fiber.Ctx) error
	RequestApproval(c fiber.Ctx) error
	TestSend(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	RefreshStatus(c fiber.Ctx) error
	GetStats(c fiber.Ctx) error
	ExportStats(c fiber.Ctx) error
	GetMeta(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
	logger       *zap.Logger
	timeout      time.Duration
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, log *zap.Logger, timeout time.Duration) *CampaignHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
		logger:       log,
		timeout:      timeout,
	}
}

// CreateCampaign stores a new draft
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.CreateDraft(ctx, &req, clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED")
	}

	return successResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// GetCampaign returns the local view of a campaign
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.GetCampaign(ctx, c.Params("uuid"))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Failed to get campaign", "GET_CAMPAIGN_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// UpdateTargeting replaces the targeting of a draft
func (h *CampaignHandler) UpdateTargeting(c fiber.Ctx) error {
	var req dto.UpdateTargetingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.UpdateTargeting(ctx, c.Params("uuid"), &req, clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Targeting update failed", "TARGETING_UPDATE_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Targeting updated successfully", result)
}

// RegisterCampaign creates the campaign at the gateway; the body is optional
func (h *CampaignHandler) RegisterCampaign(c fiber.Ctx) error {
	var req dto.RegisterCampaignRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.Register(ctx, c.Params("uuid"), &req, clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Campaign registration failed", "CAMPAIGN_REGISTRATION_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign registered successfully", result)
}

// ReconcileRegistration resolves a registration whose outcome is unknown
func (h *CampaignHandler) ReconcileRegistration(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.ReconcileRegistration(ctx, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Registration reconciliation failed", "RECONCILIATION_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Registration reconciled", result)
}

// RequestApproval submits the campaign for gateway review
func (h *CampaignHandler) RequestApproval(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.RequestApproval(ctx, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Approval request failed", "APPROVAL_REQUEST_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Approval requested", result)
}

// TestSend delivers the message to a few recipients
func (h *CampaignHandler) TestSend(c fiber.Ctx) error {
	var req dto.TestSendRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.TestSend(ctx, c.Params("uuid"), &req, clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Test send failed", "TEST_SEND_FAILED")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteCampaign removes an unregistered or temporarily registered campaign
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	if err := h.campaignFlow.Delete(ctx, c.Params("uuid"), clientMetadata(c)); err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Campaign deletion failed", "CAMPAIGN_DELETION_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

// RefreshStatus pulls the gateway status into the local record
func (h *CampaignHandler) RefreshStatus(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.RefreshStatus(ctx, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Status refresh failed", "STATUS_REFRESH_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Status refreshed", result)
}

// GetStats returns the gateway delivery counters
func (h *CampaignHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.FetchStats(ctx, c.Params("uuid"))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Failed to fetch stats", "FETCH_STATS_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Stats retrieved successfully", result)
}

// ExportStats downloads the delivery counters as an xlsx workbook
func (h *CampaignHandler) ExportStats(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	filename, data, err := h.campaignFlow.ExportStats(ctx, c.Params("uuid"))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Failed to export stats", "EXPORT_STATS_FAILED")
	}

	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// GetMeta returns a gateway targeting catalog
func (h *CampaignHandler) GetMeta(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.campaignFlow.FetchMeta(ctx, c.Params("kind"))
	if err != nil {
		return flowError(c, logger.WithRequestID(ctx, h.logger), err, "Failed to fetch metadata", "FETCH_META_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Metadata retrieved successfully", result)
}
