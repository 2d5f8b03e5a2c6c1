package businessflow

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/dto"
	"github.com/amirphl/gateway-campaign-broker/app/logger"
	"github.com/amirphl/gateway-campaign-broker/config"
	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/repository"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

const callbackNotFoundMessage = "Campaign not found; callback acknowledged"

// CallbackFlow applies inbound gateway status notifications.
// Only a 500 result asks the gateway to retry.
type CallbackFlow interface {
	HandleCallback(ctx context.Context, header func(name string) string, body []byte, metadata *ClientMetadata) *CallbackResult
}

// CallbackResult is the HTTP answer owed to the gateway
type CallbackResult struct {
	HTTPStatus int
	Body       dto.GatewayCallbackResponse
}

// CallbackEvent is a decoded callback; both the current and the legacy field names are accepted
type CallbackEvent struct {
	RemoteID    string
	StatusCode  *int
	Reason      *string
	SentCount   *int64
	TargetCount *int64
}

type callbackPayload struct {
	ID          *utils.FlexString `json:"id"`
	CampaignID  *utils.FlexString `json:"campaignId"`
	State       *utils.FlexInt    `json:"state"`
	StatusCode  *utils.FlexInt    `json:"statusCode"`
	Reason      *string           `json:"reason"`
	SendReason  *string           `json:"sendReason"`
	SentCount   *int64            `json:"sentCount"`
	TargetCount *int64            `json:"targetCount"`
}

// CallbackFlowImpl implements the callback flow
type CallbackFlowImpl struct {
	campaignRepo repository.CampaignRepository
	auditRepo    repository.AuditLogRepository
	stateMachine *CampaignStateMachine
	cfg          config.CallbackConfig
	logger       *zap.Logger
}

// NewCallbackFlow creates a new callback flow instance
func NewCallbackFlow(
	campaignRepo repository.CampaignRepository,
	auditRepo repository.AuditLogRepository,
	stateMachine *CampaignStateMachine,
	cfg config.CallbackConfig,
	log *zap.Logger,
) CallbackFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &CallbackFlowImpl{
		campaignRepo: campaignRepo,
		auditRepo:    auditRepo,
		stateMachine: stateMachine,
		cfg:          cfg,
		logger:       log,
	}
}

// HandleCallback authenticates, decodes, matches and applies one callback
func (f *CallbackFlowImpl) HandleCallback(ctx context.Context, header func(name string) string, body []byte, metadata *ClientMetadata) *CallbackResult {
	log := logger.WithRequestID(ctx, f.logger)

	if !f.authenticate(header, log) {
		recordCallback(callbackOutcomeUnauthorized)
		log.Warn("Gateway callback rejected", zap.Error(ErrCallbackUnauthorized))
		return errorResult(http.StatusUnauthorized, "unauthorized")
	}

	event, err := DecodeCallback(body)
	if err != nil {
		recordCallback(callbackOutcomeMalformed)
		log.Warn("Malformed gateway callback", zap.Error(err), zap.String("body", utils.Truncate(string(body), 512)))
		return errorResult(http.StatusBadRequest, err.Error())
	}
	log = log.With(zap.String("remote_id", event.RemoteID))

	campaign, err := f.campaignRepo.ByRemoteID(ctx, event.RemoteID)
	if err != nil {
		recordCallback(callbackOutcomeFailed)
		log.Error("Failed to lookup campaign for callback", zap.Error(err))
		return errorResult(http.StatusInternalServerError, "lookup failed")
	}
	if campaign == nil {
		recordCallback(callbackOutcomeNotFound)
		log.Warn("Gateway callback for unknown campaign", zap.Error(ErrReconciliationMismatch))
		return &CallbackResult{
			HTTPStatus: http.StatusOK,
			Body:       dto.GatewayCallbackResponse{Success: utils.ToPtr(false), Message: callbackNotFoundMessage},
		}
	}

	// A missing status only matters once the campaign is known
	if event.StatusCode == nil {
		recordCallback(callbackOutcomeMalformed)
		return errorResult(http.StatusBadRequest, "state is required")
	}

	result, transition, saved, err := f.apply(ctx, campaign, event)
	if err != nil {
		recordCallback(callbackOutcomeFailed)
		log.Error("Failed to apply gateway callback", zap.Int("state", *event.StatusCode), zap.Error(err))
		return errorResult(http.StatusInternalServerError, "apply failed")
	}

	// terminal and duplicate callbacks change nothing and are recorded as ignored
	action := models.AuditActionCallbackApplied
	if !saved {
		action = models.AuditActionCallbackIgnored
	}
	f.audit(ctx, campaign, action, fmt.Sprintf("Callback state %d: %d -> %d", transition.Raw, transition.From, transition.To), metadata)

	log.Info("Gateway callback handled",
		zap.Int("raw_state", transition.Raw),
		zap.Int("from", int(transition.From)),
		zap.Int("to", int(transition.To)),
		zap.Bool("ignored", transition.Ignored),
		zap.Bool("changed", transition.Changed),
	)
	return result
}

// DecodeCallback reads either payload shape. A remote id is required.
func DecodeCallback(body []byte) (*CallbackEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrCallbackMalformed)
	}

	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackMalformed, err)
	}

	event := &CallbackEvent{
		Reason:      firstNonNil(p.Reason, p.SendReason),
		SentCount:   p.SentCount,
		TargetCount: p.TargetCount,
	}
	if id := firstNonNil(p.ID, p.CampaignID); id != nil {
		event.RemoteID = strings.TrimSpace(string(*id))
	}
	if event.RemoteID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrCallbackMalformed)
	}
	if state := firstNonNil(p.State, p.StatusCode); state != nil {
		code := int(*state)
		event.StatusCode = &code
	}
	return event, nil
}

// apply reports whether the campaign was saved
func (f *CallbackFlowImpl) apply(ctx context.Context, campaign *models.Campaign, event *CallbackEvent) (*CallbackResult, RemoteTransition, bool, error) {
	transition := f.stateMachine.ApplyRemote(campaign, *event.StatusCode)
	if transition.Ignored {
		recordCallback(callbackOutcomeIgnored)
		return successResult("Campaign already final; callback ignored", campaign), transition, false, nil
	}

	carried := carriesChanges(campaign, event)
	if !transition.Changed && !carried {
		recordCallback(callbackOutcomeUnchanged)
		return successResult("Callback already applied", campaign), transition, false, nil
	}

	applyCarriedFields(campaign, event.Reason, event.SentCount, event.TargetCount)
	if err := f.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, transition, false, err
	}

	recordCallback(callbackOutcomeApplied)
	return successResult("Callback applied", campaign), transition, true, nil
}

// authenticate checks the accepted header names in order against the shared secret
func (f *CallbackFlowImpl) authenticate(header func(name string) string, log *zap.Logger) bool {
	if f.cfg.Secret == "" {
		log.Warn("Callback secret not configured; accepting unauthenticated gateway callback")
		return true
	}
	for _, name := range f.cfg.Headers {
		value := header(name)
		if value == "" {
			continue
		}
		return subtle.ConstantTimeCompare([]byte(value), []byte(f.cfg.Secret)) == 1
	}
	return false
}

func (f *CallbackFlowImpl) audit(ctx context.Context, campaign *models.Campaign, action, description string, metadata *ClientMetadata) {
	entry := &models.AuditLog{
		CampaignID:  &campaign.ID,
		Action:      action,
		Operator:    utils.ToPtr("gateway"),
		Description: &description,
		Success:     utils.ToPtr(true),
	}
	if metadata != nil {
		entry.IPAddress = &metadata.IPAddress
		entry.UserAgent = &metadata.UserAgent
	}
	if requestID := logger.RequestID(ctx); requestID != "" {
		entry.RequestID = &requestID
	}
	_ = f.auditRepo.Save(ctx, entry)
}

func carriesChanges(c *models.Campaign, event *CallbackEvent) bool {
	return differs(c.SendReason, event.Reason) || differs(c.SentCount, event.SentCount) || differs(c.TargetCount, event.TargetCount)
}

// differs reports whether incoming would change current; a nil incoming changes nothing
func differs[T comparable](current, incoming *T) bool {
	if incoming == nil {
		return false
	}
	return current == nil || *current != *incoming
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func successResult(message string, c *models.Campaign) *CallbackResult {
	return &CallbackResult{
		HTTPStatus: http.StatusOK,
		Body: dto.GatewayCallbackResponse{
			Success: utils.ToPtr(true),
			Message: message,
			Status:  string(c.Status),
		},
	}
}

func errorResult(status int, message string) *CallbackResult {
	return &CallbackResult{HTTPStatus: status, Body: dto.GatewayCallbackResponse{Error: message}}
}
