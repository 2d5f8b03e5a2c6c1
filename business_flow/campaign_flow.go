package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/dto"
	"github.com/amirphl/gateway-campaign-broker/app/logger"
	"github.com/amirphl/gateway-campaign-broker/app/services"
	"github.com/amirphl/gateway-campaign-broker/config"
	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/repository"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

const (
	maxSaveAttempts = 3

	// outcomeSaveTimeout bounds the writes that record a gateway call once it has returned
	outcomeSaveTimeout = 5 * time.Second
)

var (
	mobilePattern   = regexp.MustCompile(`^01[016789][0-9]{7,8}$`)
	metaKindPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
)

// CampaignFlow handles the campaign lifecycle against the gateway
type CampaignFlow interface {
	CreateDraft(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	UpdateTargeting(ctx context.Context, campaignUUID string, req *dto.UpdateTargetingRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	Register(ctx context.Context, campaignUUID string, req *dto.RegisterCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	ReconcileRegistration(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	RequestApproval(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	TestSend(ctx context.Context, campaignUUID string, req *dto.TestSendRequest, metadata *ClientMetadata) (*dto.TestSendResponse, error)
	Delete(ctx context.Context, campaignUUID string, metadata *ClientMetadata) error
	GetCampaign(ctx context.Context, campaignUUID string) (*dto.CampaignResponse, error)
	RefreshStatus(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignResponse, error)
	FetchStats(ctx context.Context, campaignUUID string) (*dto.CampaignStatsResponse, error)
	ExportStats(ctx context.Context, campaignUUID string) (string, []byte, error)
	FetchMeta(ctx context.Context, kind string) (*dto.GatewayMetaResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	auditRepo    repository.AuditLogRepository
	gateway      services.GatewayClient
	compiler     *FilterCompiler
	scheduler    *SendTimeScheduler
	stateMachine *CampaignStateMachine
	guard        InFlightGuard
	rc           *redis.Client
	cacheConfig  config.CacheConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewCampaignFlow creates a new campaign flow instance. rc may be nil, which disables the meta cache.
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	auditRepo repository.AuditLogRepository,
	gateway services.GatewayClient,
	compiler *FilterCompiler,
	scheduler *SendTimeScheduler,
	stateMachine *CampaignStateMachine,
	guard InFlightGuard,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
	log *zap.Logger,
) CampaignFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		auditRepo:    auditRepo,
		gateway:      gateway,
		compiler:     compiler,
		scheduler:    scheduler,
		stateMachine: stateMachine,
		guard:        guard,
		rc:           rc,
		cacheConfig:  cacheConfig,
		logger:       log,
		now:          utils.UTCNow,
	}
}

// CreateDraft stores a new local draft bound to the resolved gateway environment
func (s *CampaignFlowImpl) CreateDraft(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, newValidationError("title", "title is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, newValidationError("message", "message is required")
	}

	var override *models.GatewayEnvironment
	if req.Environment != nil {
		env, err := models.ParseGatewayEnvironment(*req.Environment)
		if err != nil {
			return nil, newValidationError("environment", "%v", err)
		}
		override = &env
	}

	spec := toTargetingSpec(req.Targeting)
	compiled, err := s.compiler.Compile(spec)
	if err != nil {
		return nil, err
	}

	campaign := &models.Campaign{
		Title:        strings.TrimSpace(req.Title),
		Message:      req.Message,
		SenderNumber: req.SenderNumber,
		Environment:  s.gateway.SelectEnvironment(override),
	}
	campaign.SetStatusCode(models.StatusCodeDraft)
	campaign.SetTargeting(spec)
	campaign.CompiledFilter = compiled
	campaign.UnresolvedRegions = compiled.UnresolvedRegions

	if err := s.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	s.audit(ctx, campaign, models.AuditActionCampaignCreated, "Campaign draft created", nil, metadata)
	return ToCampaignResponse(campaign), nil
}

// UpdateTargeting replaces the targeting of an unregistered draft and recompiles it
func (s *CampaignFlowImpl) UpdateTargeting(ctx context.Context, campaignUUID string, req *dto.UpdateTargetingRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanEditTargeting(campaign); err != nil {
		return nil, err
	}

	spec := toTargetingSpec(req.Targeting)
	compiled, err := s.compiler.Compile(spec)
	if err != nil {
		return nil, err
	}

	err = s.withCampaignLock(ctx, campaign, func(c *models.Campaign) error {
		if err := s.stateMachine.CanEditTargeting(c); err != nil {
			return err
		}
		c.SetTargeting(spec)
		c.CompiledFilter = compiled
		c.UnresolvedRegions = compiled.UnresolvedRegions
		return s.campaignRepo.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignTargetingUpdated, "Campaign targeting updated", nil, metadata)
	return ToCampaignResponse(campaign), nil
}

// Register creates the campaign at the gateway. A timeout leaves the outcome unknown and
// blocks further attempts until ReconcileRegistration runs.
func (s *CampaignFlowImpl) Register(ctx context.Context, campaignUUID string, req *dto.RegisterCampaignRequest, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanRegister(campaign); err != nil {
		return nil, err
	}

	var requested *time.Time
	if req != nil {
		requested = req.RequestedSendAt
	}

	log := logger.WithRequestID(ctx, s.logger).With(zap.String("campaign_uuid", campaignUUID))

	var callErr error
	err = s.withCampaignLock(ctx, campaign, func(c *models.Campaign) error {
		if err := s.stateMachine.CanRegister(c); err != nil {
			return err
		}
		if c.CompiledFilter == nil {
			compiled, err := s.compiler.Compile(c.Targeting)
			if err != nil {
				return err
			}
			c.CompiledFilter = compiled
			c.UnresolvedRegions = compiled.UnresolvedRegions
		}

		// The flag is written before the call and cleared only on a definite answer,
		// so a lost response or a failed save leaves the draft waiting for reconciliation.
		sendAt := s.sendTimeFor(c, requested)
		c.ScheduledSendAt = &sendAt
		c.RegistrationUncertain = true
		if err := s.campaignRepo.Update(ctx, c); err != nil {
			return err
		}

		out, err := s.gateway.CreateCampaign(ctx, c.Environment, services.CreateGatewayCampaignRequest{
			ExternalID:   c.UUID.String(),
			Title:        c.Title,
			Message:      c.Message,
			SenderNumber: utils.DerefString(c.SenderNumber),
			SendAt:       sendAt,
			Filter:       c.CompiledFilter.Filter,
			Description:  c.CompiledFilter.Description,
		})
		saveCtx, cancel := outcomeContext(ctx)
		defer cancel()

		if err != nil {
			callErr = err
			uncertain := services.IsGatewayOutcomeUnknown(err)
			saveErr := s.persist(saveCtx, c, func(c *models.Campaign) error {
				c.RecordError(errors.New(gatewayMessage(err)))
				c.RegistrationUncertain = uncertain
				return nil
			})
			if saveErr != nil {
				log.Error("Failed to record registration failure", zap.Bool("uncertain", uncertain), zap.Error(saveErr))
			}
			return err
		}

		err = s.persist(saveCtx, c, func(c *models.Campaign) error {
			if out.TargetCount != nil {
				c.TargetCount = out.TargetCount
			}
			return s.stateMachine.ApplyRegistered(c, out.RemoteID, int(out.StatusCode))
		})
		if err != nil {
			log.Error("Campaign registered at gateway but not persisted",
				zap.String("remote_id", out.RemoteID), zap.Error(err))
		}
		return err
	})
	if err != nil {
		if callErr != nil {
			msg := gatewayMessage(callErr)
			s.audit(ctx, campaign, models.AuditActionCampaignRegistrationFailed, "Gateway registration failed", &msg, metadata)
		}
		return nil, err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignRegistered, fmt.Sprintf("Campaign registered as %s", utils.DerefString(campaign.RemoteID)), nil, metadata)
	return ToCampaignResponse(campaign), nil
}

// ReconcileRegistration looks the campaign up at the gateway by its local UUID. A found
// campaign is adopted; otherwise the draft becomes registrable again.
func (s *CampaignFlowImpl) ReconcileRegistration(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanReconcile(campaign); err != nil {
		return nil, err
	}

	var description string
	err = s.withCampaignLock(ctx, campaign, func(c *models.Campaign) error {
		if err := s.stateMachine.CanReconcile(c); err != nil {
			return err
		}

		found, err := s.gateway.FindByExternalID(ctx, c.Environment, c.UUID.String())
		if err != nil {
			return err
		}

		saveCtx, cancel := outcomeContext(ctx)
		defer cancel()
		return s.persist(saveCtx, c, func(c *models.Campaign) error {
			if found == nil {
				description = "No gateway campaign found; registration may be retried"
				c.RegistrationUncertain = false
				c.LastError = utils.ToPtr(description)
				return nil
			}
			description = fmt.Sprintf("Adopted gateway campaign %s", found.RemoteID)
			if found.TargetCount != nil {
				c.TargetCount = found.TargetCount
			}
			return s.stateMachine.ApplyRegistered(c, found.RemoteID, int(found.StatusCode))
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignReconciled, description, nil, metadata)
	return ToCampaignResponse(campaign), nil
}

// RequestApproval submits a registered campaign for gateway review
func (s *CampaignFlowImpl) RequestApproval(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanRequestApproval(campaign); err != nil {
		return nil, err
	}

	err = s.withCampaignLock(ctx, campaign, func(c *models.Campaign) error {
		if err := s.stateMachine.CanRequestApproval(c); err != nil {
			return err
		}

		_, err := s.gateway.RequestApproval(ctx, c.Environment, *c.RemoteID)
		saveCtx, cancel := outcomeContext(ctx)
		defer cancel()
		if err != nil {
			saveErr := s.persist(saveCtx, c, func(c *models.Campaign) error {
				c.RecordError(errors.New(gatewayMessage(err)))
				return nil
			})
			if saveErr != nil {
				s.logger.Error("Failed to record approval failure", zap.Error(saveErr))
			}
			return err
		}

		return s.persist(saveCtx, c, s.stateMachine.ApplyApprovalRequested)
	})
	if err != nil {
		msg := err.Error()
		s.audit(ctx, campaign, models.AuditActionCampaignApprovalRequested, "Approval request failed", &msg, metadata)
		return nil, err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignApprovalRequested, "Approval requested", nil, metadata)
	return ToCampaignResponse(campaign), nil
}

// TestSend delivers the campaign message to a few recipients without changing its status
func (s *CampaignFlowImpl) TestSend(ctx context.Context, campaignUUID string, req *dto.TestSendRequest, metadata *ClientMetadata) (*dto.TestSendResponse, error) {
	recipients, err := normalizeRecipients(req.Recipients)
	if err != nil {
		return nil, err
	}

	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanTestSend(campaign); err != nil {
		return nil, err
	}

	err = s.withCampaignLock(ctx, campaign, func(c *models.Campaign) error {
		if err := s.stateMachine.CanTestSend(c); err != nil {
			return err
		}
		return s.gateway.TestSend(ctx, c.Environment, *c.RemoteID, recipients)
	})
	if err != nil {
		msg := err.Error()
		s.audit(ctx, campaign, models.AuditActionCampaignTestSent, "Test send failed", &msg, metadata)
		return nil, err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignTestSent, fmt.Sprintf("Test sent to %d recipients", len(recipients)), nil, metadata)
	return &dto.TestSendResponse{
		Message:    "Test message sent",
		Recipients: recipients,
	}, nil
}

// Delete removes a campaign that is unregistered or only temporarily registered
func (s *CampaignFlowImpl) Delete(ctx context.Context, campaignUUID string, metadata *ClientMetadata) error {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return err
	}
	if err := s.stateMachine.CanDelete(campaign); err != nil {
		return err
	}

	err = s.withCampaignLock(ctx, campaign, func(c *models.Campaign) error {
		if err := s.stateMachine.CanDelete(c); err != nil {
			return err
		}
		if c.IsRegistered() {
			if err := s.gateway.DeleteCampaign(ctx, c.Environment, *c.RemoteID); err != nil {
				return err
			}
		}
		saveCtx, cancel := outcomeContext(ctx)
		defer cancel()
		return s.campaignRepo.Delete(saveCtx, c.ID)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignDeleted, "Campaign deleted", nil, metadata)
	return nil
}

// GetCampaign returns the local view of a campaign
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, campaignUUID string) (*dto.CampaignResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	return ToCampaignResponse(campaign), nil
}

// RefreshStatus pulls the gateway status and applies it like a callback would
func (s *CampaignFlowImpl) RefreshStatus(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanRefresh(campaign); err != nil {
		return nil, err
	}

	remote, err := s.gateway.GetCampaign(ctx, campaign.Environment, *campaign.RemoteID)
	if err != nil {
		return nil, err
	}
	if remote.Simulated {
		return ToCampaignResponse(campaign), nil
	}

	var transition RemoteTransition
	err = s.persist(ctx, campaign, func(c *models.Campaign) error {
		transition = s.stateMachine.ApplyRemote(c, int(remote.StatusCode))
		if transition.Ignored {
			return nil
		}
		applyCarriedFields(c, remote.Reason, remote.SentCount, remote.TargetCount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, campaign, models.AuditActionCampaignStatusRefreshed,
		fmt.Sprintf("Status %d -> %d (wire %d)", transition.From, transition.To, transition.Raw), nil, metadata)
	return ToCampaignResponse(campaign), nil
}

// FetchStats reads the delivery counters from the gateway
func (s *CampaignFlowImpl) FetchStats(ctx context.Context, campaignUUID string) (*dto.CampaignStatsResponse, error) {
	campaign, err := s.loadCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.CanRefresh(campaign); err != nil {
		return nil, err
	}

	stats, err := s.gateway.FetchStats(ctx, campaign.Environment, *campaign.RemoteID)
	if err != nil {
		return nil, err
	}

	return &dto.CampaignStatsResponse{
		UUID:         campaign.UUID.String(),
		RemoteID:     *campaign.RemoteID,
		TargetCount:  stats.TargetCount,
		SentCount:    stats.SentCount,
		SuccessCount: stats.SuccessCount,
		FailCount:    stats.FailCount,
		ClickCount:   stats.ClickCount,
		Simulated:    stats.Simulated,
		FetchedAt:    s.now().Format(time.RFC3339),
	}, nil
}

// FetchMeta returns a gateway targeting catalog, cached in redis when configured
func (s *CampaignFlowImpl) FetchMeta(ctx context.Context, kind string) (*dto.GatewayMetaResponse, error) {
	if !metaKindPattern.MatchString(kind) {
		return nil, newValidationError("kind", "invalid meta kind %q", kind)
	}

	env := s.gateway.SelectEnvironment(nil)
	key := fmt.Sprintf("%smeta:%s:%s", s.cacheConfig.KeyPrefix, env, kind)

	if s.rc != nil {
		cached, err := s.rc.Get(ctx, key).Bytes()
		if err == nil {
			return &dto.GatewayMetaResponse{Kind: kind, Environment: string(env), Cached: true, Data: json.RawMessage(cached)}, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Meta cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	data, err := s.gateway.FetchMeta(ctx, env, kind)
	if err != nil {
		return nil, err
	}

	if s.rc != nil && !isSimulatedMeta(data) {
		if err := s.rc.Set(ctx, key, []byte(data), s.cacheConfig.MetaTTL).Err(); err != nil {
			s.logger.Warn("Meta cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &dto.GatewayMetaResponse{Kind: kind, Environment: string(env), Data: data}, nil
}

func (s *CampaignFlowImpl) loadCampaign(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	id, err := uuid.Parse(campaignUUID)
	if err != nil {
		return nil, ErrCampaignUUIDInvalid
	}
	campaign, err := s.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// withCampaignLock runs fn on a fresh copy of the campaign while holding its in-flight guard.
// The fresh copy is written back into campaign.
func (s *CampaignFlowImpl) withCampaignLock(ctx context.Context, campaign *models.Campaign, fn func(c *models.Campaign) error) error {
	release, err := s.guard.Acquire(ctx, campaign.ID)
	if err != nil {
		return err
	}
	defer release()

	fresh, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil {
		return NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if fresh == nil {
		return ErrCampaignNotFound
	}

	err = fn(fresh)
	*campaign = *fresh
	return err
}

// persist applies mutate and saves, re-reading and re-applying when a concurrent writer won
func (s *CampaignFlowImpl) persist(ctx context.Context, c *models.Campaign, mutate func(c *models.Campaign) error) error {
	for attempt := 1; ; attempt++ {
		if err := mutate(c); err != nil {
			return err
		}
		err := s.campaignRepo.Update(ctx, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCampaignConflict) || attempt >= maxSaveAttempts {
			return err
		}

		fresh, lookupErr := s.campaignRepo.ByID(ctx, c.ID)
		if lookupErr != nil {
			return lookupErr
		}
		if fresh == nil {
			return ErrCampaignNotFound
		}
		*c = *fresh
	}
}

// outcomeContext keeps the request values but not its deadline. A gateway call that used up
// the caller's deadline still gets its result written.
func outcomeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), outcomeSaveTimeout)
}

// sendTimeFor keeps a persisted send time while it is still legal so retries present the same value
func (s *CampaignFlowImpl) sendTimeFor(c *models.Campaign, requested *time.Time) time.Time {
	now := s.now()
	if requested == nil && c.ScheduledSendAt != nil && s.scheduler.IsLegal(*c.ScheduledSendAt, now) {
		return *c.ScheduledSendAt
	}
	return s.scheduler.Legalize(requested, now)
}

func (s *CampaignFlowImpl) audit(ctx context.Context, campaign *models.Campaign, action, description string, errorMsg *string, metadata *ClientMetadata) {
	entry := &models.AuditLog{
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(errorMsg == nil),
		ErrorMessage: errorMsg,
	}
	if campaign != nil && campaign.ID != 0 {
		entry.CampaignID = &campaign.ID
	}
	if metadata != nil {
		entry.IPAddress = &metadata.IPAddress
		entry.UserAgent = &metadata.UserAgent
		if metadata.Operator != "" {
			entry.Operator = &metadata.Operator
		}
	}
	if requestID := logger.RequestID(ctx); requestID != "" {
		entry.RequestID = &requestID
	}

	saveCtx, cancel := outcomeContext(ctx)
	defer cancel()
	if err := s.auditRepo.Save(saveCtx, entry); err != nil {
		logger.WithRequestID(ctx, s.logger).Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// gatewayMessage prefers the gateway's own wording for business failures
func gatewayMessage(err error) string {
	var be *services.GatewayBusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}

func applyCarriedFields(c *models.Campaign, reason *string, sent, target *int64) {
	if reason != nil {
		c.SendReason = reason
	}
	if sent != nil {
		c.SentCount = sent
	}
	if target != nil {
		c.TargetCount = target
	}
}

func normalizeRecipients(values []string) ([]string, error) {
	cleaner := strings.NewReplacer("-", "", " ", "")
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, cleaner.Replace(v))
	}
	out = utils.NormalizeCodes(out)

	if len(out) == 0 {
		return nil, newValidationError("recipients", "at least one recipient is required")
	}
	if len(out) > utils.MaxTestSendRecipients {
		return nil, newValidationError("recipients", "at most %d recipients are allowed", utils.MaxTestSendRecipients)
	}
	for _, r := range out {
		if !mobilePattern.MatchString(r) {
			return nil, newValidationError("recipients", "invalid mobile number %q", r)
		}
	}
	return out, nil
}

func isSimulatedMeta(data json.RawMessage) bool {
	var marker struct {
		Simulated bool `json:"simulated"`
	}
	return json.Unmarshal(data, &marker) == nil && marker.Simulated
}
