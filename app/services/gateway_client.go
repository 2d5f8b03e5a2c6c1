package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amirphl/gateway-campaign-broker/app/logger"
	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

const redacted = "[REDACTED]"

// Gateway API paths
const (
	pathCampaigns = "/api/v1/campaigns"
	pathMeta      = "/api/v1/meta"
)

// GatewayClient translates local intents into gateway calls.
// Every method routes to the environment it is given.
type GatewayClient interface {
	SelectEnvironment(override *models.GatewayEnvironment) models.GatewayEnvironment
	CreateCampaign(ctx context.Context, env models.GatewayEnvironment, req CreateGatewayCampaignRequest) (*GatewayCampaign, error)
	RequestApproval(ctx context.Context, env models.GatewayEnvironment, remoteID string) (*GatewayCampaign, error)
	TestSend(ctx context.Context, env models.GatewayEnvironment, remoteID string, recipients []string) error
	DeleteCampaign(ctx context.Context, env models.GatewayEnvironment, remoteID string) error
	GetCampaign(ctx context.Context, env models.GatewayEnvironment, remoteID string) (*GatewayCampaign, error)
	FindByExternalID(ctx context.Context, env models.GatewayEnvironment, externalID string) (*GatewayCampaign, error)
	FetchStats(ctx context.Context, env models.GatewayEnvironment, remoteID string) (*GatewayCampaignStats, error)
	FetchMeta(ctx context.Context, env models.GatewayEnvironment, kind string) (json.RawMessage, error)
}

// CreateGatewayCampaignRequest is the local intent of a registration
type CreateGatewayCampaignRequest struct {
	ExternalID   string
	Title        string
	Message      string
	SenderNumber string
	SendAt       time.Time
	Filter       models.FilterExpression
	Description  string
}

// GatewayCampaign is the gateway's view of a campaign. StatusCode is the raw wire code.
type GatewayCampaign struct {
	RemoteID    string        `json:"campaignId"`
	ExternalID  string        `json:"externalId,omitempty"`
	StatusCode  utils.FlexInt `json:"statusCode"`
	SendTime    string        `json:"sendTime,omitempty"`
	TargetCount *int64        `json:"targetCount,omitempty"`
	SentCount   *int64        `json:"sentCount,omitempty"`
	Reason      *string       `json:"reason,omitempty"`

	Simulated bool `json:"-"`
}

// GatewayCampaignStats are the delivery counters of a campaign
type GatewayCampaignStats struct {
	TargetCount  int64 `json:"targetCount"`
	SentCount    int64 `json:"sentCount"`
	SuccessCount int64 `json:"successCount"`
	FailCount    int64 `json:"failCount"`
	ClickCount   int64 `json:"clickCount"`

	Simulated bool `json:"-"`
}

type createCampaignBody struct {
	ExternalID   string                  `json:"externalId"`
	Title        string                  `json:"title"`
	Message      string                  `json:"message"`
	SenderNumber string                  `json:"senderNumber"`
	SendTime     string                  `json:"sendTime"`
	Filter       models.FilterExpression `json:"filter"`
	FilterDesc   string                  `json:"filterDesc"`
}

type testSendBody struct {
	Recipients []string `json:"recipients"`
}

type gatewayEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type campaignList struct {
	Items []GatewayCampaign `json:"items"`
}

// GatewayClientImpl implements GatewayClient
type GatewayClientImpl struct {
	resolver     *EnvironmentResolver
	transport    GatewayTransport
	apiKeyHeader string
	bodyLimit    int
	logger       *zap.Logger
}

// NewGatewayClient creates a gateway client
func NewGatewayClient(resolver *EnvironmentResolver, transport GatewayTransport, apiKeyHeader string, bodyLimit int, log *zap.Logger) GatewayClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &GatewayClientImpl{
		resolver:     resolver,
		transport:    transport,
		apiKeyHeader: apiKeyHeader,
		bodyLimit:    bodyLimit,
		logger:       log,
	}
}

// SelectEnvironment returns the environment a new campaign should be bound to
func (c *GatewayClientImpl) SelectEnvironment(override *models.GatewayEnvironment) models.GatewayEnvironment {
	return c.resolver.Select(override)
}

// CreateCampaign registers a campaign at the gateway
func (c *GatewayClientImpl) CreateCampaign(ctx context.Context, env models.GatewayEnvironment, req CreateGatewayCampaignRequest) (*GatewayCampaign, error) {
	res, err := c.resolve(env, OpCreateCampaign)
	if err != nil {
		return nil, err
	}

	sender := req.SenderNumber
	if sender == "" {
		sender = res.SenderNumber
	}
	body := createCampaignBody{
		ExternalID:   req.ExternalID,
		Title:        req.Title,
		Message:      req.Message,
		SenderNumber: sender,
		SendTime:     FormatSendTime(req.SendAt),
		Filter:       req.Filter,
		FilterDesc:   req.Description,
	}

	var out GatewayCampaign
	if err := c.do(ctx, res, OpCreateCampaign, http.MethodPost, pathCampaigns, nil, body, &out); err != nil {
		return nil, err
	}
	if out.RemoteID == "" {
		return nil, &GatewayTransportError{Op: OpCreateCampaign, Err: errors.New("response carries no campaign id")}
	}
	return &out, nil
}

// RequestApproval submits a registered campaign for review
func (c *GatewayClientImpl) RequestApproval(ctx context.Context, env models.GatewayEnvironment, remoteID string) (*GatewayCampaign, error) {
	res, err := c.resolve(env, OpRequestApproval)
	if err != nil {
		return nil, err
	}

	var out GatewayCampaign
	if err := c.do(ctx, res, OpRequestApproval, http.MethodPost, campaignPath(remoteID, "approval"), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.RemoteID == "" {
		out.RemoteID = remoteID
	}
	return &out, nil
}

// TestSend delivers the campaign message to a few recipients
func (c *GatewayClientImpl) TestSend(ctx context.Context, env models.GatewayEnvironment, remoteID string, recipients []string) error {
	res, err := c.resolve(env, OpTestSend)
	if err != nil {
		return err
	}
	return c.do(ctx, res, OpTestSend, http.MethodPost, campaignPath(remoteID, "test-send"), nil, testSendBody{Recipients: recipients}, nil)
}

// DeleteCampaign removes a temporarily registered campaign at the gateway
func (c *GatewayClientImpl) DeleteCampaign(ctx context.Context, env models.GatewayEnvironment, remoteID string) error {
	res, err := c.resolve(env, OpDeleteCampaign)
	if err != nil {
		return err
	}
	return c.do(ctx, res, OpDeleteCampaign, http.MethodDelete, campaignPath(remoteID, ""), nil, nil, nil)
}

// GetCampaign reads the gateway's current view of a campaign
func (c *GatewayClientImpl) GetCampaign(ctx context.Context, env models.GatewayEnvironment, remoteID string) (*GatewayCampaign, error) {
	res, err := c.resolve(env, OpGetCampaign)
	if err != nil {
		return nil, err
	}
	if res.Simulated {
		return &GatewayCampaign{RemoteID: remoteID, StatusCode: utils.FlexInt(models.StatusCodeUnknown), Simulated: true}, nil
	}

	var out GatewayCampaign
	if err := c.do(ctx, res, OpGetCampaign, http.MethodGet, campaignPath(remoteID, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.RemoteID == "" {
		out.RemoteID = remoteID
	}
	return &out, nil
}

// FindByExternalID looks a campaign up by the local identifier sent at registration.
// It returns nil without error when the gateway holds no such campaign.
func (c *GatewayClientImpl) FindByExternalID(ctx context.Context, env models.GatewayEnvironment, externalID string) (*GatewayCampaign, error) {
	res, err := c.resolve(env, OpFindCampaign)
	if err != nil {
		return nil, err
	}
	if res.Simulated {
		return nil, nil
	}

	var out campaignList
	err = c.do(ctx, res, OpFindCampaign, http.MethodGet, pathCampaigns, map[string]string{"externalId": externalID}, nil, &out)
	if err != nil {
		if IsGatewayNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	for i := range out.Items {
		if out.Items[i].ExternalID == externalID && out.Items[i].RemoteID != "" {
			return &out.Items[i], nil
		}
	}
	return nil, nil
}

// FetchStats reads the delivery counters of a campaign
func (c *GatewayClientImpl) FetchStats(ctx context.Context, env models.GatewayEnvironment, remoteID string) (*GatewayCampaignStats, error) {
	res, err := c.resolve(env, OpFetchStats)
	if err != nil {
		return nil, err
	}
	if res.Simulated {
		return &GatewayCampaignStats{Simulated: true}, nil
	}

	var out GatewayCampaignStats
	if err := c.do(ctx, res, OpFetchStats, http.MethodGet, campaignPath(remoteID, "stats"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchMeta reads a targeting metadata catalog, e.g. regions or interests
func (c *GatewayClientImpl) FetchMeta(ctx context.Context, env models.GatewayEnvironment, kind string) (json.RawMessage, error) {
	res, err := c.resolve(env, OpFetchMeta)
	if err != nil {
		return nil, err
	}
	if res.Simulated {
		return json.RawMessage(`{"simulated":true,"items":[]}`), nil
	}

	var out json.RawMessage
	if err := c.do(ctx, res, OpFetchMeta, http.MethodGet, pathMeta+"/"+url.PathEscape(kind), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GatewayClientImpl) resolve(env models.GatewayEnvironment, op GatewayOperation) (ResolvedEnvironment, error) {
	res, err := c.resolver.Resolve(&env, op)
	if err != nil {
		recordGatewayCall(op, string(env), outcomeConfiguration, nil)
		return res, err
	}
	if res.Simulated {
		recordGatewayCall(op, string(res.Name), outcomeSimulated, nil)
		c.logger.Warn("Gateway call simulated: no credential configured",
			zap.String("operation", string(op)),
			zap.String("environment", string(res.Name)))
	}
	return res, nil
}

// do performs one request and decodes the envelope data into out
func (c *GatewayClientImpl) do(ctx context.Context, res ResolvedEnvironment, op GatewayOperation, method, path string, query map[string]string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	correlationID := strconv.FormatInt(utils.UTCNowMilli(), 10)
	req := &GatewayHTTPRequest{
		Method: method,
		URL:    strings.TrimRight(res.BaseURL, "/") + path,
		Headers: map[string]string{
			c.apiKeyHeader:            res.APIKey,
			utils.CorrelationIDHeader: correlationID,
		},
		Query: query,
		Body:  payload,
	}

	log := logger.WithRequestID(ctx, c.logger).With(
		zap.String("operation", string(op)),
		zap.String("environment", string(res.Name)),
		zap.String("correlation_id", correlationID),
	)
	log.Info("Gateway request",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Any("headers", c.redactHeaders(req.Headers)),
		zap.String("body", utils.Truncate(string(payload), c.bodyLimit)))

	started := time.Now()
	resp, err := c.transport.Send(ctx, req)
	env := string(res.Name)
	if err != nil {
		timeout := isTimeout(ctx, err)
		outcome := outcomeTransportError
		if timeout {
			outcome = outcomeTimeout
		}
		recordGatewayCall(op, env, outcome, &started)
		log.Error("Gateway request failed", zap.Bool("timeout", timeout), zap.Error(err))
		return &GatewayTransportError{Op: op, Timeout: timeout, Err: err}
	}

	log.Info("Gateway response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
		zap.String("body", utils.Truncate(string(resp.Body), c.bodyLimit)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordGatewayCall(op, env, outcomeHTTPError, &started)
		return &GatewayTransportError{Op: op, StatusCode: resp.StatusCode}
	}

	var envelope gatewayEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil || envelope.Code == "" {
		recordGatewayCall(op, env, outcomeInvalidEnvelope, &started)
		if err == nil {
			err = errors.New("missing result code")
		}
		return &GatewayTransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid envelope: %w", err)}
	}

	if envelope.Code != utils.GatewaySuccessCode {
		recordGatewayCall(op, env, outcomeBusinessError, &started)
		log.Warn("Gateway rejected request", zap.String("code", envelope.Code), zap.String("msg", envelope.Msg))
		return &GatewayBusinessError{Op: op, Code: envelope.Code, Message: envelope.Msg}
	}

	if out != nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			recordGatewayCall(op, env, outcomeInvalidEnvelope, &started)
			return &GatewayTransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid envelope data: %w", err)}
		}
	}

	recordGatewayCall(op, env, outcomeSuccess, &started)
	return nil
}

func (c *GatewayClientImpl) redactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if strings.EqualFold(k, c.apiKeyHeader) {
			v = redacted
		}
		out[k] = v
	}
	return out
}

// FormatSendTime renders t as the gateway's Asia/Seoul wall clock
func FormatSendTime(t time.Time) string {
	return t.In(utils.SeoulLocation()).Format(utils.GatewaySendTimeLayout)
}

func campaignPath(remoteID, action string) string {
	p := pathCampaigns + "/" + url.PathEscape(remoteID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
