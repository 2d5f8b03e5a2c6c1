package services

import (
	"fmt"

	"github.com/amirphl/gateway-campaign-broker/config"
	"github.com/amirphl/gateway-campaign-broker/models"
)

// GatewayOperation names a gateway call for routing, logging and metrics
type GatewayOperation string

const (
	OpCreateCampaign  GatewayOperation = "create_campaign"
	OpRequestApproval GatewayOperation = "request_approval"
	OpTestSend        GatewayOperation = "test_send"
	OpDeleteCampaign  GatewayOperation = "delete_campaign"
	OpGetCampaign     GatewayOperation = "get_campaign"
	OpFindCampaign    GatewayOperation = "find_campaign"
	OpFetchStats      GatewayOperation = "fetch_stats"
	OpFetchMeta       GatewayOperation = "fetch_meta"
)

// ReadOnly reports whether the operation neither mutates gateway state nor spends money
func (o GatewayOperation) ReadOnly() bool {
	switch o {
	case OpGetCampaign, OpFindCampaign, OpFetchStats, OpFetchMeta:
		return true
	default:
		return false
	}
}

// ResolvedEnvironment is the routing and credential set for one gateway call
type ResolvedEnvironment struct {
	Name         models.GatewayEnvironment
	BaseURL      string
	APIKey       string
	SenderNumber string
	// Simulated calls never leave the process
	Simulated bool
}

// EnvironmentResolver selects the gateway environment and credentials for a call.
// It is built once at startup and shared.
type EnvironmentResolver struct {
	gateway    config.GatewayConfig
	deployment *models.GatewayEnvironment
	fallback   models.GatewayEnvironment
}

// NewEnvironmentResolver creates a resolver from the gateway and deployment configuration
func NewEnvironmentResolver(gw config.GatewayConfig, deployment config.DeploymentConfig) (*EnvironmentResolver, error) {
	fallback, err := models.ParseGatewayEnvironment(gw.DefaultEnvironment)
	if err != nil {
		return nil, err
	}

	r := &EnvironmentResolver{gateway: gw, fallback: fallback}
	if env, ok := deployment.GatewayEnvironment(); ok {
		r.deployment = &env
	}
	return r, nil
}

// Select applies the precedence: override, force-sandbox flag, deployment signal, configured default
func (r *EnvironmentResolver) Select(override *models.GatewayEnvironment) models.GatewayEnvironment {
	switch {
	case override != nil && override.Valid():
		return *override
	case r.gateway.ForceSandbox:
		return models.GatewayEnvironmentSandbox
	case r.deployment != nil:
		return *r.deployment
	default:
		return r.fallback
	}
}

// Resolve returns the credentials for op in the selected environment.
// Without an API key the call fails closed unless simulation is enabled, the
// environment is sandbox and op is read-only.
func (r *EnvironmentResolver) Resolve(override *models.GatewayEnvironment, op GatewayOperation) (ResolvedEnvironment, error) {
	name := r.Select(override)
	ep := r.gateway.Endpoint(name)

	resolved := ResolvedEnvironment{
		Name:         name,
		BaseURL:      ep.BaseURL,
		APIKey:       ep.APIKey,
		SenderNumber: ep.SenderNumber,
	}
	if ep.APIKey != "" {
		return resolved, nil
	}

	if r.gateway.SimulateUnconfigured && name == models.GatewayEnvironmentSandbox && op.ReadOnly() {
		resolved.Simulated = true
		return resolved, nil
	}

	return ResolvedEnvironment{}, fmt.Errorf("%w: environment %s, operation %s", ErrGatewayCredentialMissing, name, op)
}
