package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/gateway-campaign-broker/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 600, cfg.Server.CallbackRateLimit)
	assert.Equal(t, "v2", cfg.Gateway.ContractVersion)
	assert.Equal(t, "sandbox", cfg.Gateway.DefaultEnvironment)
	assert.Equal(t, 20*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "X-Api-Key", cfg.Gateway.APIKeyHeader)
	assert.Equal(t, []string{"X-Callback-Secret", "X-Webhook-Secret", "X-Api-Key"}, cfg.Callback.Headers)
	assert.Equal(t, 2*time.Minute, cfg.Cache.LockTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadConfig_NestedPrefixes(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("GATEWAY_PRODUCTION_BASE_URL", "https://gw.example.com")
	t.Setenv("GATEWAY_PRODUCTION_API_KEY", "prod-key")
	t.Setenv("GATEWAY_SANDBOX_SENDER_NUMBER", "15880000")
	t.Setenv("CALLBACK_HEADERS", "X-Signature,X-Api-Key")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	prod := cfg.Gateway.Endpoint(models.GatewayEnvironmentProduction)
	assert.Equal(t, "https://gw.example.com", prod.BaseURL)
	assert.Equal(t, "prod-key", prod.APIKey)
	assert.Equal(t, "15880000", cfg.Gateway.Endpoint(models.GatewayEnvironmentSandbox).SenderNumber)
	assert.Equal(t, []string{"X-Signature", "X-Api-Key"}, cfg.Callback.Headers)
	assert.Len(t, cfg.Server.AllowedOrigins, 2)
}

func TestLoadConfig_RejectsMissingSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "short")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Gateway.ContractVersion = "v9"
	cfg.Gateway.DefaultEnvironment = "moon"
	cfg.Gateway.Sandbox.APIKey = "key-without-url"
	cfg.Cache.LockTTL = cfg.Gateway.Timeout
	cfg.Callback.Headers = nil

	err = Validate(cfg)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"SERVER_PORT",
		"GATEWAY_CONTRACT_VERSION",
		"GATEWAY_DEFAULT_ENV",
		"GATEWAY_SANDBOX_BASE_URL",
		"CACHE_LOCK_TTL",
		"CALLBACK_HEADERS",
	} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %q", want, msg)
	}
}

func TestValidate_RequestTimeoutCoversGatewayCall(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("GATEWAY_TIMEOUT", "28s")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_REQUEST_TIMEOUT")

	t.Setenv("SERVER_REQUEST_TIMEOUT", "33s")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 33*time.Second, cfg.Server.RequestTimeout)

	cfg.Server.RequestTimeout = cfg.Gateway.Timeout
	assert.ErrorContains(t, Validate(cfg), "SERVER_REQUEST_TIMEOUT")
}

func TestDeploymentConfig_GatewayEnvironment(t *testing.T) {
	tests := []struct {
		signal string
		want   models.GatewayEnvironment
		ok     bool
	}{
		{"", "", false},
		{"  ", "", false},
		{"production", models.GatewayEnvironmentProduction, true},
		{"PROD", models.GatewayEnvironmentProduction, true},
		{"staging", models.GatewayEnvironmentSandbox, true},
		{"development", models.GatewayEnvironmentSandbox, true},
	}

	for _, tt := range tests {
		t.Run(tt.signal, func(t *testing.T) {
			env, ok := DeploymentConfig{Environment: tt.signal}.GatewayEnvironment()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, env)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require TimeZone=UTC", d.DSN())
}
