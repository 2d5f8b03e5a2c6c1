// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/amirphl/gateway-campaign-broker/models"
)

// Config holds all configuration of the broker. Nested sections are parsed
// with their envPrefix.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Database   DatabaseConfig   `envPrefix:"DB_"`
	Cache      CacheConfig      `envPrefix:"CACHE_"`
	Logging    LoggingConfig    `envPrefix:"LOG_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
	Deployment DeploymentConfig `envPrefix:"APP_"`
	Auth       AuthConfig       `envPrefix:"AUTH_"`
	Gateway    GatewayConfig    `envPrefix:"GATEWAY_"`
	Callback   CallbackConfig   `envPrefix:"CALLBACK_"`
}

type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"20s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	BodyLimit       int           `env:"BODY_LIMIT" envDefault:"1048576"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	// requests per minute per client on the callback endpoint
	CallbackRateLimit int `env:"CALLBACK_RATE_LIMIT" envDefault:"600"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"campaign_broker"`
	User            string        `env:"USER" envDefault:"postgres"`
	Password        string        `env:"PASSWORD"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	SlowQueryTime   time.Duration `env:"SLOW_QUERY_TIME" envDefault:"500ms"`
	// Statement timeout bounds every record store call
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT" envDefault:"5s"`
	AutoMigrate      bool          `env:"AUTO_MIGRATE" envDefault:"false"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type CacheConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"false"`
	RedisURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"gcb:"`
	MetaTTL   time.Duration `env:"META_TTL" envDefault:"10m"`
	// LockTTL must exceed the gateway timeout so a lock never expires under a live call
	LockTTL time.Duration `env:"LOCK_TTL" envDefault:"2m"`
}

type LoggingConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Encoding   string `env:"ENCODING" envDefault:"json"`
	Output     string `env:"OUTPUT" envDefault:"stdout"`
	FilePath   string `env:"FILE_PATH" envDefault:"logs/broker.log"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"7"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

type DeploymentConfig struct {
	// Environment is the deployment signal, e.g. production, staging, development.
	// Empty leaves gateway routing to GATEWAY_DEFAULT_ENV.
	Environment string `env:"ENV"`
}

// GatewayEnvironment maps the deployment signal to a gateway environment.
// ok is false when the signal is empty.
func (d DeploymentConfig) GatewayEnvironment() (env models.GatewayEnvironment, ok bool) {
	switch strings.ToLower(strings.TrimSpace(d.Environment)) {
	case "":
		return "", false
	case "production", "prod":
		return models.GatewayEnvironmentProduction, true
	default:
		return models.GatewayEnvironmentSandbox, true
	}
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"campaign-broker"`
	Audience  string `env:"JWT_AUDIENCE" envDefault:"campaign-broker-operators"`
}

type GatewayConfig struct {
	ContractVersion      string        `env:"CONTRACT_VERSION" envDefault:"v2"`
	DefaultEnvironment   string        `env:"DEFAULT_ENV" envDefault:"sandbox"`
	ForceSandbox         bool          `env:"FORCE_SANDBOX" envDefault:"false"`
	SimulateUnconfigured bool          `env:"SIMULATE_UNCONFIGURED" envDefault:"false"`
	Timeout              time.Duration `env:"TIMEOUT" envDefault:"20s"`
	LogBodyLimit         int           `env:"LOG_BODY_LIMIT" envDefault:"2048"`
	APIKeyHeader         string        `env:"API_KEY_HEADER" envDefault:"X-Api-Key"`

	Sandbox    GatewayEndpointConfig `envPrefix:"SANDBOX_"`
	Production GatewayEndpointConfig `envPrefix:"PRODUCTION_"`
}

// Endpoint returns the endpoint configured for env
func (g GatewayConfig) Endpoint(env models.GatewayEnvironment) GatewayEndpointConfig {
	if env == models.GatewayEnvironmentProduction {
		return g.Production
	}
	return g.Sandbox
}

type GatewayEndpointConfig struct {
	BaseURL      string `env:"BASE_URL"`
	APIKey       string `env:"API_KEY"`
	SenderNumber string `env:"SENDER_NUMBER"`
}

type CallbackConfig struct {
	Secret string `env:"SECRET"`
	// Header names checked in order; the gateway renamed its header across contract versions
	Headers []string `env:"HEADERS" envSeparator:"," envDefault:"X-Callback-Secret,X-Webhook-Secret,X-Api-Key"`
}

// LoadConfig loads .env when present and parses the environment into a Config
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration and reports every problem at once
// RequestTimeoutMargin is the least headroom a request keeps over its gateway call
const RequestTimeoutMargin = 5 * time.Second

func Validate(cfg *Config) error {
	var problems []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		problems = append(problems, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		problems = append(problems, "SERVER_WRITE_TIMEOUT must be positive")
	}

	if cfg.Database.Host == "" {
		problems = append(problems, "DB_HOST is required")
	}
	if cfg.Database.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}
	if cfg.Database.StatementTimeout <= 0 {
		problems = append(problems, "DB_STATEMENT_TIMEOUT must be positive")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		problems = append(problems, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		problems = append(problems, "CACHE_REDIS_URL is required when cache is enabled")
	}
	if cfg.Cache.LockTTL <= cfg.Gateway.Timeout {
		problems = append(problems, "CACHE_LOCK_TTL must exceed GATEWAY_TIMEOUT")
	}
	// a handler must outlive the gateway call it waits on, plus the writes that follow it
	if cfg.Server.RequestTimeout < cfg.Gateway.Timeout+RequestTimeoutMargin {
		problems = append(problems, fmt.Sprintf("SERVER_REQUEST_TIMEOUT must exceed GATEWAY_TIMEOUT by at least %s", RequestTimeoutMargin))
	}

	if len(cfg.Auth.JWTSecret) < 32 {
		problems = append(problems, "AUTH_JWT_SECRET must be at least 32 characters long")
	}

	if _, err := models.StatusTableFor(models.ContractVersion(cfg.Gateway.ContractVersion)); err != nil {
		problems = append(problems, "GATEWAY_CONTRACT_VERSION: "+err.Error())
	}
	if _, err := models.ParseGatewayEnvironment(cfg.Gateway.DefaultEnvironment); err != nil {
		problems = append(problems, "GATEWAY_DEFAULT_ENV: "+err.Error())
	}
	if cfg.Gateway.Timeout <= 0 {
		problems = append(problems, "GATEWAY_TIMEOUT must be positive")
	}
	if cfg.Gateway.LogBodyLimit <= 0 {
		problems = append(problems, "GATEWAY_LOG_BODY_LIMIT must be positive")
	}
	if cfg.Gateway.APIKeyHeader == "" {
		problems = append(problems, "GATEWAY_API_KEY_HEADER is required")
	}
	if cfg.Gateway.Production.APIKey != "" && cfg.Gateway.Production.BaseURL == "" {
		problems = append(problems, "GATEWAY_PRODUCTION_BASE_URL is required when a production API key is set")
	}
	if cfg.Gateway.Sandbox.APIKey != "" && cfg.Gateway.Sandbox.BaseURL == "" {
		problems = append(problems, "GATEWAY_SANDBOX_BASE_URL is required when a sandbox API key is set")
	}

	if len(cfg.Callback.Headers) == 0 {
		problems = append(problems, "CALLBACK_HEADERS must name at least one header")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}

	return nil
}
