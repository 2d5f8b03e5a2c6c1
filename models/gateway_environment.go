package models

import (
	"database/sql/driver"
	"fmt"
)

// GatewayEnvironment selects which gateway deployment a campaign lives in
type GatewayEnvironment string

const (
	GatewayEnvironmentSandbox    GatewayEnvironment = "sandbox"
	GatewayEnvironmentProduction GatewayEnvironment = "production"
)

// ParseGatewayEnvironment accepts the configured spellings of an environment
func ParseGatewayEnvironment(s string) (GatewayEnvironment, error) {
	switch s {
	case "sandbox", "dev", "development", "staging", "test":
		return GatewayEnvironmentSandbox, nil
	case "production", "prod":
		return GatewayEnvironmentProduction, nil
	default:
		return "", fmt.Errorf("unknown gateway environment: %q", s)
	}
}

func (e GatewayEnvironment) String() string {
	return string(e)
}

// Valid checks if the environment is valid
func (e GatewayEnvironment) Valid() bool {
	return e == GatewayEnvironmentSandbox || e == GatewayEnvironmentProduction
}

// Scan implements the sql.Scanner interface for GatewayEnvironment
func (e *GatewayEnvironment) Scan(value any) error {
	if value == nil {
		*e = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*e = GatewayEnvironment(v)
	case []byte:
		*e = GatewayEnvironment(string(v))
	default:
		return fmt.Errorf("cannot scan %T into GatewayEnvironment", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for GatewayEnvironment
func (e GatewayEnvironment) Value() (driver.Value, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid GatewayEnvironment: %s", e)
	}
	return string(e), nil
}
