// Package config defines the global configuration structure for the Nimbus
// backend. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles: values come from the
// OS environment, optionally seeded by a .env file in development.
//
// Any missing required value or invalid format causes startup to fail fast.
package config

import (
	"time"

	"nimbus/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for configuration values that must never appear in logs.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"nimbus-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AuthConfig holds session and cookie settings.
type AuthConfig struct {
	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"168h"` // 7 days
	CookieName      string        `envconfig:"SESSION_COOKIE_NAME" default:"session_id"`
	CookieSecure    bool          `envconfig:"SESSION_COOKIE_SECURE" default:"true"`
	CookieDomain    string        `envconfig:"SESSION_COOKIE_DOMAIN"`
}

// LLMConfig holds the optional language-model backend settings. The backend
// is feature-detected: an empty APIKey means the answer engine runs in pure
// simulated mode and never makes an outbound call.
type LLMConfig struct {
	APIKey      SecretString  `envconfig:"OPENAI_API_KEY"`
	Model       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL     string        `envconfig:"OPENAI_BASE_URL"` // override for testing; empty means api.openai.com
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"15s"`
	Temperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.2"`
}

// Enabled reports whether a language-model backend is configured.
func (c LLMConfig) Enabled() bool {
	return c.APIKey.Unmask() != ""
}

// SecurityConfig holds CORS and brute force protection settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	IPBlockThreshold         int           `envconfig:"SEC_IP_BLOCK_THRESHOLD" default:"100"`
	IdentifierBlockThreshold int           `envconfig:"SEC_IDENT_BLOCK_THRESHOLD" default:"5"`
	BlockWindow              time.Duration `envconfig:"SEC_BLOCK_WINDOW" default:"15m"`
}
