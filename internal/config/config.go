// Package config defines the recipebox process configuration. It is loaded
// once at startup and treated as immutable afterwards.
//
// Values are resolved in priority order:
//
//	OS environment -> .env file -> AWS SSM Parameter Store
//
// A missing required value or an invalid format fails LoadConfig, and the
// process refuses to start.
package config

import (
	"time"

	"recipebox/internal/types"
)

// SecretString is the redacted secret type used for credentials.
type SecretString = types.SecretString

// Store backends for the server-side remote store.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Local backends for the device-side store.
const (
	LocalBackendFile   = "file"
	LocalBackendRedis  = "redis"
	LocalBackendMemory = "memory"
)

// Config is the top-level configuration. Components receive only the
// section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"recipebox-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	Generator     GeneratorConfig
	Local         LocalConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	AWS           AWSConfig

	// Injected via ldflags, not the environment.
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	// PreviewRateLimit caps anonymous preview generations per client IP per hour.
	PreviewRateLimit int `envconfig:"PREVIEW_RATE_LIMIT" default:"20" validate:"min=0"`
}

// DatabaseConfig selects and tunes the remote store.
type DatabaseConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"postgres" validate:"oneof=postgres memory"`
	// Required when Backend is postgres.
	URL SecretString `envconfig:"DATABASE_URL" validate:"required_if=Backend postgres"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
	AutoMigrate       bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// GeneratorConfig configures the content generation gateway.
type GeneratorConfig struct {
	APIKey    SecretString  `envconfig:"GENERATOR_API_KEY" validate:"required"`
	BaseURL   string        `envconfig:"GENERATOR_BASE_URL" validate:"omitempty,url"`
	Model     string        `envconfig:"GENERATOR_MODEL" default:"gpt-4o-mini"`
	MaxTokens int           `envconfig:"GENERATOR_MAX_TOKENS" default:"4096" validate:"min=256"`
	Timeout   time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"60s"`
}

// LocalConfig configures the device-local store used by cmd/kitchen.
type LocalConfig struct {
	Backend       string       `envconfig:"LOCAL_BACKEND" default:"file" validate:"oneof=file redis memory"`
	Dir           string       `envconfig:"LOCAL_DIR" default:".recipebox"`
	RedisAddr     string       `envconfig:"LOCAL_REDIS_ADDR" default:"localhost:6379" validate:"required_if=Backend redis"`
	RedisPassword SecretString `envconfig:"LOCAL_REDIS_PASSWORD"`
	RedisDB       int          `envconfig:"LOCAL_REDIS_DB" default:"0" validate:"min=0"`
	RedisPrefix   string       `envconfig:"LOCAL_REDIS_PREFIX" default:"recipebox"`
	APIBaseURL    string       `envconfig:"API_BASE_URL" default:"http://localhost:8080" validate:"url"`
}

// AuthConfig holds session settings. DevSessions seeds "token:userID"
// pairs into the in-memory session store for local development.
type AuthConfig struct {
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	DevSessions []string      `envconfig:"DEV_SESSIONS"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"RecipeBox"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// AWSConfig holds regional settings shared by SSM and CloudWatch.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// LocalStack override; empty in deployed environments.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
