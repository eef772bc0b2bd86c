package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is returned by the loaders so startup failures say which stage
// went wrong.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FOO_SSM_PARAM=/path/in/ssm resolves into FOO.
const ssmParamSuffix = "_SSM_PARAM"

const localEnv = "local"

const ssmResolveTimeout = 20 * time.Second

// osEnv abstracts the process environment for tests.
type osEnv struct {
	lookup  func(string) (string, bool)
	set     func(string, string) error
	environ func() []string
}

func processEnv() osEnv {
	return osEnv{lookup: os.LookupEnv, set: os.Setenv, environ: os.Environ}
}

// LoadConfig loads and validates the server configuration:
//
//  1. force UTC
//  2. load .env (missing file is fine, existing variables win)
//  3. outside APP_ENV=local, resolve *_SSM_PARAM pointers through provider
//  4. envconfig into Config
//  5. attach BuildInfo
//  6. validate
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfig(provider, processEnv())
}

func loadConfig(provider SecretProvider, env osEnv) (*Config, error) {
	time.Local = time.UTC
	_ = godotenv.Load()

	if appEnv, _ := env.lookup("APP_ENV"); appEnv != localEnv {
		if err := resolveSSMParams(provider, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment", Err: err}
	}
	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	return &cfg, nil
}

// DeviceConfig is the subset read by the kitchen CLI. It never touches SSM.
type DeviceConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn" validate:"oneof=debug info warn error"`
	Local    LocalConfig
}

// LoadDeviceConfig loads the device-side configuration.
func LoadDeviceConfig() (*DeviceConfig, error) {
	_ = godotenv.Load()

	var cfg DeviceConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment", Err: err}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	return &cfg, nil
}

// resolveSSMParams fetches every *_SSM_PARAM pointer whose target variable is
// not already set and writes the values back into the environment.
func resolveSSMParams(provider SecretProvider, env osEnv) error {
	pathToTarget := make(map[string]string)
	for _, entry := range env.environ() {
		key, path, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasSuffix(key, ssmParamSuffix) || path == "" {
			continue
		}
		target := strings.TrimSuffix(key, ssmParamSuffix)
		if _, set := env.lookup(target); set {
			continue
		}
		pathToTarget[path] = target
	}
	if len(pathToTarget) == 0 {
		return nil
	}

	paths := make([]string, 0, len(pathToTarget))
	for p := range pathToTarget {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if provider == nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: "a SecretProvider is required to resolve: " + strings.Join(targetsOf(paths, pathToTarget), ", "),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ssmResolveTimeout)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, p := range paths {
		value, ok := resolved[p]
		if !ok {
			missing = append(missing, pathToTarget[p])
			continue
		}
		if err := env.set(pathToTarget[p], value); err != nil {
			return &ConfigError{Type: ErrSSMResolution, Message: "failed to set " + pathToTarget[p], Err: err}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "SSM parameters not found for: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

func targetsOf(paths []string, pathToTarget map[string]string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, pathToTarget[p])
	}
	return out
}
