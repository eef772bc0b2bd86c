package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeSecrets struct {
	values map[string]string
	err    error
	asked  []string
}

func (f *fakeSecrets) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	f.asked = append(f.asked, keys...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := f.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// mapEnv is an in-memory environment for resolveSSMParams tests.
type mapEnv map[string]string

func (m mapEnv) osEnv() osEnv {
	return osEnv{
		lookup: func(k string) (string, bool) {
			v, ok := m[k]
			return v, ok
		},
		set: func(k, v string) error {
			m[k] = v
			return nil
		},
		environ: func() []string {
			out := make([]string, 0, len(m))
			for k, v := range m {
				out = append(out, k+"="+v)
			}
			return out
		},
	}
}

func setLocalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GENERATOR_API_KEY", "sk-test")
}

func TestLoadConfig_LocalMemoryDefaults(t *testing.T) {
	setLocalEnv(t)

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Backend != StoreBackendMemory {
		t.Errorf("Backend = %q", cfg.Database.Backend)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Generator.APIKey.Unmask() != "sk-test" {
		t.Error("generator key not loaded")
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q", cfg.Build.Version)
	}
	if time.Local != time.UTC {
		t.Error("LoadConfig must force UTC")
	}
}

func TestLoadConfig_PostgresRequiresURL(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := LoadConfig(nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
		t.Fatalf("want VALIDATION_FAILED, got %v", err)
	}
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("LOCAL_BACKEND", "sqlite")

	_, err := LoadConfig(nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
		t.Fatalf("want VALIDATION_FAILED, got %v", err)
	}
}

func TestLoadConfig_BadDurationIsParsingError(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := LoadConfig(nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrParsing {
		t.Fatalf("want PARSING_FAILED, got %v", err)
	}
}

func TestLoadConfig_SecretsNeverPrinted(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("GENERATOR_API_KEY", "sk-very-secret")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if strings.Contains(cfg.Generator.APIKey.String(), "sk-very-secret") {
		t.Error("secret leaked through String()")
	}
}

func TestLoadDeviceConfig_Defaults(t *testing.T) {
	t.Setenv("LOCAL_BACKEND", "memory")

	cfg, err := LoadDeviceConfig()
	if err != nil {
		t.Fatalf("LoadDeviceConfig: %v", err)
	}
	if cfg.Local.RedisPrefix != "recipebox" {
		t.Errorf("RedisPrefix = %q", cfg.Local.RedisPrefix)
	}
	if cfg.Local.Backend != LocalBackendMemory {
		t.Errorf("Backend = %q", cfg.Local.Backend)
	}
}

func TestResolveSSMParams_InjectsValues(t *testing.T) {
	env := mapEnv{
		"DATABASE_URL_SSM_PARAM":      "/prod/recipebox/db",
		"GENERATOR_API_KEY_SSM_PARAM": "/prod/recipebox/llm",
	}
	secrets := &fakeSecrets{values: map[string]string{
		"/prod/recipebox/db":  "postgres://db",
		"/prod/recipebox/llm": "sk-prod",
	}}

	if err := resolveSSMParams(secrets, env.osEnv()); err != nil {
		t.Fatalf("resolveSSMParams: %v", err)
	}
	if env["DATABASE_URL"] != "postgres://db" || env["GENERATOR_API_KEY"] != "sk-prod" {
		t.Errorf("env after resolve = %v", env)
	}
}

func TestResolveSSMParams_ExistingValueWins(t *testing.T) {
	env := mapEnv{
		"DATABASE_URL":           "postgres://override",
		"DATABASE_URL_SSM_PARAM": "/prod/recipebox/db",
	}
	secrets := &fakeSecrets{}

	if err := resolveSSMParams(secrets, env.osEnv()); err != nil {
		t.Fatalf("resolveSSMParams: %v", err)
	}
	if len(secrets.asked) != 0 {
		t.Errorf("provider asked for %v", secrets.asked)
	}
	if env["DATABASE_URL"] != "postgres://override" {
		t.Errorf("DATABASE_URL = %q", env["DATABASE_URL"])
	}
}

func TestResolveSSMParams_Failures(t *testing.T) {
	cases := []struct {
		name     string
		provider SecretProvider
		want     ConfigErrorType
	}{
		{"no provider", nil, ErrSSMResolution},
		{"provider error", &fakeSecrets{err: errors.New("throttled")}, ErrSSMResolution},
		{"missing parameter", &fakeSecrets{values: map[string]string{}}, ErrMissingEnv},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := mapEnv{"DATABASE_URL_SSM_PARAM": "/prod/recipebox/db"}
			err := resolveSSMParams(tc.provider, env.osEnv())
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want *ConfigError, got %v", err)
			}
			if cfgErr.Type != tc.want {
				t.Errorf("Type = %s, want %s", cfgErr.Type, tc.want)
			}
		})
	}
}

func TestEnvVarProvider_OmitsUnset(t *testing.T) {
	t.Setenv("RECIPEBOX_TEST_SECRET", "v")
	got, err := NewEnvVarProvider().GetParametersBatch(context.Background(),
		[]string{"RECIPEBOX_TEST_SECRET", "RECIPEBOX_TEST_UNSET"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["RECIPEBOX_TEST_SECRET"] != "v" {
		t.Errorf("got %v", got)
	}
}
