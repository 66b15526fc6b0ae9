package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/graceful/errors"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name 'svc', got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("shutdown defaults", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Shutdown.Timeout != 15*time.Second {
			t.Errorf("expected 15s timeout, got %s", cfg.Shutdown.Timeout)
		}
		if cfg.Shutdown.FlushTimeout != 2*time.Second {
			t.Errorf("expected 2s flush timeout, got %s", cfg.Shutdown.FlushTimeout)
		}
		if cfg.Shutdown.RejectionPolicy != RejectionPolicyShutdown {
			t.Errorf("expected shutdown policy, got %q", cfg.Shutdown.RejectionPolicy)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		cfg := ServiceConfig{Name: "svc", Environment: "staging"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "name: is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "invalid" }, "environment: must be one of"},
		{"zero timeout", func(c *ServiceConfig) { c.Shutdown.Timeout = 0 }, "shutdown.timeout: must be greater than 0"},
		{"bad policy", func(c *ServiceConfig) { c.Shutdown.RejectionPolicy = "ignore" }, "shutdown.rejection_policy"},
		{"bad endpoint", func(c *ServiceConfig) { c.Shutdown.CrashReporterEndpoint = "nope" }, "shutdown.crash_reporter_endpoint"},
		{"bad log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestServiceConfigValidateCode(t *testing.T) {
	cfg := ServiceConfig{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: test-service
environment: staging
version: "1.0.0"
shutdown:
  timeout: 5s
  crash_reporter_endpoint: localhost:4318
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg ServiceConfig
	if err := LoadConfig("test-service", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "test-service" {
		t.Errorf("expected name 'test-service', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Shutdown.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Shutdown.Timeout)
	}
	if cfg.Shutdown.CrashReporterEndpoint != "localhost:4318" {
		t.Errorf("unexpected endpoint %q", cfg.Shutdown.CrashReporterEndpoint)
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("shutdown:\n  timeout: 5s\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SHUTDOWN_REJECTION_POLICY", "crash")

	var cfg ServiceConfig
	if err := LoadConfig("test-service", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Shutdown.Timeout != 30*time.Second {
		t.Errorf("expected env override 30s, got %s", cfg.Shutdown.Timeout)
	}
	if cfg.Shutdown.RejectionPolicy != "crash" {
		t.Errorf("expected env override 'crash', got %q", cfg.Shutdown.RejectionPolicy)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg ServiceConfig
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("shutdown: [unterminated"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	var cfg ServiceConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GRACEFUL_TEST_LOAD_ENV=hello\n"), 0644); err != nil {
		t.Fatalf("failed to write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("GRACEFUL_TEST_LOAD_ENV") })

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("GRACEFUL_TEST_LOAD_ENV"); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GRACEFUL_TEST_KEEP=file\n"), 0644); err != nil {
		t.Fatalf("failed to write env: %v", err)
	}
	t.Setenv("GRACEFUL_TEST_KEEP", "process")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("GRACEFUL_TEST_KEEP"); got != "process" {
		t.Errorf("expected process value to win, got %q", got)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/my-svc/config.yml": true,
		"./.env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./cmd/my-svc/config.yml" {
		t.Errorf("expected config file at ./cmd/my-svc/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file ./.env, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("my-svc", LoaderConfig{ConfigFile: "/etc/svc.yml"})
	if explicit.ConfigFile != "/etc/svc.yml" {
		t.Errorf("expected explicit path to win, got %q", explicit.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("SHUTDOWN_FLUSH_TIMEOUT")
	want := map[string]bool{
		"shutdown_flush_timeout": true,
		"shutdown.flush.timeout": true,
		"shutdown.flush_timeout": true,
		"shutdown_flush.timeout": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, k := range got {
		if !want[k] {
			t.Errorf("unexpected variant %q", k)
		}
	}
	if v := envKeyVariants("NAME"); len(v) != 1 || v[0] != "name" {
		t.Errorf("unexpected single-part variants %v", v)
	}
}
