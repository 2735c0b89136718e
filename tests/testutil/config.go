// Package testutil provides test utilities and helpers for vaultcache tests.
//
// This package contains shared test infrastructure including configuration
// builders, logger capture, a fake Vault HTTP server, and Docker
// environment management for integration tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/vaultcache/internal/config"
	"github.com/systmms/vaultcache/internal/logging"
)

// TestConfigBuilder provides a fluent API for building vaultcache.yaml
// files in tests.
//
// Example usage:
//
//	path := NewTestConfig(t).
//	    WithVault(fv.URL).
//	    WithBasePath("project").
//	    WithCoalescing(true).
//	    Write()
type TestConfigBuilder struct {
	settings config.Settings
	tempDir  string
	t        *testing.T
}

// NewTestConfig creates a builder that starts from an empty version 0
// document.
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	return &TestConfigBuilder{
		tempDir: t.TempDir(),
		t:       t,
	}
}

// WithVault sets the server address.
func (b *TestConfigBuilder) WithVault(address string) *TestConfigBuilder {
	b.settings.Vault.Address = address
	return b
}

// WithToken sets the token in the file. Real configurations should not do
// this, tests may.
func (b *TestConfigBuilder) WithToken(token string) *TestConfigBuilder {
	b.settings.Vault.Token = token
	return b
}

// WithMount sets the mount point and KV engine version.
func (b *TestConfigBuilder) WithMount(mount string, kvVersion int) *TestConfigBuilder {
	b.settings.Vault.MountPoint = mount
	b.settings.Vault.KVVersion = kvVersion
	return b
}

// WithBasePath sets the path prefix.
func (b *TestConfigBuilder) WithBasePath(basePath string) *TestConfigBuilder {
	b.settings.Vault.BasePath = basePath
	return b
}

// WithCoalescing toggles singleflight reads.
func (b *TestConfigBuilder) WithCoalescing(enabled bool) *TestConfigBuilder {
	b.settings.Cache.Coalesce = enabled
	return b
}

// WithServer sets the serve listen address and metrics path.
func (b *TestConfigBuilder) WithServer(listen, metricsPath string) *TestConfigBuilder {
	b.settings.Server.Listen = listen
	b.settings.Server.MetricsPath = metricsPath
	return b
}

// Build returns the in-memory settings.
func (b *TestConfigBuilder) Build() config.Settings {
	return b.settings
}

// Write writes the configuration to a temporary file and returns its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(document(b.settings))
	if err != nil {
		b.t.Fatalf("Failed to marshal test config: %v", err)
	}
	return WriteTestConfig(b.t, string(data))
}

// document drops zero values so the written file only carries what the
// test set, the way a user would write it.
func document(s config.Settings) map[string]any {
	vault := map[string]any{}
	set := func(m map[string]any, key string, value any) {
		switch v := value.(type) {
		case string:
			if v != "" {
				m[key] = v
			}
		case int:
			if v != 0 {
				m[key] = v
			}
		case bool:
			if v {
				m[key] = v
			}
		}
	}
	set(vault, "address", s.Vault.Address)
	set(vault, "token", s.Vault.Token)
	set(vault, "token_file", s.Vault.TokenFile)
	set(vault, "namespace", s.Vault.Namespace)
	set(vault, "mount_point", s.Vault.MountPoint)
	set(vault, "base_path", s.Vault.BasePath)
	set(vault, "kv_version", s.Vault.KVVersion)
	set(vault, "timeout_ms", s.Vault.TimeoutMs)

	cache := map[string]any{}
	set(cache, "coalesce", s.Cache.Coalesce)

	server := map[string]any{}
	set(server, "listen", s.Server.Listen)
	set(server, "metrics_path", s.Server.MetricsPath)

	doc := map[string]any{"version": 0}
	for key, section := range map[string]map[string]any{"vault": vault, "cache": cache, "server": server} {
		if len(section) > 0 {
			doc[key] = section
		}
	}
	return doc
}

// WriteTestConfig writes yamlContent to vaultcache.yaml in a temporary
// directory and returns the path.
func WriteTestConfig(t *testing.T, yamlContent string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vaultcache.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

// NewCLIConfig returns the runtime configuration a command receives after
// flag parsing, pointed at path. The environment is isolated: only env is
// visible to Load.
func NewCLIConfig(t *testing.T, path string, env map[string]string) *config.Config {
	t.Helper()

	logger := logging.New(false, true)
	logger.SetOutput(io.Discard)

	return &config.Config{
		Path:     path,
		Explicit: true,
		Logger:   logger,
		Getenv:   func(key string) string { return env[key] },
	}
}
