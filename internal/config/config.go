package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/vaultcache/internal/connection"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/logging"
	"github.com/systmms/vaultcache/internal/vault"
)

const (
	// DefaultPath is read when --config is not given. It may be absent.
	DefaultPath = "vaultcache.yaml"

	DefaultTimeoutMs   = 30000
	DefaultMaxRetries  = 2
	DefaultListen      = "127.0.0.1:8210"
	DefaultMetricsPath = "/metrics"
)

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path   string
	Logger *logging.Logger

	// Explicit is set when the user named Path; a missing file is then an
	// error instead of falling back to defaults and environment.
	Explicit bool

	// Getenv reads environment overrides. Defaults to os.Getenv.
	Getenv func(string) string

	Settings *Settings
}

// Settings is the vaultcache.yaml document.
type Settings struct {
	Version int            `yaml:"version"`
	Vault   VaultSettings  `yaml:"vault"`
	Cache   CacheSettings  `yaml:"cache"`
	Server  ServerSettings `yaml:"server"`
}

// VaultSettings configures the secret store connection.
type VaultSettings struct {
	Address    string      `yaml:"address"`
	Token      string      `yaml:"token"`      // discouraged, use env / token file / keyring
	TokenFile  string      `yaml:"token_file"` // default ~/.vault-token
	Namespace  string      `yaml:"namespace"`
	MountPoint string      `yaml:"mount_point"`
	BasePath   string      `yaml:"base_path"`
	KVVersion  int         `yaml:"kv_version"`
	TimeoutMs  int         `yaml:"timeout_ms"`
	MaxRetries *int        `yaml:"max_retries"`
	TLS        TLSSettings `yaml:"tls"`
}

// TLSSettings configures the client's TLS.
type TLSSettings struct {
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	SkipVerify bool   `yaml:"skip_verify"`
}

// CacheSettings configures the resolver cache.
type CacheSettings struct {
	Coalesce bool `yaml:"coalesce"`
}

// ServerSettings configures `vaultcache serve`.
type ServerSettings struct {
	Listen      string `yaml:"listen"`
	MetricsPath string `yaml:"metrics_path"`
}

// Load reads the configuration file, validates it against the embedded
// schema and applies defaults and environment overrides.
func (c *Config) Load() error {
	settings := &Settings{}

	data, err := os.ReadFile(c.Path)
	switch {
	case err == nil:
		if err := decode(data, settings); err != nil {
			return err
		}
	case os.IsNotExist(err) && !c.Explicit:
		if c.Logger != nil {
			c.Logger.Debug("No configuration file at %s, using defaults and environment", c.Path)
		}
	case os.IsNotExist(err):
		return dserrors.ConfigError{
			Field:      "path",
			Value:      c.Path,
			Message:    "configuration file not found",
			Suggestion: "Check the --config path, or omit it to configure through VAULT_ADDR and VAULT_TOKEN",
		}
	default:
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if settings.Version != 0 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      settings.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your vaultcache.yaml file",
		}
	}

	settings.applyEnv(c.getenv)
	settings.applyDefaults()

	c.Settings = settings
	return nil
}

func (c *Config) getenv(key string) string {
	if c.Getenv != nil {
		return c.Getenv(key)
	}
	return os.Getenv(key)
}

func decode(data []byte, settings *Settings) error {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
			Err:        err,
		}
	}
	if raw == nil {
		return nil
	}

	if err := validateSchema(raw); err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return dserrors.ConfigError{
			Message: "configuration does not match the expected structure",
			Err:     err,
		}
	}
	return nil
}

func validateSchema(document interface{}) error {
	jsonData, err := json.Marshal(document)
	if err != nil {
		return dserrors.ConfigError{
			Message:    "configuration cannot be represented as JSON",
			Suggestion: "Use only string keys in vaultcache.yaml",
			Err:        err,
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return dserrors.ConfigError{
			Message:    "schema validation failed:\n  - " + strings.Join(errorMessages, "\n  - "),
			Suggestion: "See the configuration reference for the supported keys",
		}
	}
	return nil
}

func (s *Settings) applyEnv(getenv func(string) string) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"VAULT_ADDR", &s.Vault.Address},
		{"VAULT_TOKEN", &s.Vault.Token},
		{"VAULT_NAMESPACE", &s.Vault.Namespace},
		{"VAULT_CACERT", &s.Vault.TLS.CACert},
		{"VAULT_CLIENT_CERT", &s.Vault.TLS.ClientCert},
		{"VAULT_CLIENT_KEY", &s.Vault.TLS.ClientKey},
		{"VAULTCACHE_MOUNT_POINT", &s.Vault.MountPoint},
		{"VAULTCACHE_BASE_PATH", &s.Vault.BasePath},
	}
	for _, o := range overrides {
		if v := getenv(o.env); v != "" {
			*o.target = v
		}
	}

	if skip := getenv("VAULT_SKIP_VERIFY"); skip == "1" || strings.ToLower(skip) == "true" {
		s.Vault.TLS.SkipVerify = true
	}
}

func (s *Settings) applyDefaults() {
	if s.Vault.MountPoint == "" {
		s.Vault.MountPoint = connection.DefaultMountPoint
	}
	if s.Vault.KVVersion == 0 {
		s.Vault.KVVersion = vault.DefaultKVVersion
	}
	if s.Vault.TimeoutMs == 0 {
		s.Vault.TimeoutMs = DefaultTimeoutMs
	}
	if s.Vault.MaxRetries == nil {
		retries := DefaultMaxRetries
		s.Vault.MaxRetries = &retries
	}
	if s.Server.Listen == "" {
		s.Server.Listen = DefaultListen
	}
	if s.Server.MetricsPath == "" {
		s.Server.MetricsPath = DefaultMetricsPath
	}
}

// VaultConfig returns the client options for vault.NewDialer.
func (s *Settings) VaultConfig() vault.Config {
	cfg := vault.Config{
		Namespace:  s.Vault.Namespace,
		KVVersion:  s.Vault.KVVersion,
		Timeout:    time.Duration(s.Vault.TimeoutMs) * time.Millisecond,
		CACert:     s.Vault.TLS.CACert,
		ClientCert: s.Vault.TLS.ClientCert,
		ClientKey:  s.Vault.TLS.ClientKey,
		TLSSkip:    s.Vault.TLS.SkipVerify,
	}
	if s.Vault.MaxRetries != nil {
		cfg.MaxRetries = *s.Vault.MaxRetries
	}
	return cfg
}

// ConnectionParams returns the connect arguments without the token, which
// is resolved separately by ResolveToken.
func (s *Settings) ConnectionParams() connection.Params {
	return connection.Params{
		Address:    s.Vault.Address,
		MountPoint: s.Vault.MountPoint,
		BasePath:   s.Vault.BasePath,
	}
}
