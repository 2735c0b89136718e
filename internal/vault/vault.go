// Package vault implements backend.SecretBackend on HashiCorp Vault's KV
// secrets engine using the official API client.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/pkg/backend"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultKVVersion = 2
)

// Config holds client options that are fixed for the lifetime of a
// connection. Address and token are passed to Dial.
type Config struct {
	Namespace string `yaml:"namespace"` // Vault Enterprise namespace
	KVVersion int    `yaml:"kv_version"`

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"-"`

	// MaxRetries is passed to the client's retry policy for 5xx responses.
	MaxRetries int `yaml:"-"`

	CACert     string `yaml:"ca_cert"`     // Path to CA certificate
	ClientCert string `yaml:"client_cert"` // Path to client certificate
	ClientKey  string `yaml:"client_key"`  // Path to client key
	TLSSkip    bool   `yaml:"skip_verify"` // Skip TLS verification (not recommended)
}

func (c Config) tlsConfigured() bool {
	return c.CACert != "" || c.ClientCert != "" || c.ClientKey != "" || c.TLSSkip
}

// Dialer creates Vault backends. It satisfies connection.Dialer.
type Dialer struct {
	config Config
}

// NewDialer returns a Dialer using cfg for every connection.
func NewDialer(cfg Config) *Dialer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KVVersion == 0 {
		cfg.KVVersion = DefaultKVVersion
	}
	return &Dialer{config: cfg}
}

// Dial builds an API client for address authenticated with token. It does
// not contact the server.
func (d *Dialer) Dial(ctx context.Context, address, token string) (backend.SecretBackend, error) {
	if d.config.KVVersion != 1 && d.config.KVVersion != 2 {
		return nil, dserrors.ConfigError{
			Field:      "kv_version",
			Value:      d.config.KVVersion,
			Message:    "unsupported KV engine version",
			Suggestion: "Use 1 or 2",
		}
	}

	u, err := url.Parse(address)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, dserrors.ConfigError{
			Field:      "address",
			Value:      address,
			Message:    "invalid Vault address",
			Suggestion: "Use format: https://hostname:8200",
			Err:        err,
		}
	}

	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to read Vault environment: %w", cfg.Error)
	}
	cfg.Address = address
	cfg.Timeout = d.config.Timeout
	cfg.MaxRetries = d.config.MaxRetries

	if d.config.tlsConfigured() {
		err := cfg.ConfigureTLS(&api.TLSConfig{
			CACert:     d.config.CACert,
			ClientCert: d.config.ClientCert,
			ClientKey:  d.config.ClientKey,
			Insecure:   d.config.TLSSkip,
		})
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      "tls",
				Message:    "failed to configure TLS",
				Suggestion: "Check that ca_cert, client_cert and client_key point to readable PEM files",
				Err:        err,
			}
		}
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)
	if d.config.Namespace != "" {
		client.SetNamespace(d.config.Namespace)
	}

	return &Backend{client: client, kvVersion: d.config.KVVersion}, nil
}

// Backend reads secrets from a KV engine.
type Backend struct {
	client    *api.Client
	kvVersion int
}

// ReadSecret reads the latest version of path under mountPoint and
// returns its fields as strings.
func (b *Backend) ReadSecret(ctx context.Context, path, mountPoint string) (map[string]string, error) {
	var (
		secret *api.KVSecret
		err    error
	)
	if b.kvVersion == 1 {
		secret, err = b.client.KVv1(mountPoint).Get(ctx, path)
	} else {
		secret, err = b.client.KVv2(mountPoint).Get(ctx, path)
	}
	if err != nil {
		return nil, classify(ctx, "read", err)
	}

	// Soft-deleted KV v2 versions come back with metadata only.
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s/%s", backend.ErrPathNotFound, mountPoint, path)
	}

	bundle := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("failed to convert field %q to string: %w", k, err)
		}
		bundle[k] = s
	}
	return bundle, nil
}

// Health reports the seal status. sys/seal-status is unauthenticated, so
// a bad token does not make the store unhealthy.
func (b *Backend) Health(ctx context.Context) (backend.HealthStatus, error) {
	status, err := b.client.Sys().SealStatusWithContext(ctx)
	if err != nil {
		return backend.HealthStatus{}, classify(ctx, "health", err)
	}
	return backend.HealthStatus{
		Sealed:      status.Sealed,
		Initialized: status.Initialized,
		Version:     status.Version,
		ClusterName: status.ClusterName,
	}, nil
}

// classify maps client errors onto the backend error contract. Errors
// caused by the caller's context are returned unchanged.
func classify(ctx context.Context, operation string, err error) error {
	if errors.Is(err, api.ErrSecretNotFound) {
		return fmt.Errorf("%w: %v", backend.ErrPathNotFound, err)
	}

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode == 404 {
			return fmt.Errorf("%w: %v", backend.ErrPathNotFound, err)
		}
		return &backend.APIError{
			Operation:  operation,
			StatusCode: respErr.StatusCode,
			Errors:     respErr.Errors,
			Err:        err,
		}
	}

	if ctx.Err() != nil {
		return err
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || isTransportText(err) {
		return fmt.Errorf("%w: %w", backend.ErrUnreachable, err)
	}
	return err
}

func isTransportText(err error) bool {
	text := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "no such host", "connection reset", "i/o timeout"} {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// stringify converts a KV field to its string form. Nested values are
// rendered as JSON.
func stringify(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case int, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%g", v), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

var _ backend.SecretBackend = (*Backend)(nil)
