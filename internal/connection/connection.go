// Package connection validates connection parameters, dials the secret
// store and gates all secret traffic on a one-time seal check.
//
// A Manager moves from Unconfigured to either Connected or Failed exactly
// once. There is no reconnect: after a failure, build a new Manager.
// Connect is expected to run once at startup before concurrent traffic
// begins; it is not designed to race with Handle.
package connection

import (
	"context"
	"strings"
	"sync"

	"github.com/systmms/vaultcache/internal/address"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/pkg/backend"
)

// DefaultMountPoint is used when Params.MountPoint is blank.
const DefaultMountPoint = "secret"

// State is the lifecycle state of a Manager.
type State int

const (
	Unconfigured State = iota
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Params are the connect-time arguments.
type Params struct {
	// Address is the secret store's URL.
	Address string

	// Token is the credential used to authenticate.
	Token string

	// MountPoint names the KV engine mount. Defaults to "secret".
	MountPoint string

	// BasePath, when set, prefixes every relative secret path.
	BasePath string
}

// Dialer builds an authenticated backend handle. It must not perform the
// health check itself; Manager does that.
type Dialer interface {
	Dial(ctx context.Context, address, token string) (backend.SecretBackend, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address, token string) (backend.SecretBackend, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address, token string) (backend.SecretBackend, error) {
	return f(ctx, address, token)
}

// Handle is the immutable view of a connected store.
type Handle struct {
	Backend    backend.SecretBackend
	Server     string
	MountPoint string
	BasePath   string
}

// FullPath composes the configured base path with a relative path.
func (h Handle) FullPath(relativePath string) string {
	return address.FullPath(h.BasePath, relativePath)
}

// Manager owns the connection state.
type Manager struct {
	dialer Dialer

	mu     sync.RWMutex
	state  State
	handle Handle
	err    error
}

// NewManager returns an unconfigured Manager that dials with d.
func NewManager(d Dialer) *Manager {
	return &Manager{dialer: d}
}

// Connect validates p, dials the store and checks that it is unsealed.
// Blank address or token fail with a ConfigError before any network call.
func (m *Manager) Connect(ctx context.Context, p Params) error {
	if err := validate(p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Unconfigured {
		return dserrors.ConfigError{
			Field:      "connection",
			Value:      m.state.String(),
			Message:    "connection already attempted",
			Suggestion: "Create a new client to connect again",
		}
	}

	handle := Handle{
		Server:     strings.TrimSpace(p.Address),
		MountPoint: strings.Trim(strings.TrimSpace(p.MountPoint), "/"),
		BasePath:   address.NormalizeBasePath(p.BasePath),
	}
	if handle.MountPoint == "" {
		handle.MountPoint = DefaultMountPoint
	}

	b, err := m.dialer.Dial(ctx, handle.Server, p.Token)
	if err != nil {
		return m.fail(dserrors.ConfigError{
			Field:      "address",
			Value:      handle.Server,
			Message:    "could not create secret store client",
			Suggestion: "Check the address format and TLS settings",
			Err:        err,
		})
	}

	status, err := b.Health(ctx)
	if err != nil {
		return m.fail(dserrors.BackendUnavailableError{
			Operation: "connect",
			Server:    handle.Server,
			Message:   "health check failed",
			Err:       err,
		})
	}
	if status.Sealed {
		return m.fail(dserrors.BackendUnavailableError{
			Operation: "connect",
			Server:    handle.Server,
			Message:   "secret store is sealed and cannot be accessed",
		})
	}

	handle.Backend = b
	m.handle = handle
	m.state = Connected
	return nil
}

// Handle returns the connected handle, or NotConnectedError.
func (m *Manager) Handle() (Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != Connected {
		return Handle{}, dserrors.NotConnectedError{State: m.state.String()}
	}
	return m.handle, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the error that moved the Manager to Failed.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// fail records err and marks the manager failed. Caller holds m.mu.
func (m *Manager) fail(err error) error {
	m.state = Failed
	m.err = err
	return err
}

func validate(p Params) error {
	if strings.TrimSpace(p.Address) == "" {
		return dserrors.ConfigError{
			Field:      "address",
			Message:    "secret store address is required",
			Suggestion: "Set 'vault.address' in the config file or VAULT_ADDR",
		}
	}
	if strings.TrimSpace(p.Token) == "" {
		return dserrors.ConfigError{
			Field:      "token",
			Message:    "secret store token is required",
			Suggestion: "Set VAULT_TOKEN, use a token file, or run 'vaultcache login'",
		}
	}
	return nil
}
