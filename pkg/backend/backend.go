package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SecretBackend performs authenticated reads against a remote secret store.
type SecretBackend interface {
	// ReadSecret returns the key/value bundle stored at path under the
	// given mount point. Non-string values are rendered as strings by the
	// implementation.
	ReadSecret(ctx context.Context, path, mountPoint string) (map[string]string, error)

	// Health reports the store's seal status. It fails when the store
	// cannot be reached.
	Health(ctx context.Context) (HealthStatus, error)
}

// HealthStatus is the result of a seal/health probe.
type HealthStatus struct {
	// Sealed is true when the store refuses to serve secrets until unsealed.
	Sealed bool

	// Initialized is false for a store that has never been initialized.
	Initialized bool

	// Version is the server version, when reported.
	Version string

	// ClusterName identifies the cluster, when reported.
	ClusterName string
}

// Healthy returns true when the store can serve secrets.
func (h HealthStatus) Healthy() bool {
	return !h.Sealed
}

var (
	// ErrPathNotFound signals that a path holds no data.
	ErrPathNotFound = errors.New("backend: no data at path")

	// ErrUnreachable signals that the store could not be contacted.
	ErrUnreachable = errors.New("backend: store unreachable")
)

// APIError is returned when the store answered a request with an error.
type APIError struct {
	// Operation is the backend call that failed, e.g. "read" or "health".
	Operation string

	// StatusCode is the HTTP status code, when the transport is HTTP.
	StatusCode int

	// Errors holds the error strings reported by the store.
	Errors []string

	// Err is the underlying client error.
	Err error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("backend %s failed", e.Operation)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the path holds no data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPathNotFound)
}

// IsAPIError reports whether err carries an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsUnreachable reports whether err means the store could not be contacted.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
