package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error into the failure categories callers act on.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidConfiguration
	KindInvalidAddress
	KindNotConnected
	KindBackendUnavailable
	KindSecretNotFound
	KindUnexpectedBackend
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "invalid_configuration"
	case KindInvalidAddress:
		return "invalid_address"
	case KindNotConnected:
		return "not_connected"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindSecretNotFound:
		return "secret_not_found"
	case KindUnexpectedBackend:
		return "unexpected_backend"
	default:
		return "unknown"
	}
}

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError reports invalid connection or file configuration.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
	Err        error
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

func (e ConfigError) Unwrap() error {
	return e.Err
}

// AddressError reports a secret address that is not of the form "path:key".
type AddressError struct {
	Address string
	Reason  string
}

func (e AddressError) Error() string {
	msg := fmt.Sprintf("invalid secret address %q", e.Address)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + "\n  💡 Use the form 'path:key', e.g. 'database:ConnectionString'"
}

// NotConnectedError is returned when a secret is requested before a
// successful connect.
type NotConnectedError struct {
	State string
}

func (e NotConnectedError) Error() string {
	msg := "secret store is not connected"
	if e.State != "" {
		msg += fmt.Sprintf(" (state: %s)", e.State)
	}
	return msg + "\n  💡 Connect successfully before requesting secrets; a failed connection requires a new client"
}

// BackendUnavailableError reports a sealed, unreachable or failing store.
type BackendUnavailableError struct {
	Operation string
	Server    string
	Path      string
	Mount     string
	Message   string
	Err       error
}

func (e BackendUnavailableError) Error() string {
	msg := "secret store unavailable"
	if e.Operation != "" {
		msg += " during " + e.Operation
	}
	if e.Server != "" {
		msg += fmt.Sprintf(" at %s", e.Server)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (mount: %s, path: %s)", e.Mount, e.Path)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if suggestion := unavailableSuggestion(e); suggestion != "" {
		msg += "\n  💡 " + suggestion
	}
	return msg
}

func (e BackendUnavailableError) Unwrap() error {
	return e.Err
}

// SecretNotFoundError reports a path without data, a missing key, or an
// empty value.
type SecretNotFoundError struct {
	Address string
	Path    string
	Key     string
	Mount   string
	Reason  string
}

func (e SecretNotFoundError) Error() string {
	msg := fmt.Sprintf("secret not found: key '%s' at path '%s'", e.Key, e.Path)
	if e.Mount != "" {
		msg += fmt.Sprintf(" (mount: %s)", e.Mount)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg + "\n  💡 Check that the secret exists and the key is spelled correctly"
}

// UnexpectedBackendError wraps failures the store client did not classify.
type UnexpectedBackendError struct {
	Operation string
	Path      string
	Mount     string
	Err       error
}

func (e UnexpectedBackendError) Error() string {
	msg := "unexpected secret store error"
	if e.Operation != "" {
		msg += " during " + e.Operation
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (mount: %s, path: %s)", e.Mount, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e UnexpectedBackendError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Wrapped errors are classified by the first typed
// error found in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var (
		configErr      ConfigError
		addressErr     AddressError
		notConnected   NotConnectedError
		unavailableErr BackendUnavailableError
		notFoundErr    SecretNotFoundError
		unexpectedErr  UnexpectedBackendError
	)

	switch {
	case errors.As(err, &addressErr):
		return KindInvalidAddress
	case errors.As(err, &notFoundErr):
		return KindSecretNotFound
	case errors.As(err, &notConnected):
		return KindNotConnected
	case errors.As(err, &unavailableErr):
		return KindBackendUnavailable
	case errors.As(err, &unexpectedErr):
		return KindUnexpectedBackend
	case errors.As(err, &configErr):
		return KindInvalidConfiguration
	}
	return KindUnknown
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if KindOf(err) == KindBackendUnavailable {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Typed errors already carry their own context.
	if KindOf(err) != KindUnknown {
		return err
	}
	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}

func unavailableSuggestion(e BackendUnavailableError) string {
	text := strings.ToLower(e.Message)
	if e.Err != nil {
		text += " " + strings.ToLower(e.Err.Error())
	}

	switch {
	case strings.Contains(text, "sealed"):
		return "Unseal the store, then create a new client and connect again"
	case strings.Contains(text, "connection refused"), strings.Contains(text, "no such host"), strings.Contains(text, "unreachable"):
		return "Check that the store is running and reachable at the configured address"
	case strings.Contains(text, "permission denied"), strings.Contains(text, "403"):
		return "Check the token's policies for this mount and path"
	case strings.Contains(text, "tls"), strings.Contains(text, "certificate"):
		return "Check the TLS configuration (ca_cert, client_cert, skip_verify)"
	default:
		return ""
	}
}
