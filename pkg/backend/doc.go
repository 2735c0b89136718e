// Package backend defines the contract between vaultcache and the remote
// key-value secret store it reads from.
//
// vaultcache never speaks a wire protocol itself. Everything it needs from
// the store is expressed by the SecretBackend interface: an authenticated
// read of a secret bundle under a mount point, and a seal/health probe.
// The production implementation lives in internal/vault and talks to
// HashiCorp Vault; tests use tests/fakes.FakeBackend.
//
// # Error Contract
//
// Implementations must keep "the path holds no data" distinguishable from
// every other failure, because the resolver turns the former into a
// SecretNotFound error and the latter into BackendUnavailable or
// UnexpectedBackendError:
//
//   - Return (or wrap) ErrPathNotFound when the path has no data.
//   - Return an *APIError when the store answered with an error status
//     (permission denied, sealed, internal server error, ...).
//   - Wrap ErrUnreachable when the store could not be reached at all
//     (connection refused, DNS failure, TLS handshake failure).
//   - Anything else is treated as unexpected.
//
// # Example
//
//	bundle, err := b.ReadSecret(ctx, "project/database", "secret")
//	switch {
//	case errors.Is(err, backend.ErrPathNotFound):
//	    // nothing stored at project/database
//	case err != nil:
//	    var apiErr *backend.APIError
//	    if errors.As(err, &apiErr) {
//	        fmt.Println("vault answered", apiErr.StatusCode)
//	    }
//	default:
//	    fmt.Println(len(bundle), "keys")
//	}
//
// # Threading and Concurrency
//
// Implementations must be safe for concurrent use. The resolver issues
// reads from many goroutines against one handle and never reassigns it.
package backend
