// Package secure keeps the store credential in memguard-protected memory.
//
// The token is sealed into an encrypted enclave as soon as it is loaded and
// only decrypted for the duration of a callback:
//
//	tok := secure.NewToken(raw)
//	defer tok.Destroy()
//
//	err := tok.Use(func(token string) error {
//	    return resolver.Connect(ctx, connection.Params{Address: addr, Token: token})
//	})
//
// The string handed to the callback is an ordinary Go string, because the
// Vault client stores its token that way. The enclave protects the copy
// that lives for the process lifetime; it does not protect the client's
// copy or resolved secret values.
//
// # Platform Behavior
//
// Memory locking behavior varies by platform:
//
//   - Linux: Requires RLIMIT_MEMLOCK to be set appropriately
//   - macOS: Works out of the box
//   - Windows: Uses VirtualLock
//
// Call memguard.Purge on exit (cmd/vaultcache does) to wipe every enclave
// key and locked buffer.
package secure
