// Package config loads vaultcache.yaml, applies VAULT_* environment
// overrides and resolves the connect token.
//
// The file is optional when it is not named explicitly, so the CLI can run
// from environment variables alone. When present it is validated against
// an embedded JSON Schema before being decoded.
package config
