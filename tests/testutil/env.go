package testutil

import (
	"testing"
)

// vaultEnv lists the variables the Vault API client and the config loader
// read on their own.
var vaultEnv = []string{
	"VAULT_ADDR",
	"VAULT_TOKEN",
	"VAULT_NAMESPACE",
	"VAULT_CACERT",
	"VAULT_CAPATH",
	"VAULT_CLIENT_CERT",
	"VAULT_CLIENT_KEY",
	"VAULT_SKIP_VERIFY",
	"VAULT_MAX_RETRIES",
	"VAULT_CLIENT_TIMEOUT",
	"VAULTCACHE_MOUNT_POINT",
	"VAULTCACHE_BASE_PATH",
}

// ClearVaultEnv blanks every Vault variable for the duration of the test
// so a developer's shell cannot point tests at a real server.
//
// Tests that call this cannot use t.Parallel.
func ClearVaultEnv(t *testing.T) {
	t.Helper()

	for _, key := range vaultEnv {
		t.Setenv(key, "")
	}
}

// SetupTestEnv sets environment variables for the duration of a test.
//
// Example usage:
//
//	SetupTestEnv(t, map[string]string{
//	    "VAULT_ADDR": "http://127.0.0.1:8200",
//	})
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	for key, value := range vars {
		t.Setenv(key, value)
	}
}

// IsolateHome points HOME at a temporary directory so ~/.vault-token is
// not read from the developer's machine. It returns the directory.
func IsolateHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}
