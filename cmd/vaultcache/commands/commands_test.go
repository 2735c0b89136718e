package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/vaultcache/internal/config"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/tests/testutil"
)

// These tests touch process environment and the global keyring mock, so
// none of them run in parallel.

const testToken = "test-token"

func seededVault(t *testing.T) *testutil.FakeVault {
	t.Helper()

	testutil.ClearVaultEnv(t)
	testutil.IsolateHome(t)
	keyring.MockInit()

	return testutil.NewFakeVault(t, testToken).
		Put("secret", "project/database", map[string]any{"username": "app", "password": "s3cret"}).
		Put("secret", "project/api", map[string]any{"key": "api-key-value"})
}

func cliConfig(t *testing.T, fv *testutil.FakeVault) *config.Config {
	t.Helper()

	path := testutil.NewTestConfig(t).
		WithVault(fv.URL).
		WithBasePath("project").
		Write()
	return testutil.NewCLIConfig(t, path, nil)
}

// runCommand executes cmd with args and returns stdout.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	return out.String(), err
}

func TestGetCommand(t *testing.T) {
	t.Run("single address prints raw value", func(t *testing.T) {
		fv := seededVault(t)

		out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)), "database:password", "--token", testToken)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", out)
	})

	t.Run("path and key flags", func(t *testing.T) {
		fv := seededVault(t)

		out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)),
			"--path", "database", "--key", "username", "--token", testToken)
		require.NoError(t, err)
		assert.Equal(t, "app", out)
	})

	t.Run("several addresses print in argument order", func(t *testing.T) {
		fv := seededVault(t)

		out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)),
			"database:username", "api:key", "database:password", "--token", testToken)
		require.NoError(t, err)
		assert.Equal(t, "app\napi-key-value\ns3cret\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		fv := seededVault(t)

		out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)),
			"database:password", "api:key", "--json", "--token", testToken)
		require.NoError(t, err)

		var values map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &values))
		assert.Equal(t, map[string]string{"database:password": "s3cret", "api:key": "api-key-value"}, values)
	})

	t.Run("token from keyring", func(t *testing.T) {
		fv := seededVault(t)
		require.NoError(t, config.StoreToken(fv.URL, testToken))

		out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)), "api:key")
		require.NoError(t, err)
		assert.Equal(t, "api-key-value", out)
	})

	t.Run("flag overrides", func(t *testing.T) {
		fv := seededVault(t)
		fv.Put("kv", "other/app", map[string]any{"key": "from-kv"})

		out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)),
			"app:key", "--mount", "kv", "--base-path", "other", "--token", testToken)
		require.NoError(t, err)
		assert.Equal(t, "from-kv", out)
	})
}

func TestGetCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantKind dserrors.Kind
		contains string
	}{
		{
			name:     "no address",
			args:     []string{"--token", testToken},
			contains: "No secret address given",
		},
		{
			name:     "address and flags",
			args:     []string{"database:password", "--path", "database", "--key", "password", "--token", testToken},
			contains: "Cannot combine",
		},
		{
			name:     "malformed address",
			args:     []string{"database", "--token", testToken},
			wantKind: dserrors.KindInvalidAddress,
		},
		{
			name:     "missing key",
			args:     []string{"database:nope", "--token", testToken},
			wantKind: dserrors.KindSecretNotFound,
		},
		{
			name:     "one of several missing",
			args:     []string{"database:password", "missing:key", "--token", testToken},
			wantKind: dserrors.KindSecretNotFound,
			contains: "missing:key",
		},
		{
			name:     "wrong token",
			args:     []string{"database:password", "--token", "wrong"},
			wantKind: dserrors.KindBackendUnavailable,
		},
		{
			name:     "no token anywhere",
			args:     []string{"database:password"},
			wantKind: dserrors.KindInvalidConfiguration,
			contains: "vaultcache login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := seededVault(t)

			out, err := runCommand(t, NewGetCommand(cliConfig(t, fv)), tt.args...)
			require.Error(t, err)
			assert.Empty(t, out)
			if tt.wantKind != dserrors.KindUnknown {
				testutil.AssertErrorKind(t, err, tt.wantKind)
			}
			if tt.contains != "" {
				testutil.AssertErrorContains(t, err, tt.contains)
			}
			testutil.AssertNoSecretLeak(t, err.Error(), []string{"s3cret", testToken})
		})
	}
}

func TestHealthCommand(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		fv := seededVault(t)

		out, err := runCommand(t, NewHealthCommand(cliConfig(t, fv)), "--token", testToken)
		require.NoError(t, err)
		assert.Contains(t, out, "healthy (connected)")
	})

	t.Run("sealed", func(t *testing.T) {
		fv := seededVault(t)
		fv.SetSealed(true)

		out, err := runCommand(t, NewHealthCommand(cliConfig(t, fv)), "--token", testToken, "--json")
		require.Error(t, err)

		var report healthReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.False(t, report.Healthy)
		assert.Equal(t, "failed", report.State)
		assert.Equal(t, fv.URL, report.Server)
		assert.NotEmpty(t, report.Error)
	})
}

func TestLoginAndLogout(t *testing.T) {
	t.Run("token from stdin is verified and stored", func(t *testing.T) {
		fv := seededVault(t)
		cfg := cliConfig(t, fv)

		cmd := NewLoginCommand(cfg)
		cmd.SetIn(strings.NewReader(testToken + "\n"))
		_, err := runCommand(t, cmd)
		require.NoError(t, err)

		stored, err := keyring.Get(config.KeyringService, fv.URL)
		require.NoError(t, err)
		assert.Equal(t, testToken, stored)

		_, err = runCommand(t, NewLogoutCommand(testutil.NewCLIConfig(t, cfg.Path, nil)))
		require.NoError(t, err)

		_, err = keyring.Get(config.KeyringService, fv.URL)
		assert.ErrorIs(t, err, keyring.ErrNotFound)
	})

	t.Run("unreachable server is rejected", func(t *testing.T) {
		fv := seededVault(t)
		fv.SetSealed(true)

		_, err := runCommand(t, NewLoginCommand(cliConfig(t, fv)), "--token", testToken)
		require.Error(t, err)

		_, err = keyring.Get(config.KeyringService, fv.URL)
		assert.ErrorIs(t, err, keyring.ErrNotFound)
	})

	t.Run("no-verify stores without connecting", func(t *testing.T) {
		fv := seededVault(t)
		fv.SetSealed(true)

		_, err := runCommand(t, NewLoginCommand(cliConfig(t, fv)), "--token", testToken, "--no-verify")
		require.NoError(t, err)

		stored, err := keyring.Get(config.KeyringService, fv.URL)
		require.NoError(t, err)
		assert.Equal(t, testToken, stored)
	})

	t.Run("empty stdin", func(t *testing.T) {
		fv := seededVault(t)

		cmd := NewLoginCommand(cliConfig(t, fv))
		cmd.SetIn(strings.NewReader(""))
		_, err := runCommand(t, cmd)
		testutil.AssertErrorContains(t, err, "No token given")
	})

	t.Run("logout without stored token", func(t *testing.T) {
		fv := seededVault(t)

		_, err := runCommand(t, NewLogoutCommand(cliConfig(t, fv)))
		require.NoError(t, err)
	})

	t.Run("no address configured", func(t *testing.T) {
		testutil.ClearVaultEnv(t)
		keyring.MockInit()
		cfg := testutil.NewCLIConfig(t, testutil.WriteTestConfig(t, "version: 0\n"), nil)

		_, err := runCommand(t, NewLogoutCommand(cfg))
		testutil.AssertErrorContains(t, err, "No Vault address configured")
	})
}

func TestServeCommand(t *testing.T) {
	t.Run("stops when the context ends", func(t *testing.T) {
		fv := seededVault(t)
		cfg := cliConfig(t, fv)

		cmd := NewServeCommand(cfg)
		cmd.SetArgs([]string{"--token", testToken, "--listen", "127.0.0.1:0"})
		cmd.SetOut(&bytes.Buffer{})

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		require.NoError(t, cmd.ExecuteContext(ctx))
		assert.Equal(t, "127.0.0.1:0", cfg.Settings.Server.Listen)
	})

	t.Run("connect failure is returned", func(t *testing.T) {
		fv := seededVault(t)
		fv.SetSealed(true)

		_, err := runCommand(t, NewServeCommand(cliConfig(t, fv)), "--token", testToken, "--listen", "127.0.0.1:0")
		testutil.AssertErrorKind(t, err, dserrors.KindBackendUnavailable)
	})
}
