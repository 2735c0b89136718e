// Package integration runs the resolver against a real Vault dev server.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vaultcache/internal/connection"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/observe"
	"github.com/systmms/vaultcache/internal/resolve"
	"github.com/systmms/vaultcache/internal/vault"
	"github.com/systmms/vaultcache/tests/testutil"
)

func TestResolverAgainstVault(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	v := testutil.StartDockerVault(t)

	v.PutKVv2("secret", "project/database", map[string]interface{}{
		"username": "app",
		"password": "integration-s3cret",
		"port":     5432,
	})
	v.PutKVv2("secret", "project/retired", map[string]interface{}{"key": "old"})
	v.DeleteKVv2("secret", "project/retired")
	v.EnableKVv1("legacy")
	v.PutKVv1("legacy", "project/api", map[string]interface{}{"key": "v1-value"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := testutil.NewTestLogger(t, true)

	r := resolve.New(vault.NewDialer(vault.Config{}), resolve.WithObserver(observe.NewLogObserver(logger.Logger)))
	require.NoError(t, r.Connect(ctx, connection.Params{
		Address:  v.Address,
		Token:    v.Token,
		BasePath: "project",
	}))
	assert.Equal(t, connection.Connected, r.State())
	assert.True(t, r.CheckHealth(ctx))

	t.Run("reads and caches", func(t *testing.T) {
		value, err := r.GetSecret(ctx, "database:password")
		require.NoError(t, err)
		assert.Equal(t, "integration-s3cret", value)

		v.PutKVv2("secret", "project/database", map[string]interface{}{"password": "rotated", "port": 5432})

		value, err = r.GetSecret(ctx, " database : password ")
		require.NoError(t, err)
		assert.Equal(t, "integration-s3cret", value)
	})

	t.Run("numbers are rendered as text", func(t *testing.T) {
		value, err := r.GetSecret(ctx, "database:port")
		require.NoError(t, err)
		assert.Equal(t, "5432", value)
	})

	t.Run("missing path and key", func(t *testing.T) {
		_, err := r.GetSecret(ctx, "nothing-here:key")
		testutil.AssertErrorKind(t, err, dserrors.KindSecretNotFound)

		_, err = r.GetSecret(ctx, "database:nope")
		testutil.AssertErrorKind(t, err, dserrors.KindSecretNotFound)
	})

	t.Run("soft deleted secret", func(t *testing.T) {
		_, err := r.GetSecret(ctx, "retired:key")
		testutil.AssertErrorKind(t, err, dserrors.KindSecretNotFound)
	})

	t.Run("kv v1 mount", func(t *testing.T) {
		v1 := resolve.New(vault.NewDialer(vault.Config{KVVersion: 1}))
		require.NoError(t, v1.Connect(ctx, connection.Params{
			Address:    v.Address,
			Token:      v.Token,
			MountPoint: "legacy",
			BasePath:   "project",
		}))

		value, err := v1.GetSecret(ctx, "api:key")
		require.NoError(t, err)
		assert.Equal(t, "v1-value", value)
	})

	t.Run("bad token", func(t *testing.T) {
		bad := resolve.New(vault.NewDialer(vault.Config{MaxRetries: 0}))
		// Seal status is unauthenticated, so connecting succeeds.
		require.NoError(t, bad.Connect(ctx, connection.Params{Address: v.Address, Token: "wrong"}))

		_, err := bad.GetSecret(ctx, "project/database:password")
		testutil.AssertErrorKind(t, err, dserrors.KindBackendUnavailable)
	})

	testutil.AssertNoSecretLeak(t, logger.GetOutput(), []string{"integration-s3cret", v.Token})
}
