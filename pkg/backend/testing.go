package backend

import (
	"context"
	"testing"
	"time"
)

// ContractTest defines the behavior every SecretBackend implementation must show.
type ContractTest struct {
	// CreateBackend returns a ready-to-use backend.
	CreateBackend func(t *testing.T) SecretBackend

	// MountPoint is the mount the seeded secret lives under.
	MountPoint string

	// SeededPath and SeededKey identify a secret that exists with a
	// non-empty value. Resolve tests are skipped when SeededPath is empty.
	SeededPath string
	SeededKey  string

	// ExpectSealed is the seal status the backend should report.
	ExpectSealed bool
}

// RunContractTests runs the standard backend contract suite.
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Health", func(t *testing.T) {
			testBackendHealth(t, contract)
		})

		t.Run("ReadSecret", func(t *testing.T) {
			testBackendRead(t, contract)
		})

		t.Run("ReadSecretNotFound", func(t *testing.T) {
			testBackendReadNotFound(t, contract)
		})

		t.Run("ContextCancellation", func(t *testing.T) {
			testBackendContextCancellation(t, contract)
		})
	})
}

func testBackendHealth(t *testing.T, contract ContractTest) {
	b := contract.CreateBackend(t)

	done := make(chan struct{})
	var (
		status HealthStatus
		err    error
	)
	go func() {
		defer close(done)
		status, err = b.Health(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SecretBackend.Health() timed out after 5 seconds")
	}

	if err != nil {
		t.Fatalf("SecretBackend.Health() failed: %v", err)
	}
	if status.Sealed != contract.ExpectSealed {
		t.Errorf("SecretBackend.Health() sealed = %v, want %v", status.Sealed, contract.ExpectSealed)
	}
}

func testBackendRead(t *testing.T, contract ContractTest) {
	if contract.SeededPath == "" {
		t.Skip("no seeded secret, skipping read test")
	}

	b := contract.CreateBackend(t)
	bundle, err := b.ReadSecret(context.Background(), contract.SeededPath, contract.MountPoint)
	if err != nil {
		t.Fatalf("SecretBackend.ReadSecret() failed: %v", err)
	}
	if bundle[contract.SeededKey] == "" {
		t.Errorf("SecretBackend.ReadSecret() returned no value for key %q", contract.SeededKey)
	}
}

func testBackendReadNotFound(t *testing.T, contract ContractTest) {
	b := contract.CreateBackend(t)

	path := "this-path-definitely-does-not-exist-" + time.Now().Format("20060102150405")
	bundle, err := b.ReadSecret(context.Background(), path, contract.MountPoint)
	if err == nil {
		t.Fatalf("SecretBackend.ReadSecret() should fail for a missing path, got %d keys", len(bundle))
	}
	if !IsNotFound(err) {
		t.Errorf("SecretBackend.ReadSecret() error should wrap ErrPathNotFound, got: %v", err)
	}
}

func testBackendContextCancellation(t *testing.T, contract ContractTest) {
	b := contract.CreateBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := contract.SeededPath
	if path == "" {
		path = "any-path"
	}
	if _, err := b.ReadSecret(ctx, path, contract.MountPoint); err == nil {
		t.Error("SecretBackend.ReadSecret() should fail with cancelled context")
	}
}
