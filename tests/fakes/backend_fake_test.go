package fakes_test

import (
	"testing"

	"github.com/systmms/vaultcache/pkg/backend"
	"github.com/systmms/vaultcache/tests/fakes"
)

func TestFakeBackendContract(t *testing.T) {
	t.Parallel()

	backend.RunContractTests(t, backend.ContractTest{
		CreateBackend: func(t *testing.T) backend.SecretBackend {
			return fakes.NewFakeBackend().
				WithSecret("secret", "app/db", map[string]string{"password": "s3cret"})
		},
		MountPoint: "secret",
		SeededPath: "app/db",
		SeededKey:  "password",
	})
}
