package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/vault/api"
)

// DockerVaultRootToken is the dev-mode root token set in
// tests/integration/docker-compose.yml.
const DockerVaultRootToken = "test-root-token"

// DockerVault is a Vault dev server started with Docker Compose.
type DockerVault struct {
	Address string
	Token   string

	t           *testing.T
	composePath string
	projectName string
	client      *api.Client
	started     bool
}

// StartDockerVault starts the vault service from
// tests/integration/docker-compose.yml and waits until it is unsealed. The
// container is removed when the test ends. The test is skipped when Docker
// is not available.
func StartDockerVault(t *testing.T) *DockerVault {
	t.Helper()

	SkipIfDockerUnavailable(t)
	ClearVaultEnv(t)

	composePath := findDockerComposePath(t)
	if composePath == "" {
		t.Fatal("docker-compose.yml not found in tests/integration/")
	}

	// UnixNano keeps parallel packages from sharing a project.
	v := &DockerVault{
		Token:       DockerVaultRootToken,
		t:           t,
		composePath: composePath,
		projectName: fmt.Sprintf("vaultcache-test-%d", time.Now().UnixNano()),
	}

	v.compose("up", "-d", "vault")
	v.started = true
	t.Cleanup(v.Stop)

	port, err := v.discoverPort()
	if err != nil {
		t.Fatalf("Failed to discover Vault port: %v", err)
	}
	v.Address = fmt.Sprintf("http://127.0.0.1:%d", port)

	cfg := api.DefaultConfig()
	cfg.Address = v.Address
	client, err := api.NewClient(cfg)
	if err != nil {
		t.Fatalf("Failed to create Vault client: %v", err)
	}
	client.SetToken(v.Token)
	v.client = client

	if err := v.WaitForUnsealed(60 * time.Second); err != nil {
		t.Fatalf("Vault did not become ready: %v", err)
	}
	return v
}

// SkipIfDockerUnavailable skips the test if Docker is not available.
func SkipIfDockerUnavailable(t *testing.T) {
	t.Helper()

	if !IsDockerAvailable() {
		t.Skip("Docker not available, skipping integration test")
	}
}

// IsDockerAvailable checks if Docker and the compose plugin are usable.
func IsDockerAvailable() bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	if err := exec.Command("docker", "ps").Run(); err != nil {
		return false
	}
	return exec.Command("docker", "compose", "version").Run() == nil
}

// Stop removes the container.
func (v *DockerVault) Stop() {
	if !v.started {
		return
	}
	v.compose("down", "-v")
	v.started = false
}

// WaitForUnsealed polls seal status until the server answers unsealed.
func (v *DockerVault) WaitForUnsealed(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		status, err := v.client.Sys().SealStatusWithContext(ctx)
		if err == nil && !status.Sealed {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for Vault: last error: %v", err)
		case <-ticker.C:
		}
	}
}

// PutKVv2 writes data at path in the KV v2 engine mounted at mount.
func (v *DockerVault) PutKVv2(mount, path string, data map[string]interface{}) {
	v.t.Helper()

	if _, err := v.client.KVv2(mount).Put(context.Background(), path, data); err != nil {
		v.t.Fatalf("Failed to seed %s/%s: %v", mount, path, err)
	}
}

// DeleteKVv2 soft-deletes the latest version at path.
func (v *DockerVault) DeleteKVv2(mount, path string) {
	v.t.Helper()

	if err := v.client.KVv2(mount).Delete(context.Background(), path); err != nil {
		v.t.Fatalf("Failed to delete %s/%s: %v", mount, path, err)
	}
}

// EnableKVv1 mounts a KV version 1 engine at mount.
func (v *DockerVault) EnableKVv1(mount string) {
	v.t.Helper()

	err := v.client.Sys().Mount(mount, &api.MountInput{
		Type:    "kv",
		Options: map[string]string{"version": "1"},
	})
	if err != nil {
		v.t.Fatalf("Failed to mount %s: %v", mount, err)
	}
}

// PutKVv1 writes data at path in the KV v1 engine mounted at mount.
func (v *DockerVault) PutKVv1(mount, path string, data map[string]interface{}) {
	v.t.Helper()

	if err := v.client.KVv1(mount).Put(context.Background(), path, data); err != nil {
		v.t.Fatalf("Failed to seed %s/%s: %v", mount, path, err)
	}
}

func (v *DockerVault) compose(args ...string) {
	v.t.Helper()

	full := append([]string{"compose", "-f", v.composePath, "-p", v.projectName}, args...)
	cmd := exec.Command("docker", full...)
	cmd.Dir = filepath.Dir(v.composePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		v.t.Fatalf("docker %s: %v", strings.Join(args, " "), err)
	}
}

// discoverPort returns the host port mapped to the container's 8200.
func (v *DockerVault) discoverPort() (int, error) {
	cmd := exec.Command("docker", "compose",
		"-f", v.composePath,
		"-p", v.projectName,
		"port", "vault", "8200")
	cmd.Dir = filepath.Dir(v.composePath)

	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}

	// "0.0.0.0:32768" -> 32768
	portStr := strings.TrimSpace(string(output))
	idx := strings.LastIndex(portStr, ":")
	if idx < 0 {
		return 0, fmt.Errorf("unexpected port output format: %s", portStr)
	}

	port := 0
	if _, err := fmt.Sscanf(portStr[idx+1:], "%d", &port); err != nil {
		return 0, fmt.Errorf("failed to parse host port from %s: %w", portStr, err)
	}
	return port, nil
}

func findDockerComposePath(t *testing.T) string {
	t.Helper()

	candidates := []string{
		"docker-compose.yml",
		"../integration/docker-compose.yml",
		"../../tests/integration/docker-compose.yml",
		"../../../tests/integration/docker-compose.yml",
		"tests/integration/docker-compose.yml",
	}

	for _, path := range candidates {
		if absPath, err := filepath.Abs(path); err == nil {
			if _, err := os.Stat(absPath); err == nil {
				return absPath
			}
		}
	}

	return ""
}
