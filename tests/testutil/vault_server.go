package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeVault is an httptest server that speaks the subset of the Vault HTTP
// API vaultcache uses: KV v1 and v2 reads and sys/seal-status.
//
// Example usage:
//
//	fv := testutil.NewFakeVault(t, "test-token").
//	    Put("secret", "project/database", map[string]any{"password": "s3cret"})
//	b, _ := vault.NewDialer(vault.Config{}).Dial(ctx, fv.URL, fv.Token)
type FakeVault struct {
	*httptest.Server

	// Token is the only token accepted for secret reads.
	Token string

	mu       sync.Mutex
	sealed   bool
	kv1      map[string]bool           // mounts served as KV v1
	data     map[string]map[string]any // mount/path -> data
	deleted  map[string]bool           // mount/path -> soft-deleted (v2)
	requests map[string]int            // URL path -> count
}

// NewFakeVault starts a fake Vault server that accepts token. The server
// is closed when the test ends.
func NewFakeVault(t *testing.T, token string) *FakeVault {
	t.Helper()

	f := &FakeVault{
		Token:    token,
		kv1:      make(map[string]bool),
		data:     make(map[string]map[string]any),
		deleted:  make(map[string]bool),
		requests: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// WithKVv1 serves mount as a KV version 1 engine.
func (f *FakeVault) WithKVv1(mount string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.kv1[mount] = true
	return f
}

// Put stores data at path under mount.
func (f *FakeVault) Put(mount, path string, data map[string]any) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[mount+"/"+path] = data
	delete(f.deleted, mount+"/"+path)
	return f
}

// SoftDelete marks the latest version at path as deleted. KV v2 keeps the
// metadata and returns null data.
func (f *FakeVault) SoftDelete(mount, path string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted[mount+"/"+path] = true
	return f
}

// SetSealed changes the seal status.
func (f *FakeVault) SetSealed(sealed bool) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sealed = sealed
	return f
}

// Requests returns how many requests hit urlPath, e.g. "/v1/secret/data/app".
func (f *FakeVault) Requests(urlPath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests[urlPath]
}

func (f *FakeVault) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests[r.URL.Path]++

	if r.URL.Path == "/v1/sys/seal-status" {
		writeJSON(w, http.StatusOK, map[string]any{
			"type":         "shamir",
			"initialized":  true,
			"sealed":       f.sealed,
			"t":            1,
			"n":            1,
			"progress":     0,
			"version":      "1.15.0",
			"cluster_name": "vault-cluster-fake",
		})
		return
	}

	if f.sealed {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"errors": []string{"Vault is sealed"}})
		return
	}
	if r.Header.Get("X-Vault-Token") != f.Token {
		writeJSON(w, http.StatusForbidden, map[string]any{"errors": []string{"permission denied"}})
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"errors": []string{"unsupported operation"}})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/")
	mount, path, _ := strings.Cut(rest, "/")

	if f.kv1[mount] {
		data, ok := f.data[mount+"/"+path]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
		return
	}

	path, ok := strings.CutPrefix(path, "data/")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{}})
		return
	}
	key := mount + "/" + path
	data, ok := f.data[key]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{}})
		return
	}

	metadata := map[string]any{
		"version":       1,
		"created_time":  "2024-01-01T00:00:00Z",
		"deletion_time": "",
		"destroyed":     false,
	}
	var payload any = data
	if f.deleted[key] {
		metadata["deletion_time"] = "2024-02-01T00:00:00Z"
		payload = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"data":     payload,
			"metadata": metadata,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
