package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/vaultcache/pkg/backend"
)

// FakeBackend is an in-memory backend.SecretBackend.
//
// Example usage:
//
//	fake := fakes.NewFakeBackend().
//	    WithSecret("secret", "db", map[string]string{"password": "s3cret"}).
//	    WithReadError("secret", "broken", errors.New("connection failed"))
type FakeBackend struct {
	bundles    map[string]map[string]string // mount/path -> bundle
	readErrors map[string]error             // mount/path -> error

	health    backend.HealthStatus
	healthErr error
	delay     time.Duration

	reads       map[string]int
	healthCalls int

	mu sync.RWMutex
}

// NewFakeBackend returns an initialized, unsealed backend with no data.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		bundles:    make(map[string]map[string]string),
		readErrors: make(map[string]error),
		reads:      make(map[string]int),
		health:     backend.HealthStatus{Initialized: true, Version: "1.15.0-fake"},
	}
}

// WithSecret stores bundle at path under mount.
func (f *FakeBackend) WithSecret(mount, path string, bundle map[string]string) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(map[string]string, len(bundle))
	for k, v := range bundle {
		copied[k] = v
	}
	f.bundles[key(mount, path)] = copied
	return f
}

// WithReadError makes reads of path under mount fail with err.
func (f *FakeBackend) WithReadError(mount, path string, err error) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readErrors[key(mount, path)] = err
	return f
}

// WithSealed sets the seal status reported by Health.
func (f *FakeBackend) WithSealed(sealed bool) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.health.Sealed = sealed
	return f
}

// WithHealthError makes Health fail with err.
func (f *FakeBackend) WithHealthError(err error) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.healthErr = err
	return f
}

// WithDelay adds latency to every ReadSecret call.
func (f *FakeBackend) WithDelay(d time.Duration) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delay = d
	return f
}

// ReadSecret returns a copy of the stored bundle.
func (f *FakeBackend) ReadSecret(ctx context.Context, path, mountPoint string) (map[string]string, error) {
	k := key(mountPoint, path)

	f.mu.Lock()
	f.reads[k]++
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err, ok := f.readErrors[k]; ok {
		return nil, err
	}

	bundle, ok := f.bundles[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrPathNotFound, k)
	}

	copied := make(map[string]string, len(bundle))
	for bk, bv := range bundle {
		copied[bk] = bv
	}
	return copied, nil
}

// Health returns the configured status or error.
func (f *FakeBackend) Health(ctx context.Context) (backend.HealthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.healthCalls++
	if f.healthErr != nil {
		return backend.HealthStatus{}, f.healthErr
	}
	return f.health, nil
}

// ReadCount returns how many reads hit path under mount.
func (f *FakeBackend) ReadCount(mount, path string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.reads[key(mount, path)]
}

// TotalReads returns the number of ReadSecret calls across all paths.
func (f *FakeBackend) TotalReads() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total := 0
	for _, n := range f.reads {
		total += n
	}
	return total
}

// HealthCalls returns the number of Health calls.
func (f *FakeBackend) HealthCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.healthCalls
}

// String returns a string representation of the fake backend.
func (f *FakeBackend) String() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return fmt.Sprintf("FakeBackend{bundles=%d, sealed=%v}", len(f.bundles), f.health.Sealed)
}

func key(mount, path string) string {
	return mount + "/" + path
}

var _ backend.SecretBackend = (*FakeBackend)(nil)
