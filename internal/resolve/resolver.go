// Package resolve implements the secret resolver: it validates addresses,
// serves cached values and reads the store on a miss.
//
// Resolver emits events to an Observer instead of logging directly; see
// internal/observe and internal/metrics for the implementations wired by
// the CLI.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/systmms/vaultcache/internal/address"
	"github.com/systmms/vaultcache/internal/cache"
	"github.com/systmms/vaultcache/internal/connection"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/pkg/backend"
)

// DefaultMaxConcurrent bounds the backend reads issued by GetSecrets.
const DefaultMaxConcurrent = 10

// Resolver turns "path:key" addresses into secret values, reading from the
// backend only on the first successful access of each address.
//
// Concurrent misses for the same address each read the backend unless
// coalescing is enabled; the first value stored wins and every caller gets
// the value it fetched. The backend read never runs under a cache-wide lock.
type Resolver struct {
	conn     *connection.Manager
	cache    *cache.Cache
	observer Observer

	coalesce      bool
	flights       singleflight.Group
	maxConcurrent int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithObserver routes resolver events to o.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithCoalescing merges concurrent misses for the same address into one
// backend read. Callers sharing a read also share its context, so a
// cancelled leader fails its followers.
func WithCoalescing(enabled bool) Option {
	return func(r *Resolver) {
		r.coalesce = enabled
	}
}

// WithMaxConcurrent bounds the parallel reads issued by GetSecrets.
func WithMaxConcurrent(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxConcurrent = n
		}
	}
}

// New creates an unconnected resolver that dials the store with d.
func New(d connection.Dialer, opts ...Option) *Resolver {
	r := &Resolver{
		conn:          connection.NewManager(d),
		cache:         cache.New(),
		observer:      NopObserver{},
		maxConcurrent: DefaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect validates p, dials the store and verifies it is unsealed. It
// must complete before concurrent GetSecret traffic starts and may only be
// attempted once per Resolver.
func (r *Resolver) Connect(ctx context.Context, p connection.Params) error {
	err := r.conn.Connect(ctx, p)
	r.observer.Connected(strings.TrimSpace(p.Address), err)
	return err
}

// State returns the connection lifecycle state.
func (r *Resolver) State() connection.State {
	return r.conn.State()
}

// GetSecret returns the value stored under key at the address's path.
func (r *Resolver) GetSecret(ctx context.Context, addr string) (string, error) {
	canonical, path, key, err := address.Canonical(addr)
	if err != nil {
		r.observer.ResolveFailed(addr, err)
		return "", err
	}

	if value, ok := r.cache.Get(canonical); ok {
		r.observer.CacheHit(canonical)
		return value, nil
	}
	r.observer.CacheMiss(canonical)

	var value string
	if r.coalesce {
		v, ferr, _ := r.flights.Do(canonical, func() (interface{}, error) {
			if cached, ok := r.cache.Get(canonical); ok {
				return cached, nil
			}
			return r.fetch(ctx, canonical, path, key)
		})
		if ferr == nil {
			value = v.(string)
		}
		err = ferr
	} else {
		value, err = r.fetch(ctx, canonical, path, key)
	}

	if err != nil {
		r.observer.ResolveFailed(canonical, err)
		return "", err
	}
	return value, nil
}

// GetSecretAt is GetSecret(path + ":" + key).
func (r *Resolver) GetSecretAt(ctx context.Context, path, key string) (string, error) {
	return r.GetSecret(ctx, address.Format(path, key))
}

// GetSecrets resolves several addresses concurrently. The returned map
// holds every address that resolved; the error joins one error per
// failed address.
func (r *Resolver) GetSecrets(ctx context.Context, addresses []string) (map[string]string, error) {
	result := make(map[string]string, len(addresses))
	failures := make(map[string]error)
	var mu sync.Mutex

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.maxConcurrent)

	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			value, err := r.GetSecret(ctx, addr)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[addr] = err
				return
			}
			result[addr] = value
		}(addr)
	}
	wg.Wait()

	if len(failures) == 0 {
		return result, nil
	}

	failed := make([]string, 0, len(failures))
	for addr := range failures {
		failed = append(failed, addr)
	}
	sort.Strings(failed)

	errs := make([]error, 0, len(failed))
	for _, addr := range failed {
		errs = append(errs, fmt.Errorf("%s: %w", addr, failures[addr]))
	}
	return result, errors.Join(errs...)
}

// CheckHealth queries the store's seal status on every call. It returns
// true only when the store is reachable and unsealed, and never fails.
func (r *Resolver) CheckHealth(ctx context.Context) (healthy bool) {
	h, err := r.conn.Handle()
	if err != nil {
		r.observer.HealthChecked(false, err)
		return false
	}

	// The backend is external code; a panic there still reports unhealthy.
	defer func() {
		if p := recover(); p != nil {
			healthy = false
			r.observer.HealthChecked(false, fmt.Errorf("health check panicked: %v", p))
		}
	}()

	status, err := h.Backend.Health(ctx)
	if err != nil {
		r.observer.HealthChecked(false, err)
		return false
	}

	healthy = status.Healthy()
	if !healthy {
		r.observer.HealthChecked(false, dserrors.BackendUnavailableError{
			Operation: "health",
			Server:    h.Server,
			Message:   "secret store is sealed",
		})
		return false
	}
	r.observer.HealthChecked(true, nil)
	return true
}

// CachedCount returns the number of cached secrets.
func (r *Resolver) CachedCount() int {
	return r.cache.Len()
}

// CachedAddresses returns the cached addresses in sorted order.
func (r *Resolver) CachedAddresses() []string {
	return r.cache.Addresses()
}

func (r *Resolver) fetch(ctx context.Context, canonical, path, key string) (string, error) {
	h, err := r.conn.Handle()
	if err != nil {
		return "", err
	}

	fullPath := h.FullPath(path)
	start := time.Now()
	bundle, err := h.Backend.ReadSecret(ctx, fullPath, h.MountPoint)
	r.observer.BackendRead(fullPath, h.MountPoint, time.Since(start), err)
	if err != nil {
		return "", classifyReadError(err, h, canonical, fullPath, key)
	}

	value, ok := bundle[key]
	if !ok {
		return "", dserrors.SecretNotFoundError{
			Address: canonical,
			Path:    fullPath,
			Key:     key,
			Mount:   h.MountPoint,
			Reason:  "key not present in secret",
		}
	}
	if strings.TrimSpace(value) == "" {
		return "", dserrors.SecretNotFoundError{
			Address: canonical,
			Path:    fullPath,
			Key:     key,
			Mount:   h.MountPoint,
			Reason:  "value is empty",
		}
	}

	r.cache.Put(canonical, value)
	return value, nil
}

func classifyReadError(err error, h connection.Handle, canonical, fullPath, key string) error {
	switch {
	case backend.IsNotFound(err):
		return dserrors.SecretNotFoundError{
			Address: canonical,
			Path:    fullPath,
			Key:     key,
			Mount:   h.MountPoint,
			Reason:  "no data at path",
		}
	case backend.IsAPIError(err), backend.IsUnreachable(err):
		return dserrors.BackendUnavailableError{
			Operation: "read",
			Server:    h.Server,
			Path:      fullPath,
			Mount:     h.MountPoint,
			Err:       err,
		}
	default:
		return dserrors.UnexpectedBackendError{
			Operation: "read",
			Path:      fullPath,
			Mount:     h.MountPoint,
			Err:       err,
		}
	}
}
