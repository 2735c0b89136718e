package fakes

import (
	"context"
	"sync"

	"github.com/systmms/vaultcache/pkg/backend"
)

// DialCall records the arguments of one Dial call.
type DialCall struct {
	Address string
	Token   string
}

// FakeDialer hands out a fixed backend and records every dial.
type FakeDialer struct {
	backend backend.SecretBackend
	err     error

	mu    sync.Mutex
	calls []DialCall
}

// NewFakeDialer returns a dialer that always yields b.
func NewFakeDialer(b backend.SecretBackend) *FakeDialer {
	return &FakeDialer{backend: b}
}

// WithError makes every Dial fail with err.
func (d *FakeDialer) WithError(err error) *FakeDialer {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.err = err
	return d
}

// Dial records the call and returns the configured backend.
func (d *FakeDialer) Dial(ctx context.Context, address, token string) (backend.SecretBackend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, DialCall{Address: address, Token: token})
	if d.err != nil {
		return nil, d.err
	}
	return d.backend, nil
}

// Calls returns a copy of the recorded calls.
func (d *FakeDialer) Calls() []DialCall {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]DialCall, len(d.calls))
	copy(out, d.calls)
	return out
}
