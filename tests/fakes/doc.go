// Package fakes provides test doubles for the vaultcache backend contract.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior: seeded bundles, injected failures, a sealed flag,
// simulated latency, and per-path call counting.
//
// Usage:
//
//	fake := fakes.NewFakeBackend().
//	    WithSecret("secret", "project/database", map[string]string{"Conn": "Server=db"})
//	dialer := fakes.NewFakeDialer(fake)
//	r := resolve.New(dialer)
//	// Connect and resolve...
//	assert.Equal(t, 1, fake.ReadCount("secret", "project/database"))
package fakes
