package resolve

import "time"

// Observer receives resolver events. Implementations must be safe for
// concurrent use and must not block; they are called inline.
type Observer interface {
	// Connected reports the outcome of Connect.
	Connected(server string, err error)

	// CacheHit and CacheMiss report the cache lookup for a canonical address.
	CacheHit(address string)
	CacheMiss(address string)

	// BackendRead reports one backend read, successful or not.
	BackendRead(path, mountPoint string, elapsed time.Duration, err error)

	// ResolveFailed reports a GetSecret call that returned an error.
	ResolveFailed(address string, err error)

	// HealthChecked reports a CheckHealth result and the reason when unhealthy.
	HealthChecked(healthy bool, err error)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) Connected(string, error)                          {}
func (NopObserver) CacheHit(string)                                  {}
func (NopObserver) CacheMiss(string)                                 {}
func (NopObserver) BackendRead(string, string, time.Duration, error) {}
func (NopObserver) ResolveFailed(string, error)                      {}
func (NopObserver) HealthChecked(bool, error)                        {}
