// Package observe renders resolver events through the CLI logger and fans
// events out to several observers.
package observe

import (
	"time"

	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/logging"
	"github.com/systmms/vaultcache/internal/resolve"
)

// LogObserver writes resolver events to a logging.Logger. Secret values
// never reach it; only addresses, paths and error text do.
type LogObserver struct {
	logger *logging.Logger
}

// NewLogObserver returns an observer that logs through logger.
func NewLogObserver(logger *logging.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Connected(server string, err error) {
	if err != nil {
		o.logger.Error("Connection to %s failed (%s): %v", server, dserrors.KindOf(err), err)
		return
	}
	o.logger.Debug("Connected to %s", server)
}

func (o *LogObserver) CacheHit(address string) {
	o.logger.Trace("Cache hit for %s", address)
}

func (o *LogObserver) CacheMiss(address string) {
	o.logger.Debug("Cache miss for %s", address)
}

func (o *LogObserver) BackendRead(path, mountPoint string, elapsed time.Duration, err error) {
	if err != nil {
		o.logger.Debug("Read %s/%s failed after %s: %v", mountPoint, path, elapsed.Round(time.Millisecond), err)
		return
	}
	o.logger.Debug("Read %s/%s in %s", mountPoint, path, elapsed.Round(time.Millisecond))
}

func (o *LogObserver) ResolveFailed(address string, err error) {
	switch dserrors.KindOf(err) {
	case dserrors.KindBackendUnavailable, dserrors.KindUnexpectedBackend:
		o.logger.Error("Failed to resolve %s: %v", address, err)
	default:
		o.logger.Warn("Failed to resolve %s: %v", address, err)
	}
}

func (o *LogObserver) HealthChecked(healthy bool, err error) {
	if healthy {
		o.logger.Debug("Health check passed")
		return
	}
	o.logger.Warn("Health check failed: %v", err)
}

// Multi forwards every event to each observer in order.
type Multi []resolve.Observer

func (m Multi) Connected(server string, err error) {
	for _, o := range m {
		o.Connected(server, err)
	}
}

func (m Multi) CacheHit(address string) {
	for _, o := range m {
		o.CacheHit(address)
	}
}

func (m Multi) CacheMiss(address string) {
	for _, o := range m {
		o.CacheMiss(address)
	}
}

func (m Multi) BackendRead(path, mountPoint string, elapsed time.Duration, err error) {
	for _, o := range m {
		o.BackendRead(path, mountPoint, elapsed, err)
	}
}

func (m Multi) ResolveFailed(address string, err error) {
	for _, o := range m {
		o.ResolveFailed(address, err)
	}
}

func (m Multi) HealthChecked(healthy bool, err error) {
	for _, o := range m {
		o.HealthChecked(healthy, err)
	}
}

var (
	_ resolve.Observer = (*LogObserver)(nil)
	_ resolve.Observer = Multi(nil)
)
