// Package metrics exports resolver events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/resolve"
)

const namespace = "vaultcache"

// Metrics is a resolve.Observer backed by Prometheus collectors.
type Metrics struct {
	factory promauto.Factory

	cacheLookups    *prometheus.CounterVec
	backendReads    *prometheus.CounterVec
	readDuration    prometheus.Histogram
	resolveFailures *prometheus.CounterVec
	connected       prometheus.Gauge
	healthStatus    prometheus.Gauge
	healthChecks    *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		factory: factory,

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of cache lookups by result",
			},
			[]string{"result"},
		),

		backendReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_reads_total",
				Help:      "Total number of secret store reads by outcome",
			},
			[]string{"outcome"},
		),

		readDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_read_duration_seconds",
				Help:      "Duration of secret store reads in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		resolveFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_failures_total",
				Help:      "Total number of failed secret lookups by error kind",
			},
			[]string{"kind"},
		),

		connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connected",
				Help:      "Connection state (1=connected, 0=not connected)",
			},
		),

		healthStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "health_status",
				Help:      "Result of the last health check (1=healthy, 0=unhealthy)",
			},
		),

		healthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_checks_total",
				Help:      "Total number of health checks by result",
			},
			[]string{"result"},
		),
	}
}

// TrackCacheSize exports the value of size as the cached_secrets gauge.
func (m *Metrics) TrackCacheSize(size func() int) {
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_secrets",
			Help:      "Number of secrets held in the cache",
		},
		func() float64 { return float64(size()) },
	)
}

func (m *Metrics) Connected(_ string, err error) {
	if err != nil {
		m.connected.Set(0)
		m.resolveFailures.WithLabelValues(dserrors.KindOf(err).String()).Inc()
		return
	}
	m.connected.Set(1)
}

func (m *Metrics) CacheHit(string) {
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss(string) {
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) BackendRead(_, _ string, elapsed time.Duration, err error) {
	m.readDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.backendReads.WithLabelValues("error").Inc()
		return
	}
	m.backendReads.WithLabelValues("success").Inc()
}

func (m *Metrics) ResolveFailed(_ string, err error) {
	m.resolveFailures.WithLabelValues(dserrors.KindOf(err).String()).Inc()
}

func (m *Metrics) HealthChecked(healthy bool, _ error) {
	if healthy {
		m.healthStatus.Set(1)
		m.healthChecks.WithLabelValues("healthy").Inc()
		return
	}
	m.healthStatus.Set(0)
	m.healthChecks.WithLabelValues("unhealthy").Inc()
}

var _ resolve.Observer = (*Metrics)(nil)
