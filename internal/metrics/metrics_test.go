package metrics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultcache/internal/connection"
	"github.com/systmms/vaultcache/internal/metrics"
	"github.com/systmms/vaultcache/internal/resolve"
	"github.com/systmms/vaultcache/tests/fakes"
)

func TestMetricsCountResolverEvents(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	fake := fakes.NewFakeBackend().
		WithSecret("secret", "db", map[string]string{"password": "pw"})
	r := resolve.New(fakes.NewFakeDialer(fake), resolve.WithObserver(m))
	m.TrackCacheSize(r.CachedCount)

	require.NoError(t, r.Connect(context.Background(), connection.Params{
		Address: "http://vault:8200",
		Token:   "t",
	}))

	for i := 0; i < 3; i++ {
		_, err := r.GetSecret(context.Background(), "db:password")
		require.NoError(t, err)
	}
	_, err := r.GetSecret(context.Background(), "db:missing")
	require.Error(t, err)
	_, err = r.GetSecret(context.Background(), "no-separator")
	require.Error(t, err)
	assert.True(t, r.CheckHealth(context.Background()))

	expected := `
# HELP vaultcache_cache_lookups_total Total number of cache lookups by result
# TYPE vaultcache_cache_lookups_total counter
vaultcache_cache_lookups_total{result="hit"} 2
vaultcache_cache_lookups_total{result="miss"} 2
# HELP vaultcache_backend_reads_total Total number of secret store reads by outcome
# TYPE vaultcache_backend_reads_total counter
vaultcache_backend_reads_total{outcome="success"} 2
# HELP vaultcache_resolve_failures_total Total number of failed secret lookups by error kind
# TYPE vaultcache_resolve_failures_total counter
vaultcache_resolve_failures_total{kind="invalid_address"} 1
vaultcache_resolve_failures_total{kind="secret_not_found"} 1
# HELP vaultcache_cached_secrets Number of secrets held in the cache
# TYPE vaultcache_cached_secrets gauge
vaultcache_cached_secrets 1
# HELP vaultcache_connected Connection state (1=connected, 0=not connected)
# TYPE vaultcache_connected gauge
vaultcache_connected 1
# HELP vaultcache_health_status Result of the last health check (1=healthy, 0=unhealthy)
# TYPE vaultcache_health_status gauge
vaultcache_health_status 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"vaultcache_cache_lookups_total",
		"vaultcache_backend_reads_total",
		"vaultcache_resolve_failures_total",
		"vaultcache_cached_secrets",
		"vaultcache_connected",
		"vaultcache_health_status",
	)
	assert.NoError(t, err)
	assert.Equal(t, 1, mustGatherAndCount(t, reg, "vaultcache_backend_read_duration_seconds"))
}

func TestMetricsFailedConnect(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	fake := fakes.NewFakeBackend().WithSealed(true)
	r := resolve.New(fakes.NewFakeDialer(fake), resolve.WithObserver(m))
	require.Error(t, r.Connect(context.Background(), connection.Params{
		Address: "http://vault:8200",
		Token:   "t",
	}))
	assert.False(t, r.CheckHealth(context.Background()))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[mf.GetName()] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil && mf.GetName() == "vaultcache_resolve_failures_total":
				for _, lp := range metric.GetLabel() {
					values[mf.GetName()+"/"+lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}

	assert.Equal(t, 0.0, values["vaultcache_connected"])
	assert.Equal(t, 0.0, values["vaultcache_health_status"])
	assert.Equal(t, 1.0, values["vaultcache_resolve_failures_total/backend_unavailable"])
}

func mustGatherAndCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()

	n, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)
	return n
}
