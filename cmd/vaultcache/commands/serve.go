package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/systmms/vaultcache/internal/config"
	"github.com/systmms/vaultcache/internal/metrics"
	"github.com/systmms/vaultcache/internal/resolve"
	"github.com/systmms/vaultcache/internal/server"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(cfg *config.Config) *cobra.Command {
	var (
		flags       connectFlags
		listen      string
		metricsPath string
		noMetrics   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cached secrets over local HTTP",
		Long: `Connect to Vault once and serve secrets to local processes.

Endpoints:
  GET /v1/secret?address=path:key   resolve a secret (also ?path=...&key=...)
  GET /healthz                      200 when Vault is reachable and unsealed
  GET /metrics                      Prometheus metrics

Every secret is read from Vault at most once for the life of the process.
Bind to a loopback address: the endpoint has no authentication.

Examples:
  vaultcache serve
  vaultcache serve --listen 127.0.0.1:9000 --metrics-path /prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadSettings(cfg, flags); err != nil {
				return err
			}
			if listen != "" {
				cfg.Settings.Server.Listen = listen
			}
			if metricsPath != "" {
				cfg.Settings.Server.MetricsPath = metricsPath
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Listen = cfg.Settings.Server.Listen
			srvCfg.MetricsPath = cfg.Settings.Server.MetricsPath

			var (
				m         *metrics.Metrics
				handler   http.Handler
				observers []resolve.Observer
			)
			if !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				m = metrics.New(reg)
				handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
				observers = append(observers, m)
			}

			r := newResolver(cfg, observers...)
			if m != nil {
				m.TrackCacheSize(r.CachedCount)
			}
			if err := connect(cmd.Context(), cfg, r, flags.token); err != nil {
				return err
			}

			srv := server.New(srvCfg, r, handler, cfg.Logger)
			if err := srv.Start(); err != nil {
				return err
			}
			cfg.Logger.Info("Serving secrets from %s on http://%s", cfg.Settings.Vault.Address, srv.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			cfg.Logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}

	addConnectFlags(cmd, &flags)
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default: 127.0.0.1:8210)")
	cmd.Flags().StringVar(&metricsPath, "metrics-path", "", "Path to serve Prometheus metrics on (default: /metrics)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the metrics endpoint")

	return cmd
}
