package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultcache/internal/config"
	"github.com/systmms/vaultcache/internal/observe"
	"github.com/systmms/vaultcache/internal/resolve"
	"github.com/systmms/vaultcache/internal/vault"
)

// connectFlags are the flags shared by every command that talks to Vault.
type connectFlags struct {
	address  string
	token    string
	mount    string
	basePath string
}

func addConnectFlags(cmd *cobra.Command, f *connectFlags) {
	cmd.Flags().StringVar(&f.address, "address", "", "Vault server URL (overrides VAULT_ADDR and config)")
	cmd.Flags().StringVar(&f.token, "token", "", "Vault token (prefer VAULT_TOKEN or 'vaultcache login')")
	cmd.Flags().StringVar(&f.mount, "mount", "", "KV mount point (default: secret)")
	cmd.Flags().StringVar(&f.basePath, "base-path", "", "Prefix prepended to every secret path")
}

// apply copies the non-empty flags over the loaded settings.
func (f connectFlags) apply(s *config.Settings) {
	if f.address != "" {
		s.Vault.Address = f.address
	}
	if f.mount != "" {
		s.Vault.MountPoint = f.mount
	}
	if f.basePath != "" {
		s.Vault.BasePath = f.basePath
	}
}

// loadSettings loads the configuration and applies flag overrides.
func loadSettings(cfg *config.Config, flags connectFlags) error {
	if err := cfg.Load(); err != nil {
		return err
	}
	flags.apply(cfg.Settings)
	return nil
}

// newResolver builds a resolver for the loaded settings. Resolver events go
// to the logger and to any extra observers.
func newResolver(cfg *config.Config, extra ...resolve.Observer) *resolve.Resolver {
	observers := observe.Multi{observe.NewLogObserver(cfg.Logger)}
	observers = append(observers, extra...)

	return resolve.New(
		vault.NewDialer(cfg.Settings.VaultConfig()),
		resolve.WithObserver(observers),
		resolve.WithCoalescing(cfg.Settings.Cache.Coalesce),
	)
}

// connect resolves the token and connects r. The plaintext token only
// exists for the duration of the call.
func connect(ctx context.Context, cfg *config.Config, r *resolve.Resolver, flagToken string) error {
	token, source, err := cfg.ResolveToken(flagToken)
	if err != nil {
		return err
	}
	defer token.Destroy()
	cfg.Logger.Debug("Using Vault token from %s", source)

	params := cfg.Settings.ConnectionParams()
	return token.Use(func(t string) error {
		params.Token = t
		return r.Connect(ctx, params)
	})
}

// connectedResolver loads configuration and returns a connected resolver.
func connectedResolver(ctx context.Context, cfg *config.Config, flags connectFlags, extra ...resolve.Observer) (*resolve.Resolver, error) {
	if err := loadSettings(cfg, flags); err != nil {
		return nil, err
	}
	r := newResolver(cfg, extra...)
	if err := connect(ctx, cfg, r, flags.token); err != nil {
		return nil, err
	}
	return r, nil
}
