package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/vaultcache/internal/config"
	dserrors "github.com/systmms/vaultcache/internal/errors"
)

func NewLogoutCommand(cfg *config.Config) *cobra.Command {
	var flags connectFlags

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored Vault token from the OS keyring",
		Long: `Delete the keyring entry saved by 'vaultcache login' for the configured server.

Examples:
  vaultcache logout
  vaultcache logout --address https://vault.example.com:8200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadSettings(cfg, flags); err != nil {
				return err
			}
			addr := cfg.Settings.Vault.Address
			if addr == "" {
				return dserrors.UserError{
					Message:    "No Vault address configured",
					Suggestion: "Pass --address, set VAULT_ADDR, or set vault.address in vaultcache.yaml",
				}
			}

			existed, err := config.DeleteToken(addr)
			if err != nil {
				return dserrors.UserError{
					Message: "Failed to remove token from the OS keyring",
					Err:     err,
				}
			}
			if !existed {
				cfg.Logger.Warn("No stored token for %s", addr)
				return nil
			}
			cfg.Logger.Info("Removed stored token for %s", addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.address, "address", "", "Vault server URL (overrides VAULT_ADDR and config)")

	return cmd
}
