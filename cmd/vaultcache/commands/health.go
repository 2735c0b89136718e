package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultcache/internal/config"
	dserrors "github.com/systmms/vaultcache/internal/errors"
)

type healthReport struct {
	Server  string `json:"server"`
	State   string `json:"state"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func NewHealthCommand(cfg *config.Config) *cobra.Command {
	var (
		flags      connectFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that Vault is reachable and unsealed",
		Long: `Connect to Vault and query its seal status.

The command exits with status 1 when the connection fails or the server is
sealed, so it can be used as a readiness probe.

Examples:
  vaultcache health
  vaultcache health --address https://vault.example.com:8200 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadSettings(cfg, flags); err != nil {
				return err
			}

			report := healthReport{Server: cfg.Settings.Vault.Address}

			r := newResolver(cfg)
			if err := connect(cmd.Context(), cfg, r, flags.token); err != nil {
				report.Error = err.Error()
			} else {
				report.Healthy = r.CheckHealth(cmd.Context())
			}
			report.State = r.State().String()

			if jsonOutput {
				if err := encodeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				status := "healthy"
				if !report.Healthy {
					status = "unhealthy"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", report.Server, status, report.State)
			}

			if !report.Healthy {
				return dserrors.UserError{
					Message:    "Vault is not healthy",
					Details:    report.Error,
					Suggestion: "Check that the server is reachable and unsealed",
				}
			}
			return nil
		},
	}

	addConnectFlags(cmd, &flags)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
