package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultcache/internal/config"
	"github.com/systmms/vaultcache/internal/connection"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/secure"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var (
		flags    connectFlags
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Vault token in the OS keyring",
		Long: `Save a Vault token in the operating system keyring, keyed by server address.

The token is read from --token or, when that is not given, from the first
line of standard input. Before it is stored the token is checked by
connecting to the server; use --no-verify to skip the check.

Later commands find the token automatically when neither VAULT_TOKEN, the
config file nor ~/.vault-token provide one.

Examples:
  vaultcache login --address https://vault.example.com:8200 < token.txt
  echo "$TOKEN" | vaultcache login
  vaultcache login --token hvs.XXXX --no-verify`,
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

			value := strings.TrimSpace(flags.token)
			if value == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Vault token: ")
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					value = strings.TrimSpace(scanner.Text())
				}
				fmt.Fprintln(cmd.ErrOrStderr())
				if err := scanner.Err(); err != nil {
					return dserrors.UserError{Message: "Failed to read token", Err: err}
				}
			}
			if value == "" {
				return dserrors.UserError{
					Message:    "No token given",
					Suggestion: "Pass --token or pipe the token on standard input",
				}
			}

			token := secure.NewToken(value)
			defer token.Destroy()

			if !noVerify {
				r := newResolver(cfg)
				err := token.Use(func(t string) error {
					return r.Connect(cmd.Context(), connection.Params{
						Address:    addr,
						Token:      t,
						MountPoint: cfg.Settings.Vault.MountPoint,
						BasePath:   cfg.Settings.Vault.BasePath,
					})
				})
				if err != nil {
					return err
				}
			}

			if err := token.Use(func(t string) error { return config.StoreToken(addr, t) }); err != nil {
				return dserrors.UserError{
					Message:    "Failed to store token in the OS keyring",
					Suggestion: "Check that a keyring service is available, or use VAULT_TOKEN instead",
					Err:        err,
				}
			}

			cfg.Logger.Info("Stored token for %s in the OS keyring", addr)
			return nil
		},
	}

	addConnectFlags(cmd, &flags)
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Store the token without connecting first")

	return cmd
}
