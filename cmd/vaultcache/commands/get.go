package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultcache/internal/address"
	"github.com/systmms/vaultcache/internal/config"
	dserrors "github.com/systmms/vaultcache/internal/errors"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		flags      connectFlags
		path       string
		key        string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get [path:key...]",
		Short: "Print secret values from Vault",
		Long: `Read one or more secret values by address and print them.

An address is a secret path and a field name separated by a colon. The path
is relative to the configured base path and mount point.

With a single address the raw value is printed without a trailing newline,
which makes the command usable in shell substitutions. With several
addresses each value is printed on its own line, in argument order.

Examples:
  vaultcache get database/prod:password
  vaultcache get --path database/prod --key password
  vaultcache get app:api_key app:api_secret --json
  export DB_PASS=$(vaultcache get database/prod:password)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses := args
			if path != "" || key != "" {
				if len(args) > 0 {
					return dserrors.UserError{
						Message:    "Cannot combine --path/--key with address arguments",
						Suggestion: "Use either 'vaultcache get path:key' or 'vaultcache get --path path --key key'",
					}
				}
				addresses = []string{address.Format(path, key)}
			}
			if len(addresses) == 0 {
				return dserrors.UserError{
					Message:    "No secret address given",
					Suggestion: "Pass one or more 'path:key' arguments, or --path and --key",
				}
			}

			r, err := connectedResolver(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(addresses) == 1 {
				value, err := r.GetSecret(cmd.Context(), addresses[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return encodeJSON(cmd, map[string]string{"address": addresses[0], "value": value})
				}
				_, err = fmt.Fprint(out, value)
				return err
			}

			values, err := r.GetSecrets(cmd.Context(), addresses)
			if err != nil {
				return err
			}
			if jsonOutput {
				return encodeJSON(cmd, values)
			}
			for _, addr := range addresses {
				if _, err := fmt.Fprintln(out, values[addr]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	addConnectFlags(cmd, &flags)
	cmd.Flags().StringVar(&path, "path", "", "Secret path (alternative to the path:key argument)")
	cmd.Flags().StringVar(&key, "key", "", "Field name within the secret")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func encodeJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
