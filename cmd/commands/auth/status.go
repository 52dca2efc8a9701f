package auth

import (
	"errors"
	"fmt"

	"fleetops/nodewarden/internal/auth"
	"fleetops/nodewarden/internal/backend"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status for compute backends",
		Long: `Show which compute backends have stored API tokens.

Example:
  nodewarden auth status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.DefaultStore()

			backendNames := backend.List()
			if len(backendNames) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backends registered.")
				return nil
			}

			for _, name := range backendNames {
				_, err := store.GetToken(name)
				switch {
				case err == nil:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: logged in\n", name)
				case errors.Is(err, auth.ErrTokenNotFound):
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not logged in\n", name)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: error (%v)\n", name, err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
