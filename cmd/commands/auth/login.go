package auth

import (
	"fmt"
	"os"
	"strings"

	"fleetops/nodewarden/internal/auth"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <backend>",
		Short: "Store an API token for a compute backend",
		Long: `Store an API token for a compute backend using the local keychain.

Example:
  nodewarden auth login hetzner`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			backendName := strings.TrimSpace(args[0])
			if backendName == "" {
				fmt.Fprintln(os.Stderr, "backend is required")
				return
			}

			token, err := cmd.Flags().GetString("token")
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return
			}

			token = strings.TrimSpace(token)
			if token == "" {
				accessible := os.Getenv("ACCESSIBLE") != ""
				prompt := huh.NewInput().
					Title("API token").
					EchoMode(huh.EchoModePassword).
					Value(&token)
				if err := huh.NewForm(huh.NewGroup(prompt)).WithAccessible(accessible).Run(); err != nil {
					fmt.Fprintln(os.Stderr, err)
					return
				}
				token = strings.TrimSpace(token)
			}

			if token == "" {
				fmt.Fprintln(os.Stderr, "token cannot be empty")
				return
			}

			store := auth.DefaultStore()
			if err := store.SetToken(backendName, token); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return
			}

			fmt.Fprintf(os.Stdout, "Saved token for backend %s\n", backendName)
		},
	}

	cmd.Flags().String("token", "", "API token (optional, overrides prompt)")

	return cmd
}
