package cmd

import (
	"os"

	"fleetops/nodewarden/cmd/commands/auth"
	"fleetops/nodewarden/cmd/commands/node"
	"fleetops/nodewarden/cmd/commands/protect"
	"fleetops/nodewarden/cmd/commands/purge"
	"fleetops/nodewarden/internal/backend"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "nodewarden",
		Short: "Lifecycle and purge policy engine for ephemeral compute nodes",
		Long: `nodewarden tracks a fleet of ephemeral container-backed compute nodes,
evaluates them against a configurable purge policy, and reclaims the
eligible ones through the compute backend.

Quick start:
  nodewarden auth login hetzner        # Store your API token
  nodewarden node list                 # List your nodes
  nodewarden purge start dry           # Preview what a purge would reclaim
  nodewarden purge start real          # Reclaim eligible nodes`,
	}

	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(node.NewCommand())
	cmd.AddCommand(protect.NewCommand())
	cmd.AddCommand(purge.NewCommand())

	cmd.PersistentFlags().String("actor", "", "Acting identity (defaults to $USER)")
	cmd.PersistentFlags().String("role", "owner", "Actor role: owner, admin, none")
	cmd.PersistentFlags().String("backend", "hetzner", "Compute backend to use")

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	backend.RegisterHetzner()

	var root = rootCmd()
	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
