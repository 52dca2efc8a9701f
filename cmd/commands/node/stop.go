package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"fleetops/nodewarden/cmd/commands/cliutil"

	"github.com/spf13/cobra"
)

// StopCommand returns a cobra.Command that powers off a node.
func StopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <container-id>",
		Short: "Stop a node",
		Long: `Power off a running node through the compute backend.

By default the node is asked to shut down gracefully; --force cuts
power immediately.

Examples:
  nodewarden node stop ct-web-1
  nodewarden node stop ct-web-1 --force`,
		Args:         cobra.ExactArgs(1),
		RunE:         runStop,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("force", false, "Cut power instead of a graceful shutdown")

	return cmd
}

func runStop(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	containerID := args[0]
	force, _ := cmd.Flags().GetBool("force")
	fmt.Fprintf(cmd.ErrOrStderr(), "Stopping node %s...\n", containerID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := svc.Stop(ctx, actor, containerID, force); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Node %s stopped.\n", containerID)
	return nil
}
