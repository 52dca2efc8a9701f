package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"fleetops/nodewarden/cmd/commands/cliutil"

	"github.com/spf13/cobra"
)

func RemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <container-id>",
		Short: "Remove a node",
		Long: `Remove a node from the registry and delete its backend resource.

A running node is force-stopped first. If the backend refuses the
deletion the registry row is kept so the node can be retried.

Examples:
  nodewarden node remove ct-web-1`,
		Args:         cobra.ExactArgs(1),
		RunE:         runRemove,
		SilenceUsage: true,
	}

	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
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
	fmt.Fprintf(cmd.ErrOrStderr(), "Removing node %s...\n", containerID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := svc.Remove(ctx, actor, containerID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Node %s removed.\n", containerID)
	return nil
}
