package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"fleetops/nodewarden/cmd/commands/cliutil"

	"github.com/spf13/cobra"
)

// StartCommand returns a cobra.Command that powers on a node.
func StartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <container-id>",
		Short: "Start a node",
		Long: `Power on a stopped node through the compute backend.

Examples:
  nodewarden node start ct-web-1`,
		Args:         cobra.ExactArgs(1),
		RunE:         runStart,
		SilenceUsage: true,
	}

	return cmd
}

func runStart(cmd *cobra.Command, args []string) error {
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
	fmt.Fprintf(cmd.ErrOrStderr(), "Starting node %s...\n", containerID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := svc.Start(ctx, actor, containerID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Node %s started.\n", containerID)
	return nil
}
