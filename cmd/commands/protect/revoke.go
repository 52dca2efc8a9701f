package protect

import (
	"fmt"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/protection"

	"github.com/spf13/cobra"
)

func RevokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <container-id>",
		Short: "Revoke purge protection from a node",
		Long: `Revoke purge protection from a node.

The actor must own the node or hold the admin role.

Examples:
  nodewarden protect revoke ct-web-1`,
		Args:         cobra.ExactArgs(1),
		RunE:         runRevoke,
		SilenceUsage: true,
	}

	return cmd
}

func runRevoke(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	manager, err := protection.Open()
	if err != nil {
		return err
	}
	defer manager.Close()

	containerID := args[0]
	if err := manager.Unprotect(containerID, actor); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Node %s is no longer protected.\n", containerID)
	return nil
}
