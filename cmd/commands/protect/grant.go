package protect

import (
	"fmt"
	"time"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/protection"

	"github.com/spf13/cobra"
)

func GrantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <container-id>",
		Short: "Grant purge protection to a node",
		Long: `Grant purge protection to a node.

The actor must own the node or hold the admin role. An optional
--expires duration limits the grant; without it the protection lasts
until revoked.

Examples:
  nodewarden protect grant ct-web-1 --reason "customer migration"
  nodewarden protect grant ct-web-1 --expires 720h`,
		Args:         cobra.ExactArgs(1),
		RunE:         runGrant,
		SilenceUsage: true,
	}

	cmd.Flags().String("reason", "", "Why the node is protected")
	cmd.Flags().Duration("expires", 0, "How long the protection lasts (0 = until revoked)")

	return cmd
}

func runGrant(cmd *cobra.Command, args []string) error {
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
	reason, _ := cmd.Flags().GetString("reason")
	expires, _ := cmd.Flags().GetDuration("expires")

	var expiresAt time.Time
	if expires > 0 {
		expiresAt = time.Now().Add(expires)
	}

	if err := manager.Protect(containerID, actor, reason, expiresAt); err != nil {
		return err
	}

	if expiresAt.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "Node %s protected until revoked.\n", containerID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Node %s protected until %s.\n",
			containerID, expiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
