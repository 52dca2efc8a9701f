package node

import (
	"fmt"
	"strconv"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/registry"
	"fleetops/nodewarden/internal/util"

	"github.com/spf13/cobra"
)

func FlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flag <container-id> <suspended|whitelisted> <true|false>",
		Short: "Set an administrative hold flag",
		Long: `Set or clear the suspended or whitelisted flag on a node.

Both flags are administrative holds and require the admin role. Purge
protection is managed separately with "nodewarden protect".

Examples:
  nodewarden node flag ct-web-1 whitelisted true --role admin`,
		Args:         cobra.ExactArgs(3),
		RunE:         runFlag,
		SilenceUsage: true,
	}

	return cmd
}

func runFlag(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	containerID := args[0]
	flag := util.NormalizeKey(args[1])
	if flag != registry.FlagSuspended && flag != registry.FlagWhitelisted {
		return fmt.Errorf("unknown flag %q (suspended, whitelisted)", args[1])
	}

	value, err := strconv.ParseBool(args[2])
	if err != nil {
		return fmt.Errorf("flag value must be true or false, got %q", args[2])
	}

	svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.SetFlag(actor, containerID, flag, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %t on node %s\n", flag, value, containerID)
	return nil
}
