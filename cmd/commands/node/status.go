package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"fleetops/nodewarden/cmd/commands/cliutil"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <container-id>",
		Short: "Refresh and show a node's backend status",
		Long: `Ask the compute backend for the node's live status and cache it in
the registry. With --usage a telemetry snapshot is shown as well.

If the backend cannot be reached the cached status becomes "unknown"
and the failure is reported.

Examples:
  nodewarden node status ct-web-1
  nodewarden node status ct-web-1 --usage`,
		Args:         cobra.ExactArgs(1),
		RunE:         runStatus,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("usage", false, "Also fetch a telemetry snapshot")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	status, statusErr := svc.RefreshStatus(ctx, actor, containerID)
	fmt.Fprintf(cmd.OutOrStdout(), "Node %s: %s\n", containerID, status)
	if statusErr != nil {
		return statusErr
	}

	withUsage, _ := cmd.Flags().GetBool("usage")
	if !withUsage {
		return nil
	}

	usage, err := svc.Usage(ctx, actor, containerID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "CPU\t%.1f%%\n", usage.CPUPct)
	fmt.Fprintf(w, "Memory\t%s\n", usage.Memory)
	fmt.Fprintf(w, "Disk\t%s\n", usage.Disk)
	fmt.Fprintf(w, "Network RX\t%d B\n", usage.NetworkRx)
	fmt.Fprintf(w, "Network TX\t%d B\n", usage.NetworkTx)
	fmt.Fprintf(w, "Processes\t%d\n", usage.ProcessCount)
	w.Flush()
	return nil
}
