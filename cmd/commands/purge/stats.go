package purge

import (
	"fmt"
	"text/tabwriter"
	"time"

	"fleetops/nodewarden/internal/history"
	"fleetops/nodewarden/internal/settings"

	"github.com/spf13/cobra"
)

func StatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show purge statistics",
		Long: `Show lifetime purge counters and per-action counts over a window.

Examples:
  nodewarden purge stats
  nodewarden purge stats --window 168h`,
		RunE:         runStats,
		SilenceUsage: true,
	}

	cmd.Flags().Duration("window", 30*24*time.Hour, "Window for the per-action counts")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	window, _ := cmd.Flags().GetDuration("window")
	if window <= 0 {
		return fmt.Errorf("window must be greater than 0")
	}

	repo, err := history.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	store, err := settings.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := repo.StatsSince(window)
	if err != nil {
		return err
	}
	executions, err := store.Counter(settings.KeyTotalExecutions)
	if err != nil {
		return err
	}
	purged, err := store.Counter(settings.KeyTotalPurged)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Total runs\t%d\n", executions)
	fmt.Fprintf(w, "Total purged\t%d\n", purged)
	fmt.Fprintf(w, "\nLast %s:\t\n", window)
	for _, action := range []string{
		history.ActionPurged, history.ActionProtected,
		history.ActionSkipped, history.ActionErrored,
	} {
		fmt.Fprintf(w, "  %s\t%d\n", action, counts[action])
	}
	w.Flush()
	return nil
}
