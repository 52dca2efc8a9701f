package purge

import (
	"fmt"
	"text/tabwriter"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/history"

	"github.com/spf13/cobra"
)

func HistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent purge decisions",
		Long: `Show recent entries from the purge audit log.

Examples:
  nodewarden purge history
  nodewarden purge history --limit 50
  nodewarden purge history --run p-20260831-120000-9f3a1c02
  nodewarden purge history -o json`,
		RunE:         runHistory,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("run", "", "Show all entries for one run id")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	runID, _ := cmd.Flags().GetString("run")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}

	repo, err := history.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []history.Entry
	if runID != "" {
		entries, err = repo.ByRun(runID)
	} else {
		entries, err = repo.History(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		return cliutil.WriteJSON(cmd.OutOrStdout(), entries)
	}
	if output != "table" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No purge history found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tRUN\tACTION\tID\tNAME\tREASON\tAGE\tINACTIVE")
	fmt.Fprintln(w, "----\t---\t------\t--\t----\t------\t---\t--------")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%dd\t%s\n",
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			entry.RunID,
			entry.Action,
			entry.ContainerID,
			entry.NodeName,
			entry.Reason,
			entry.AgeDays,
			formatInactive(entry.InactiveDays),
		)
	}
	w.Flush()
	return nil
}
