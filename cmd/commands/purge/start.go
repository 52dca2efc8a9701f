package purge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/history"
	"fleetops/nodewarden/internal/purge"
	"fleetops/nodewarden/internal/settings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// StartCommand triggers a purge pass, confirming destructive runs with an
// interactive prompt. Non-interactive hosts that need a separate
// request/confirm handshake should use purge.Proposals instead.
func StartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <dry|real>",
		Short: "Run a purge pass over the fleet",
		Long: `Run a purge pass over the fleet.

A dry run only reports what would be reclaimed. A real run requires the
admin role, an enabled purge system, and an interactive confirmation
(skippable with --yes for scripting).

Examples:
  nodewarden purge start dry
  nodewarden purge start real --role admin --yes
  nodewarden purge start dry -o json`,
		Args:         cobra.ExactArgs(1),
		RunE:         runStart,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runStart(cmd *cobra.Command, args []string) error {
	mode := purge.Mode(strings.ToLower(args[0]))
	if mode != purge.ModeDry && mode != purge.ModeReal {
		return fmt.Errorf("mode must be dry or real, got %q", args[0])
	}

	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.cleanup()

	if mode == purge.ModeReal {
		if !actor.IsAdmin() {
			return fmt.Errorf("a real purge run requires the admin role: %w", domain.ErrPermissionDenied)
		}
		active, err := eng.settings.GetBool(settings.KeySystemActive)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf("the purge system is disabled: enable it with 'nodewarden purge system on'")
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			confirmed, err := confirmRealRun(cmd)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(cmd.ErrOrStderr(), "Purge cancelled.")
				return nil
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := eng.orch.RunPurge(ctx, mode)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		return cliutil.WriteJSON(cmd.OutOrStdout(), result)
	}
	if output != "table" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	printResult(cmd, result)
	return nil
}

func confirmRealRun(cmd *cobra.Command) (bool, error) {
	accessible := os.Getenv("ACCESSIBLE") != ""
	confirmed := false
	confirm := huh.NewConfirm().
		Title("Really reclaim all eligible nodes?").
		Description("Eligible nodes will be stopped, deleted from the backend, and unregistered.").
		Affirmative("Purge").
		Negative("Cancel").
		Value(&confirmed)
	if err := huh.NewForm(huh.NewGroup(confirm)).WithAccessible(accessible).Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func printResult(cmd *cobra.Command, result *purge.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s mode): %d nodes evaluated in %s\n",
		result.RunID, result.Mode, result.Total(), result.Duration.Round(time.Millisecond))

	if result.Total() > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ACTION\tID\tNAME\tREASON\tAGE\tINACTIVE")
		fmt.Fprintln(w, "------\t--\t----\t------\t---\t--------")
		for _, group := range [][]history.Entry{
			result.Purged, result.Protected, result.Skipped, result.Errored,
		} {
			for _, entry := range group {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dd\t%s\n",
					entry.Action,
					entry.ContainerID,
					entry.NodeName,
					entry.Reason,
					entry.AgeDays,
					formatInactive(entry.InactiveDays),
				)
			}
		}
		w.Flush()
	}

	fmt.Fprintf(out, "\n%d purged, %d protected, %d skipped, %d errored\n",
		len(result.Purged), len(result.Protected), len(result.Skipped), len(result.Errored))

	for _, runErr := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", runErr)
	}
}

func formatInactive(days int) string {
	if days < 0 {
		return "never"
	}
	return fmt.Sprintf("%dd", days)
}
