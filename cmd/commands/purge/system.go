package purge

import (
	"fmt"
	"text/tabwriter"
	"time"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/settings"

	"github.com/spf13/cobra"
)

func SystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system <on|off|status>",
		Short: "Enable, disable, or inspect the purge system",
		Long: `Enable, disable, or inspect the purge system.

While the system is off, real purge runs and the automatic schedule are
suspended. Dry runs are always allowed. Toggling requires the admin
role.

Examples:
  nodewarden purge system on --role admin
  nodewarden purge system status`,
		Args:         cobra.ExactArgs(1),
		RunE:         runSystem,
		SilenceUsage: true,
	}

	return cmd
}

func runSystem(cmd *cobra.Command, args []string) error {
	store, err := settings.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	switch args[0] {
	case "on", "off":
		actor, err := cliutil.ActorFrom(cmd)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return fmt.Errorf("toggling the purge system requires the admin role: %w", domain.ErrPermissionDenied)
		}
		value := "false"
		if args[0] == "on" {
			value = "true"
		}
		if err := store.Set(settings.KeySystemActive, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purge system %s.\n", args[0])
		return nil

	case "status":
		return printSystemStatus(cmd, store)

	default:
		return fmt.Errorf("expected on, off, or status, got %q", args[0])
	}
}

func printSystemStatus(cmd *cobra.Command, store *settings.Store) error {
	active, err := store.GetBool(settings.KeySystemActive)
	if err != nil {
		return err
	}
	schedule, err := store.Get(settings.KeyAutoSchedule)
	if err != nil {
		return err
	}
	dryRun, err := store.GetBool(settings.KeyDryRun)
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
	lastAuto, err := store.GetInternal(settings.KeyLastAutoRun)
	if err != nil {
		return err
	}

	state := "off"
	if active {
		state = "on"
	}
	lastAutoDisplay := "never"
	if lastAuto != "" {
		if t, err := time.Parse(time.RFC3339, lastAuto); err == nil {
			lastAutoDisplay = t.Local().Format("2006-01-02 15:04")
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "System\t%s\n", state)
	fmt.Fprintf(w, "Schedule\t%s\n", schedule)
	fmt.Fprintf(w, "Dry run\t%t\n", dryRun)
	fmt.Fprintf(w, "Total runs\t%d\n", executions)
	fmt.Fprintf(w, "Total purged\t%d\n", purged)
	fmt.Fprintf(w, "Last auto run\t%s\n", lastAutoDisplay)
	w.Flush()
	return nil
}
