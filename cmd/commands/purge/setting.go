package purge

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/settings"
	"fleetops/nodewarden/internal/util"

	"github.com/spf13/cobra"
)

func SettingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "Read and write purge policy settings",
	}

	cmd.AddCommand(settingGetCommand())
	cmd.AddCommand(settingSetCommand())

	return cmd
}

func settingGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Show purge policy settings",
		Long: "Show one purge policy setting, or all of them.\n\n" +
			settings.KeysHelp() +
			"\nExamples:\n" +
			"  nodewarden purge setting get\n" +
			"  nodewarden purge setting get min_age_days",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runSettingGet,
		SilenceUsage: true,
	}

	return cmd
}

func runSettingGet(cmd *cobra.Command, args []string) error {
	store, err := settings.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		key := util.NormalizeKey(args[0])
		if settings.Lookup(key) == nil {
			return fmt.Errorf("unknown setting %q (valid: %s)",
				args[0], strings.Join(settings.KeyNames(), ", "))
		}
		value, err := store.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	for _, name := range settings.KeyNames() {
		value, err := store.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", name, value)
	}
	w.Flush()
	return nil
}

func settingSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a purge policy setting",
		Long: "Change a purge policy setting. Requires the admin role.\n\n" +
			settings.KeysHelp() +
			"\nExamples:\n" +
			"  nodewarden purge setting set min_age_days 45 --role admin\n" +
			"  nodewarden purge setting set dry_run false --role admin",
		Args:         cobra.ExactArgs(2),
		RunE:         runSettingSet,
		SilenceUsage: true,
	}

	return cmd
}

func runSettingSet(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("changing settings requires the admin role: %w", domain.ErrPermissionDenied)
	}

	key := util.NormalizeKey(args[0])
	if settings.Lookup(key) == nil {
		return fmt.Errorf("unknown setting %q (valid: %s)",
			args[0], strings.Join(settings.KeyNames(), ", "))
	}

	store, err := settings.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Set(key, args[1]); err != nil {
		return err
	}

	value, err := store.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", key, value)
	return nil
}
