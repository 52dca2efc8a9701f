package purge

import (
	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/auth"
	"fleetops/nodewarden/internal/backend"
	"fleetops/nodewarden/internal/history"
	"fleetops/nodewarden/internal/notify"
	"fleetops/nodewarden/internal/protection"
	"fleetops/nodewarden/internal/purge"
	"fleetops/nodewarden/internal/registry"
	"fleetops/nodewarden/internal/settings"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Evaluate and reclaim eligible nodes",
		Long: `Run the purge policy over the fleet.

A dry run reports what would be reclaimed without touching anything; a
real run stops and deletes eligible nodes through the compute backend.`,
	}

	cmd.AddCommand(StartCommand())
	cmd.AddCommand(SystemCommand())
	cmd.AddCommand(SettingCommand())
	cmd.AddCommand(HistoryCommand())
	cmd.AddCommand(StatsCommand())
	cmd.AddCommand(DaemonCommand())

	return cmd
}

// engine bundles everything a purge run needs plus the cleanup that
// releases it.
type engine struct {
	orch     *purge.Orchestrator
	settings *settings.Store
	cleanup  func()
}

// newEngine opens all stores and the selected backend for one command
// invocation. Notifications are written to the command's stderr.
func newEngine(cmd *cobra.Command) (*engine, error) {
	reg, err := registry.Open()
	if err != nil {
		return nil, err
	}
	protections, err := protection.Open()
	if err != nil {
		reg.Close()
		return nil, err
	}
	store, err := settings.Open()
	if err != nil {
		protections.Close()
		reg.Close()
		return nil, err
	}
	audit, err := history.Open()
	if err != nil {
		store.Close()
		protections.Close()
		reg.Close()
		return nil, err
	}
	be, err := backend.Get(cliutil.BackendName(cmd), auth.DefaultStore())
	if err != nil {
		audit.Close()
		store.Close()
		protections.Close()
		reg.Close()
		return nil, err
	}

	sink := notify.NewWriterSink(cmd.ErrOrStderr())
	orch := purge.NewOrchestrator(reg, protections, store, audit, be, sink, nil)

	cleanup := func() {
		audit.Close()
		store.Close()
		protections.Close()
		reg.Close()
	}
	return &engine{orch: orch, settings: store, cleanup: cleanup}, nil
}
