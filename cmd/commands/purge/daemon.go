package purge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"fleetops/nodewarden/internal/purge"

	"github.com/spf13/cobra"
)

func DaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the automatic purge schedule",
		Long: `Run the automatic purge schedule in the foreground until interrupted.

Every tick the schedule settings are re-read, so changing system_active
or auto_schedule takes effect without restarting the daemon. Automatic
runs use dry or real mode according to the dry_run setting.

Examples:
  nodewarden purge daemon
  nodewarden purge daemon --interval 30s`,
		RunE:         runDaemon,
		SilenceUsage: true,
	}

	cmd.Flags().Duration("interval", purge.DefaultTickInterval, "How often to check the schedule")

	return cmd
}

func runDaemon(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be greater than 0")
	}

	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.cleanup()

	sched := purge.NewScheduler(eng.orch, eng.settings, interval)
	sched.Logf = func(format string, a ...any) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s ", time.Now().Format(time.RFC3339))
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", a...)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Purge daemon started (interval %s). Press Ctrl-C to stop.\n", interval)
	if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Purge daemon stopped.")
	return nil
}
