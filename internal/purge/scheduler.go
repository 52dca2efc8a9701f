package purge

import (
	"context"
	"errors"
	"time"

	"fleetops/nodewarden/internal/settings"
)

// DefaultTickInterval is how often the scheduler re-reads settings and
// checks whether an automatic run is due.
const DefaultTickInterval = time.Minute

// Scheduler hosts the automatic purge loop. Every tick it reloads the
// schedule settings, so toggling system_active or auto_schedule takes
// effect without a restart. Runs triggered automatically use the mode
// implied by the dry_run setting.
type Scheduler struct {
	orch     *Orchestrator
	settings *settings.Store
	interval time.Duration
	now      func() time.Time

	// Logf receives one line per automatic run attempt. Nil discards.
	Logf func(format string, args ...any)
}

// NewScheduler creates a scheduler over the orchestrator. A zero interval
// selects DefaultTickInterval.
func NewScheduler(orch *Orchestrator, store *settings.Store, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		orch:     orch,
		settings: store,
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks until the context is canceled, firing automatic purge runs
// on schedule. Tick errors are logged and swallowed; the loop never
// stops on its own.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logf("scheduler: %v", err)
			}
		}
	}
}

// Tick performs one schedule check and, if a run is due, executes it and
// records the run time. It is exported so a host can drive the loop with
// its own clock.
func (s *Scheduler) Tick(ctx context.Context) error {
	active, err := s.settings.GetBool(settings.KeySystemActive)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}

	schedule, err := s.settings.Get(settings.KeyAutoSchedule)
	if err != nil {
		return err
	}
	if schedule == settings.ScheduleDisabled {
		return nil
	}

	now := s.now()
	last, err := s.lastRun()
	if err != nil {
		return err
	}
	if !due(schedule, last, now) {
		return nil
	}

	mode := ModeReal
	if dry, err := s.settings.GetBool(settings.KeyDryRun); err != nil || dry {
		mode = ModeDry
	}

	result, err := s.orch.RunPurge(ctx, mode)
	if errors.Is(err, ErrRunInProgress) {
		// A manual run is active; try again next tick.
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.settings.PutInternal(settings.KeyLastAutoRun, now.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	s.logf("scheduler: %s run %s: %d purged, %d protected, %d skipped, %d errored",
		result.Mode, result.RunID,
		len(result.Purged), len(result.Protected), len(result.Skipped), len(result.Errored))
	return nil
}

func (s *Scheduler) lastRun() (time.Time, error) {
	raw, err := s.settings.GetInternal(settings.KeyLastAutoRun)
	if err != nil {
		return time.Time{}, err
	}
	if raw == "" {
		return time.Time{}, nil
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// A mangled marker should trigger a run, not wedge the loop.
		return time.Time{}, nil
	}
	return last, nil
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// due reports whether enough time has passed since the last automatic run
// for the given cadence. A zero last time is always due.
func due(schedule string, last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	var period time.Duration
	switch schedule {
	case settings.ScheduleDaily:
		period = 24 * time.Hour
	case settings.ScheduleWeekly:
		period = 7 * 24 * time.Hour
	case settings.ScheduleMonthly:
		period = 30 * 24 * time.Hour
	default:
		return false
	}
	return now.Sub(last) >= period
}
