package purge

import (
	"context"
	"testing"
	"time"

	"fleetops/nodewarden/internal/settings"
)

func enableDailySchedule(t *testing.T, store *settings.Store) {
	t.Helper()
	if err := store.Set(settings.KeySystemActive, "true"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(settings.KeyAutoSchedule, settings.ScheduleDaily); err != nil {
		t.Fatal(err)
	}
}

func TestScheduler_InactiveSystemNeverRuns(t *testing.T) {
	env := newEnv(t)
	env.addNode(t, "ct-old")
	sched := NewScheduler(env.orch, env.settings, 0)
	if err := env.settings.Set(settings.KeyAutoSchedule, settings.ScheduleDaily); err != nil {
		t.Fatal(err)
	}

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	executions, _ := env.settings.Counter(settings.KeyTotalExecutions)
	if executions != 0 {
		t.Errorf("inactive system must not run, total_executions=%d", executions)
	}
}

func TestScheduler_FirstDueTickRunsDry(t *testing.T) {
	env := newEnv(t)
	env.addNode(t, "ct-old")
	sched := NewScheduler(env.orch, env.settings, 0)
	enableDailySchedule(t, env.settings)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	// dry_run defaults to true, so the automatic run must not reclaim.
	if nodes, _ := env.reg.ListAll(); len(nodes) != 1 {
		t.Errorf("expected dry automatic run, %d nodes remain", len(nodes))
	}
	if last, _ := env.settings.GetInternal(settings.KeyLastAutoRun); last == "" {
		t.Error("expected last_auto_run recorded")
	}
}

func TestScheduler_RespectsCadence(t *testing.T) {
	env := newEnv(t)
	sched := NewScheduler(env.orch, env.settings, 0)
	enableDailySchedule(t, env.settings)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return base }
	if err := sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	sched.now = func() time.Time { return base.Add(6 * time.Hour) }
	if err := sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	executions, _ := env.settings.Counter(settings.KeyTotalExecutions)
	if executions != 1 {
		t.Fatalf("run before the daily period elapsed, total_executions=%d", executions)
	}

	sched.now = func() time.Time { return base.Add(25 * time.Hour) }
	if err := sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	executions, _ = env.settings.Counter(settings.KeyTotalExecutions)
	if executions != 2 {
		t.Errorf("expected a second run after 24h, total_executions=%d", executions)
	}
}

func TestScheduler_RealModeWhenDryRunOff(t *testing.T) {
	env := newEnv(t)
	env.addNode(t, "ct-old")
	sched := NewScheduler(env.orch, env.settings, 0)
	enableDailySchedule(t, env.settings)
	if err := env.settings.Set(settings.KeyDryRun, "false"); err != nil {
		t.Fatal(err)
	}

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if nodes, _ := env.reg.ListAll(); len(nodes) != 0 {
		t.Errorf("expected real automatic run to reclaim, %d nodes remain", len(nodes))
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		schedule string
		last     time.Time
		want     bool
	}{
		{"never ran", settings.ScheduleDaily, time.Time{}, true},
		{"daily elapsed", settings.ScheduleDaily, now.Add(-25 * time.Hour), true},
		{"daily not elapsed", settings.ScheduleDaily, now.Add(-23 * time.Hour), false},
		{"weekly elapsed", settings.ScheduleWeekly, now.Add(-8 * 24 * time.Hour), true},
		{"weekly not elapsed", settings.ScheduleWeekly, now.Add(-6 * 24 * time.Hour), false},
		{"monthly elapsed", settings.ScheduleMonthly, now.Add(-31 * 24 * time.Hour), true},
		{"monthly not elapsed", settings.ScheduleMonthly, now.Add(-20 * 24 * time.Hour), false},
		{"disabled", settings.ScheduleDisabled, time.Time{}.Add(time.Nanosecond), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := due(tc.schedule, tc.last, now); got != tc.want {
				t.Errorf("due(%s, %v) = %t, want %t", tc.schedule, tc.last, got, tc.want)
			}
		})
	}
}
