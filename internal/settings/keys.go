package settings

import (
	"fmt"
	"strconv"
	"strings"

	"fleetops/nodewarden/internal/domain"
)

// Schedule values accepted by auto_schedule.
const (
	ScheduleDisabled = "disabled"
	ScheduleDaily    = "daily"
	ScheduleWeekly   = "weekly"
	ScheduleMonthly  = "monthly"
)

// Canonical policy keys.
const (
	KeyMinAgeDays        = "min_age_days"
	KeyMaxInactiveDays   = "max_inactive_days"
	KeyProtectRunning    = "protect_running"
	KeyProtectWhitelist  = "protect_whitelisted"
	KeyProtectRecent     = "protect_recent"
	KeyRecentDays        = "recent_days"
	KeyDryRun            = "dry_run"
	KeyNotifyUsers       = "notify_users"
	KeyBackupBeforePurge = "backup_before_purge"
	KeyAutoSchedule      = "auto_schedule"
	KeySystemActive      = "system_active"
)

// Internal bookkeeping keys. They live in the same table but are not
// user-settable through Set.
const (
	KeyTotalExecutions = "total_executions"
	KeyTotalPurged     = "total_purged"
	KeyLastAutoRun     = "last_auto_run"
	KeyRunLock         = "purge_run_lock"
)

// KeySpec describes a single policy key.
type KeySpec struct {
	// Name is the canonical key name (e.g. "min_age_days").
	Name string

	// Default is the value returned before any write.
	Default string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Validate rejects malformed values before they are stored.
	Validate func(value string) error
}

func validatePositiveDays(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer number of days: %w", domain.ErrValidation)
	}
	return nil
}

func validateBool(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "false":
		return nil
	}
	return fmt.Errorf("must be true or false: %w", domain.ErrValidation)
}

func validateSchedule(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ScheduleDisabled, ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return nil
	}
	return fmt.Errorf("must be one of disabled, daily, weekly, monthly: %w", domain.ErrValidation)
}

// Keys is the authoritative list of all policy keys and their defaults.
// To add a new setting, append a KeySpec here.
var Keys = []KeySpec{
	{KeyMinAgeDays, "30", "Minimum node age in days before purge eligibility", validatePositiveDays},
	{KeyMaxInactiveDays, "14", "Days of inactivity required before purge eligibility", validatePositiveDays},
	{KeyProtectRunning, "true", "Never purge running nodes", validateBool},
	{KeyProtectWhitelist, "true", "Never purge whitelisted nodes", validateBool},
	{KeyProtectRecent, "true", "Report recently created nodes separately from too-new ones", validateBool},
	{KeyRecentDays, "7", "Age threshold for the recent-node report", validatePositiveDays},
	{KeyDryRun, "true", "Evaluate without touching the backend or the registry", validateBool},
	{KeyNotifyUsers, "true", "Notify owners when their nodes are purged", validateBool},
	{KeyBackupBeforePurge, "false", "Request a backup before deleting a node", validateBool},
	{KeyAutoSchedule, ScheduleDisabled, "Automatic purge cadence: disabled, daily, weekly, monthly", validateSchedule},
	{KeySystemActive, "false", "Master switch for the purge system", validateBool},
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all policy keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all keys, defaults, and
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s (default %s)\n", maxLen, k.Name, k.Description, k.Default)
	}
	return b.String()
}
