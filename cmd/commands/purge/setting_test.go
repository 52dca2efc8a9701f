package purge

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"fleetops/nodewarden/internal/database"
)

// setupTestDB points every store at a temp database file.
func setupTestDB(t *testing.T) {
	t.Helper()
	database.SetPath(filepath.Join(t.TempDir(), "nodewarden.db"))
	t.Cleanup(database.ResetPath)
}

// execPurge runs the purge command group under a root carrying the
// persistent identity flags, and returns stdout and stderr.
func execPurge(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	root := &cobra.Command{Use: "nodewarden"}
	root.PersistentFlags().String("actor", "tester", "")
	root.PersistentFlags().String("role", "admin", "")
	root.PersistentFlags().String("backend", "fake", "")
	root.AddCommand(NewCommand())

	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(append([]string{"purge"}, args...))
	root.Execute()
	return outBuf.String(), errBuf.String()
}

func TestSettingGet_Default(t *testing.T) {
	setupTestDB(t)

	stdout, stderr := execPurge(t, "setting", "get", "min_age_days")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if strings.TrimSpace(stdout) != "30" {
		t.Errorf("expected default 30, got: %s", stdout)
	}
}

func TestSettingSet_Persists(t *testing.T) {
	setupTestDB(t)

	stdout, stderr := execPurge(t, "setting", "set", "min_age_days", "45")
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"45"`) {
		t.Errorf("expected confirmation with new value, got: %s", stdout)
	}

	stdout, _ = execPurge(t, "setting", "get", "min_age_days")
	if strings.TrimSpace(stdout) != "45" {
		t.Errorf("expected persisted 45, got: %s", stdout)
	}
}

func TestSettingSet_RequiresAdmin(t *testing.T) {
	setupTestDB(t)

	_, stderr := execPurge(t, "setting", "set", "min_age_days", "45", "--role", "owner")

	if !strings.Contains(stderr, "admin") {
		t.Errorf("expected admin requirement error, got: %s", stderr)
	}
}

func TestSettingSet_UnknownKey(t *testing.T) {
	setupTestDB(t)

	_, stderr := execPurge(t, "setting", "set", "bogus_key", "1")

	if !strings.Contains(stderr, "unknown setting") {
		t.Errorf("expected unknown setting error, got: %s", stderr)
	}
}

func TestSettingSet_InvalidValue(t *testing.T) {
	setupTestDB(t)

	_, stderr := execPurge(t, "setting", "set", "min_age_days", "0")

	if stderr == "" {
		t.Error("expected validation error for non-positive days")
	}
}

func TestSystem_ToggleAndStatus(t *testing.T) {
	setupTestDB(t)

	stdout, stderr := execPurge(t, "system", "on")
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "on") {
		t.Errorf("expected toggle confirmation, got: %s", stdout)
	}

	stdout, _ = execPurge(t, "system", "status")
	if !strings.Contains(stdout, "System") || !strings.Contains(stdout, "Schedule") {
		t.Errorf("expected status table, got: %s", stdout)
	}

	_, stderr = execPurge(t, "system", "off", "--role", "owner")
	if !strings.Contains(stderr, "admin") {
		t.Errorf("expected admin requirement error, got: %s", stderr)
	}
}

func TestHistory_Empty(t *testing.T) {
	setupTestDB(t)

	stdout, stderr := execPurge(t, "history")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "No purge history found.") {
		t.Errorf("expected empty history message, got: %s", stdout)
	}
}
