package node

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"fleetops/nodewarden/internal/auth"
	"fleetops/nodewarden/internal/backend"
	"fleetops/nodewarden/internal/database"
)

// setupTest points the stores at a temp database and registers a fake
// backend under the name the test harness selects with --backend.
func setupTest(t *testing.T) *backend.Fake {
	t.Helper()
	database.SetPath(filepath.Join(t.TempDir(), "nodewarden.db"))
	t.Cleanup(database.ResetPath)

	backend.Reset()
	t.Cleanup(backend.Reset)
	fake := backend.NewFake()
	backend.Register("fake", func(store auth.Store) (backend.Backend, error) {
		return fake, nil
	})
	return fake
}

// execNode runs the node command group under a root carrying the
// persistent identity flags, and returns stdout and stderr.
func execNode(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	root := &cobra.Command{Use: "nodewarden"}
	root.PersistentFlags().String("actor", "tester", "")
	root.PersistentFlags().String("role", "owner", "")
	root.PersistentFlags().String("backend", "fake", "")
	root.AddCommand(NewCommand())

	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(append([]string{"node"}, args...))
	root.Execute()
	return outBuf.String(), errBuf.String()
}

func TestCreateAndList(t *testing.T) {
	setupTest(t)

	stdout, stderr := execNode(t, "create", "--id", "ct-1", "--name", "web-1")
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "ct-1") {
		t.Errorf("expected confirmation with container id, got: %s", stdout)
	}

	stdout, _ = execNode(t, "list")
	if !strings.Contains(stdout, "ct-1") || !strings.Contains(stdout, "web-1") {
		t.Errorf("expected the node in the listing, got: %s", stdout)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	setupTest(t)

	execNode(t, "create", "--id", "ct-1")
	_, stderr := execNode(t, "create", "--id", "ct-1")

	if stderr == "" {
		t.Error("expected duplicate id error")
	}
}

func TestEdit_Field(t *testing.T) {
	setupTest(t)
	execNode(t, "create", "--id", "ct-1")

	stdout, stderr := execNode(t, "edit", "ct-1", "name", "renamed")
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"renamed"`) {
		t.Errorf("expected edit confirmation, got: %s", stdout)
	}
}

func TestEdit_UnknownField(t *testing.T) {
	setupTest(t)
	execNode(t, "create", "--id", "ct-1")

	_, stderr := execNode(t, "edit", "ct-1", "owner_id", "someone-else")

	if !strings.Contains(stderr, "unknown field") {
		t.Errorf("expected unknown field error, got: %s", stderr)
	}
}

func TestFlag_RequiresAdmin(t *testing.T) {
	setupTest(t)
	execNode(t, "create", "--id", "ct-1")

	_, stderr := execNode(t, "flag", "ct-1", "whitelisted", "true")
	if stderr == "" {
		t.Error("expected permission error for owner role")
	}

	stdout, stderr := execNode(t, "flag", "ct-1", "whitelisted", "true", "--role", "admin")
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "whitelisted") {
		t.Errorf("expected flag confirmation, got: %s", stdout)
	}
}

func TestRemove_CallsBackend(t *testing.T) {
	fake := setupTest(t)
	execNode(t, "create", "--id", "ct-1")

	stdout, stderr := execNode(t, "remove", "ct-1")
	if stderr != "" && !strings.Contains(stderr, "Removing") {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "removed") {
		t.Errorf("expected removal confirmation, got: %s", stdout)
	}
	if got := fake.CallsTo("delete"); len(got) != 1 || got[0] != "ct-1" {
		t.Errorf("expected one backend delete for ct-1, got %v", got)
	}
}

func TestStatus_Refresh(t *testing.T) {
	fake := setupTest(t)
	execNode(t, "create", "--id", "ct-1")
	fake.Statuses["ct-1"] = "running"

	stdout, stderr := execNode(t, "status", "ct-1")
	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "running") {
		t.Errorf("expected refreshed status, got: %s", stdout)
	}
}
