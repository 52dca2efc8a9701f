package protection

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/registry"
)

// testEnv opens a registry and a protection manager over the same
// database file, mirroring how the process shares one SQLite database.
func testEnv(t *testing.T) (*registry.SQLiteRepository, *Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodewarden.db")

	reg, err := registry.OpenAt(path)
	if err != nil {
		t.Fatalf("registry.OpenAt failed: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	mgr, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	if _, err := reg.Create(registry.CreateSpec{ContainerID: "ct-100", OwnerID: "owner-1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return reg, mgr
}

var (
	owner = domain.Actor{ID: "owner-1", Role: domain.RoleOwner}
	admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	other = domain.Actor{ID: "owner-2", Role: domain.RoleOwner}
)

func TestProtect_SetsFlagWithRecord(t *testing.T) {
	reg, mgr := testEnv(t)

	if err := mgr.Protect("ct-100", owner, "migration pending", time.Time{}); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}

	node, err := reg.Get("ct-100")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !node.PurgeProtected {
		t.Error("expected purge_protected flag to be set")
	}

	active, err := mgr.ActiveFor("ct-100")
	if err != nil {
		t.Fatalf("ActiveFor failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active record, got %d", len(active))
	}
	if active[0].GrantedBy != "owner-1" || active[0].Reason != "migration pending" {
		t.Errorf("unexpected record: %+v", active[0])
	}
}

func TestProtect_AlreadyProtected(t *testing.T) {
	_, mgr := testEnv(t)

	if err := mgr.Protect("ct-100", owner, "first", time.Time{}); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	err := mgr.Protect("ct-100", owner, "second", time.Time{})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestProtect_UnknownNode(t *testing.T) {
	_, mgr := testEnv(t)

	err := mgr.Protect("ct-missing", admin, "x", time.Time{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProtect_Permissions(t *testing.T) {
	_, mgr := testEnv(t)

	if err := mgr.Protect("ct-100", other, "not mine", time.Time{}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for non-owner, got %v", err)
	}
	if err := mgr.Protect("ct-100", admin, "admin override", time.Time{}); err != nil {
		t.Fatalf("expected admin to protect any node, got %v", err)
	}
}

func TestProtect_RejectsPastExpiry(t *testing.T) {
	_, mgr := testEnv(t)

	err := mgr.Protect("ct-100", owner, "x", time.Now().UTC().Add(-time.Hour))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUnprotect(t *testing.T) {
	reg, mgr := testEnv(t)

	if err := mgr.Protect("ct-100", owner, "hold", time.Time{}); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	if err := mgr.Unprotect("ct-100", owner); err != nil {
		t.Fatalf("Unprotect failed: %v", err)
	}

	node, _ := reg.Get("ct-100")
	if node.PurgeProtected {
		t.Error("expected purge_protected flag to be cleared")
	}
	active, _ := mgr.ActiveFor("ct-100")
	if len(active) != 0 {
		t.Errorf("expected no active records, got %d", len(active))
	}

	if err := mgr.Unprotect("ct-100", owner); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict when not protected, got %v", err)
	}
}

func TestExpiredGrantDoesNotProtect(t *testing.T) {
	reg, mgr := testEnv(t)

	// A short-lived grant that we let lapse.
	if err := mgr.Protect("ct-100", owner, "brief", time.Now().UTC().Add(20*time.Millisecond)); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	active, err := mgr.ActiveFor("ct-100")
	if err != nil {
		t.Fatalf("ActiveFor failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected expired grant to be inactive, got %d records", len(active))
	}

	// The flag is still set until something reconciles it.
	node, _ := reg.Get("ct-100")
	if !node.PurgeProtected {
		t.Fatal("expected stale flag before reconcile")
	}

	n, err := mgr.ReconcileExpired()
	if err != nil {
		t.Fatalf("ReconcileExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 node unflagged, got %d", n)
	}
	node, _ = reg.Get("ct-100")
	if node.PurgeProtected {
		t.Error("expected flag cleared after reconcile")
	}

	// The expired record remains as history.
	history, _ := mgr.History("ct-100")
	if len(history) != 1 {
		t.Errorf("expected 1 historical record, got %d", len(history))
	}
}

func TestRegistryDeleteCascadesProtections(t *testing.T) {
	reg, mgr := testEnv(t)

	if err := mgr.Protect("ct-100", owner, "hold", time.Time{}); err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	if err := reg.Delete("ct-100"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	history, err := mgr.History("ct-100")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected protections removed by cascade, got %d", len(history))
	}
}
