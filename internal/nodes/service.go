// Package nodes is the management service between the command trigger and
// the core stores: node CRUD, start/stop, and status refresh, with actor
// permission checks and per-container serialization.
package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"fleetops/nodewarden/internal/backend"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/locking"
	"fleetops/nodewarden/internal/registry"
)

// List categories accepted by List.
const (
	CategoryAll         = "all"
	CategoryRunning     = "running"
	CategoryStopped     = "stopped"
	CategorySuspended   = "suspended"
	CategoryWhitelisted = "whitelisted"
	CategoryProtected   = "protected"
)

// backendTimeout bounds each individual backend call, including ones made
// with a deadline-free caller context such as a CLI signal context.
const backendTimeout = 30 * time.Second

// Service encapsulates node management operations.
type Service struct {
	reg     registry.Repository
	backend backend.Backend
	locks   *locking.Keyed

	callTimeout time.Duration

	// statusGroup deduplicates concurrent backend status lookups for the
	// same container id.
	statusGroup singleflight.Group
}

// NewService creates a node service. The keyed lock set should be shared
// with the purge orchestrator so purge and management operations on one
// container serialize against each other.
func NewService(reg registry.Repository, be backend.Backend, locks *locking.Keyed) *Service {
	if locks == nil {
		locks = locking.NewKeyed()
	}
	return &Service{reg: reg, backend: be, locks: locks, callTimeout: backendTimeout}
}

// call runs one backend operation under the service's per-call timeout.
func (s *Service) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return fn(ctx)
}

// Locks returns the keyed lock set used by this service.
func (s *Service) Locks() *locking.Keyed { return s.locks }

// Create registers a new node. Owners create nodes for themselves; admins
// may create on behalf of any owner by setting spec.OwnerID. A blank
// container id is filled with a generated one.
func (s *Service) Create(actor domain.Actor, spec registry.CreateSpec) (*domain.Node, error) {
	if actor.Role == domain.RoleNone {
		return nil, fmt.Errorf("nodes: actor %q: %w", actor.ID, domain.ErrPermissionDenied)
	}
	if spec.OwnerID == "" {
		spec.OwnerID = actor.ID
	}
	if spec.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("nodes: only admins may create nodes for other owners: %w", domain.ErrPermissionDenied)
	}
	if strings.TrimSpace(spec.ContainerID) == "" {
		spec.ContainerID = "ct-" + uuid.NewString()[:8]
	}
	if spec.Name == "" {
		spec.Name = spec.ContainerID
	}
	return s.reg.Create(spec)
}

// Remove deletes a node record and, best-effort, its backend resource.
// The backend resource is force-deleted first so a half-removed node
// never lingers as an orphaned registry row; if the backend refuses, the
// row stays and the error is returned.
func (s *Service) Remove(ctx context.Context, actor domain.Actor, containerID string) error {
	s.locks.Lock(containerID)
	defer s.locks.Unlock(containerID)

	node, err := s.authorize(actor, containerID)
	if err != nil {
		return err
	}

	if node.Status == domain.StatusRunning {
		if err := s.call(ctx, func(ctx context.Context) error {
			return s.backend.Stop(ctx, containerID, true)
		}); err != nil {
			return fmt.Errorf("nodes: remove %q: %w", containerID, err)
		}
	}
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.Delete(ctx, containerID, true)
	}); err != nil {
		return fmt.Errorf("nodes: remove %q: %w", containerID, err)
	}
	return s.reg.Delete(containerID)
}

// EditField applies a validated edit to one of the editable node fields.
func (s *Service) EditField(actor domain.Actor, containerID, field, value string) error {
	s.locks.Lock(containerID)
	defer s.locks.Unlock(containerID)

	if _, err := s.authorize(actor, containerID); err != nil {
		return err
	}
	return s.reg.UpdateField(containerID, field, value)
}

// SetFlag toggles the suspended or whitelisted flag. Both are
// administrative holds, so only admins may change them.
func (s *Service) SetFlag(actor domain.Actor, containerID, flag string, value bool) error {
	if flag == registry.FlagPurgeProtected {
		return fmt.Errorf("nodes: purge_protected is managed by the protection manager: %w", domain.ErrValidation)
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("nodes: flag %s requires admin: %w", flag, domain.ErrPermissionDenied)
	}

	s.locks.Lock(containerID)
	defer s.locks.Unlock(containerID)
	return s.reg.UpdateFlag(containerID, flag, value)
}

// Get returns a single node, subject to the actor's visibility.
func (s *Service) Get(actor domain.Actor, containerID string) (*domain.Node, error) {
	return s.authorize(actor, containerID)
}

// List returns a page of nodes filtered by category. Admins see the whole
// fleet; owners see their own nodes. Page numbering starts at 1.
func (s *Service) List(actor domain.Actor, category string, page, pageSize int) ([]domain.Node, int, error) {
	var all []domain.Node
	var err error
	if actor.IsAdmin() {
		all, err = s.reg.ListAll()
	} else {
		all, err = s.reg.ListByOwner(actor.ID)
	}
	if err != nil {
		return nil, 0, err
	}

	filtered := all[:0:0]
	for _, node := range all {
		if matchesCategory(&node, category) {
			filtered = append(filtered, node)
		}
	}

	total := len(filtered)
	if pageSize <= 0 {
		return filtered, total, nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := min(start+pageSize, total)
	return filtered[start:end], total, nil
}

// Start powers a node on and caches the new status.
func (s *Service) Start(ctx context.Context, actor domain.Actor, containerID string) error {
	s.locks.Lock(containerID)
	defer s.locks.Unlock(containerID)

	if _, err := s.authorize(actor, containerID); err != nil {
		return err
	}
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.Start(ctx, containerID)
	}); err != nil {
		return err
	}
	return s.reg.UpdateStatus(containerID, domain.StatusRunning)
}

// Stop powers a node off and caches the new status.
func (s *Service) Stop(ctx context.Context, actor domain.Actor, containerID string, force bool) error {
	s.locks.Lock(containerID)
	defer s.locks.Unlock(containerID)

	if _, err := s.authorize(actor, containerID); err != nil {
		return err
	}
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.Stop(ctx, containerID, force)
	}); err != nil {
		return err
	}
	return s.reg.UpdateStatus(containerID, domain.StatusStopped)
}

// RefreshStatus asks the backend for the node's current state, caches it,
// and bumps last_accessed. On backend failure the returned status is the
// "unknown" sentinel for display, and the error is returned alongside so
// callers that care about outages still see them.
func (s *Service) RefreshStatus(ctx context.Context, actor domain.Actor, containerID string) (string, error) {
	if _, err := s.authorize(actor, containerID); err != nil {
		return "", err
	}

	v, err, _ := s.statusGroup.Do(containerID, func() (any, error) {
		s.locks.Lock(containerID)
		defer s.locks.Unlock(containerID)

		var status string
		err := s.call(ctx, func(ctx context.Context) error {
			var cerr error
			status, cerr = s.backend.Status(ctx, containerID)
			return cerr
		})
		if err != nil {
			// Record the sentinel so stale "running" never lingers, but
			// surface the failure.
			_ = s.reg.UpdateStatus(containerID, domain.StatusUnknown)
			return domain.StatusUnknown, err
		}
		if uerr := s.reg.UpdateStatus(containerID, status); uerr != nil {
			return status, uerr
		}
		return status, nil
	})

	status, _ := v.(string)
	if status == "" {
		status = domain.StatusUnknown
	}
	return status, err
}

// Usage returns a best-effort telemetry snapshot and bumps last_accessed.
func (s *Service) Usage(ctx context.Context, actor domain.Actor, containerID string) (*domain.Usage, error) {
	if _, err := s.authorize(actor, containerID); err != nil {
		return nil, err
	}
	var usage *domain.Usage
	err := s.call(ctx, func(ctx context.Context) error {
		var cerr error
		usage, cerr = s.backend.Usage(ctx, containerID)
		return cerr
	})
	if err != nil {
		return nil, err
	}
	_ = s.reg.Touch(containerID)
	return usage, nil
}

// authorize loads the node and checks the actor may manage it.
func (s *Service) authorize(actor domain.Actor, containerID string) (*domain.Node, error) {
	node, err := s.reg.Get(containerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(node) {
		return nil, fmt.Errorf("nodes: actor %q may not manage node %q: %w",
			actor.ID, containerID, domain.ErrPermissionDenied)
	}
	return node, nil
}

func matchesCategory(node *domain.Node, category string) bool {
	switch category {
	case "", CategoryAll:
		return true
	case CategoryRunning:
		return node.Status == domain.StatusRunning
	case CategoryStopped:
		return node.Status == domain.StatusStopped
	case CategorySuspended:
		return node.Suspended
	case CategoryWhitelisted:
		return node.Whitelisted
	case CategoryProtected:
		return node.PurgeProtected
	default:
		return false
	}
}

// ValidCategory reports whether the list category is one of the known
// filters.
func ValidCategory(category string) bool {
	switch category {
	case "", CategoryAll, CategoryRunning, CategoryStopped,
		CategorySuspended, CategoryWhitelisted, CategoryProtected:
		return true
	}
	return false
}
