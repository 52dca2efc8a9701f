// Package purge runs full-fleet reclamation passes: evaluate every node
// against the active thresholds, reclaim the eligible ones in real mode,
// and record every decision in the audit log.
package purge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetops/nodewarden/internal/backend"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/history"
	"fleetops/nodewarden/internal/locking"
	"fleetops/nodewarden/internal/notify"
	"fleetops/nodewarden/internal/policy"
	"fleetops/nodewarden/internal/protection"
	"fleetops/nodewarden/internal/registry"
	"fleetops/nodewarden/internal/settings"
)

// Mode selects whether a run mutates anything.
type Mode string

const (
	// ModeDry evaluates and records outcomes without touching the backend
	// or the registry.
	ModeDry Mode = "dry"

	// ModeReal reclaims eligible nodes.
	ModeReal Mode = "real"
)

// ErrRunInProgress is returned when a run is requested while another run
// is still active. Callers should not queue behind it.
var ErrRunInProgress = errors.New("purge: a run is already in progress")

// backendTimeout bounds each individual backend call during a run.
const backendTimeout = 30 * time.Second

// runLeaseTTL is how long a run's claim on the shared lock row stays valid.
// A holder that crashes without releasing stops blocking new runs once the
// ttl passes.
const runLeaseTTL = 10 * time.Minute

// ReasonEligible is the audit reason recorded for a reclaimed node.
const ReasonEligible = "Eligible"

// Result summarizes one run. The four outcome slices partition every node
// that existed in the registry snapshot.
type Result struct {
	RunID     string
	Mode      Mode
	StartedAt time.Time
	Duration  time.Duration

	Purged    []history.Entry
	Protected []history.Entry
	Skipped   []history.Entry
	Errored   []history.Entry

	// Errors collects non-fatal failures: per-node backend errors plus
	// audit or counter writes that did not land.
	Errors []error
}

// Total is the number of nodes processed.
func (r *Result) Total() int {
	return len(r.Purged) + len(r.Protected) + len(r.Skipped) + len(r.Errored)
}

// Orchestrator coordinates purge runs over the registry, the protection
// manager, the settings store, the compute backend, and the audit log.
type Orchestrator struct {
	reg         registry.Repository
	protections *protection.Manager
	settings    *settings.Store
	audit       history.Repository
	backend     backend.Backend
	sink        notify.Sink
	locks       *locking.Keyed

	leaseTTL    time.Duration
	callTimeout time.Duration
	now         func() time.Time
}

// NewOrchestrator wires a purge orchestrator. The keyed lock set should be
// the same one the node service uses so purge and per-node management
// operations serialize on container id. A nil sink disables notifications.
func NewOrchestrator(reg registry.Repository, protections *protection.Manager, store *settings.Store, audit history.Repository, be backend.Backend, sink notify.Sink, locks *locking.Keyed) *Orchestrator {
	if sink == nil {
		sink = notify.Discard
	}
	if locks == nil {
		locks = locking.NewKeyed()
	}
	return &Orchestrator{
		reg:         reg,
		protections: protections,
		settings:    store,
		audit:       audit,
		backend:     be,
		sink:        sink,
		locks:       locks,
		leaseTTL:    runLeaseTTL,
		callTimeout: backendTimeout,
		now:         time.Now,
	}
}

// RunPurge executes one full-fleet pass. It fails fast with
// ErrRunInProgress if another run is active. The single-active-run rule
// is enforced through a lease row in the settings store, so it holds
// across processes sharing the database, not just within this one. A
// fatal error is returned only when the thresholds or the registry
// snapshot cannot be read; per-node failures are recorded in the result
// and never abort the run.
func (o *Orchestrator) RunPurge(ctx context.Context, mode Mode) (*Result, error) {
	if mode != ModeDry && mode != ModeReal {
		return nil, fmt.Errorf("purge: unknown mode %q: %w", mode, domain.ErrValidation)
	}
	lease, ok, err := o.settings.AcquireLease(settings.KeyRunLock, o.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("purge: claim run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	// An unreleased lease expires once runLeaseTTL passes.
	defer func() { _ = o.settings.ReleaseLease(settings.KeyRunLock, lease) }()

	start := o.now()
	result := &Result{
		RunID:     newRunID(start),
		Mode:      mode,
		StartedAt: start,
	}

	if _, err := o.settings.AddCounter(settings.KeyTotalExecutions, 1); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("purge: execution counter: %w", err))
	}

	// Expired grants must stop shielding nodes before the snapshot is
	// evaluated.
	if _, err := o.protections.ReconcileExpired(); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("purge: reconcile expired protections: %w", err))
	}

	thresholds, err := o.settings.Thresholds()
	if err != nil {
		return nil, fmt.Errorf("purge: load thresholds: %w", err)
	}
	nodes, err := o.reg.ListAll()
	if err != nil {
		return nil, fmt.Errorf("purge: snapshot registry: %w", err)
	}

	notifyUsers := false
	if mode == ModeReal {
		notifyUsers, _ = o.settings.GetBool(settings.KeyNotifyUsers)
	}

	for i := range nodes {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			break
		}
		o.processNode(ctx, result, &nodes[i], thresholds, notifyUsers)
	}

	result.Duration = o.now().Sub(start)
	return result, nil
}

func (o *Orchestrator) processNode(ctx context.Context, result *Result, node *domain.Node, thresholds policy.Thresholds, notifyUsers bool) {
	o.locks.Lock(node.ContainerID)
	defer o.locks.Unlock(node.ContainerID)

	// The snapshot row may be stale by the time the lock is held: a
	// protection grant, a start, or a removal racing the run must win.
	fresh, err := o.reg.Get(node.ContainerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		stale := policy.Evaluate(node, thresholds, o.now())
		entry := o.record(result, node, history.ActionSkipped, "No longer registered", stale)
		result.Skipped = append(result.Skipped, entry)
		return
	case err != nil:
		stale := policy.Evaluate(node, thresholds, o.now())
		entry := o.record(result, node, history.ActionErrored, err.Error(), stale)
		result.Errored = append(result.Errored, entry)
		result.Errors = append(result.Errors, err)
		return
	}
	node = fresh

	decision := policy.Evaluate(node, thresholds, o.now())

	switch {
	case !decision.Eligible:
		entry := o.record(result, node, history.ActionSkipped, decision.Reason, decision)
		result.Skipped = append(result.Skipped, entry)

	case result.Mode == ModeDry:
		entry := o.record(result, node, history.ActionProtected, history.ReasonDryRun, decision)
		result.Protected = append(result.Protected, entry)

	default:
		o.reclaim(ctx, result, node, decision, thresholds, notifyUsers)
	}
}

// reclaim stops, deletes, and unregisters one eligible node. Any backend
// or registry failure records an errored outcome and leaves the node for
// the next run.
func (o *Orchestrator) reclaim(ctx context.Context, result *Result, node *domain.Node, decision policy.Decision, thresholds policy.Thresholds, notifyUsers bool) {
	if node.Status == domain.StatusRunning {
		if err := o.call(ctx, func(ctx context.Context) error {
			return o.backend.Stop(ctx, node.ContainerID, true)
		}); err != nil {
			entry := o.record(result, node, history.ActionErrored, err.Error(), decision)
			result.Errored = append(result.Errored, entry)
			result.Errors = append(result.Errors, err)
			return
		}
	}

	if err := o.call(ctx, func(ctx context.Context) error {
		return o.backend.Delete(ctx, node.ContainerID, true)
	}); err != nil {
		entry := o.record(result, node, history.ActionErrored, err.Error(), decision)
		result.Errored = append(result.Errored, entry)
		result.Errors = append(result.Errors, err)
		return
	}

	if err := o.reg.Delete(node.ContainerID); err != nil {
		entry := o.record(result, node, history.ActionErrored, err.Error(), decision)
		result.Errored = append(result.Errored, entry)
		result.Errors = append(result.Errors, fmt.Errorf("purge: unregister %q: %w", node.ContainerID, err))
		return
	}

	entry := o.record(result, node, history.ActionPurged, ReasonEligible, decision)
	result.Purged = append(result.Purged, entry)

	if _, err := o.settings.AddCounter(settings.KeyTotalPurged, 1); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("purge: purged counter: %w", err))
	}

	if notifyUsers && node.OwnerID != "" {
		message := fmt.Sprintf("node %s (%s) was purged: age %dd, inactive %dd (min_age_days=%d, max_inactive_days=%d)",
			node.Name, node.ContainerID, decision.AgeDays, decision.InactiveDays,
			thresholds.MinAgeDays, thresholds.MaxInactiveDays)
		// Notification failures never affect the run outcome.
		_ = o.sink.Notify(ctx, node.OwnerID, message)
	}
}

// record builds and appends one audit entry. Append failures are collected
// on the result but do not change the node's outcome.
func (o *Orchestrator) record(result *Result, node *domain.Node, action, reason string, decision policy.Decision) history.Entry {
	entry := history.Entry{
		RunID:        result.RunID,
		ContainerID:  node.ContainerID,
		OwnerID:      node.OwnerID,
		NodeName:     node.Name,
		Action:       action,
		Reason:       reason,
		AgeDays:      decision.AgeDays,
		InactiveDays: decision.InactiveDays,
	}
	if err := o.audit.Append(&entry); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("purge: audit %q: %w", node.ContainerID, err))
	}
	return entry
}

func (o *Orchestrator) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return fn(ctx)
}

// newRunID derives a sortable run identifier from the start time plus a
// short random suffix, e.g. p-20260831-142501-9f3a1c02.
func newRunID(start time.Time) string {
	return fmt.Sprintf("p-%s-%s", start.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}
