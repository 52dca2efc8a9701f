// Package backend defines the compute backend collaborator: the external
// system that actually starts, stops, and deletes the resource behind a
// node record.
//
// All calls are bounded by the caller's context; implementations return a
// typed *Error scoped to one container rather than panicking or logging,
// so the purge orchestrator can record a per-node failure and keep going.
package backend

import (
	"context"
	"fmt"

	"fleetops/nodewarden/internal/domain"
)

// Backend is the minimal surface the lifecycle engine needs from a
// compute provider.
type Backend interface {
	// Status reports the backend-observed state of the container:
	// domain.StatusRunning, StatusStopped, or StatusUnknown.
	Status(ctx context.Context, containerID string) (string, error)

	// Start powers the container on.
	Start(ctx context.Context, containerID string) error

	// Stop powers the container off. With force set, the backend kills
	// rather than signals.
	Stop(ctx context.Context, containerID string, force bool) error

	// Delete removes the underlying resource. With force set, a running
	// container is deleted anyway.
	Delete(ctx context.Context, containerID string, force bool) error

	// Usage returns a read-only telemetry snapshot. It is never an input
	// to purge eligibility.
	Usage(ctx context.Context, containerID string) (*domain.Usage, error)
}

// Error is a backend failure scoped to a single container.
type Error struct {
	// Op is the failing operation: "status", "start", "stop", "delete",
	// or "usage".
	Op          string
	ContainerID string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s %s: %v", e.Op, e.ContainerID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WrapError builds a typed backend error for the given operation.
func WrapError(op, containerID string, err error) *Error {
	return &Error{Op: op, ContainerID: containerID, Err: err}
}
