package domain

import "errors"

// Sentinel errors for cross-component error classification. Repositories
// and services wrap these so the CLI can handle error categories uniformly:
//
//	return fmt.Errorf("registry: node %q: %w", id, domain.ErrNotFound)
var (
	// ErrNotFound indicates the requested node or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID indicates a create collision on container_id.
	ErrDuplicateID = errors.New("container id already exists")

	// ErrPermissionDenied indicates the actor lacks the role or ownership
	// required for the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation indicates an out-of-range spec value, a malformed
	// field, or a bad settings value.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a state conflict, such as protecting a node
	// that is already protected.
	ErrConflict = errors.New("conflict")
)
