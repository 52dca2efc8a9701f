// Package auth stores backend API credentials in the OS keychain.
package auth

import (
	"errors"

	"fleetops/nodewarden/internal/util"
)

const ServiceName = "nodewarden"

var ErrTokenNotFound = errors.New("auth token not found")

// Store abstracts credential storage so tests can swap in a mock.
type Store interface {
	SetToken(backend string, token string) error
	GetToken(backend string) (string, error)
	DeleteToken(backend string) error
}

// DefaultStore returns the standard auth store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeBackend normalizes a backend name for consistent key lookup.
func NormalizeBackend(backend string) string {
	return util.NormalizeKey(backend)
}
