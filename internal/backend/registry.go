package backend

import (
	"fmt"
	"sync"

	"fleetops/nodewarden/internal/auth"
	"fleetops/nodewarden/internal/util"
)

// Factory builds a backend from stored credentials.
type Factory func(store auth.Store) (Backend, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named backend factory. It panics on duplicate or empty
// names since registration happens at startup.
func Register(name string, factory Factory) {
	normalized := util.NormalizeKey(name)
	if normalized == "" {
		panic("backend: empty backend name")
	}
	if factory == nil {
		panic("backend: nil factory")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[normalized]; exists {
		panic(fmt.Sprintf("backend: backend %q already registered", name))
	}
	factories[normalized] = factory
}

// Get builds the named backend using credentials from the store.
func Get(name string, store auth.Store) (Backend, error) {
	normalized := util.NormalizeKey(name)
	mu.RLock()
	factory, ok := factories[normalized]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("backend: unknown backend %q", name)
	}
	return factory(store)
}

// List returns the registered backend names.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// Reset clears the registry. Intended for use in tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	factories = map[string]Factory{}
}
