package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/augmentkit/errors"
)

// Registry is a thread-safe catalog of transform units keyed by name.
// Pipeline definitions loaded from configuration resolve their transform
// names against a registry.
type Registry struct {
	mu    sync.RWMutex
	units map[string]Transform
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Transform)}
}

// Register validates t and adds it under its name. Registering a second unit
// under an existing name is rejected so that loaded pipelines cannot silently
// change meaning.
func (r *Registry) Register(t Transform) error {
	if err := Validate(t); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[t.Name()]; exists {
		return errors.ConfigurationAt(t.Name(), "already registered")
	}
	r.units[t.Name()] = t
	return nil
}

// MustRegister is Register that panics on error. Intended for package-level
// unit tables assembled at startup.
func (r *Registry) MustRegister(t Transform) {
	if err := r.Register(t); err != nil {
		panic(fmt.Sprintf("transform: %v", err))
	}
}

// Get returns the unit registered under name.
func (r *Registry) Get(name string) (Transform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.units[name]
	return t, ok
}

// List returns all registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
