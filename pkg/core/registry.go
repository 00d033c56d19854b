package core

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps backend names to drivers. It is populated once at startup
// and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns a registry holding the given backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds a backend. It panics on a nil backend or a duplicate name,
// both of which are programming errors.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b == nil {
		panic("core: Register backend is nil")
	}
	name := b.Name()
	if name == "" {
		panic("core: Register backend has an empty name")
	}
	if _, exists := r.backends[name]; exists {
		panic(fmt.Sprintf("core: Register called twice for backend %s", name))
	}
	r.backends[name] = b
}

// Lookup resolves a backend by name.
func (r *Registry) Lookup(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	if !ok {
		return nil, &Error{
			Kind: KindUnknownBackend,
			Op:   "resolve backend",
			Err:  fmt.Errorf("%q is not registered (available: %v)", name, r.namesLocked()),
		}
	}
	return b, nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
