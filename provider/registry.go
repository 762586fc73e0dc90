package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps backend names to factories.
type Registry[T any, C any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]Factory[T, C]
}

// NewRegistry creates an empty registry. kind names the backend family in errors.
func NewRegistry[T any, C any](kind string) *Registry[T, C] {
	return &Registry[T, C]{kind: kind, factories: make(map[string]Factory[T, C])}
}

// Register adds or replaces the factory for name.
func (r *Registry[T, C]) Register(name string, f Factory[T, C]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Create builds the backend registered as name.
func (r *Registry[T, C]) Create(name string, cfg C) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s provider %q not registered (available: %v)", r.kind, name, r.Names())
	}
	return f(cfg)
}

// Names returns the sorted registered names.
func (r *Registry[T, C]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
