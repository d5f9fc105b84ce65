package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for registry package
var (
	ErrEmptyName         = errors.New("registration name cannot be empty")
	ErrAlreadyRegistered = errors.New("name already registered")
	ErrNotFound          = errors.New("entry not found")
)

// Registry is a concurrency-safe map of named entries that remembers the
// order in which they were registered.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[T]
	order   []string
	seq     int
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*Entry[T]),
	}
}

// Register adds value under name. Names are unique.
func (r *Registry[T]) Register(name string, value T) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.entries[name] = &Entry[T]{
		Name:         name,
		Value:        value,
		RegisteredAt: time.Now(),
		Sequence:     r.seq,
	}
	r.seq++
	r.order = append(r.order, name)
	return nil
}

// Unregister removes name from the registry.
func (r *Registry[T]) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Resolve returns the value registered under name.
func (r *Registry[T]) Resolve(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return entry.Value, nil
}

// Exists reports whether name is registered.
func (r *Registry[T]) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[name]
	return exists
}

// Names returns registered names in registration order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List returns copies of all entries in registration order.
func (r *Registry[T]) List() []Entry[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry[T], 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.entries[name])
	}
	return out
}

// ResolveWithFilter returns the values of entries accepted by filter, in
// registration order.
func (r *Registry[T]) ResolveWithFilter(filter Filter[T]) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []T
	for _, name := range r.order {
		entry := r.entries[name]
		if filter == nil || filter(entry) {
			out = append(out, entry.Value)
		}
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
