// Package registry provides a thread-safe ID-keyed registry.
package registry

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry exists for an ID.
var ErrNotFound = errors.New("not found")

// Registry manages entries keyed by generated IDs with thread-safe access.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	order   []string // Insertion order, for stable listings
}

// New creates a new registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
	}
}

// Add generates a new ID, stores the entry built by create under it and
// returns the ID.
func (r *Registry[T]) Add(create func(id string) T) string {
	id := uuid.New().String()
	entry := create(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry
	r.order = append(r.order, id)
	return id
}

// Get retrieves an entry by ID.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return entry, nil
}

// Remove deletes an entry and returns it.
func (r *Registry[T]) Remove(id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return entry, nil
}

// All returns all entries in insertion order.
func (r *Registry[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.entries[id])
	}
	return result
}

// Count returns the number of entries.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
