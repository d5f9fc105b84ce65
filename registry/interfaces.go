// Package registry provides name-keyed registration and discovery of
// bridged modules, preserving registration order.
package registry

import "time"

// Entry is a registered value along with its registration metadata.
type Entry[T any] struct {
	Name         string    `json:"name"`
	Value        T         `json:"-"`
	RegisteredAt time.Time `json:"registered_at"`
	// Sequence is the zero-based registration order.
	Sequence int `json:"sequence"`
}

// Filter selects entries in ResolveWithFilter.
type Filter[T any] func(entry *Entry[T]) bool
