// Package lifecycle defines the host lifecycle transitions a bridged module
// can hook into, and the dispatching and history services behind them.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Kind names a lifecycle transition.
type Kind string

const (
	ModuleCreate        Kind = "moduleCreate"
	ModuleDestroy       Kind = "moduleDestroy"
	AppContextDestroys  Kind = "appContextDestroys"
	AppEntersForeground Kind = "appEntersForeground"
	AppBecomesActive    Kind = "appBecomesActive"
	AppEntersBackground Kind = "appEntersBackground"
)

var allKinds = []Kind{
	ModuleCreate,
	ModuleDestroy,
	AppContextDestroys,
	AppEntersForeground,
	AppBecomesActive,
	AppEntersBackground,
}

// Kinds lists every lifecycle kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is a known lifecycle kind.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind resolves a kind from its full name or from the short host
// aliases "foreground", "active" and "background".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "foreground":
		return AppEntersForeground, nil
	case "active":
		return AppBecomesActive, nil
	case "background":
		return AppEntersBackground, nil
	}
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Hook is a native lifecycle callback.
type Hook func(ctx context.Context) error

// EventStore defines the interface for persisting and querying lifecycle events
type EventStore interface {
	// Store persists a lifecycle event
	Store(ctx context.Context, event *Event) error

	// Get retrieves a specific event by ID
	Get(ctx context.Context, eventID string) (*Event, error)

	// Query retrieves events matching the given criteria
	Query(ctx context.Context, criteria *QueryCriteria) ([]*Event, error)

	// GetEventHistory returns event history for a specific source
	GetEventHistory(ctx context.Context, source string, since time.Time) ([]*Event, error)
}

// Event records one dispatched lifecycle transition.
type Event struct {
	ID        string        `json:"id" yaml:"id"`
	Kind      Kind          `json:"kind" yaml:"kind"`
	Source    string        `json:"source" yaml:"source"` // module name
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Status    EventStatus   `json:"status" yaml:"status"`
	Hooks     int           `json:"hooks" yaml:"hooks"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// EventStatus represents the status of an event
type EventStatus string

const (
	EventStatusCompleted EventStatus = "completed"
	EventStatusFailed    EventStatus = "failed"
	EventStatusSkipped   EventStatus = "skipped"
)

// QueryCriteria defines criteria for querying events
type QueryCriteria struct {
	Kinds    []Kind        `json:"kinds,omitempty"`
	Sources  []string      `json:"sources,omitempty"`
	Statuses []EventStatus `json:"statuses,omitempty"`
	Since    *time.Time    `json:"since,omitempty"`
	Limit    int           `json:"limit,omitempty"`
}

func (c *QueryCriteria) matches(e *Event) bool {
	if c == nil {
		return true
	}
	if len(c.Kinds) > 0 && !slices.Contains(c.Kinds, e.Kind) {
		return false
	}
	if len(c.Sources) > 0 && !slices.Contains(c.Sources, e.Source) {
		return false
	}
	if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, e.Status) {
		return false
	}
	if c.Since != nil && e.Timestamp.Before(*c.Since) {
		return false
	}
	return true
}
