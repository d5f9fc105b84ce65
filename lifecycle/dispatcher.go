package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Static errors for lifecycle package
var (
	ErrUnknownKind      = errors.New("unknown lifecycle kind")
	ErrHookCannotBeNil  = errors.New("hook cannot be nil")
	ErrEventCannotBeNil = errors.New("event cannot be nil")
	ErrEventNotFound    = errors.New("event not found")
)

type registeredHook struct {
	name string
	hook Hook
}

// Dispatcher runs the hooks registered for each lifecycle kind, in
// registration order, and records every dispatch in an EventStore.
type Dispatcher struct {
	mu     sync.RWMutex
	source string
	hooks  map[Kind][]registeredHook
	store  EventStore
}

// NewDispatcher creates a dispatcher whose events are attributed to source.
// A nil store disables history.
func NewDispatcher(source string, store EventStore) *Dispatcher {
	return &Dispatcher{
		source: source,
		hooks:  make(map[Kind][]registeredHook),
		store:  store,
	}
}

// Register appends hook to the hooks of kind.
func (d *Dispatcher) Register(kind Kind, name string, hook Hook) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if hook == nil {
		return ErrHookCannotBeNil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[kind] = append(d.hooks[kind], registeredHook{name: name, hook: hook})
	return nil
}

// HookCount returns the number of hooks registered for kind.
func (d *Dispatcher) HookCount(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hooks[kind])
}

// Dispatch runs every hook of kind. A failing hook does not stop the
// remaining ones; their errors are joined. A cancelled context stops the
// dispatch before the next hook.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind) (*Event, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	d.mu.RLock()
	hooks := make([]registeredHook, len(d.hooks[kind]))
	copy(hooks, d.hooks[kind])
	d.mu.RUnlock()

	event := &Event{
		ID:        newEventID(),
		Kind:      kind,
		Source:    d.source,
		Timestamp: time.Now(),
		Status:    EventStatusCompleted,
	}
	if len(hooks) == 0 {
		event.Status = EventStatusSkipped
	}

	var errs []error
	for _, h := range hooks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		event.Hooks++
		if err := h.hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %q: %w", kind, h.name, err))
		}
	}
	event.Duration = time.Since(event.Timestamp)

	err := errors.Join(errs...)
	if err != nil {
		event.Status = EventStatusFailed
		event.Error = err.Error()
	}
	if d.store != nil {
		if serr := d.store.Store(ctx, event); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	return event, err
}

func newEventID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

// DefaultStoreLimit bounds the history kept by NewStore when given a
// non-positive limit.
const DefaultStoreLimit = 1000

// Store is an in-memory EventStore that keeps the most recent events.
type Store struct {
	mu     sync.RWMutex
	limit  int
	events []*Event
	byID   map[string]*Event
}

// NewStore creates a new event store holding at most limit events.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultStoreLimit
	}
	return &Store{
		limit: limit,
		byID:  make(map[string]*Event),
	}
}

// Store persists a lifecycle event, evicting the oldest one when full.
func (s *Store) Store(ctx context.Context, event *Event) error {
	if event == nil {
		return ErrEventCannotBeNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *event
	s.events = append(s.events, &stored)
	s.byID[stored.ID] = &stored
	if len(s.events) > s.limit {
		evicted := s.events[0]
		delete(s.byID, evicted.ID)
		s.events = s.events[1:]
	}
	return nil
}

// Get retrieves a specific event by ID
func (s *Store) Get(ctx context.Context, eventID string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, exists := s.byID[eventID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	out := *event
	return &out, nil
}

// Query retrieves events matching the given criteria, oldest first. A
// positive Limit keeps the most recent matches.
func (s *Store) Query(ctx context.Context, criteria *QueryCriteria) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Event
	for _, e := range s.events {
		if criteria.matches(e) {
			copied := *e
			out = append(out, &copied)
		}
	}
	if criteria != nil && criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[len(out)-criteria.Limit:]
	}
	return out, nil
}

// GetEventHistory returns event history for a specific source
func (s *Store) GetEventHistory(ctx context.Context, source string, since time.Time) ([]*Event, error) {
	return s.Query(ctx, &QueryCriteria{Sources: []string{source}, Since: &since})
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
