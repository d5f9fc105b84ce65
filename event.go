package bridge

import (
	"errors"
	"fmt"
)

const (
	startObservingName = "startObserving"
	stopObservingName  = "stopObserving"
)

// EventDefinition is an event a module can emit, with optional hooks run
// when host interest in it starts and stops. It keeps no observing state
// and is safe to share.
type EventDefinition struct {
	name  string
	start *MethodDefinition
	stop  *MethodDefinition
	err   error
}

// Event declares an event. Among defs, the last method named
// startObserving and the last named stopObserving are bound as the
// event's hooks; other fragments are ignored.
func Event(name string, defs ...Definition) *EventDefinition {
	e := &EventDefinition{name: name}
	if name == "" {
		e.err = fmt.Errorf("%w: event name is empty", ErrInvalidDefinition)
		return e
	}
	e.start, e.stop, e.err = bindObservers(defs)
	if e.err != nil {
		e.err = fmt.Errorf("event %q: %w", name, e.err)
	}
	return e
}

func bindObservers(defs []Definition) (start, stop *MethodDefinition, err error) {
	var errs []error
	for _, d := range defs {
		m, ok := d.(*MethodDefinition)
		if !ok {
			continue
		}
		if m.err != nil {
			errs = append(errs, m.err)
			continue
		}
		switch m.name {
		case startObservingName:
			start = m
		case stopObservingName:
			stop = m
		default:
			continue
		}
		if m.Arity() != 0 {
			errs = append(errs, fmt.Errorf("%w: %s hook takes no host arguments", ErrInvalidDefinition, m.name))
		}
	}
	return start, stop, errors.Join(errs...)
}

// Kind implements Definition.
func (e *EventDefinition) Kind() DefinitionKind { return DefinitionKindEvent }

func (e *EventDefinition) definitionErr() error { return e.err }

// Name is the event name.
func (e *EventDefinition) Name() string { return e.name }

// HasStartObserving reports whether a start hook is bound.
func (e *EventDefinition) HasStartObserving() bool { return e.start != nil }

// HasStopObserving reports whether a stop hook is bound.
func (e *EventDefinition) HasStopObserving() bool { return e.stop != nil }

// NotifyStartObserving runs the start hook against instance, if any.
func (e *EventDefinition) NotifyStartObserving(instance any) error {
	return e.notify(e.start, instance)
}

// NotifyStopObserving runs the stop hook against instance, if any.
func (e *EventDefinition) NotifyStopObserving(instance any) error {
	return e.notify(e.stop, instance)
}

func (e *EventDefinition) notify(hook *MethodDefinition, instance any) error {
	if hook == nil {
		return nil
	}
	_, err := hook.Invoke(instance, nil)
	return err
}

// ObservingState tracks whether a module instance currently observes an
// event on behalf of host listeners.
type ObservingState int

const (
	NotObserving ObservingState = iota
	Observing
)

func (s ObservingState) String() string {
	if s == Observing {
		return "observing"
	}
	return "notObserving"
}
