package bridge

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/GoCodeAlone/bridge/lifecycle"
)

// ModuleDefinition is the immutable description of a bridged module: its
// name, constants, methods, events, lifecycle hooks and view manager. It is
// built once by Build and shared by every instance of the module.
type ModuleDefinition struct {
	name        string
	constants   map[string]any
	methods     []*MethodDefinition
	methodIndex map[string]*MethodDefinition
	eventNames  []string
	events      map[string]*EventDefinition
	hooks       map[lifecycle.Kind][]*MethodDefinition
	viewManager *ViewManagerDefinition
}

// Build folds defs, in order, into a module definition. name is used unless
// a Name fragment overrides it; the last Name and the last constants
// fragment win. Method and event names must be unique. An event listed by
// Events and defined by Event is the same event. Any declaration error
// fails the whole build.
func Build(name string, defs ...Definition) (*ModuleDefinition, error) {
	md := &ModuleDefinition{
		name:        name,
		constants:   map[string]any{},
		methodIndex: make(map[string]*MethodDefinition),
		events:      make(map[string]*EventDefinition),
		hooks:       make(map[lifecycle.Kind][]*MethodDefinition),
	}

	var (
		errs         []error
		constants    *constantsDefinition
		listed       = map[string]bool{}
		implicitView *ViewManagerDefinition
		explicitView *ViewManagerDefinition
	)
	for i, d := range defs {
		if d == nil {
			errs = append(errs, fmt.Errorf("%w: definition %d is nil", ErrInvalidDefinition, i))
			continue
		}
		if err := fragmentErr(d); err != nil {
			errs = append(errs, err)
			continue
		}
		switch def := d.(type) {
		case nameDefinition:
			md.name = def.name
		case constantsDefinition:
			constants = &def
		case *MethodDefinition:
			if _, dup := md.methodIndex[def.name]; dup {
				errs = append(errs, &DuplicateDefinitionError{Kind: "method", Name: def.name})
				continue
			}
			md.methodIndex[def.name] = def
			md.methods = append(md.methods, def)
		case eventsDefinition:
			for _, ev := range def.names {
				if ev == "" {
					errs = append(errs, fmt.Errorf("%w: event name is empty", ErrInvalidDefinition))
					continue
				}
				if listed[ev] {
					errs = append(errs, &DuplicateDefinitionError{Kind: "event", Name: ev})
					continue
				}
				listed[ev] = true
				md.addEventName(ev)
			}
		case *EventDefinition:
			if _, dup := md.events[def.name]; dup {
				errs = append(errs, &DuplicateDefinitionError{Kind: "event", Name: def.name})
				continue
			}
			md.events[def.name] = def
			md.addEventName(def.name)
		case lifecycleDefinition:
			md.hooks[def.kind] = append(md.hooks[def.kind], def.hook)
		case viewFactoryDefinition, *PropDefinition:
			if implicitView == nil {
				implicitView = &ViewManagerDefinition{propIndex: make(map[string]*PropDefinition)}
			}
			if err := implicitView.add(d); err != nil {
				errs = append(errs, err)
			}
		case *ViewManagerDefinition:
			if explicitView != nil {
				errs = append(errs, &DuplicateDefinitionError{Kind: "viewManager", Name: "viewManager"})
				continue
			}
			explicitView = def
		default:
			errs = append(errs, fmt.Errorf("%w: unsupported %s fragment %T", ErrInvalidDefinition, d.Kind(), d))
		}
	}

	switch {
	case implicitView != nil && explicitView != nil:
		errs = append(errs, &DuplicateDefinitionError{Kind: "viewManager", Name: "viewManager"})
	case explicitView != nil:
		md.viewManager = explicitView
	case implicitView != nil:
		md.viewManager = implicitView
	}

	for _, ev := range md.eventNames {
		if _, ok := md.events[ev]; !ok {
			md.events[ev] = &EventDefinition{name: ev}
		}
	}
	if constants != nil {
		md.constants = constants.values()
	}
	if md.name == "" {
		errs = append(errs, ErrModuleNameEmpty)
	}

	if len(errs) > 0 {
		for _, err := range errs {
			var dup *DuplicateDefinitionError
			if errors.As(err, &dup) && dup.Module == "" {
				dup.Module = md.name
			}
		}
		return nil, fmt.Errorf("module %q: %w", md.name, errors.Join(errs...))
	}
	return md, nil
}

func (md *ModuleDefinition) addEventName(name string) {
	if !slices.Contains(md.eventNames, name) {
		md.eventNames = append(md.eventNames, name)
	}
}

// Name is the host-visible module name.
func (md *ModuleDefinition) Name() string { return md.name }

// ListMethodNames returns method names in declaration order.
func (md *ModuleDefinition) ListMethodNames() []string {
	names := make([]string, len(md.methods))
	for i, m := range md.methods {
		names[i] = m.name
	}
	return names
}

// ListEventNames returns event names in order of first declaration.
func (md *ModuleDefinition) ListEventNames() []string {
	return slices.Clone(md.eventNames)
}

// Constants returns a copy of the module constants.
func (md *ModuleDefinition) Constants() map[string]any {
	return maps.Clone(md.constants)
}

// Method looks up a method by name.
func (md *ModuleDefinition) Method(name string) (*MethodDefinition, bool) {
	m, ok := md.methodIndex[name]
	return m, ok
}

// EventDefinition looks up an event by name.
func (md *ModuleDefinition) EventDefinition(name string) (*EventDefinition, bool) {
	e, ok := md.events[name]
	return e, ok
}

// HasEvent reports whether the module declares the event.
func (md *ModuleDefinition) HasEvent(name string) bool {
	_, ok := md.events[name]
	return ok
}

// LifecycleHooks returns the hooks registered for kind, in declaration
// order.
func (md *ModuleDefinition) LifecycleHooks(kind LifecycleKind) []*MethodDefinition {
	return slices.Clone(md.hooks[kind])
}

// ViewManager returns the module's view manager, nil if it has none.
func (md *ModuleDefinition) ViewManager() *ViewManagerDefinition { return md.viewManager }

// Description is a serializable summary of a module definition.
type Description struct {
	Name      string              `json:"name" yaml:"name"`
	Constants map[string]any      `json:"constants,omitempty" yaml:"constants,omitempty"`
	Methods   []MethodDescription `json:"methods" yaml:"methods"`
	Events    []EventDescription  `json:"events" yaml:"events"`
	Lifecycle map[string]int      `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	View      *ViewDescription    `json:"view,omitempty" yaml:"view,omitempty"`
}

type MethodDescription struct {
	Name     string   `json:"name" yaml:"name"`
	Args     []string `json:"args" yaml:"args"`
	Detached bool     `json:"detached,omitempty" yaml:"detached,omitempty"`
}

type EventDescription struct {
	Name           string `json:"name" yaml:"name"`
	StartObserving bool   `json:"startObserving,omitempty" yaml:"startObserving,omitempty"`
	StopObserving  bool   `json:"stopObserving,omitempty" yaml:"stopObserving,omitempty"`
}

type ViewDescription struct {
	Factory bool              `json:"factory" yaml:"factory"`
	Props   []PropDescription `json:"props,omitempty" yaml:"props,omitempty"`
}

type PropDescription struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Describe summarizes the definition for tooling and host introspection.
func (md *ModuleDefinition) Describe() Description {
	d := Description{
		Name:      md.name,
		Constants: md.Constants(),
		Methods:   make([]MethodDescription, 0, len(md.methods)),
		Events:    make([]EventDescription, 0, len(md.eventNames)),
	}
	for _, m := range md.methods {
		args := make([]string, len(m.argTypes))
		for i, td := range m.argTypes {
			args[i] = td.String()
		}
		d.Methods = append(d.Methods, MethodDescription{Name: m.name, Args: args, Detached: m.Detached()})
	}
	for _, name := range md.eventNames {
		ev := md.events[name]
		d.Events = append(d.Events, EventDescription{
			Name:           name,
			StartObserving: ev.HasStartObserving(),
			StopObserving:  ev.HasStopObserving(),
		})
	}
	for kind, hooks := range md.hooks {
		if d.Lifecycle == nil {
			d.Lifecycle = make(map[string]int)
		}
		d.Lifecycle[string(kind)] = len(hooks)
	}
	if vm := md.viewManager; vm != nil {
		view := &ViewDescription{Factory: vm.HasFactory()}
		for _, p := range vm.props {
			view.Props = append(view.Props, PropDescription{Name: p.name, Type: p.valueType.String()})
		}
		d.View = view
	}
	return d
}
