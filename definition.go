package bridge

import (
	"maps"

	"github.com/GoCodeAlone/bridge/lifecycle"
)

// LifecycleKind names a host lifecycle transition.
type LifecycleKind = lifecycle.Kind

// DefinitionKind tags the fragments a module definition is folded from.
type DefinitionKind string

const (
	DefinitionKindName        DefinitionKind = "name"
	DefinitionKindConstants   DefinitionKind = "constants"
	DefinitionKindMethod      DefinitionKind = "method"
	DefinitionKindEvents      DefinitionKind = "events"
	DefinitionKindEvent       DefinitionKind = "event"
	DefinitionKindLifecycle   DefinitionKind = "lifecycle"
	DefinitionKindView        DefinitionKind = "view"
	DefinitionKindProp        DefinitionKind = "prop"
	DefinitionKindViewManager DefinitionKind = "viewManager"
)

// Definition is one declaration fragment produced by the builder
// functions (Name, Method, Event, OnCreate, ...). Fragments are plain
// values; Build folds them, in order, into a ModuleDefinition.
type Definition interface {
	Kind() DefinitionKind
}

// definitionError is implemented by fragments that can carry a
// declaration error found when they were constructed.
type definitionError interface {
	definitionErr() error
}

func fragmentErr(d Definition) error {
	if de, ok := d.(definitionError); ok {
		return de.definitionErr()
	}
	return nil
}

type nameDefinition struct {
	name string
}

func (nameDefinition) Kind() DefinitionKind { return DefinitionKindName }

type constantsDefinition struct {
	provide func() map[string]any
}

func (constantsDefinition) Kind() DefinitionKind { return DefinitionKindConstants }

func (c constantsDefinition) values() map[string]any {
	if c.provide == nil {
		return map[string]any{}
	}
	return maps.Clone(c.provide())
}

type eventsDefinition struct {
	names []string
}

func (eventsDefinition) Kind() DefinitionKind { return DefinitionKindEvents }

type lifecycleDefinition struct {
	kind lifecycle.Kind
	hook *MethodDefinition
}

func (lifecycleDefinition) Kind() DefinitionKind { return DefinitionKindLifecycle }

func (l lifecycleDefinition) definitionErr() error { return l.hook.err }
