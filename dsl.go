package bridge

import (
	"maps"

	"github.com/GoCodeAlone/bridge/lifecycle"
)

// Name sets the host-visible module name. The last Name fragment wins.
func Name(name string) Definition {
	return nameDefinition{name: name}
}

// Constants exposes a fixed set of values to the host. The map is copied.
// The last constants fragment wins.
func Constants(values map[string]any) Definition {
	snapshot := maps.Clone(values)
	return constantsDefinition{provide: func() map[string]any { return snapshot }}
}

// ConstantsFunc exposes the values returned by provide, evaluated once when
// the module definition is built.
func ConstantsFunc(provide func() map[string]any) Definition {
	return constantsDefinition{provide: provide}
}

// Method declares a method whose first parameter receives the module
// instance; the remaining parameters are the host arguments.
//
//	bridge.Method("getStringAsync", (*Clipboard).GetString)
func Method(name string, fn any) *MethodDefinition {
	return newMethodDefinition(name, fn, false)
}

// DetachedMethod declares a method that runs without a module instance.
// It stays callable after the module is destroyed.
func DetachedMethod(name string, fn any) *MethodDefinition {
	return newMethodDefinition(name, fn, true)
}

// Events declares event names the module may emit.
func Events(names ...string) Definition {
	return eventsDefinition{names: append([]string(nil), names...)}
}

// StartObserving declares the hook run when the first host listener is
// added to the enclosing Event.
func StartObserving(fn any) *MethodDefinition {
	return newHookDefinition(startObservingName, fn)
}

// StopObserving declares the hook run when the last host listener is
// removed from the enclosing Event.
func StopObserving(fn any) *MethodDefinition {
	return newHookDefinition(stopObservingName, fn)
}

// OnCreate runs after the module is registered with an AppContext.
func OnCreate(fn any) Definition { return lifecycleHook(lifecycle.ModuleCreate, fn) }

// OnDestroy runs once when the module is destroyed.
func OnDestroy(fn any) Definition { return lifecycleHook(lifecycle.ModuleDestroy, fn) }

// OnAppContextDestroys runs when the owning AppContext starts tearing down.
func OnAppContextDestroys(fn any) Definition {
	return lifecycleHook(lifecycle.AppContextDestroys, fn)
}

func OnAppEntersForeground(fn any) Definition {
	return lifecycleHook(lifecycle.AppEntersForeground, fn)
}

func OnAppBecomesActive(fn any) Definition {
	return lifecycleHook(lifecycle.AppBecomesActive, fn)
}

func OnAppEntersBackground(fn any) Definition {
	return lifecycleHook(lifecycle.AppEntersBackground, fn)
}

func lifecycleHook(kind lifecycle.Kind, fn any) Definition {
	return lifecycleDefinition{kind: kind, hook: newHookDefinition(string(kind), fn)}
}
