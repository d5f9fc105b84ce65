// Package bridge exposes native Go modules to a dynamically typed
// scripting host.
//
// A module declares what it offers through definition fragments: a name,
// constants, methods taking the module instance plus host arguments,
// events with observer hooks, lifecycle hooks and an optional view
// manager. Fragments are folded into an immutable ModuleDefinition, and
// an AppContext owns the live module instances the host talks to.
//
// Basic usage:
//
//	type Greeter struct{ bridge.BaseModule }
//
//	func (g *Greeter) Definition() []bridge.Definition {
//		return []bridge.Definition{
//			bridge.Name("Greeter"),
//			bridge.Method("hello", func(g *Greeter, who string) string { return "hello " + who }),
//		}
//	}
//
//	ac, _ := bridge.NewAppContext()
//	_, _ = ac.RegisterModule(ctx, &Greeter{})
//	out, err := ac.InvokeMethod(ctx, "Greeter", "hello", []any{"world"})
package bridge

import (
	"reflect"
	"sync"
)

// Module is a native module exposed to the host. Definition returns the
// fragments describing the module; attached methods and hooks receive the
// module value itself as their instance.
type Module interface {
	Definition() []Definition
}

// EventSender delivers module events to the host.
type EventSender interface {
	SendEvent(eventName string, body map[string]any) error
}

// EventSenderAware is implemented by modules that want to emit events.
// The AppContext binds the sender when the module is registered.
type EventSenderAware interface {
	SetEventSender(sender EventSender)
}

// BaseModule can be embedded by modules to receive an EventSender.
type BaseModule struct {
	mu     sync.RWMutex
	sender EventSender
}

// SetEventSender implements EventSenderAware.
func (b *BaseModule) SetEventSender(sender EventSender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = sender
}

// SendEvent emits a declared event to the host.
func (b *BaseModule) SendEvent(eventName string, body map[string]any) error {
	b.mu.RLock()
	sender := b.sender
	b.mu.RUnlock()
	if sender == nil {
		return ErrNoEventSender
	}
	return sender.SendEvent(eventName, body)
}

// defaultModuleName is the module's Go type name, used when the
// definition has no Name fragment.
func defaultModuleName(m Module) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func isNilModule(m Module) bool {
	if m == nil {
		return true
	}
	rv := reflect.ValueOf(m)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
