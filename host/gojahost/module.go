package gojahost

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/GoCodeAlone/bridge"
)

// listener is one JS function added with addListener.
type listener struct {
	value goja.Value
	fn    goja.Callable
}

// Module exposes one bridge module to a single [goja.Runtime]. It owns
// the JS listener lists and reports listener count changes to the module
// holder.
type Module struct {
	runtime *goja.Runtime
	ac      *bridge.AppContext
	holder  *bridge.ModuleHolder
	opts    *moduleOptions
	id      string

	mu        sync.Mutex
	listeners map[string][]*listener
	closed    bool
}

// New binds the module registered in ac under name to runtime.
//
// New panics if runtime is nil. It returns an error if the module is not
// registered or an option is invalid.
func New(runtime *goja.Runtime, ac *bridge.AppContext, name string, opts ...Option) (*Module, error) {
	if runtime == nil {
		panic("gojahost: runtime must not be nil")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	holder, err := ac.Module(name)
	if err != nil {
		return nil, err
	}
	m := &Module{
		runtime:   runtime,
		ac:        ac,
		holder:    holder,
		opts:      cfg,
		id:        "gojahost-" + uuid.NewString(),
		listeners: make(map[string][]*listener),
	}
	if err := ac.RegisterObserver(m, bridge.EventTypeModuleEvent); err != nil {
		return nil, err
	}
	if cfg.onLoad != nil {
		cfg.onLoad(m)
	}
	return m, nil
}

// Runtime returns the [goja.Runtime] this module is bound to.
func (m *Module) Runtime() *goja.Runtime { return m.runtime }

// Name is the bridged module's name.
func (m *Module) Name() string { return m.holder.Name() }

// SetupExports wires the module's JS API onto exports without require().
func (m *Module) SetupExports(exports *goja.Object) {
	m.setupExports(exports)
}

// setupExports wires the module's JS API onto the given exports object.
//
// Exports:
//   - one function per method
//   - constants: the module constants
//   - addListener(event, fn) → {remove()}
//   - removeListener(event, fn)
//   - removeAllListeners(event)
//   - listenerCount(event)
func (m *Module) setupExports(exports *goja.Object) {
	def := m.holder.Definition()
	for _, name := range def.ListMethodNames() {
		_ = exports.Set(name, m.runtime.ToValue(m.methodFunc(name)))
	}
	_ = exports.Set("constants", m.runtime.ToValue(def.Constants()))
	_ = exports.Set("addListener", m.runtime.ToValue(m.jsAddListener))
	_ = exports.Set("removeListener", m.runtime.ToValue(m.jsRemoveListener))
	_ = exports.Set("removeAllListeners", m.runtime.ToValue(m.jsRemoveAllListeners))
	_ = exports.Set("listenerCount", m.runtime.ToValue(m.jsListenerCount))
}

func (m *Module) methodFunc(name string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		result, err := m.holder.InvokeMethod(context.Background(), name, args)
		if !m.opts.async {
			if err != nil {
				panic(m.newError(err))
			}
			return m.runtime.ToValue(result)
		}
		promise, resolve, reject := m.runtime.NewPromise()
		if err != nil {
			_ = reject(m.newError(err))
		} else {
			_ = resolve(m.runtime.ToValue(result))
		}
		return m.runtime.ToValue(promise)
	}
}

// newError builds a JS Error carrying the bridge error kind as code.
func (m *Module) newError(err error) *goja.Object {
	obj := m.runtime.NewGoError(err)
	_ = obj.Set("code", bridge.ErrorKind(err))
	return obj
}

func (m *Module) eventArg(call goja.FunctionCall) string {
	event := call.Argument(0).String()
	if !m.holder.Definition().HasEvent(event) {
		panic(m.newError(&bridge.UnknownEventError{Module: m.Name(), Event: event}))
	}
	return event
}

func (m *Module) jsAddListener(call goja.FunctionCall) goja.Value {
	event := m.eventArg(call)
	fnVal := call.Argument(1)
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		panic(m.runtime.NewTypeError("addListener: listener must be a function"))
	}
	l := &listener{value: fnVal, fn: fn}

	m.mu.Lock()
	m.listeners[event] = append(m.listeners[event], l)
	m.mu.Unlock()

	if err := m.holder.NotifyObserversChanged(context.Background(), event, 1); err != nil {
		m.detach(event, func(c *listener) bool { return c == l })
		panic(m.newError(err))
	}

	sub := m.runtime.NewObject()
	_ = sub.Set("remove", m.runtime.ToValue(func(goja.FunctionCall) goja.Value {
		if m.detach(event, func(c *listener) bool { return c == l }) {
			m.notify(event, -1)
		}
		return goja.Undefined()
	}))
	return sub
}

func (m *Module) jsRemoveListener(call goja.FunctionCall) goja.Value {
	event := m.eventArg(call)
	fnVal := call.Argument(1)
	if m.detach(event, func(c *listener) bool { return c.value.SameAs(fnVal) }) {
		m.notify(event, -1)
	}
	return goja.Undefined()
}

func (m *Module) jsRemoveAllListeners(call goja.FunctionCall) goja.Value {
	event := m.eventArg(call)
	m.mu.Lock()
	n := len(m.listeners[event])
	delete(m.listeners, event)
	m.mu.Unlock()
	if n > 0 {
		m.notify(event, -n)
	}
	return goja.Undefined()
}

func (m *Module) jsListenerCount(call goja.FunctionCall) goja.Value {
	event := m.eventArg(call)
	return m.runtime.ToValue(m.ListenerCount(event))
}

// ListenerCount returns the number of JS listeners for event.
func (m *Module) ListenerCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[event])
}

// detach removes the first listener of event matching match.
func (m *Module) detach(event string, match func(*listener) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.listeners[event]
	i := slices.IndexFunc(list, match)
	if i < 0 {
		return false
	}
	m.listeners[event] = slices.Delete(list, i, i+1)
	return true
}

// notify reports a listener removal. Removals cannot be rejected from JS,
// so failures are logged.
func (m *Module) notify(event string, delta int) {
	if m.holder.Destroyed() {
		return
	}
	if err := m.holder.NotifyObserversChanged(context.Background(), event, delta); err != nil {
		m.opts.logger.Error("Listener change failed", "module", m.Name(), "event", event, "delta", delta, "error", err)
	}
}

// ObserverID implements bridge.Observer.
func (m *Module) ObserverID() string { return m.id }

// OnEvent implements bridge.Observer, forwarding the module's own events
// to its JS listeners.
func (m *Module) OnEvent(_ context.Context, event bridge.CloudEvent) error {
	me, err := bridge.DecodeModuleEvent(event)
	if err != nil {
		return err
	}
	if me.Module != m.Name() {
		return nil
	}
	if m.opts.scheduler == nil {
		m.deliver(m.runtime, me)
		return nil
	}
	if !m.opts.scheduler.RunOnLoop(func(rt *goja.Runtime) { m.deliver(rt, me) }) {
		return fmt.Errorf("gojahost: event loop rejected %s.%s", me.Module, me.Event)
	}
	return nil
}

func (m *Module) deliver(rt *goja.Runtime, me bridge.ModuleEvent) {
	m.mu.Lock()
	targets := slices.Clone(m.listeners[me.Event])
	m.mu.Unlock()
	if len(targets) == 0 {
		return
	}
	body := me.Body
	if body == nil {
		body = map[string]any{}
	}
	arg := rt.ToValue(body)
	for _, l := range targets {
		if _, err := l.fn(goja.Undefined(), arg); err != nil {
			m.opts.logger.Error("JS listener failed", "module", me.Module, "event", me.Event, "error", err)
		}
	}
}

// Close drops every JS listener, reporting the removals to the module, and
// stops forwarding events. It is idempotent.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	counts := make(map[string]int, len(m.listeners))
	for event, list := range m.listeners {
		counts[event] = len(list)
	}
	clear(m.listeners)
	m.mu.Unlock()

	var errs []error
	if !m.holder.Destroyed() {
		for event, n := range counts {
			if n == 0 {
				continue
			}
			errs = append(errs, m.holder.NotifyObserversChanged(ctx, event, -n))
		}
	}
	errs = append(errs, m.ac.UnregisterObserver(m))
	return errors.Join(errs...)
}
