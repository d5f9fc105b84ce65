package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoCodeAlone/bridge/lifecycle"
	"github.com/GoCodeAlone/bridge/metrics"
)

// ModuleHolder binds a module definition to one live module instance and
// is the host's entry point for invoking methods and tracking listeners.
type ModuleHolder struct {
	definition *ModuleDefinition
	appContext *AppContext
	logger     Logger
	metrics    metrics.Recorder
	dispatcher *lifecycle.Dispatcher

	mu        sync.RWMutex
	instance  Module
	destroyed bool
	inflight  sync.WaitGroup

	destroyOnce sync.Once
	destroyErr  error
	tornDown    chan struct{}

	// observeMu guards listener bookkeeping. Hooks never run under it.
	observeMu     sync.Mutex
	listeners     map[string]int
	observing     map[string]ObservingState
	startFailed   map[string]bool
	transitioning map[string]bool
}

func newModuleHolder(ac *AppContext, def *ModuleDefinition, instance Module) *ModuleHolder {
	h := &ModuleHolder{
		definition: def,
		appContext: ac,
		logger:     ac.logger,
		metrics:    ac.metrics,
		dispatcher: lifecycle.NewDispatcher(def.Name(), ac.store),
		instance:   instance,
		tornDown:   make(chan struct{}),
		listeners:  make(map[string]int),
		observing:  make(map[string]ObservingState),

		startFailed:   make(map[string]bool),
		transitioning: make(map[string]bool),
	}
	for _, kind := range lifecycle.Kinds() {
		for _, hook := range def.LifecycleHooks(kind) {
			_ = h.dispatcher.Register(kind, hook.Name(), func(context.Context) error {
				_, err := hook.Invoke(h.currentInstance(), nil)
				annotateModule(err, def.Name())
				return err
			})
		}
	}
	return h
}

// Name is the module name.
func (h *ModuleHolder) Name() string { return h.definition.name }

// Definition returns the module definition.
func (h *ModuleHolder) Definition() *ModuleDefinition { return h.definition }

// Instance returns the live module instance, nil once destroyed.
func (h *ModuleHolder) Instance() Module {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.instance
}

// Destroyed reports whether Destroy has been called.
func (h *ModuleHolder) Destroyed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.destroyed
}

// currentInstance returns the instance as a plain interface so a nil
// instance is an untyped nil.
func (h *ModuleHolder) currentInstance() any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.instance == nil {
		return nil
	}
	return h.instance
}

// acquire pins the instance for an attached method call.
func (h *ModuleHolder) acquire() (any, func(), error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.destroyed || h.instance == nil {
		return nil, nil, fmt.Errorf("module %q: %w", h.Name(), ErrInstanceUnavailable)
	}
	h.inflight.Add(1)
	return h.instance, h.inflight.Done, nil
}

// InvokeMethod calls the named method with positional host arguments.
// Arguments are validated and coerced before the native closure runs.
// Attached methods fail with ErrInstanceUnavailable once the module is
// destroyed; detached methods stay callable.
func (h *ModuleHolder) InvokeMethod(ctx context.Context, name string, args []any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	start := time.Now()
	m, ok := h.definition.Method(name)
	if !ok {
		err := &UnknownMethodError{Module: h.Name(), Method: name}
		h.metrics.ObserveInvocation(h.Name(), name, ErrorKind(err), time.Since(start))
		return nil, err
	}

	var instance any
	if !m.Detached() {
		inst, release, err := h.acquire()
		if err != nil {
			h.metrics.ObserveInvocation(h.Name(), name, ErrorKind(err), time.Since(start))
			return nil, err
		}
		defer release()
		instance = inst
	}

	result, err := m.Invoke(instance, args)
	annotateModule(err, h.Name())
	h.metrics.ObserveInvocation(h.Name(), name, ErrorKind(err), time.Since(start))
	if err != nil {
		h.logger.Debug("Method invocation failed", "module", h.Name(), "method", name, "kind", ErrorKind(err), "error", err)
		return nil, err
	}
	return result, nil
}

// NotifyObserversChanged applies a change of delta to the host listener
// count of event. Going from zero to a positive count runs the event's
// startObserving hook; dropping back to zero runs stopObserving, but only
// when observing actually started.
//
// Hooks and notifications run without holder locks, so observers and hooks
// may call back into the holder. A change made while a transition of the
// same event is running is settled by that transition before it returns.
func (h *ModuleHolder) NotifyObserversChanged(ctx context.Context, event string, delta int) error {
	ev, ok := h.definition.EventDefinition(event)
	if !ok {
		return &UnknownEventError{Module: h.Name(), Event: event}
	}

	h.observeMu.Lock()
	prev := h.listeners[event]
	next := prev + delta
	if next < 0 {
		h.observeMu.Unlock()
		return fmt.Errorf("%w: %s.%s has %d listener(s), delta %d", ErrInvalidListenerDelta, h.Name(), event, prev, delta)
	}
	if delta > 0 && h.Destroyed() {
		h.observeMu.Unlock()
		return fmt.Errorf("module %q: %w", h.Name(), ErrInstanceUnavailable)
	}
	h.listeners[event] = next
	if next == 0 {
		delete(h.startFailed, event)
	}
	h.metrics.SetListeners(h.Name(), event, next)
	return h.settleLocked(ctx, ev)
}

// settleLocked runs start and stop hooks until the observing state of ev
// matches its listener count. It is called with observeMu held and
// returns with it released. Only one caller settles an event at a time;
// the others return at once. A failed start is not retried until the
// count drops back to zero.
func (h *ModuleHolder) settleLocked(ctx context.Context, ev *EventDefinition) error {
	name := ev.Name()
	if h.transitioning[name] {
		h.observeMu.Unlock()
		return nil
	}
	h.transitioning[name] = true

	var firstErr error
	for {
		want := h.listeners[name] > 0 && !h.startFailed[name] && !h.Destroyed()
		if want == (h.observing[name] == Observing) {
			break
		}
		h.observeMu.Unlock()
		err := h.runObservingHook(ev, want)
		h.observeMu.Lock()
		if h.applyTransitionLocked(name, want, err) {
			h.observeMu.Unlock()
			h.emitObserving(ctx, name, want)
			h.observeMu.Lock()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	delete(h.transitioning, name)
	h.observeMu.Unlock()
	return firstErr
}

// applyTransitionLocked records the outcome of a hook and reports whether
// the observing state changed. A failed stop still leaves the event
// unobserved.
func (h *ModuleHolder) applyTransitionLocked(name string, start bool, err error) bool {
	if start {
		if err != nil {
			h.startFailed[name] = true
			return false
		}
		delete(h.startFailed, name)
		h.observing[name] = Observing
		return true
	}
	h.observing[name] = NotObserving
	return err == nil
}

// StartObserving runs the event's startObserving hook directly, whatever
// the listener count.
func (h *ModuleHolder) StartObserving(ctx context.Context, event string) error {
	return h.forceObserving(ctx, event, true)
}

// StopObserving runs the event's stopObserving hook directly, whatever
// the listener count.
func (h *ModuleHolder) StopObserving(ctx context.Context, event string) error {
	return h.forceObserving(ctx, event, false)
}

func (h *ModuleHolder) forceObserving(ctx context.Context, event string, start bool) error {
	ev, ok := h.definition.EventDefinition(event)
	if !ok {
		return &UnknownEventError{Module: h.Name(), Event: event}
	}
	h.observeMu.Lock()
	if h.transitioning[event] {
		h.observeMu.Unlock()
		return fmt.Errorf("%w: %s.%s", ErrObservingInTransition, h.Name(), event)
	}
	h.transitioning[event] = true
	h.observeMu.Unlock()

	err := h.runObservingHook(ev, start)

	h.observeMu.Lock()
	delete(h.transitioning, event)
	changed := h.applyTransitionLocked(event, start, err)
	h.observeMu.Unlock()
	if changed {
		h.emitObserving(ctx, event, start)
	}
	return err
}

func (h *ModuleHolder) runObservingHook(ev *EventDefinition, start bool) error {
	notify, action := ev.NotifyStopObserving, "Stop observing failed"
	if start {
		notify, action = ev.NotifyStartObserving, "Start observing failed"
	}
	if err := notify(h.currentInstance()); err != nil {
		annotateModule(err, h.Name())
		h.logger.Error(action, "module", h.Name(), "event", ev.Name(), "error", err)
		return fmt.Errorf("event %q: %w", ev.Name(), err)
	}
	return nil
}

func (h *ModuleHolder) emitObserving(ctx context.Context, event string, observing bool) {
	h.appContext.emit(ctx, EventTypeObservingChanged, h.Name(), event, map[string]any{"observing": observing})
}

// ObservingState reports whether the module observes event for the host.
func (h *ModuleHolder) ObservingState(event string) ObservingState {
	h.observeMu.Lock()
	defer h.observeMu.Unlock()
	return h.observing[event]
}

// ListenerCount returns the host listener count of event.
func (h *ModuleHolder) ListenerCount(event string) int {
	h.observeMu.Lock()
	defer h.observeMu.Unlock()
	return h.listeners[event]
}

// SendEvent implements EventSender. Only declared events can be sent.
func (h *ModuleHolder) SendEvent(eventName string, body map[string]any) error {
	if !h.definition.HasEvent(eventName) {
		return &UnknownEventError{Module: h.Name(), Event: eventName}
	}
	if h.Destroyed() {
		return fmt.Errorf("module %q: %w", h.Name(), ErrInstanceUnavailable)
	}
	h.metrics.ObserveEvent(h.Name(), eventName)
	return h.appContext.emitModuleEvent(h.Name(), eventName, body)
}

// dispatchLifecycle runs the module's hooks for kind. Destroyed modules
// only run moduleDestroy.
func (h *ModuleHolder) dispatchLifecycle(ctx context.Context, kind lifecycle.Kind) error {
	if kind != lifecycle.ModuleDestroy && h.Destroyed() {
		return nil
	}
	event, err := h.dispatcher.Dispatch(ctx, kind)
	if err != nil {
		h.logger.Error("Lifecycle hooks failed", "module", h.Name(), "kind", kind, "error", err)
		return fmt.Errorf("%w: module %q %s: %w", ErrLifecycleHooksFailed, h.Name(), kind, err)
	}
	if event.Hooks > 0 {
		h.logger.Debug("Lifecycle hooks ran", "module", h.Name(), "kind", kind, "hooks", event.Hooks, "duration", event.Duration)
	}
	return nil
}

// Destroy tears the module down: new attached invocations fail at once,
// observed events are stopped and the moduleDestroy hooks run once, after
// every in-flight call has returned. Detached methods stay callable.
//
// The wait is bounded by ctx. When ctx ends first, Destroy returns its
// error and the teardown completes in the background once the calls
// return; a later Destroy call waits for it again.
func (h *ModuleHolder) Destroy(ctx context.Context) error {
	h.mu.Lock()
	h.destroyed = true
	h.mu.Unlock()

	h.destroyOnce.Do(func() {
		hookCtx := context.WithoutCancel(ctx)
		go func() {
			h.inflight.Wait()
			h.destroyErr = h.teardown(hookCtx)
			close(h.tornDown)
		}()
	})

	select {
	case <-h.tornDown:
		return h.destroyErr
	default:
	}
	select {
	case <-h.tornDown:
		return h.destroyErr
	case <-ctx.Done():
		h.logger.Warn("Module teardown deferred until in-flight calls return", "module", h.Name(), "error", ctx.Err())
		return contextError(ctx.Err())
	}
}

// TornDown is closed once the moduleDestroy hooks have run.
func (h *ModuleHolder) TornDown() <-chan struct{} { return h.tornDown }

func (h *ModuleHolder) teardown(ctx context.Context) error {
	var errs []error

	h.observeMu.Lock()
	clear(h.listeners)
	clear(h.startFailed)
	h.observeMu.Unlock()
	for _, name := range h.definition.ListEventNames() {
		ev, _ := h.definition.EventDefinition(name)
		h.observeMu.Lock()
		if err := h.settleLocked(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}

	if err := h.dispatchLifecycle(ctx, lifecycle.ModuleDestroy); err != nil {
		errs = append(errs, err)
	}

	h.mu.Lock()
	h.instance = nil
	h.mu.Unlock()

	h.appContext.emit(ctx, EventTypeModuleDestroyed, h.Name(), "", map[string]any{"module": h.Name()})
	return errors.Join(errs...)
}

// CreateView creates a view through the module's view manager.
func (h *ModuleHolder) CreateView() (any, error) {
	vm := h.definition.ViewManager()
	if vm == nil {
		return nil, fmt.Errorf("module %q: %w", h.Name(), ErrNoViewManager)
	}
	return vm.CreateView()
}

// SetViewProp coerces value and applies the named prop to view.
func (h *ModuleHolder) SetViewProp(view any, prop string, value any) error {
	vm := h.definition.ViewManager()
	if vm == nil {
		return fmt.Errorf("module %q: %w", h.Name(), ErrNoViewManager)
	}
	return vm.SetProp(view, prop, value)
}
