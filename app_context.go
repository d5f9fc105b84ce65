package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/bridge/lifecycle"
	"github.com/GoCodeAlone/bridge/metrics"
	"github.com/GoCodeAlone/bridge/registry"
)

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool // empty means every event
	registeredAt time.Time
}

// AppContext owns the registered modules of one host application. It
// dispatches host calls to them, broadcasts lifecycle transitions and
// delivers module events to observers as CloudEvents.
type AppContext struct {
	config     Config
	logger     Logger
	metrics    metrics.Recorder
	store      lifecycle.EventStore
	modules    *registry.Registry[*ModuleHolder]
	registerer prometheus.Registerer

	// mu serializes registration against Destroy.
	mu        sync.RWMutex
	destroyed bool

	observerMutex sync.RWMutex
	observers     map[string]*observerRegistration
	observerOrder []string
}

// Option configures an AppContext.
type Option func(*AppContext) error

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(ac *AppContext) error {
		if logger == nil {
			return fmt.Errorf("%w: logger is nil", ErrInvalidDefinition)
		}
		ac.logger = logger
		return nil
	}
}

// WithConfig replaces the configuration. Zero fields take their defaults.
func WithConfig(cfg Config) Option {
	return func(ac *AppContext) error {
		ac.config = cfg
		return nil
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(ac *AppContext) error {
		ac.metrics = recorder
		return nil
	}
}

// WithPrometheus records metrics into a Prometheus collector registered
// with reg, named after the configured MetricsNamespace.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(ac *AppContext) error {
		ac.registerer = reg
		return nil
	}
}

// WithLifecycleStore sets where lifecycle dispatches are recorded.
func WithLifecycleStore(store lifecycle.EventStore) Option {
	return func(ac *AppContext) error {
		ac.store = store
		return nil
	}
}

// NewAppContext creates an empty app context.
func NewAppContext(opts ...Option) (*AppContext, error) {
	ac := &AppContext{
		logger:    NopLogger{},
		modules:   registry.NewRegistry[*ModuleHolder](),
		observers: make(map[string]*observerRegistration),
	}
	for _, opt := range opts {
		if err := opt(ac); err != nil {
			return nil, err
		}
	}
	if err := ApplyConfigDefaults(&ac.config); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&ac.config); err != nil {
		return nil, err
	}
	if ac.metrics == nil {
		if ac.registerer != nil {
			ac.metrics = metrics.NewWithRegistry(ac.registerer, ac.config.MetricsNamespace)
		} else {
			ac.metrics = metrics.NopRecorder{}
		}
	}
	if ac.store == nil {
		ac.store = lifecycle.NewStore(ac.config.LifecycleHistory)
	}
	return ac, nil
}

// Config returns the effective configuration.
func (ac *AppContext) Config() Config { return ac.config }

// RegisterModule builds the module's definition, binds an EventSender to
// EventSenderAware modules and runs the moduleCreate hooks. Module names
// are unique per app context.
func (ac *AppContext) RegisterModule(ctx context.Context, m Module) (*ModuleHolder, error) {
	if isNilModule(m) {
		return nil, ErrModuleNil
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.destroyed {
		return nil, ErrAppContextDestroyed
	}

	def, err := Build(defaultModuleName(m), m.Definition()...)
	if err != nil {
		ac.logger.Error("Invalid module definition", "moduleType", fmt.Sprintf("%T", m), "error", err)
		return nil, err
	}
	h := newModuleHolder(ac, def, m)
	if err := ac.modules.Register(def.Name(), h); err != nil {
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("%w: %s", ErrModuleAlreadyRegistered, def.Name())
		}
		return nil, err
	}
	if aware, ok := m.(EventSenderAware); ok {
		aware.SetEventSender(h)
	}
	if err := h.dispatchLifecycle(ctx, lifecycle.ModuleCreate); err != nil {
		_ = ac.modules.Unregister(def.Name())
		return nil, err
	}

	ac.emit(ctx, EventTypeModuleCreated, def.Name(), "", map[string]any{
		"module":  def.Name(),
		"methods": def.ListMethodNames(),
		"events":  def.ListEventNames(),
	})
	ac.logger.Info("Module registered", "module", def.Name(), "methods", len(def.methods), "events", len(def.eventNames))
	return h, nil
}

// RegisterModules registers modules in order, stopping at the first error.
func (ac *AppContext) RegisterModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if _, err := ac.RegisterModule(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Module resolves a registered module by name.
func (ac *AppContext) Module(name string) (*ModuleHolder, error) {
	h, err := ac.modules.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return h, nil
}

// ModuleNames lists module names in registration order.
func (ac *AppContext) ModuleNames() []string { return ac.modules.Names() }

// Modules lists module holders in registration order.
func (ac *AppContext) Modules() []*ModuleHolder { return ac.modules.ResolveWithFilter(nil) }

// Describe summarizes every registered module.
func (ac *AppContext) Describe() []Description {
	holders := ac.Modules()
	out := make([]Description, len(holders))
	for i, h := range holders {
		out[i] = h.definition.Describe()
	}
	return out
}

// InvokeMethod calls module.method with positional host arguments.
func (ac *AppContext) InvokeMethod(ctx context.Context, module, method string, args []any) (any, error) {
	h, err := ac.Module(module)
	if err != nil {
		return nil, err
	}
	return h.InvokeMethod(ctx, method, args)
}

// NotifyObserversChanged applies a listener count change to module.event.
func (ac *AppContext) NotifyObserversChanged(ctx context.Context, module, event string, delta int) error {
	h, err := ac.Module(module)
	if err != nil {
		return err
	}
	return h.NotifyObserversChanged(ctx, event, delta)
}

// EnterForeground runs every module's appEntersForeground hooks.
func (ac *AppContext) EnterForeground(ctx context.Context) error {
	return ac.DispatchLifecycle(ctx, lifecycle.AppEntersForeground)
}

// BecomeActive runs every module's appBecomesActive hooks.
func (ac *AppContext) BecomeActive(ctx context.Context) error {
	return ac.DispatchLifecycle(ctx, lifecycle.AppBecomesActive)
}

// EnterBackground runs every module's appEntersBackground hooks.
func (ac *AppContext) EnterBackground(ctx context.Context) error {
	return ac.DispatchLifecycle(ctx, lifecycle.AppEntersBackground)
}

// DispatchLifecycle broadcasts a host app transition to every module in
// registration order. Module creation and destruction kinds are driven by
// RegisterModule and Destroy and are rejected here.
func (ac *AppContext) DispatchLifecycle(ctx context.Context, kind lifecycle.Kind) error {
	switch kind {
	case lifecycle.AppEntersForeground, lifecycle.AppBecomesActive, lifecycle.AppEntersBackground:
	default:
		return fmt.Errorf("%w: %s", ErrLifecycleNotBroadcast, kind)
	}
	ac.mu.RLock()
	destroyed := ac.destroyed
	ac.mu.RUnlock()
	if destroyed {
		return ErrAppContextDestroyed
	}

	var errs []error
	holders := ac.Modules()
	for _, h := range holders {
		if err := h.dispatchLifecycle(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	ac.emit(ctx, EventTypeLifecycle, ac.config.EventSource, string(kind), map[string]any{
		"kind":    string(kind),
		"modules": len(holders),
	})
	return errors.Join(errs...)
}

// LifecycleHistory queries recorded lifecycle dispatches.
func (ac *AppContext) LifecycleHistory(ctx context.Context, criteria *lifecycle.QueryCriteria) ([]*lifecycle.Event, error) {
	return ac.store.Query(ctx, criteria)
}

// Destroy runs every module's appContextDestroys hooks, then destroys
// the modules in reverse registration order. The wait for in-flight calls
// is bounded by ctx and the configured DestroyTimeout; a module whose calls
// outlast it finishes tearing down in the background. Registration fails
// afterwards; destroyed modules stay resolvable so hosts get
// ErrInstanceUnavailable rather than ErrModuleNotFound.
func (ac *AppContext) Destroy(ctx context.Context) error {
	ac.mu.Lock()
	if ac.destroyed {
		ac.mu.Unlock()
		return nil
	}
	ac.destroyed = true
	ac.mu.Unlock()

	if ac.config.DestroyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ac.config.DestroyTimeout)
		defer cancel()
	}

	holders := ac.Modules()
	var errs []error
	for _, h := range holders {
		if err := h.dispatchLifecycle(ctx, lifecycle.AppContextDestroys); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(holders) - 1; i >= 0; i-- {
		if err := holders[i].Destroy(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	ac.emit(context.WithoutCancel(ctx), EventTypeLifecycle, ac.config.EventSource, string(lifecycle.AppContextDestroys), map[string]any{
		"kind":    string(lifecycle.AppContextDestroys),
		"modules": len(holders),
	})
	ac.logger.Info("App context destroyed", "modules", len(holders))
	return errors.Join(errs...)
}

// Destroyed reports whether Destroy has been called.
func (ac *AppContext) Destroyed() bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.destroyed
}

// RegisterObserver adds an observer to receive notifications from the app
// context. If eventTypes is empty, the observer receives all events.
// Registering an ID again replaces the earlier registration.
func (ac *AppContext) RegisterObserver(observer Observer, eventTypes ...string) error {
	ac.observerMutex.Lock()
	defer ac.observerMutex.Unlock()

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}
	id := observer.ObserverID()
	if _, exists := ac.observers[id]; !exists {
		ac.observerOrder = append(ac.observerOrder, id)
	}
	ac.observers[id] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	ac.logger.Debug("Observer registered", "observerID", id, "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. It is idempotent.
func (ac *AppContext) UnregisterObserver(observer Observer) error {
	ac.observerMutex.Lock()
	defer ac.observerMutex.Unlock()

	id := observer.ObserverID()
	if _, exists := ac.observers[id]; !exists {
		return nil
	}
	delete(ac.observers, id)
	for i, existing := range ac.observerOrder {
		if existing == id {
			ac.observerOrder = append(ac.observerOrder[:i], ac.observerOrder[i+1:]...)
			break
		}
	}
	ac.logger.Debug("Observer unregistered", "observerID", id)
	return nil
}

// NotifyObservers delivers event to every interested observer. Delivery is
// synchronous in registration order unless AsyncEvents is configured.
// Observer errors and panics are logged, never returned.
func (ac *AppContext) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		ac.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	ac.observerMutex.RLock()
	targets := make([]*observerRegistration, 0, len(ac.observerOrder))
	for _, id := range ac.observerOrder {
		registration := ac.observers[id]
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}
		targets = append(targets, registration)
	}
	ac.observerMutex.RUnlock()

	for _, registration := range targets {
		if ac.config.AsyncEvents {
			go ac.deliver(ctx, registration.observer, event)
			continue
		}
		ac.deliver(ctx, registration.observer, event)
	}
	return nil
}

func (ac *AppContext) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			ac.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()
	if err := observer.OnEvent(ctx, event); err != nil {
		ac.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers returns information about currently registered observers.
func (ac *AppContext) GetObservers() []ObserverInfo {
	ac.observerMutex.RLock()
	defer ac.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(ac.observerOrder))
	for _, id := range ac.observerOrder {
		registration := ac.observers[id]
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		info = append(info, ObserverInfo{
			ID:           id,
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

func (ac *AppContext) emitModuleEvent(module, event string, body map[string]any) error {
	ce, err := NewCloudEvent(EventTypeModuleEvent, module, event, body)
	if err != nil {
		return err
	}
	return ac.NotifyObservers(context.Background(), ce)
}

// emit is a helper to send framework CloudEvents; failures are logged.
func (ac *AppContext) emit(ctx context.Context, eventType, source, subject string, data any) {
	ce, err := NewCloudEvent(eventType, source, subject, data)
	if err == nil {
		err = ac.NotifyObservers(ctx, ce)
	}
	if err != nil {
		ac.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}
