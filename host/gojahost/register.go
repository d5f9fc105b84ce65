package gojahost

import (
	"context"
	"errors"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/GoCodeAlone/bridge"
)

// Require returns a [require.ModuleLoader] exposing the bridge module
// registered in ac under name. The loader is usually registered under the
// same name:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("Clipboard", gojahost.Require(ac, "Clipboard"))
//	registry.Enable(runtime)
//
// after which scripts call require('Clipboard').
//
// A goja.Runtime is not safe for concurrent use. Without WithScheduler,
// module events reach JS listeners on the goroutine that sent them, which
// is only safe when every event is sent from the goroutine driving the
// runtime. Modules that send events from their own goroutines, such as
// clipboard watchers, need WithScheduler.
func Require(ac *bridge.AppContext, name string, opts ...Option) require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		m, err := New(runtime, ac, name, opts...)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		exports := module.Get("exports").(*goja.Object)
		m.setupExports(exports)
	}
}

// Bindings tracks the modules loaded through a registry set up by Enable.
type Bindings struct {
	mu      sync.Mutex
	modules []*Module
}

// Enable registers every module of ac with registry under its module name.
// The same goroutine constraint as for Require applies; pass WithScheduler
// unless all events are sent from the runtime's goroutine.
func Enable(registry *require.Registry, ac *bridge.AppContext, opts ...Option) *Bindings {
	b := &Bindings{}
	opts = append(opts, withLoadHook(b.add))
	for _, name := range ac.ModuleNames() {
		registry.RegisterNativeModule(name, Require(ac, name, opts...))
	}
	return b
}

func (b *Bindings) add(m *Module) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modules = append(b.modules, m)
}

// Modules returns the modules loaded so far.
func (b *Bindings) Modules() []*Module {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Module(nil), b.modules...)
}

// Close closes every loaded module.
func (b *Bindings) Close(ctx context.Context) error {
	var errs []error
	for _, m := range b.Modules() {
		errs = append(errs, m.Close(ctx))
	}
	return errors.Join(errs...)
}
