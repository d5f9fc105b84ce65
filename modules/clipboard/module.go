// Package clipboard is a bridge module giving scripts read and write
// access to a clipboard, plus change notifications while anyone listens.
package clipboard

import (
	"sync"

	"github.com/GoCodeAlone/bridge"
)

const (
	ModuleName            = "Clipboard"
	EventClipboardChanged = "onClipboardChanged"
)

// Module is the clipboard bridge module.
type Module struct {
	bridge.BaseModule

	backend Backend
	logger  bridge.Logger

	mu        sync.Mutex
	stopWatch func() error
}

// New creates the module. A nil logger discards everything.
func New(backend Backend, logger bridge.Logger) *Module {
	if logger == nil {
		logger = bridge.NopLogger{}
	}
	return &Module{backend: backend, logger: logger}
}

func (m *Module) Definition() []bridge.Definition {
	return []bridge.Definition{
		bridge.Name(ModuleName),

		bridge.Method("getStringAsync", func(m *Module) (string, error) {
			return m.backend.GetText()
		}),
		bridge.Method("setStringAsync", func(m *Module, content *string) error {
			text := ""
			if content != nil {
				text = *content
			}
			return m.backend.SetText(text)
		}),

		bridge.Events(EventClipboardChanged),
		bridge.Event(EventClipboardChanged,
			bridge.StartObserving(func(m *Module) error { return m.startWatching() }),
			bridge.StopObserving(func(m *Module) error { return m.stopWatching() }),
		),

		bridge.OnDestroy(func(m *Module) error { return m.stopWatching() }),
	}
}

// Watching reports whether the backend is being watched.
func (m *Module) Watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopWatch != nil
}

// startWatching replaces any running watch.
func (m *Module) startWatching() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopWatch != nil {
		_ = m.stopWatch()
		m.stopWatch = nil
	}
	stop, err := m.backend.Watch(m.clipboardChanged)
	if err != nil {
		return err
	}
	m.stopWatch = stop
	m.logger.Debug("Watching clipboard")
	return nil
}

func (m *Module) stopWatching() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopWatch == nil {
		return nil
	}
	err := m.stopWatch()
	m.stopWatch = nil
	m.logger.Debug("Stopped watching clipboard")
	return err
}

func (m *Module) clipboardChanged(text string) {
	if err := m.SendEvent(EventClipboardChanged, map[string]any{"content": text}); err != nil {
		m.logger.Warn("Dropping clipboard change", "error", err)
	}
}
