package clipboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Backend is the platform clipboard.
type Backend interface {
	GetText() (string, error)
	SetText(text string) error
	// Watch calls onChange with the new contents whenever the clipboard
	// changes until the returned stop func is called.
	Watch(onChange func(text string)) (stop func() error, err error)
}

// MemoryBackend is an in-process clipboard.
type MemoryBackend struct {
	mu       sync.Mutex
	text     string
	nextID   int
	watchers map[int]func(string)
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{watchers: make(map[int]func(string))}
}

func (b *MemoryBackend) GetText() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, nil
}

// SetText stores text and notifies watchers when it changed.
func (b *MemoryBackend) SetText(text string) error {
	b.mu.Lock()
	changed := b.text != text
	b.text = text
	var notify []func(string)
	if changed {
		for _, fn := range b.watchers {
			notify = append(notify, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range notify {
		fn(text)
	}
	return nil
}

func (b *MemoryBackend) Watch(onChange func(string)) (func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = onChange
	return func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
		return nil
	}, nil
}

// FileBackend keeps the clipboard in a file, so other processes can share
// it. Changes are picked up with fsnotify.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: filepath.Clean(path)}
}

// Path is the clipboard file.
func (b *FileBackend) Path() string { return b.path }

// GetText returns the file contents; a missing file is an empty clipboard.
func (b *FileBackend) GetText() (string, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("clipboard: read %s: %w", b.path, err)
	}
	return string(data), nil
}

func (b *FileBackend) SetText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := os.WriteFile(b.path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("clipboard: write %s: %w", b.path, err)
	}
	return nil
}

// Watch watches the file's directory so replaced files are noticed too.
func (b *FileBackend) Watch(onChange func(string)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("clipboard: %w", err)
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("clipboard: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("clipboard: watch %s: %w", dir, err)
	}

	last, _ := b.GetText()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != b.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
					continue
				}
				text, err := b.GetText()
				if err != nil || text == last {
					continue
				}
				last = text
				onChange(text)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	var closeErr error
	return func() error {
		once.Do(func() {
			closeErr = watcher.Close()
			<-done
		})
		return closeErr
	}, nil
}
