package clipboard

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/bridge"
)

// changeRecorder collects clipboard change events.
type changeRecorder struct {
	mu       sync.Mutex
	contents []string
}

func (r *changeRecorder) ObserverID() string { return "clipboard-test" }

func (r *changeRecorder) OnEvent(_ context.Context, event bridge.CloudEvent) error {
	me, err := bridge.DecodeModuleEvent(event)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents = append(r.contents, me.Body["content"].(string))
	return nil
}

func (r *changeRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.contents...)
}

func setup(t *testing.T, backend Backend) (*bridge.AppContext, *Module, *changeRecorder) {
	t.Helper()
	ac, err := bridge.NewAppContext()
	require.NoError(t, err)
	m := New(backend, nil)
	_, err = ac.RegisterModule(context.Background(), m)
	require.NoError(t, err)
	rec := &changeRecorder{}
	require.NoError(t, ac.RegisterObserver(rec, bridge.EventTypeModuleEvent))
	return ac, m, rec
}

func TestClipboard_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ac, _, _ := setup(t, NewMemoryBackend())

	_, err := ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{"hello"})
	require.NoError(t, err)
	text, err := ac.InvokeMethod(ctx, ModuleName, "getStringAsync", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{nil})
	require.NoError(t, err)
	text, err = ac.InvokeMethod(ctx, ModuleName, "getStringAsync", nil)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	_, err = ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{12})
	assert.ErrorIs(t, err, bridge.ErrCoercion)
}

func TestClipboard_ChangesOnlyWhileObserved(t *testing.T) {
	ctx := context.Background()
	ac, m, rec := setup(t, NewMemoryBackend())

	_, err := ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{"unobserved"})
	require.NoError(t, err)
	assert.Empty(t, rec.seen())

	require.NoError(t, ac.NotifyObserversChanged(ctx, ModuleName, EventClipboardChanged, 1))
	assert.True(t, m.Watching())
	_, err = ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{"observed"})
	require.NoError(t, err)
	_, err = ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{"observed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"observed"}, rec.seen())

	require.NoError(t, ac.NotifyObserversChanged(ctx, ModuleName, EventClipboardChanged, -1))
	assert.False(t, m.Watching())
	_, err = ac.InvokeMethod(ctx, ModuleName, "setStringAsync", []any{"later"})
	require.NoError(t, err)
	assert.Equal(t, []string{"observed"}, rec.seen())
}

func TestClipboard_DestroyStopsWatching(t *testing.T) {
	ctx := context.Background()
	ac, m, _ := setup(t, NewMemoryBackend())
	require.NoError(t, ac.NotifyObserversChanged(ctx, ModuleName, EventClipboardChanged, 1))
	require.NoError(t, ac.Destroy(ctx))
	assert.False(t, m.Watching())

	_, err := ac.InvokeMethod(ctx, ModuleName, "getStringAsync", nil)
	assert.ErrorIs(t, err, bridge.ErrInstanceUnavailable)
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clipboard.txt")
	b := NewFileBackend(path)

	text, err := b.GetText()
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, b.SetText("from file"))
	text, err = b.GetText()
	require.NoError(t, err)
	assert.Equal(t, "from file", text)

	changes := make(chan string, 16)
	stop, err := b.Watch(func(s string) {
		select {
		case changes <- s:
		default:
		}
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("external"), 0o600))
	// A truncating write may be observed half way, so wait for the final contents.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-changes:
			if got == "external" {
				return
			}
		case <-timeout:
			t.Fatal("no change notification")
		}
	}
}

func TestPollingBackend_Check(t *testing.T) {
	inner := NewMemoryBackend()
	require.NoError(t, inner.SetText("a"))
	b := NewPollingBackend(inner, time.Hour)

	var got []string
	p, err := b.newPoller(func(s string) { got = append(got, s) })
	require.NoError(t, err)
	p.check()
	assert.Empty(t, got)

	require.NoError(t, b.SetText("b"))
	p.check()
	p.check()
	assert.Equal(t, []string{"b"}, got)
}

func TestPollingBackend_Watch(t *testing.T) {
	b := NewPollingBackend(NewMemoryBackend(), time.Second)
	changes := make(chan string, 1)
	stop, err := b.Watch(func(s string) { changes <- s })
	require.NoError(t, err)
	defer func() { assert.NoError(t, stop()) }()

	require.NoError(t, b.SetText("polled"))
	select {
	case got := <-changes:
		assert.Equal(t, "polled", got)
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not report the change")
	}
}

func TestNewBackend(t *testing.T) {
	cfg := Config{Backend: BackendMemory}
	b, err := NewBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = NewBackend(Config{Backend: BackendFile, Path: "clip.txt"})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = NewBackend(Config{Backend: BackendPolling, Path: "clip.txt", PollInterval: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &PollingBackend{}, b)

	_, err = NewBackend(Config{Backend: BackendFile})
	assert.ErrorIs(t, err, ErrPathRequired)
	_, err = NewBackend(Config{Backend: "x11"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
	_, err = NewBackend(Config{Backend: BackendPolling, Path: "clip.txt"})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, bridge.ApplyConfigDefaults(&cfg))
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.NoError(t, bridge.ValidateConfig(&cfg))
}
