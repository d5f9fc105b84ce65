package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger keeps every log call for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

// eventRecorder is an Observer collecting every CloudEvent it receives.
type eventRecorder struct {
	id     string
	mu     sync.Mutex
	events []cloudevents.Event
}

func (r *eventRecorder) OnEvent(_ context.Context, event cloudevents.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ObserverID() string { return r.id }

func (r *eventRecorder) ofType(eventType string) []cloudevents.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []cloudevents.Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

var errCounterExploded = errors.New("counter exploded")

// counterModule is a small module exercising every declaration kind.
type counterModule struct {
	BaseModule

	mu    sync.Mutex
	count int
	calls []string
}

func (c *counterModule) log(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *counterModule) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *counterModule) Definition() []Definition {
	return []Definition{
		Name("Counter"),
		Constants(map[string]any{"step": 1}),
		Method("add", func(c *counterModule, n int) int {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.count += n
			c.calls = append(c.calls, fmt.Sprintf("add(%d)", n))
			return c.count
		}),
		Method("fail", func(c *counterModule) error {
			return errCounterExploded
		}),
		DetachedMethod("version", func() string { return "1.0" }),
		DetachedMethod("scale", func(x float64) float64 { return x * 2 }),
		Event("onChange",
			StartObserving(func(c *counterModule) { c.log("start") }),
			StopObserving(func(c *counterModule) { c.log("stop") }),
		),
		Events("onReset"),
		OnCreate(func(c *counterModule) { c.log("create") }),
		OnDestroy(func(c *counterModule) { c.log("destroy") }),
		OnAppContextDestroys(func(c *counterModule) { c.log("appContextDestroys") }),
		OnAppEntersForeground(func(c *counterModule) { c.log("foreground") }),
		OnAppBecomesActive(func(c *counterModule) { c.log("active") }),
		OnAppEntersBackground(func(c *counterModule) { c.log("background") }),
	}
}

func newTestAppContext(t *testing.T, opts ...Option) (*AppContext, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	ac, err := NewAppContext(append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return ac, logger
}
