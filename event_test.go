package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watcher struct {
	calls []string
}

func TestEvent_LastObserverDefinitionWins(t *testing.T) {
	ev := Event("onChange",
		StopObserving(func(w *watcher) { w.calls = append(w.calls, "stop A") }),
		StartObserving(func(w *watcher) { w.calls = append(w.calls, "start X") }),
		StartObserving(func(w *watcher) { w.calls = append(w.calls, "start Y") }),
	)
	require.NoError(t, ev.definitionErr())
	assert.True(t, ev.HasStartObserving())
	assert.True(t, ev.HasStopObserving())

	w := &watcher{}
	require.NoError(t, ev.NotifyStartObserving(w))
	require.NoError(t, ev.NotifyStopObserving(w))
	assert.Equal(t, []string{"start Y", "stop A"}, w.calls)
}

func TestEvent_IgnoresUnrelatedFragments(t *testing.T) {
	ev := Event("onChange",
		Name("ignored"),
		Method("helper", func(w *watcher) {}),
		Constants(map[string]any{"a": 1}),
	)
	require.NoError(t, ev.definitionErr())
	assert.False(t, ev.HasStartObserving())
	assert.False(t, ev.HasStopObserving())

	assert.NoError(t, ev.NotifyStartObserving(&watcher{}))
	assert.NoError(t, ev.NotifyStopObserving(nil))
}

func TestEvent_InvalidDeclarations(t *testing.T) {
	assert.ErrorIs(t, Event("").definitionErr(), ErrInvalidDefinition)
	assert.ErrorIs(t, Event("e", StartObserving(42)).definitionErr(), ErrInvalidDefinition)
	assert.ErrorIs(t, Event("e", Method("startObserving", func(w *watcher, n int) {})).definitionErr(), ErrInvalidDefinition)
}

func TestObservingState_String(t *testing.T) {
	assert.Equal(t, "notObserving", NotObserving.String())
	assert.Equal(t, "observing", Observing.String())
}
