package bridge

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudEvent(t *testing.T) {
	event, err := NewCloudEvent(EventTypeModuleEvent, "Counter", "onChange", map[string]any{"value": 1})
	require.NoError(t, err)

	assert.Equal(t, EventTypeModuleEvent, event.Type())
	assert.Equal(t, "Counter", event.Source())
	assert.Equal(t, "onChange", event.Subject())
	assert.Equal(t, "1.0", event.SpecVersion())
	assert.False(t, event.Time().IsZero())
	require.NoError(t, ValidateCloudEvent(event))

	id, err := uuid.Parse(event.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	bare, err := NewCloudEvent(EventTypeLifecycle, "bridge", "", nil)
	require.NoError(t, err)
	assert.Empty(t, bare.Subject())
	assert.Empty(t, bare.Data())

	_, err = NewCloudEvent(EventTypeModuleEvent, "Counter", "onChange", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestValidateCloudEvent_MissingSource(t *testing.T) {
	event, err := NewCloudEvent(EventTypeModuleEvent, "", "onChange", nil)
	require.NoError(t, err)
	assert.Error(t, ValidateCloudEvent(event))
}

func TestDecodeModuleEvent(t *testing.T) {
	event, err := NewCloudEvent(EventTypeModuleEvent, "Clipboard", "onClipboardChanged", map[string]any{"content": "hi"})
	require.NoError(t, err)
	me, err := DecodeModuleEvent(event)
	require.NoError(t, err)
	assert.Equal(t, ModuleEvent{Module: "Clipboard", Event: "onClipboardChanged", Body: map[string]any{"content": "hi"}}, me)

	empty, err := NewCloudEvent(EventTypeModuleEvent, "Clipboard", "onClipboardChanged", nil)
	require.NoError(t, err)
	me, err = DecodeModuleEvent(empty)
	require.NoError(t, err)
	assert.Nil(t, me.Body)

	other, err := NewCloudEvent(EventTypeLifecycle, "bridge", "appEntersForeground", nil)
	require.NoError(t, err)
	_, err = DecodeModuleEvent(other)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestFunctionalObserver(t *testing.T) {
	var got []string
	obs := NewFunctionalObserver("fn", func(_ context.Context, e CloudEvent) error {
		got = append(got, e.Type())
		return nil
	})
	assert.Equal(t, "fn", obs.ObserverID())

	ac, _ := newTestAppContext(t)
	require.NoError(t, ac.RegisterObserver(obs, EventTypeLifecycle))
	require.NoError(t, ac.EnterForeground(context.Background()))
	assert.Equal(t, []string{EventTypeLifecycle}, got)

	infos := ac.GetObservers()
	require.Len(t, infos, 1)
	assert.Equal(t, []string{EventTypeLifecycle}, infos[0].EventTypes)
}

func TestAppContext_ObservingChangedEvents(t *testing.T) {
	ctx := context.Background()
	ac, _ := newTestAppContext(t)
	rec := &eventRecorder{id: "observing"}
	require.NoError(t, ac.RegisterObserver(rec, EventTypeObservingChanged, EventTypeModuleDestroyed))
	_, err := ac.RegisterModule(ctx, &counterModule{})
	require.NoError(t, err)

	require.NoError(t, ac.NotifyObserversChanged(ctx, "Counter", "onChange", 1))
	require.NoError(t, ac.NotifyObserversChanged(ctx, "Counter", "onChange", -1))
	require.NoError(t, ac.Destroy(ctx))

	changes := rec.ofType(EventTypeObservingChanged)
	require.Len(t, changes, 2)
	var body map[string]any
	require.NoError(t, changes[0].DataAs(&body))
	assert.Equal(t, true, body["observing"])
	assert.Equal(t, "onChange", changes[0].Subject())
	assert.Len(t, rec.ofType(EventTypeModuleDestroyed), 1)
}
