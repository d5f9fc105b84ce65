package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"foreground", AppEntersForeground},
		{"active", AppBecomesActive},
		{"background", AppEntersBackground},
		{"moduleCreate", ModuleCreate},
		{"appContextDestroys", AppContextDestroys},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("suspend")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDispatcher_RunsHooksInRegistrationOrder(t *testing.T) {
	store := NewStore(0)
	d := NewDispatcher("Clipboard", store)

	var calls []string
	require.NoError(t, d.Register(AppEntersForeground, "first", func(context.Context) error {
		calls = append(calls, "first")
		return nil
	}))
	require.NoError(t, d.Register(AppEntersForeground, "second", func(context.Context) error {
		calls = append(calls, "second")
		return nil
	}))
	assert.Equal(t, 2, d.HookCount(AppEntersForeground))

	event, err := d.Dispatch(context.Background(), AppEntersForeground)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, EventStatusCompleted, event.Status)
	assert.Equal(t, 2, event.Hooks)
	assert.Equal(t, "Clipboard", event.Source)
	assert.NotEmpty(t, event.ID)

	stored, err := store.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, AppEntersForeground, stored.Kind)
}

func TestDispatcher_JoinsHookErrors(t *testing.T) {
	d := NewDispatcher("m", nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := 0
	require.NoError(t, d.Register(ModuleDestroy, "a", func(context.Context) error { ran++; return errA }))
	require.NoError(t, d.Register(ModuleDestroy, "b", func(context.Context) error { ran++; return errB }))

	event, err := d.Dispatch(context.Background(), ModuleDestroy)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 2, ran)
	assert.Equal(t, EventStatusFailed, event.Status)
	assert.Contains(t, event.Error, "a failed")
}

func TestDispatcher_StopsOnCancelledContext(t *testing.T) {
	d := NewDispatcher("m", nil)
	ran := false
	require.NoError(t, d.Register(AppBecomesActive, "hook", func(context.Context) error { ran = true; return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, AppBecomesActive)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestDispatcher_RegisterValidation(t *testing.T) {
	d := NewDispatcher("m", nil)
	assert.ErrorIs(t, d.Register(Kind("bogus"), "x", func(context.Context) error { return nil }), ErrUnknownKind)
	assert.ErrorIs(t, d.Register(ModuleCreate, "x", nil), ErrHookCannotBeNil)

	event, err := d.Dispatch(context.Background(), ModuleCreate)
	require.NoError(t, err)
	assert.Equal(t, EventStatusSkipped, event.Status)
}

func TestStore_EvictsOldestAndQueries(t *testing.T) {
	ctx := context.Background()
	store := NewStore(3)
	base := time.Now()
	for i, kind := range []Kind{ModuleCreate, AppEntersForeground, AppEntersBackground, ModuleDestroy} {
		require.NoError(t, store.Store(ctx, &Event{
			ID:        string(kind),
			Kind:      kind,
			Source:    "m",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Status:    EventStatusCompleted,
		}))
	}
	assert.Equal(t, 3, store.Len())

	_, err := store.Get(ctx, string(ModuleCreate))
	assert.ErrorIs(t, err, ErrEventNotFound)

	events, err := store.Query(ctx, &QueryCriteria{Kinds: []Kind{AppEntersBackground, ModuleDestroy}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, AppEntersBackground, events[0].Kind)

	limited, err := store.Query(ctx, &QueryCriteria{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ModuleDestroy, limited[0].Kind)

	history, err := store.GetEventHistory(ctx, "m", base.Add(2*time.Second))
	require.NoError(t, err)
	assert.Len(t, history, 2)

	assert.ErrorIs(t, store.Store(ctx, nil), ErrEventCannotBeNil)
}
