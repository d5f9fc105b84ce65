package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label struct {
	text  string
	size  float64
	color *string
}

var errNegativeSize = errors.New("size must be positive")

func labelViewManager() *ViewManagerDefinition {
	return ViewManager(
		View(func() *label { return &label{} }),
		Prop("text", func(l *label, text string) { l.text = text }),
		Prop("size", func(l *label, size float64) error {
			if size < 0 {
				return errNegativeSize
			}
			l.size = size
			return nil
		}),
		Prop("color", func(l *label, color *string) { l.color = color }),
	)
}

func TestViewManager_CreateAndSetProps(t *testing.T) {
	vm := labelViewManager()
	require.NoError(t, vm.definitionErr())
	assert.True(t, vm.HasFactory())
	assert.Equal(t, []string{"text", "size", "color"}, vm.PropNames())

	view, err := vm.CreateView()
	require.NoError(t, err)
	l, ok := view.(*label)
	require.True(t, ok)

	require.NoError(t, vm.SetProp(l, "text", "hello"))
	require.NoError(t, vm.SetProp(l, "size", 12))
	require.NoError(t, vm.SetProp(l, "color", nil))
	assert.Equal(t, "hello", l.text)
	assert.Equal(t, 12.0, l.size)
	assert.Nil(t, l.color)
}

func TestViewManager_SetPropErrors(t *testing.T) {
	vm := labelViewManager()
	l := &label{}

	assert.ErrorIs(t, vm.SetProp(l, "missing", 1), ErrUnknownProp)
	assert.ErrorIs(t, vm.SetProp(l, "text", 1), ErrCoercion)
	assert.ErrorIs(t, vm.SetProp("not a label", "text", "x"), ErrInstanceTypeMismatch)
	assert.ErrorIs(t, vm.SetProp(nil, "text", "x"), ErrInstanceUnavailable)

	err := vm.SetProp(l, "size", -1)
	assert.ErrorIs(t, err, ErrNativeFailure)
	assert.ErrorIs(t, err, errNegativeSize)
}

func TestViewManager_Declarations(t *testing.T) {
	vm := ViewManager(Prop("a", func(*label, int) {}), Prop("a", func(*label, int) {}))
	assert.ErrorIs(t, vm.definitionErr(), ErrDuplicateDefinition)

	vm = ViewManager(Method("m", func(*label) {}))
	assert.ErrorIs(t, vm.definitionErr(), ErrInvalidDefinition)

	assert.ErrorIs(t, Prop("p", func(*label) {}).definitionErr(), ErrInvalidDefinition)
	assert.ErrorIs(t, Prop("p", func(*label, int) int { return 0 }).definitionErr(), ErrInvalidDefinition)
	assert.ErrorIs(t, fragmentErr(View(func(int) *label { return nil })), ErrInvalidDefinition)

	_, err := ViewManager().CreateView()
	assert.ErrorIs(t, err, ErrNoViewFactory)
}

func TestModuleDefinition_ImplicitViewManager(t *testing.T) {
	md, err := Build("Labels",
		View(func() *label { return &label{} }),
		Prop("text", func(l *label, text string) { l.text = text }),
	)
	require.NoError(t, err)
	vm := md.ViewManager()
	require.NotNil(t, vm)
	view, err := vm.CreateView()
	require.NoError(t, err)
	require.NoError(t, vm.SetProp(view, "text", "hi"))
	assert.Equal(t, "hi", view.(*label).text)
}

type labelModule struct{}

func (labelModule) Definition() []Definition {
	return []Definition{Name("Label"), labelViewManager()}
}

func TestModuleHolder_Views(t *testing.T) {
	ctx := context.Background()
	ac, _ := newTestAppContext(t)
	h, err := ac.RegisterModule(ctx, labelModule{})
	require.NoError(t, err)

	view, err := h.CreateView()
	require.NoError(t, err)
	require.NoError(t, h.SetViewProp(view, "text", "hi"))
	assert.Equal(t, "hi", view.(*label).text)
	assert.ErrorIs(t, h.SetViewProp(view, "missing", 1), ErrUnknownProp)

	plain, err := ac.RegisterModule(ctx, &counterModule{})
	require.NoError(t, err)
	_, err = plain.CreateView()
	assert.ErrorIs(t, err, ErrNoViewManager)
	assert.ErrorIs(t, plain.SetViewProp(nil, "text", "hi"), ErrNoViewManager)
}
