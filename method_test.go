package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calc struct {
	calls int
}

var errDivideByZero = errors.New("divide by zero")

func TestMethodDefinition_InvokeReturnsClosureResult(t *testing.T) {
	m := Method("sum", func(c *calc, a int, b float64) float64 {
		c.calls++
		return float64(a) + b
	})
	require.NoError(t, m.definitionErr())
	assert.Equal(t, 2, m.Arity())
	assert.False(t, m.Detached())

	c := &calc{}
	out, err := m.Invoke(c, []any{int64(2), 0.5})
	require.NoError(t, err)
	assert.Equal(t, 2.5, out)
	assert.Equal(t, 1, c.calls)
}

func TestMethodDefinition_ArityMismatchDoesNotCall(t *testing.T) {
	called := false
	m := Method("two", func(c *calc, a, b string) { called = true })

	_, err := m.Invoke(&calc{}, []any{"only one"})
	var arity *ArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 2, arity.Expected)
	assert.Equal(t, 1, arity.Actual)
	assert.False(t, called)
}

func TestMethodDefinition_ReportsFirstCoercionFailure(t *testing.T) {
	called := false
	m := Method("three", func(c *calc, a int, b string, d bool) { called = true })

	_, err := m.Invoke(&calc{}, []any{1, 2, "not a bool"})
	var cerr *CoercionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.Index)
	assert.Equal(t, "three", cerr.Method)
	assert.False(t, called)
}

func TestMethodDefinition_ZeroArity(t *testing.T) {
	m := DetachedMethod("now", func() string { return "tick" })
	assert.True(t, m.Detached())
	assert.Equal(t, 0, m.Arity())

	out, err := m.Invoke(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "tick", out)

	_, err = m.Invoke(nil, []any{1})
	assert.ErrorIs(t, err, ErrArity)
}

func TestMethodDefinition_NativeErrors(t *testing.T) {
	div := Method("div", func(c *calc, a, b int) (int, error) {
		if b == 0 {
			return 0, errDivideByZero
		}
		return a / b, nil
	})
	out, err := div.Invoke(&calc{}, []any{6, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out)

	_, err = div.Invoke(&calc{}, []any{1, 0})
	var native *NativeError
	require.ErrorAs(t, err, &native)
	assert.ErrorIs(t, err, errDivideByZero)
	assert.Equal(t, "div", native.Method)

	boom := DetachedMethod("boom", func() { panic("kaboom") })
	_, err = boom.Invoke(nil, nil)
	require.ErrorAs(t, err, &native)
	assert.Contains(t, native.Cause.Error(), "kaboom")
}

func TestMethodDefinition_InstanceChecks(t *testing.T) {
	called := false
	m := Method("touch", func(c *calc) { called = true })

	_, err := m.Invoke(nil, nil)
	assert.ErrorIs(t, err, ErrInstanceUnavailable)

	_, err = m.Invoke("not a calc", nil)
	assert.ErrorIs(t, err, ErrInstanceTypeMismatch)
	assert.False(t, called)
}

func TestMethodDefinition_InvalidDeclarations(t *testing.T) {
	tests := []struct {
		name string
		def  *MethodDefinition
	}{
		{"not a func", Method("x", 42)},
		{"nil func", Method("x", (func(*calc))(nil))},
		{"empty name", Method("", func(*calc) {})},
		{"variadic", Method("x", func(c *calc, xs ...int) {})},
		{"three results", Method("x", func(*calc) (int, int, error) { return 0, 0, nil })},
		{"second result not error", Method("x", func(*calc) (int, int) { return 0, 0 })},
		{"attached without receiver", Method("x", func() {})},
		{"unsupported param", Method("x", func(c *calc, ch chan int) {})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.def.definitionErr(), ErrInvalidDefinition)
			_, err := tt.def.Invoke(&calc{}, nil)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestHookDefinitions(t *testing.T) {
	assert.NoError(t, StartObserving(func() {}).definitionErr())
	assert.NoError(t, StartObserving(func(*calc) error { return nil }).definitionErr())
	assert.ErrorIs(t, StartObserving(func(*calc, int) {}).definitionErr(), ErrInvalidDefinition)
	assert.ErrorIs(t, fragmentErr(OnCreate("nope")), ErrInvalidDefinition)
}
