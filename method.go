package bridge

import (
	"errors"
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// MethodDefinition is a native closure registered under a host-visible
// name. Any func shape is accepted through one reflective path: the
// parameters become the method's argument types, and at most two results
// are allowed (a value, an error, or both).
//
// An attached method takes the module instance as its first parameter;
// a detached method does not.
type MethodDefinition struct {
	name         string
	fn           reflect.Value
	receiver     reflect.Type
	argTypes     []*TypeDescriptor
	returnsValue bool
	returnsError bool
	err          error
}

// Kind implements Definition.
func (m *MethodDefinition) Kind() DefinitionKind { return DefinitionKindMethod }

func (m *MethodDefinition) definitionErr() error { return m.err }

// Name is the host-visible method name.
func (m *MethodDefinition) Name() string { return m.name }

// ArgTypes returns the descriptors of the host-supplied arguments.
func (m *MethodDefinition) ArgTypes() []*TypeDescriptor {
	out := make([]*TypeDescriptor, len(m.argTypes))
	copy(out, m.argTypes)
	return out
}

// Arity is the number of host-supplied arguments.
func (m *MethodDefinition) Arity() int { return len(m.argTypes) }

// Detached reports whether the method runs without a module instance.
func (m *MethodDefinition) Detached() bool { return m.receiver == nil }

// Receiver is the instance type an attached method expects, nil when
// detached.
func (m *MethodDefinition) Receiver() reflect.Type { return m.receiver }

func newMethodDefinition(name string, fn any, detached bool) *MethodDefinition {
	m := &MethodDefinition{name: name}
	if name == "" {
		m.err = fmt.Errorf("%w: method name is empty", ErrInvalidDefinition)
		return m
	}
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		m.err = fmt.Errorf("%w: method %q: expected a func, got %T", ErrInvalidDefinition, name, fn)
		return m
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		m.err = fmt.Errorf("%w: method %q: variadic funcs are not supported", ErrInvalidDefinition, name)
		return m
	}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			m.returnsError = true
		} else {
			m.returnsValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			m.err = fmt.Errorf("%w: method %q: second result must be error, got %s", ErrInvalidDefinition, name, ft.Out(1))
			return m
		}
		m.returnsValue = true
		m.returnsError = true
	default:
		m.err = fmt.Errorf("%w: method %q: at most two results are supported, got %d", ErrInvalidDefinition, name, ft.NumOut())
		return m
	}

	first := 0
	if !detached {
		if ft.NumIn() == 0 {
			m.err = fmt.Errorf("%w: method %q: attached methods take the module instance as first parameter", ErrInvalidDefinition, name)
			return m
		}
		m.receiver = ft.In(0)
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		td, err := TypeOf(ft.In(i))
		if err != nil {
			m.err = fmt.Errorf("%w: method %q parameter %d: %w", ErrInvalidDefinition, name, i-first, err)
			return m
		}
		m.argTypes = append(m.argTypes, td)
	}
	m.fn = fv
	return m
}

// newHookDefinition wraps a lifecycle or observer hook. Hooks take no
// host arguments: func() and func(M) are accepted, optionally returning
// an error.
func newHookDefinition(name string, fn any) *MethodDefinition {
	detached := true
	if ft := reflect.TypeOf(fn); ft != nil && ft.Kind() == reflect.Func && ft.NumIn() > 0 {
		detached = false
	}
	m := newMethodDefinition(name, fn, detached)
	if m.err == nil && len(m.argTypes) != 0 {
		m.err = fmt.Errorf("%w: hook %q must take at most the module instance, got %d extra parameter(s)", ErrInvalidDefinition, name, len(m.argTypes))
	}
	return m
}

// Invoke calls the closure with instance (ignored when detached) and the
// positional host args. Arity and coercion are validated before the
// closure runs. The result is converted with ToHost.
func (m *MethodDefinition) Invoke(instance any, args []any) (any, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(args) != len(m.argTypes) {
		return nil, &ArityError{Method: m.name, Expected: len(m.argTypes), Actual: len(args)}
	}

	in := make([]reflect.Value, 1, len(args)+1)
	for i, arg := range args {
		v, cerr := coerce(arg, m.argTypes[i], "")
		if cerr != nil {
			cerr.Index = i
			cerr.Method = m.name
			return nil, cerr
		}
		in = append(in, v)
	}
	if m.receiver == nil {
		return m.call(in[1:])
	}
	recv, err := m.receiverValue(instance)
	if err != nil {
		return nil, err
	}
	in[0] = recv
	return m.call(in)
}

func (m *MethodDefinition) receiverValue(instance any) (reflect.Value, error) {
	if instance == nil {
		return reflect.Value{}, fmt.Errorf("method %q: %w", m.name, ErrInstanceUnavailable)
	}
	rv := reflect.ValueOf(instance)
	if !rv.Type().AssignableTo(m.receiver) {
		return reflect.Value{}, fmt.Errorf("method %q: %w: have %s, want %s", m.name, ErrInstanceTypeMismatch, rv.Type(), m.receiver)
	}
	return rv, nil
}

func (m *MethodDefinition) call(in []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &NativeError{Method: m.name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	out := m.fn.Call(in)
	if m.returnsError {
		if errv := out[len(out)-1]; !errv.IsNil() {
			cause := errv.Interface().(error)
			var native *NativeError
			if errors.As(cause, &native) {
				return nil, cause
			}
			return nil, &NativeError{Method: m.name, Cause: cause}
		}
	}
	if m.returnsValue {
		return ToHost(out[0]), nil
	}
	return nil, nil
}
