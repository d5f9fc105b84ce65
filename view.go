package bridge

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

type viewFactoryDefinition struct {
	factory *MethodDefinition
}

func (viewFactoryDefinition) Kind() DefinitionKind { return DefinitionKindView }

func (v viewFactoryDefinition) definitionErr() error { return v.factory.err }

// View declares the factory creating native views for the module's view
// manager. factory takes no parameters and returns the view, optionally
// with an error.
func View(factory any) Definition {
	m := newMethodDefinition("view", factory, true)
	if m.err == nil && (m.Arity() != 0 || !m.returnsValue) {
		m.err = fmt.Errorf("%w: view factory must take no parameters and return a view", ErrInvalidDefinition)
	}
	return viewFactoryDefinition{factory: m}
}

// PropDefinition is a named view property with a setter func(V, P),
// optionally returning an error. Host values are coerced to P.
type PropDefinition struct {
	name      string
	setter    reflect.Value
	viewType  reflect.Type
	valueType *TypeDescriptor
	returnErr bool
	err       error
}

// Prop declares a view property.
func Prop(name string, setter any) *PropDefinition {
	p := &PropDefinition{name: name}
	if name == "" {
		p.err = fmt.Errorf("%w: prop name is empty", ErrInvalidDefinition)
		return p
	}
	sv := reflect.ValueOf(setter)
	if !sv.IsValid() || sv.Kind() != reflect.Func || sv.IsNil() {
		p.err = fmt.Errorf("%w: prop %q: expected a func, got %T", ErrInvalidDefinition, name, setter)
		return p
	}
	st := sv.Type()
	if st.NumIn() != 2 || st.IsVariadic() {
		p.err = fmt.Errorf("%w: prop %q: setter must take (view, value)", ErrInvalidDefinition, name)
		return p
	}
	switch {
	case st.NumOut() == 0:
	case st.NumOut() == 1 && st.Out(0) == errorType:
		p.returnErr = true
	default:
		p.err = fmt.Errorf("%w: prop %q: setter may only return an error", ErrInvalidDefinition, name)
		return p
	}
	td, err := TypeOf(st.In(1))
	if err != nil {
		p.err = fmt.Errorf("%w: prop %q: %w", ErrInvalidDefinition, name, err)
		return p
	}
	p.setter = sv
	p.viewType = st.In(0)
	p.valueType = td
	return p
}

// Kind implements Definition.
func (p *PropDefinition) Kind() DefinitionKind { return DefinitionKindProp }

func (p *PropDefinition) definitionErr() error { return p.err }

// Name is the prop name.
func (p *PropDefinition) Name() string { return p.name }

// ValueType describes the values the prop accepts.
func (p *PropDefinition) ValueType() *TypeDescriptor { return p.valueType }

func (p *PropDefinition) set(view any, value any) (err error) {
	if view == nil {
		return fmt.Errorf("prop %q: %w", p.name, ErrInstanceUnavailable)
	}
	vv := reflect.ValueOf(view)
	if !vv.Type().AssignableTo(p.viewType) {
		return fmt.Errorf("prop %q: %w: have %s, want %s", p.name, ErrInstanceTypeMismatch, vv.Type(), p.viewType)
	}
	arg, cerr := coerce(value, p.valueType, "")
	if cerr != nil {
		cerr.Index = -1
		cerr.Method = p.name
		return cerr
	}
	defer func() {
		if r := recover(); r != nil {
			err = &NativeError{Method: p.name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	out := p.setter.Call([]reflect.Value{vv, arg})
	if p.returnErr && !out[0].IsNil() {
		return &NativeError{Method: p.name, Cause: out[0].Interface().(error)}
	}
	return nil
}

// ViewManagerDefinition groups a module's view factory and props.
type ViewManagerDefinition struct {
	factory   *MethodDefinition
	props     []*PropDefinition
	propIndex map[string]*PropDefinition
	err       error
}

// ViewManager declares a view manager from View and Prop fragments.
func ViewManager(defs ...Definition) *ViewManagerDefinition {
	vm := &ViewManagerDefinition{propIndex: make(map[string]*PropDefinition)}
	vm.err = vm.add(defs...)
	return vm
}

func (vm *ViewManagerDefinition) add(defs ...Definition) error {
	var errs []error
	for _, d := range defs {
		if err := fragmentErr(d); err != nil {
			errs = append(errs, err)
			continue
		}
		switch def := d.(type) {
		case viewFactoryDefinition:
			vm.factory = def.factory
		case *PropDefinition:
			if _, dup := vm.propIndex[def.name]; dup {
				errs = append(errs, &DuplicateDefinitionError{Kind: "prop", Name: def.name})
				continue
			}
			vm.propIndex[def.name] = def
			vm.props = append(vm.props, def)
		default:
			errs = append(errs, fmt.Errorf("%w: %s fragment is not allowed in a view manager", ErrInvalidDefinition, d.Kind()))
		}
	}
	return errors.Join(errs...)
}

// Kind implements Definition.
func (vm *ViewManagerDefinition) Kind() DefinitionKind { return DefinitionKindViewManager }

func (vm *ViewManagerDefinition) definitionErr() error { return vm.err }

// HasFactory reports whether a view factory was declared.
func (vm *ViewManagerDefinition) HasFactory() bool { return vm.factory != nil }

// CreateView calls the view factory.
func (vm *ViewManagerDefinition) CreateView() (view any, err error) {
	if vm.factory == nil {
		return nil, ErrNoViewFactory
	}
	defer func() {
		if r := recover(); r != nil {
			view = nil
			err = &NativeError{Method: "view", Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	out := vm.factory.fn.Call(nil)
	if vm.factory.returnsError && !out[1].IsNil() {
		return nil, &NativeError{Method: "view", Cause: out[1].Interface().(error)}
	}
	return out[0].Interface(), nil
}

// SetProp coerces value and applies the named prop to view.
func (vm *ViewManagerDefinition) SetProp(view any, name string, value any) error {
	p, ok := vm.propIndex[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProp, name)
	}
	return p.set(view, value)
}

// PropNames lists the props in declaration order.
func (vm *ViewManagerDefinition) PropNames() []string {
	names := make([]string, 0, len(vm.props))
	for _, p := range vm.props {
		names = append(names, p.name)
	}
	return slices.Clip(names)
}

// Prop returns the named prop definition.
func (vm *ViewManagerDefinition) Prop(name string) (*PropDefinition, bool) {
	p, ok := vm.propIndex[name]
	return p, ok
}
