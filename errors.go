package bridge

import (
	"errors"
	"fmt"
)

// Bridge errors
var (
	// Declaration errors
	ErrInvalidDefinition   = errors.New("invalid definition")
	ErrDuplicateDefinition = errors.New("duplicate definition")
	ErrModuleNameEmpty     = errors.New("module name is empty")
	ErrModuleNil           = errors.New("module is nil")
	ErrUnsupportedType     = errors.New("unsupported native type")

	// Invocation errors
	ErrCoercion             = errors.New("argument coercion failed")
	ErrArity                = errors.New("argument count mismatch")
	ErrUnknownMethod        = errors.New("unknown method")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrInstanceUnavailable  = errors.New("module instance unavailable")
	ErrInstanceTypeMismatch = errors.New("module instance does not match method receiver")
	ErrNativeFailure        = errors.New("native failure")
	ErrInvalidListenerDelta = errors.New("listener count cannot become negative")

	ErrObservingInTransition = errors.New("observing transition already in progress")

	// App context errors
	ErrModuleAlreadyRegistered = errors.New("module already registered")
	ErrModuleNotFound          = errors.New("module not found")
	ErrAppContextDestroyed     = errors.New("app context destroyed")
	ErrNoEventSender           = errors.New("module is not bound to an event sender")
	ErrLifecycleHooksFailed    = errors.New("lifecycle hooks failed")
	ErrLifecycleNotBroadcast   = errors.New("lifecycle kind cannot be broadcast by the host")

	// View errors
	ErrNoViewManager = errors.New("module does not define a view manager")
	ErrNoViewFactory = errors.New("view manager does not define a view factory")
	ErrUnknownProp   = errors.New("unknown view prop")

	// Config errors
	ErrConfigNotPointer         = errors.New("config must be a non-nil pointer to a struct")
	ErrConfigFeedFailed         = errors.New("config feed failed")
	ErrDefaultValueParseFailure = errors.New("failed to parse default value")
)

// Error kinds reported to hosts and metrics.
const (
	ErrorKindNone                = ""
	ErrorKindCoercion            = "coercion"
	ErrorKindArity               = "arity"
	ErrorKindUnknownMethod       = "unknown_method"
	ErrorKindUnknownEvent        = "unknown_event"
	ErrorKindModuleNotFound      = "module_not_found"
	ErrorKindInstanceUnavailable = "instance_unavailable"
	ErrorKindDuplicateDefinition = "duplicate_definition"
	ErrorKindInvalidDefinition   = "invalid_definition"
	ErrorKindListenerDelta       = "invalid_listener_delta"
	ErrorKindObservingBusy       = "observing_in_transition"
	ErrorKindNative              = "native"
	ErrorKindCanceled            = "canceled"
	ErrorKindInternal            = "internal"
)

// ErrorKind classifies err into one of the ErrorKind constants. A nil error
// yields ErrorKindNone.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrCoercion):
		return ErrorKindCoercion
	case errors.Is(err, ErrArity):
		return ErrorKindArity
	case errors.Is(err, ErrUnknownMethod):
		return ErrorKindUnknownMethod
	case errors.Is(err, ErrUnknownEvent):
		return ErrorKindUnknownEvent
	case errors.Is(err, ErrModuleNotFound):
		return ErrorKindModuleNotFound
	case errors.Is(err, ErrInstanceUnavailable), errors.Is(err, ErrAppContextDestroyed):
		return ErrorKindInstanceUnavailable
	case errors.Is(err, ErrDuplicateDefinition), errors.Is(err, ErrModuleAlreadyRegistered):
		return ErrorKindDuplicateDefinition
	case errors.Is(err, ErrInvalidDefinition), errors.Is(err, ErrModuleNameEmpty):
		return ErrorKindInvalidDefinition
	case errors.Is(err, ErrInvalidListenerDelta):
		return ErrorKindListenerDelta
	case errors.Is(err, ErrObservingInTransition):
		return ErrorKindObservingBusy
	case errors.Is(err, ErrNativeFailure):
		return ErrorKindNative
	case errors.Is(err, errContextDone):
		return ErrorKindCanceled
	default:
		return ErrorKindInternal
	}
}

// CoercionError reports a host value that could not be converted to the
// native type a method parameter, record field or prop expects.
type CoercionError struct {
	// Method is the method being invoked, empty outside a method call.
	Method string
	// Index is the positional argument index, -1 outside a method call.
	Index int
	// Path locates the failing value inside the argument, e.g. "[2].name".
	Path     string
	Expected string
	Actual   string
}

func (e *CoercionError) Error() string {
	loc := "value"
	if e.Index >= 0 {
		loc = fmt.Sprintf("argument %d", e.Index)
	}
	if e.Path != "" {
		loc += " at " + e.Path
	}
	if e.Method != "" {
		return fmt.Sprintf("%s: method %q: %s: expected %s, got %s", ErrCoercion, e.Method, loc, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s: expected %s, got %s", ErrCoercion, loc, e.Expected, e.Actual)
}

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

// ArityError reports a call whose argument count differs from the
// declared parameter count.
type ArityError struct {
	Module   string
	Method   string
	Expected int
	Actual   int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: %s expects %d argument(s), got %d", ErrArity, qualified(e.Module, e.Method), e.Expected, e.Actual)
}

func (e *ArityError) Is(target error) bool { return target == ErrArity }

// UnknownMethodError reports a method name missing from a module definition.
type UnknownMethodError struct {
	Module string
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownMethod, qualified(e.Module, e.Method))
}

func (e *UnknownMethodError) Is(target error) bool { return target == ErrUnknownMethod }

// UnknownEventError reports an event name missing from a module definition.
type UnknownEventError struct {
	Module string
	Event  string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownEvent, qualified(e.Module, e.Event))
}

func (e *UnknownEventError) Is(target error) bool { return target == ErrUnknownEvent }

// DuplicateDefinitionError reports two declarations sharing a name within
// one module.
type DuplicateDefinitionError struct {
	Module string
	// Kind is the kind of declaration: "method", "event", "prop" or "viewManager".
	Kind string
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("%s: %s %q declared more than once in module %q", ErrDuplicateDefinition, e.Kind, e.Name, e.Module)
}

func (e *DuplicateDefinitionError) Is(target error) bool { return target == ErrDuplicateDefinition }

// NativeError wraps a failure returned (or panicked) by a native closure.
type NativeError struct {
	Module string
	Method string
	Cause  error
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNativeFailure, qualified(e.Module, e.Method), e.Cause)
}

func (e *NativeError) Is(target error) bool { return target == ErrNativeFailure }

func (e *NativeError) Unwrap() error { return e.Cause }

// errContextDone marks invocations rejected because their context ended.
var errContextDone = errors.New("context done")

func contextError(err error) error {
	return fmt.Errorf("%w: %w", errContextDone, err)
}

// annotateModule fills in the module name on structured invocation errors.
func annotateModule(err error, module string) {
	var arity *ArityError
	if errors.As(err, &arity) && arity.Module == "" {
		arity.Module = module
	}
	var native *NativeError
	if errors.As(err, &native) && native.Module == "" {
		native.Module = module
	}
}

func qualified(module, name string) string {
	if module == "" {
		return fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("%s.%s", module, name)
}
