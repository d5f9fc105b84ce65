package bridge

import (
	"fmt"
	"reflect"
	"strings"
)

// TypeKind is the host-facing shape of a native parameter type.
type TypeKind int

const (
	TypeAny TypeKind = iota
	TypeBool
	TypeInt
	TypeUint
	TypeFloat
	TypeString
	TypeArray
	TypeMap
	TypeRecord
)

var typeKindNames = map[TypeKind]string{
	TypeAny:    "any",
	TypeBool:   "boolean",
	TypeInt:    "integer",
	TypeUint:   "unsigned integer",
	TypeFloat:  "number",
	TypeString: "string",
	TypeArray:  "array",
	TypeMap:    "map",
	TypeRecord: "record",
}

func (k TypeKind) String() string {
	if name, ok := typeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// TypeDescriptor describes a native parameter type well enough to coerce
// dynamically typed host values into it.
type TypeDescriptor struct {
	Kind TypeKind
	// GoType is the native type, including the pointer when Optional.
	GoType reflect.Type
	// Optional types accept null and undefined.
	Optional bool
	// Elem describes array elements and map values.
	Elem *TypeDescriptor
}

// String renders the descriptor the way coercion errors report it, e.g.
// "array<integer>" or "string?".
func (td *TypeDescriptor) String() string {
	if td == nil {
		return "<nil>"
	}
	var b strings.Builder
	switch td.Kind {
	case TypeArray:
		fmt.Fprintf(&b, "array<%s>", td.Elem)
	case TypeMap:
		fmt.Fprintf(&b, "map<string, %s>", td.Elem)
	case TypeRecord:
		b.WriteString("record ")
		b.WriteString(td.base().Name())
	default:
		b.WriteString(td.Kind.String())
	}
	if td.Optional && td.Kind != TypeAny {
		b.WriteString("?")
	}
	return b.String()
}

// base is the underlying non-pointer type.
func (td *TypeDescriptor) base() reflect.Type {
	if td.GoType.Kind() == reflect.Pointer {
		return td.GoType.Elem()
	}
	return td.GoType
}

// TypeOf builds the descriptor for t. Channels, functions, arrays, complex
// numbers, non-string map keys, non-empty interfaces and pointers to pointers
// are rejected with ErrUnsupportedType.
func TypeOf(t reflect.Type) (*TypeDescriptor, error) {
	return typeOf(t, map[reflect.Type]bool{})
}

func typeOf(t reflect.Type, visiting map[reflect.Type]bool) (*TypeDescriptor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrUnsupportedType)
	}
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() == reflect.Pointer {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
		inner, err := typeOf(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		return &TypeDescriptor{Kind: inner.Kind, GoType: t, Optional: true, Elem: inner.Elem}, nil
	}

	td := &TypeDescriptor{GoType: t}
	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return nil, fmt.Errorf("%w: interface %s", ErrUnsupportedType, t)
		}
		td.Kind = TypeAny
		td.Optional = true
	case reflect.Bool:
		td.Kind = TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		td.Kind = TypeInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		td.Kind = TypeUint
	case reflect.Float32, reflect.Float64:
		td.Kind = TypeFloat
	case reflect.String:
		td.Kind = TypeString
	case reflect.Slice:
		elem, err := typeOf(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		td.Kind = TypeArray
		td.Elem = elem
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s", ErrUnsupportedType, t.Key())
		}
		elem, err := typeOf(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		td.Kind = TypeMap
		td.Elem = elem
	case reflect.Struct:
		td.Kind = TypeRecord
		if visiting[t] {
			return td, nil
		}
		visiting[t] = true
		defer delete(visiting, t)
		for _, f := range exportedFields(t) {
			if _, err := typeOf(f.goType, visiting); err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name(), f.goName, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return td, nil
}
