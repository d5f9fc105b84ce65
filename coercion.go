package bridge

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/golobby/cast"
)

// Coerce converts a dynamically typed host value into the native type
// described by td. It has no side effects; on failure it returns a
// *CoercionError whose Index is -1.
func Coerce(value any, td *TypeDescriptor) (reflect.Value, error) {
	v, cerr := coerce(value, td, "")
	if cerr != nil {
		cerr.Index = -1
		return reflect.Value{}, cerr
	}
	return v, nil
}

// CoerceTo converts value into T.
func CoerceTo[T any](value any) (T, error) {
	var zero T
	td, err := TypeOf(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	v, err := Coerce(value, td)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func coerce(value any, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		if td.Optional {
			return reflect.Zero(td.GoType), nil
		}
		return reflect.Value{}, mismatch(td, "null", path)
	}

	if td.Kind == TypeAny {
		out := reflect.New(td.base()).Elem()
		out.Set(rv)
		return wrapOptional(td, out), nil
	}

	base := td.base()
	if rv.Type() == base {
		out := reflect.New(base).Elem()
		out.Set(rv)
		return wrapOptional(td, out), nil
	}

	if n, ok := rv.Interface().(json.Number); ok {
		out, cerr := coerceNumber(n, td, path)
		if cerr != nil {
			return reflect.Value{}, cerr
		}
		return wrapOptional(td, out), nil
	}

	var (
		out  reflect.Value
		cerr *CoercionError
	)
	switch td.Kind {
	case TypeBool:
		if rv.Kind() != reflect.Bool {
			return reflect.Value{}, mismatch(td, describeValue(rv), path)
		}
		out = rv.Convert(base)
	case TypeString:
		if rv.Kind() != reflect.String {
			return reflect.Value{}, mismatch(td, describeValue(rv), path)
		}
		out = rv.Convert(base)
	case TypeInt:
		out, cerr = coerceInt(rv, td, path)
	case TypeUint:
		out, cerr = coerceUint(rv, td, path)
	case TypeFloat:
		out, cerr = coerceFloat(rv, td, path)
	case TypeArray:
		out, cerr = coerceArray(rv, td, path)
	case TypeMap:
		out, cerr = coerceMap(rv, td, path)
	case TypeRecord:
		out, cerr = coerceRecord(rv, td, path)
	default:
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	if cerr != nil {
		return reflect.Value{}, cerr
	}
	return wrapOptional(td, out), nil
}

func wrapOptional(td *TypeDescriptor, v reflect.Value) reflect.Value {
	if td.GoType.Kind() != reflect.Pointer {
		return v
	}
	ptr := reflect.New(td.GoType.Elem())
	ptr.Elem().Set(v)
	return ptr
}

func coerceNumber(n json.Number, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	switch td.Kind {
	case TypeInt:
		i, err := n.Int64()
		if err != nil {
			return reflect.Value{}, mismatch(td, "number "+n.String(), path)
		}
		return coerceInt(reflect.ValueOf(i), td, path)
	case TypeUint:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return reflect.Value{}, mismatch(td, "number "+n.String(), path)
		}
		return coerceUint(reflect.ValueOf(u), td, path)
	case TypeFloat:
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, mismatch(td, "number "+n.String(), path)
		}
		return coerceFloat(reflect.ValueOf(f), td, path)
	default:
		return reflect.Value{}, mismatch(td, "number", path)
	}
}

func coerceInt(rv reflect.Value, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	base := td.base()
	var i int64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return reflect.Value{}, overflow(td, strconv.FormatUint(u, 10), path)
		}
		i = int64(u)
	default:
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	out := reflect.New(base).Elem()
	if out.OverflowInt(i) {
		return reflect.Value{}, overflow(td, strconv.FormatInt(i, 10), path)
	}
	out.SetInt(i)
	return out, nil
}

func coerceUint(rv reflect.Value, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	base := td.base()
	var u uint64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < 0 {
			return reflect.Value{}, overflow(td, strconv.FormatInt(i, 10), path)
		}
		u = uint64(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u = rv.Uint()
	default:
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	out := reflect.New(base).Elem()
	if out.OverflowUint(u) {
		return reflect.Value{}, overflow(td, strconv.FormatUint(u, 10), path)
	}
	out.SetUint(u)
	return out, nil
}

func coerceFloat(rv reflect.Value, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	base := td.base()
	out := reflect.New(base).Elem()
	var f float64
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f = float64(rv.Uint())
	default:
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	if out.OverflowFloat(f) {
		return reflect.Value{}, overflow(td, strconv.FormatFloat(f, 'g', -1, 64), path)
	}
	out.SetFloat(f)
	return out, nil
}

func coerceArray(rv reflect.Value, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	out := reflect.MakeSlice(td.base(), rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, cerr := coerce(rv.Index(i).Interface(), td.Elem, fmt.Sprintf("%s[%d]", path, i))
		if cerr != nil {
			return reflect.Value{}, cerr
		}
		out.Index(i).Set(elem)
	}
	return out, nil
}

func coerceMap(rv reflect.Value, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	base := td.base()
	out := reflect.MakeMapWithSize(base, rv.Len())
	for _, key := range sortedKeys(rv) {
		elem, cerr := coerce(rv.MapIndex(key).Interface(), td.Elem, path+"."+key.String())
		if cerr != nil {
			return reflect.Value{}, cerr
		}
		out.SetMapIndex(reflect.ValueOf(key.String()).Convert(base.Key()), elem)
	}
	return out, nil
}

func coerceRecord(rv reflect.Value, td *TypeDescriptor, path string) (reflect.Value, *CoercionError) {
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return reflect.Value{}, mismatch(td, describeValue(rv), path)
	}
	base := td.base()
	fields, err := recordFieldsOf(base)
	if err != nil {
		return reflect.Value{}, &CoercionError{Path: path, Expected: td.String(), Actual: err.Error()}
	}
	out := reflect.New(base).Elem()
	for _, f := range fields {
		fieldPath := path + "." + f.name
		raw := rv.MapIndex(reflect.ValueOf(f.name).Convert(rv.Type().Key()))
		if !raw.IsValid() || (isNull(raw) && !f.descriptor.Optional && (f.optional || f.hasDefault)) {
			if f.hasDefault {
				dv, cerr := f.defaultValue(fieldPath)
				if cerr != nil {
					return reflect.Value{}, cerr
				}
				out.FieldByIndex(f.index).Set(dv)
				continue
			}
			if f.optional {
				continue
			}
			return reflect.Value{}, &CoercionError{Path: fieldPath, Expected: f.descriptor.String(), Actual: "undefined"}
		}
		fv, cerr := coerce(raw.Interface(), f.descriptor, fieldPath)
		if cerr != nil {
			return reflect.Value{}, cerr
		}
		out.FieldByIndex(f.index).Set(fv)
	}
	return out, nil
}

type recordField struct {
	name       string
	goName     string
	index      []int
	goType     reflect.Type
	descriptor *TypeDescriptor
	optional   bool
	hasDefault bool
	rawDefault string
}

func (f recordField) defaultValue(path string) (reflect.Value, *CoercionError) {
	target := f.goType
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	parsed, err := cast.FromType(f.rawDefault, target)
	if err != nil {
		return reflect.Value{}, &CoercionError{Path: path, Expected: f.descriptor.String(), Actual: fmt.Sprintf("default %q", f.rawDefault)}
	}
	v := reflect.ValueOf(parsed).Convert(target)
	if f.goType.Kind() == reflect.Pointer {
		ptr := reflect.New(target)
		ptr.Elem().Set(v)
		return ptr, nil
	}
	return v, nil
}

var recordFieldCache sync.Map // reflect.Type -> []recordField

// recordFieldsOf lists the exported fields of struct type t keyed by their
// json names, with resolved type descriptors.
func recordFieldsOf(t reflect.Type) ([]recordField, error) {
	if cached, ok := recordFieldCache.Load(t); ok {
		return cached.([]recordField), nil
	}
	fields := exportedFields(t)
	for i := range fields {
		td, err := TypeOf(fields[i].goType)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), fields[i].goName, err)
		}
		fields[i].descriptor = td
	}
	recordFieldCache.Store(t, fields)
	return fields, nil
}

func exportedFields(t reflect.Type) []recordField {
	var fields []recordField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		omitempty := false
		if tag, ok := sf.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			omitempty = slices.Contains(parts[1:], "omitempty")
		}
		f := recordField{
			name:     name,
			goName:   sf.Name,
			index:    sf.Index,
			goType:   sf.Type,
			optional: omitempty || sf.Type.Kind() == reflect.Pointer,
		}
		f.rawDefault, f.hasDefault = sf.Tag.Lookup("default")
		fields = append(fields, f)
	}
	return fields
}

// isNull reports whether a map entry holds an explicit null.
func isNull(v reflect.Value) bool {
	return v.Kind() == reflect.Interface && v.IsNil()
}

func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

func mismatch(td *TypeDescriptor, actual, path string) *CoercionError {
	return &CoercionError{Path: path, Expected: td.String(), Actual: actual}
}

func overflow(td *TypeDescriptor, literal, path string) *CoercionError {
	return &CoercionError{Path: path, Expected: td.String(), Actual: "out of range number " + literal}
}

// describeValue names a host value's shape for error messages.
func describeValue(rv reflect.Value) string {
	if !rv.IsValid() {
		return "null"
	}
	switch rv.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		if _, ok := rv.Interface().(json.Number); ok {
			return "number"
		}
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "record"
	case reflect.Struct:
		return "record " + rv.Type().Name()
	default:
		return rv.Type().String()
	}
}

// ToHost converts a native result into a host-friendly value built from
// nil, bool, int64, uint64, float64, string, []any and map[string]any.
func ToHost(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return ToHost(v.Elem())
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u <= math.MaxInt64 {
			return int64(u)
		}
		return u
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		if n, ok := v.Interface().(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i
			}
			f, _ := n.Float64()
			return f
		}
		return v.String()
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = ToHost(v.Index(i))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = ToHost(iter.Value())
		}
		return out
	case reflect.Struct:
		fields, err := recordFieldsOf(v.Type())
		if err != nil {
			return v.Interface()
		}
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			out[f.name] = ToHost(v.FieldByIndex(f.index))
		}
		return out
	default:
		return v.Interface()
	}
}
