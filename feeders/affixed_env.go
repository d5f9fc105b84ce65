package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// AffixedEnvFeeder reads fields tagged `env:"NAME"` from variables named
// PREFIX_NAME_SUFFIX. Nested structs share the affixes.
type AffixedEnvFeeder struct {
	Prefix string
	Suffix string
}

// NewAffixedEnvFeeder creates a new AffixedEnvFeeder with the specified prefix and suffix
func NewAffixedEnvFeeder(prefix, suffix string) AffixedEnvFeeder {
	return AffixedEnvFeeder{Prefix: prefix, Suffix: suffix}
}

// Feed reads environment variables and populates the provided structure
func (f AffixedEnvFeeder) Feed(structure any) error {
	rv := reflect.ValueOf(structure)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrInvalidStructure, structure)
	}
	if f.Prefix == "" && f.Suffix == "" {
		return ErrEmptyAffix
	}
	return f.fillStruct(rv.Elem())
}

// VariableName returns the environment variable consulted for tag.
func (f AffixedEnvFeeder) VariableName(tag string) string {
	name := strings.ToUpper(tag)
	if f.Prefix != "" {
		name = strings.ToUpper(f.Prefix) + "_" + name
	}
	if f.Suffix != "" {
		name = name + "_" + strings.ToUpper(f.Suffix)
	}
	return name
}

func (f AffixedEnvFeeder) fillStruct(rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if err := f.fillField(field, sf); err != nil {
			return fmt.Errorf("error in field '%s': %w", sf.Name, err)
		}
	}
	return nil
}

func (f AffixedEnvFeeder) fillField(field reflect.Value, sf reflect.StructField) error {
	if tag, ok := sf.Tag.Lookup("env"); ok {
		value, set := os.LookupEnv(f.VariableName(tag))
		if !set || value == "" {
			return nil
		}
		return setFieldValue(field, value)
	}
	switch {
	case field.Kind() == reflect.Struct:
		return f.fillStruct(field)
	case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
		return f.fillStruct(field.Elem())
	}
	return nil
}

var durationType = reflect.TypeFor[time.Duration]()

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return ErrFieldCannotBeSet
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("cannot convert %q to duration: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}
	converted, err := cast.FromType(raw, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
