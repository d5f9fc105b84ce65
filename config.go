package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"github.com/golobby/config/v3"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/bridge/feeders"
)

const (
	tagDefault  = "default"
	tagRequired = "required"
)

var (
	ErrRequiredFieldMissing = errors.New("required config field is missing")
	ErrUnsupportedFormat    = errors.New("unsupported config format")
)

// Config tunes an AppContext.
type Config struct {
	// EventSource is the CloudEvents source of lifecycle events.
	EventSource string `json:"eventSource" yaml:"eventSource" toml:"eventSource" env:"EVENT_SOURCE" default:"bridge"`

	// AsyncEvents delivers CloudEvents to each observer on its own goroutine
	// instead of synchronously in registration order.
	AsyncEvents bool `json:"asyncEvents" yaml:"asyncEvents" toml:"asyncEvents" env:"ASYNC_EVENTS" default:"false"`

	// DestroyTimeout bounds how long AppContext.Destroy waits for in-flight
	// method calls.
	DestroyTimeout time.Duration `json:"destroyTimeout" yaml:"destroyTimeout" toml:"destroyTimeout" env:"DESTROY_TIMEOUT" default:"5s"`

	// MetricsNamespace prefixes Prometheus metric names.
	MetricsNamespace string `json:"metricsNamespace" yaml:"metricsNamespace" toml:"metricsNamespace" env:"METRICS_NAMESPACE" default:"bridge"`

	// LifecycleHistory is the number of lifecycle events kept in memory.
	LifecycleHistory int `json:"lifecycleHistory" yaml:"lifecycleHistory" toml:"lifecycleHistory" env:"LIFECYCLE_HISTORY" default:"1000"`
}

// Validate implements ConfigValidator.
func (c *Config) Validate() error {
	if c.DestroyTimeout < 0 {
		return fmt.Errorf("destroyTimeout must not be negative, got %s", c.DestroyTimeout)
	}
	if c.LifecycleHistory < 0 {
		return fmt.Errorf("lifecycleHistory must not be negative, got %d", c.LifecycleHistory)
	}
	return nil
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	_ = ApplyConfigDefaults(&cfg)
	return cfg
}

// ConfigValidator is implemented by config structs with validation rules
// beyond `required` tags.
type ConfigValidator interface {
	Validate() error
}

// ApplyConfigDefaults sets every zero-valued field carrying a
// `default:"..."` tag, recursing into nested structs. Values are parsed
// with golobby/cast; time.Duration fields use time.ParseDuration.
func ApplyConfigDefaults(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}
	return applyStructDefaults(rv.Elem())
}

func applyStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		switch {
		case field.Kind() == reflect.Struct:
			if err := applyStructDefaults(field); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			if err := applyStructDefaults(field.Elem()); err != nil {
				return err
			}
			continue
		}
		raw, ok := sf.Tag.Lookup(tagDefault)
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, raw); err != nil {
			return fmt.Errorf("%w: field %s: %w", ErrDefaultValueParseFailure, sf.Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, raw string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	parsed, err := cast.FromType(raw, field.Type())
	if err != nil {
		return err
	}
	field.Set(reflect.ValueOf(parsed).Convert(field.Type()))
	return nil
}

// ValidateConfig checks `required:"true"` fields and then calls Validate
// on configs implementing ConfigValidator.
func ValidateConfig(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}
	var missing []string
	collectMissing(rv.Elem(), "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrRequiredFieldMissing, strings.Join(missing, ", "))
	}
	if v, ok := cfg.(ConfigValidator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}
	return nil
}

func collectMissing(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		field := v.Field(i)
		path := prefix + sf.Name
		if field.Kind() == reflect.Struct {
			collectMissing(field, path+".", missing)
			continue
		}
		if sf.Tag.Get(tagRequired) == "true" && field.IsZero() {
			*missing = append(*missing, path)
		}
	}
}

// LoadConfig feeds target from feeders in order, later feeders overriding
// earlier ones, then applies defaults and validates it.
func LoadConfig(target any, fs ...config.Feeder) error {
	if err := ApplyConfigDefaults(target); err != nil {
		return err
	}
	if len(fs) > 0 {
		c := config.New()
		for _, f := range fs {
			c.AddFeeder(f)
		}
		c.AddStruct(target)
		if err := c.Feed(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfigFeedFailed, err)
		}
	}
	return ValidateConfig(target)
}

// DefaultFeeders reads BRIDGE_-prefixed environment variables, e.g.
// BRIDGE_DESTROY_TIMEOUT=10s.
func DefaultFeeders() []config.Feeder {
	return []config.Feeder{feeders.NewAffixedEnvFeeder("BRIDGE", "")}
}

// SampleConfig renders cfg in the given format: "yaml", "toml" or "json".
func SampleConfig(cfg any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
