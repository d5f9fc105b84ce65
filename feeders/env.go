// Package feeders provides configuration feeders for the bridge: plain and
// affixed environment variables, YAML files and TOML files. Every feeder
// satisfies the golobby/config Feeder interface.
package feeders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golobby/config/v3/pkg/feeder"
)

// Feeder fills a struct pointer from a configuration source.
type Feeder interface {
	Feed(structure any) error
}

// KeyFeeder fills target from one top-level section of its source.
type KeyFeeder interface {
	Feeder
	FeedKey(key string, target any) error
}

// EnvFeeder reads fields tagged `env:"NAME"` from the environment.
type EnvFeeder = feeder.Env

// NewEnvFeeder creates a new EnvFeeder that reads from environment variables
func NewEnvFeeder() EnvFeeder {
	return EnvFeeder{}
}

// ForFile picks a file feeder from the path's extension.
func ForFile(path string) (KeyFeeder, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
}
