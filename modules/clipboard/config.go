package clipboard

import (
	"errors"
	"fmt"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory  = "memory"
	BackendFile    = "file"
	BackendPolling = "polling"
)

var (
	ErrUnknownBackend = errors.New("clipboard: unknown backend")
	ErrPathRequired   = errors.New("clipboard: path is required for file backends")
)

// Config selects and tunes the clipboard backend.
type Config struct {
	// Backend is memory, file or polling. The polling backend polls the
	// file at Path instead of relying on file system notifications.
	Backend      string        `json:"backend" yaml:"backend" toml:"backend" env:"CLIPBOARD_BACKEND" default:"memory"`
	Path         string        `json:"path" yaml:"path" toml:"path" env:"CLIPBOARD_PATH"`
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval" toml:"pollInterval" env:"CLIPBOARD_POLL_INTERVAL" default:"1s"`
}

// Validate implements bridge.ConfigValidator.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFile, BackendPolling:
		if c.Path == "" {
			return ErrPathRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.Backend == BackendPolling && c.PollInterval <= 0 {
		return fmt.Errorf("clipboard: pollInterval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// NewBackend builds the backend cfg describes.
func NewBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendFile:
		return NewFileBackend(cfg.Path), nil
	case BackendPolling:
		return NewPollingBackend(NewFileBackend(cfg.Path), cfg.PollInterval), nil
	default:
		return NewMemoryBackend(), nil
	}
}
