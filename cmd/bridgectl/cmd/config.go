package cmd

import (
	"context"
	"fmt"

	"github.com/golobby/config/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/bridge"
	"github.com/GoCodeAlone/bridge/feeders"
	"github.com/GoCodeAlone/bridge/modules/clipboard"
)

// ServeConfig configures `bridgectl serve`.
type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" env:"SERVE_ADDR" default:":8080"`
}

// CLIConfig is the bridgectl configuration file. Each section can also be
// set through BRIDGE_-prefixed environment variables.
type CLIConfig struct {
	Bridge    bridge.Config    `json:"bridge" yaml:"bridge" toml:"bridge"`
	Clipboard clipboard.Config `json:"clipboard" yaml:"clipboard" toml:"clipboard"`
	Serve     ServeConfig      `json:"serve" yaml:"serve" toml:"serve"`
}

// sectionFeeder feeds one top-level section of a config file.
type sectionFeeder struct {
	file feeders.KeyFeeder
	key  string
}

func (f sectionFeeder) Feed(structure any) error {
	return f.file.FeedKey(f.key, structure)
}

// loadConfig reads path (if set) section by section, then the environment.
func loadConfig(path string) (*CLIConfig, error) {
	var file feeders.KeyFeeder
	if path != "" {
		var err error
		if file, err = feeders.ForFile(path); err != nil {
			return nil, err
		}
	}
	cfg := &CLIConfig{}
	sections := []struct {
		key    string
		target any
	}{
		{"bridge", &cfg.Bridge},
		{"clipboard", &cfg.Clipboard},
		{"serve", &cfg.Serve},
	}
	for _, s := range sections {
		var fs []config.Feeder
		if file != nil {
			fs = append(fs, sectionFeeder{file: file, key: s.key})
		}
		fs = append(fs, bridge.DefaultFeeders()...)
		if err := bridge.LoadConfig(s.target, fs...); err != nil {
			return nil, fmt.Errorf("config section %q: %w", s.key, err)
		}
	}
	return cfg, nil
}

// defaultConfig is CLIConfig with every default applied.
func defaultConfig() *CLIConfig {
	cfg := &CLIConfig{}
	_ = bridge.ApplyConfigDefaults(cfg)
	return cfg
}

// newAppContext builds an app context with the clipboard module
// registered. reg may be nil.
func newAppContext(ctx context.Context, cfg *CLIConfig, logger bridge.Logger, reg prometheus.Registerer) (*bridge.AppContext, error) {
	opts := []bridge.Option{bridge.WithLogger(logger), bridge.WithConfig(cfg.Bridge)}
	if reg != nil {
		opts = append(opts, bridge.WithPrometheus(reg))
	}
	ac, err := bridge.NewAppContext(opts...)
	if err != nil {
		return nil, err
	}
	backend, err := clipboard.NewBackend(cfg.Clipboard)
	if err != nil {
		return nil, err
	}
	if _, err := ac.RegisterModule(ctx, clipboard.New(backend, logger)); err != nil {
		return nil, err
	}
	return ac, nil
}
