package gojahost

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/GoCodeAlone/bridge"
)

// Scheduler queues work onto the goroutine that owns a goja runtime.
// *eventloop.EventLoop from goja_nodejs satisfies it.
type Scheduler interface {
	RunOnLoop(fn func(*goja.Runtime)) bool
}

// moduleOptions holds configuration for a [Module] instance.
type moduleOptions struct {
	scheduler Scheduler
	logger    bridge.Logger
	async     bool
	onLoad    func(*Module)
}

// Option configures a [Module] instance. Options are applied during
// module construction.
type Option interface {
	applyOption(*moduleOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*moduleOptions) error
}

func (o *optionFunc) applyOption(opts *moduleOptions) error {
	return o.fn(opts)
}

// WithScheduler delivers module events to JS listeners through s instead
// of on the goroutine that sent them. It is required whenever events may
// be sent off the runtime's goroutine; an eventloop.EventLoop satisfies
// Scheduler.
func WithScheduler(s Scheduler) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if s == nil {
			return errors.New("gojahost: scheduler must not be nil")
		}
		opts.scheduler = s
		return nil
	}}
}

// WithLogger sets the logger used for listener failures.
func WithLogger(logger bridge.Logger) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if logger == nil {
			return errors.New("gojahost: logger must not be nil")
		}
		opts.logger = logger
		return nil
	}}
}

// WithAsyncMethods makes every exported method return a settled Promise
// instead of a plain value or a thrown error.
func WithAsyncMethods() Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.async = true
		return nil
	}}
}

func withLoadHook(fn func(*Module)) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.onLoad = fn
		return nil
	}}
}

func resolveOptions(opts []Option) (*moduleOptions, error) {
	cfg := &moduleOptions{logger: bridge.NopLogger{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
