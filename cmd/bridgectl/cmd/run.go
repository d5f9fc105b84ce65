package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/bridge/host/gojahost"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "run <script.js>",
		Short: "Run a JavaScript file with every module available through require()",
		Long: `Run executes a script on a goja event loop. Modules are loaded by name:

  const clipboard = require("Clipboard");
  clipboard.setStringAsync("hello");
  console.log(clipboard.getStringAsync());

The command returns once the script and every pending timer have finished.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runScript(cmd.Context(), opts, args[0], string(src), async)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "module methods return promises")
	return cmd
}

func runScript(ctx context.Context, opts *globalOptions, name, src string, async bool) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ac, err := newAppContext(ctx, opts.config, opts.logger, nil)
	if err != nil {
		return err
	}

	registry := require.NewRegistry()
	loop := eventloop.NewEventLoop(eventloop.WithRegistry(registry))
	hostOpts := []gojahost.Option{gojahost.WithScheduler(loop), gojahost.WithLogger(opts.logger)}
	if async {
		hostOpts = append(hostOpts, gojahost.WithAsyncMethods())
	}
	bindings := gojahost.Enable(registry, ac, hostOpts...)
	defer func() {
		err = errors.Join(err, bindings.Close(ctx), ac.Destroy(ctx))
	}()

	stop := context.AfterFunc(ctx, loop.Terminate)
	defer stop()

	var scriptErr error
	loop.Run(func(rt *goja.Runtime) {
		if _, err := rt.RunScript(name, src); err != nil {
			scriptErr = err
		}
	})
	if scriptErr != nil {
		return fmt.Errorf("script %s: %w", name, scriptErr)
	}
	return ctx.Err()
}
