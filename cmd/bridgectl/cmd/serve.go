package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/bridge"
	"github.com/GoCodeAlone/bridge/host/httphost"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the modules over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.config.Serve.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides serve.addr)")
	return cmd
}

// newServeHandler mounts the module API and the Prometheus endpoint.
func newServeHandler(ac *bridge.AppContext, logger bridge.Logger, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", httphost.NewHandler(ac, logger).Router())
	return r
}

func serve(ctx context.Context, opts *globalOptions) error {
	reg := prometheus.NewRegistry()
	ac, err := newAppContext(ctx, opts.config, opts.logger, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.config.Serve.Addr,
		Handler:           newServeHandler(ac, opts.logger, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		opts.logger.Info("Serving modules", "addr", srv.Addr, "modules", ac.ModuleNames())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	opts.logger.Info("Shutting down")
	return errors.Join(err, srv.Shutdown(shutdownCtx), ac.Destroy(shutdownCtx))
}
