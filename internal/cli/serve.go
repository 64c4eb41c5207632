package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/config"
	"github.com/roach88/grove/internal/remote"
	"github.com/roach88/grove/internal/remote/httpapi"
	"github.com/roach88/grove/internal/remote/memory"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Listener overrides the listening socket (for testing).
	Listener net.Listener
}

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the remote event API over HTTP",
		Long: `Expose the configured remote store (memory, sqlite, postgres or couch) as
the HTTP event API that the "http" remote driver talks to. Requests carry a
bearer token signed with auth.secret.

Example:
  GROVE_AUTH_SECRET=s3cret GROVE_REMOTE_DRIVER=sqlite GROVE_REMOTE_DSN=./remote.db grove serve --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.Auth.Secret == "" {
		return NewExitError(ExitCommandError, "serve needs auth.secret (or GROVE_AUTH_SECRET)")
	}
	if cfg.Remote.Driver == config.DriverHTTP {
		return NewExitError(ExitCommandError, "serve cannot use the http driver as its backing store")
	}

	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	parentCtx := commandContext(cmd)
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	backing := opts.Remote
	if backing == nil {
		rs, err := openRemote(ctx, cfg, nil)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open backing store", err)
		}
		if rs == nil {
			logger.Warn("no remote driver configured, serving from memory")
			rs = memory.New()
		}
		backing = rs
		defer closeBacking(backing, logger.Error)
	}

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(backing, cfg.Auth.Secret, httpapi.WithLogger(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
		case <-ctx.Done():
		}
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if opts.Listener != nil {
		logger.Info("serving", "addr", opts.Listener.Addr().String(), "driver", cfg.Remote.Driver)
		err = srv.Serve(opts.Listener)
	} else {
		logger.Info("serving", "addr", addr, "driver", cfg.Remote.Driver)
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", addr)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func closeBacking(rs remote.Store, logError func(msg string, args ...any)) {
	if err := rs.Close(); err != nil {
		logError("error closing backing store", "error", err)
	}
}
