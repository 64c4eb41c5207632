package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/auth"
	"github.com/roach88/grove/internal/config"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/reconcile"
	"github.com/roach88/grove/internal/remote"
	"github.com/roach88/grove/internal/remote/couch"
	"github.com/roach88/grove/internal/remote/httpapi"
	"github.com/roach88/grove/internal/remote/memory"
	"github.com/roach88/grove/internal/remote/postgres"
	"github.com/roach88/grove/internal/remote/sqlite"
	"github.com/roach88/grove/internal/state"
	"github.com/roach88/grove/internal/store"
)

// app is the wiring shared by every command that touches the local log.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	logger  *slog.Logger
	out     *OutputFormatter
	local   *store.Store
	remote  remote.Store
	session *auth.SessionProvider
	rec     *reconcile.Reconciler
	clock   func() time.Time

	ownsRemote bool
}

// openApp loads config, opens the local database and builds the reconciler
// over the configured remote. The local log is loaded before returning.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	dbPath := cfg.Local.DBPath
	if opts.Database != "" {
		dbPath = opts.Database
	}
	logger.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a := &app{
		cfg:     cfg,
		loc:     loc,
		logger:  logger,
		out:     newFormatter(opts, cmd),
		local:   st,
		session: auth.NewSessionProvider(st, cfg.Auth.Secret),
		clock:   opts.Now,
	}
	if a.clock == nil {
		a.clock = time.Now
	}

	if opts.Remote != nil {
		a.remote = opts.Remote
	} else {
		rs, err := openRemote(ctx, cfg, a.session)
		if err != nil {
			_ = st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open remote store", err)
		}
		a.remote = rs
		a.ownsRemote = rs != nil
	}

	recOpts := []reconcile.Option{
		reconcile.WithLogger(logger),
		reconcile.WithClock(a.clock),
	}
	if opts.IDs != nil {
		recOpts = append(recOpts, reconcile.WithIDGenerator(opts.IDs))
	}
	a.rec = reconcile.New(st, a.remote, a.session, recOpts...)

	if _, err := a.rec.LoadLog(ctx); err != nil {
		_ = a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load event log", err)
	}
	return a, nil
}

// Close releases the remote (when opened here) and the local database.
func (a *app) Close() error {
	var errs []error
	if a.ownsRemote {
		errs = append(errs, a.remote.Close())
	}
	errs = append(errs, a.local.Close())
	return errors.Join(errs...)
}

// now returns the current time in the configured zone, which decides where
// the 6 AM day boundary falls.
func (a *app) now() time.Time {
	return a.clock().In(a.loc)
}

func (a *app) events() []event.Event {
	return a.rec.Memo().Events()
}

func (a *app) snapshot() *state.Snapshot {
	return a.rec.Memo().Snapshot()
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return config.Load(path, opts.EnvFile)
}

// openRemote builds the configured remote store, or nil when sync is off.
func openRemote(ctx context.Context, cfg *config.Config, tokens auth.TokenSource) (remote.Store, error) {
	switch cfg.Remote.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		c, err := sqlite.New(ctx, cfg.Remote.DSN)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.DriverPostgres:
		c, err := postgres.New(ctx, cfg.Remote.DSN)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.DriverCouch:
		c, err := couch.New(ctx, cfg.Remote.DSN, cfg.Remote.Database)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.DriverHTTP:
		return httpapi.NewClient(cfg.Remote.DSN, tokens), nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Remote.Driver)
	}
}

// newLogger writes text logs to w at Info, or Debug when verbose.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
