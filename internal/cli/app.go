package cli

import (
	"context"
	"errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tomventa/sqlwarden/internal/config"
	"github.com/tomventa/sqlwarden/internal/database"
	"github.com/tomventa/sqlwarden/internal/executor"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/logging"
	"github.com/tomventa/sqlwarden/internal/pipeline"
	"github.com/tomventa/sqlwarden/internal/schema"
)

// app is everything a command needs once the database is reachable.
type app struct {
	cfg       *config.Config
	logger    *pterm.Logger
	db        *database.Database
	whitelist *schema.Whitelist
	pipeline  *pipeline.Pipeline
	out       *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openApp loads configuration, connects and builds the guard pipeline.
// Every failure here is a startup failure.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*app, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	w, err := db.Whitelist(ctx, cfg.SchemaOptions())
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read schema", err)
	}
	out.VerboseLog("Loaded %d table(s) from %s", w.Len(), db.Dialect().Name())

	g, err := guard.New(cfg.GuardConfig(db.Dialect()), w)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build guard", err)
	}

	e, err := executor.New(db.DB(), db.Dialect(), cfg.ExecutorOptions())
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build executor", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		whitelist: w,
		pipeline:  pipeline.New(g, e, logger),
		out:       out,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// runStatement runs one candidate and prints its envelope.
func (a *app) runStatement(ctx context.Context, candidate string) error {
	env, err := a.pipeline.Run(ctx, candidate)
	if err != nil {
		return hardError(err)
	}
	if err := a.out.Envelope(env); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !env.OK {
		return NewExitError(ExitFailure, string(env.ErrorCode)+": "+env.ErrorMessage)
	}
	return nil
}

// hardError maps pipeline errors onto exit codes.
func hardError(err error) error {
	switch {
	case errors.Is(err, executor.ErrWriteDetected):
		return WrapExitError(ExitCommandError, "read-only invariant violated, refusing to continue", err)
	case errors.Is(err, executor.ErrUnavailable):
		return WrapExitError(ExitCommandError, "database unavailable", err)
	default:
		return WrapExitError(ExitCommandError, "query aborted", err)
	}
}
