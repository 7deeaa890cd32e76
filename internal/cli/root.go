package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/saleoracle/internal/config"
	"github.com/roach88/saleoracle/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
	NoColor bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the saleoracle CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "saleoracle",
		Short: "Model-based test oracle for a KYC-gated crowdsale",
		Long: `Drive a crowdsale, its refund vault and its token with generated command
sequences, predicting every outcome with a reference model and stopping at
the first divergence.

Runs are recorded in a SQLite store and can be listed, traced and replayed.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.NoColor {
				color.NoColor = true
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (.cue, .yaml or .yml)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

// loadConfig reads the --config file, or the defaults when none is given.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.Config == "" {
		return config.Default()
	}
	return config.Load(o.Config)
}

// env is what a command has once its configuration is resolved.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (e *env) Close() {
	if err := e.closer.Close(); err != nil {
		e.logger.Warn("close log file", "error", err)
	}
}

// setup loads the config, lets override apply command flags to it and
// builds the logger.
func (o *RootOptions) setup(cmd *cobra.Command, override func(cfg *config.Config)) (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if override != nil {
		override(cfg)
	}
	logger, closer := newLogger(cfg, o.Verbose, cmd.ErrOrStderr())
	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}

// openStore opens the run store, preferring path over the configured one.
func (e *env) openStore(path string) (*store.Store, error) {
	if path == "" {
		path = e.cfg.Store
	}
	e.logger.Debug("opening store", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return st, nil
}

func (e *env) closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		e.logger.Error("error closing store", "error", err)
	}
}

// readRun loads a run, mapping a missing one to a command error.
func readRun(ctx context.Context, st *store.Store, id string) (*store.Run, error) {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}
