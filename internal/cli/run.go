package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/saleoracle/internal/config"
	"github.com/roach88/saleoracle/internal/oracle"
)

// RunOptions holds flags for the run command. Flags left unset keep the
// config file's values.
type RunOptions struct {
	*RootOptions
	Ledger        string
	Store         string
	Seed          uint64
	Runs          int
	Commands      int
	NoShrink      bool
	CheckBalances bool
	Kinds         []string
	Faults        []string
}

// RunFailure describes the failing run of a campaign.
type RunFailure struct {
	RunID          string             `json:"run_id,omitempty"`
	Seed           uint64             `json:"seed"`
	Code           oracle.FailureCode `json:"code"`
	Step           int                `json:"step"`
	Command        string             `json:"command"`
	Message        string             `json:"message"`
	ShrunkCommands int                `json:"shrunk_commands,omitempty"`
	ShrinkAttempts int                `json:"shrink_attempts,omitempty"`
}

// RunResult is the campaign summary printed by the run command.
type RunResult struct {
	Runs    int         `json:"runs"`
	Passed  int         `json:"passed"`
	RunIDs  []string    `json:"run_ids"`
	Failure *RunFailure `json:"failure,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a campaign of generated command sequences",
		Long: `Run a campaign: each run deploys a fresh sale, generates a command
sequence from a seed derived from --seed and checks every outcome against the
reference model. The campaign stops at the first failing run, which is shrunk
to a minimal reproduction unless --no-shrink is given.

Every run is recorded in the store.

Exit codes:
  0 - All runs passed
  1 - A run failed
  2 - Command error (bad config, ledger unreachable, etc.)

Examples:
  saleoracle run --seed 7 --runs 200
  saleoracle run --config oracle.yaml --ledger eth
  saleoracle run --fault no_bonus --kinds buyTokens,validatePurchase,waitTime`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "ledger to drive (sim|eth)")
	cmd.Flags().StringVar(&opts.Store, "db", "", "path to the SQLite run store")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "campaign seed")
	cmd.Flags().IntVar(&opts.Runs, "runs", 0, "number of runs")
	cmd.Flags().IntVar(&opts.Commands, "commands", 0, "commands per run")
	cmd.Flags().BoolVar(&opts.NoShrink, "no-shrink", false, "keep the failing sequence as generated")
	cmd.Flags().BoolVar(&opts.CheckBalances, "check-balances", false, "compare native balances after every command")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kinds", nil, "restrict generation to these command kinds")
	cmd.Flags().StringSliceVar(&opts.Faults, "fault", nil, "inject a fault into the simulated sale")

	return cmd
}

func (o *RunOptions) override(cmd *cobra.Command) func(cfg *config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("ledger") {
			cfg.Ledger = o.Ledger
		}
		if flags.Changed("db") {
			cfg.Store = o.Store
		}
		if flags.Changed("seed") {
			cfg.Seed = o.Seed
		}
		if flags.Changed("runs") {
			cfg.Runs = o.Runs
		}
		if flags.Changed("commands") {
			cfg.Commands = o.Commands
		}
		if flags.Changed("no-shrink") {
			cfg.Shrink = !o.NoShrink
		}
		if flags.Changed("check-balances") {
			cfg.CheckBalances = o.CheckBalances
		}
		if flags.Changed("kinds") {
			cfg.Kinds = o.Kinds
		}
		if flags.Changed("fault") {
			cfg.Sim.Faults = o.Faults
		}
	}
}

func runCampaign(opts *RunOptions, cmd *cobra.Command) error {
	e, err := opts.setup(cmd, opts.override(cmd))
	if err != nil {
		return err
	}
	defer e.Close()
	if e.cfg.Runs <= 0 || e.cfg.Commands <= 0 {
		return NewExitError(ExitCommandError, "runs and commands must be positive")
	}

	campCfg, err := e.cfg.Campaign()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, release, err := openFactory(ctx, e.cfg, e.logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer release()

	st, err := e.openStore("")
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	e.logger.Info("campaign starting",
		"ledger", e.cfg.Ledger,
		"seed", campCfg.Seed,
		"runs", campCfg.Runs,
		"commands", campCfg.Commands,
	)
	res, err := oracle.NewCampaign(factory, campCfg, e.logger, st).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitCommandError, "campaign interrupted", err)
		}
		return WrapExitError(ExitCommandError, "campaign error", err)
	}

	out := summarize(res)
	if opts.Format == "json" {
		var cliErr *CLIError
		if out.Failure != nil {
			cliErr = &CLIError{Code: string(out.Failure.Code), Message: out.Failure.Message}
		}
		if err := writeJSON(cmd, out, cliErr); err != nil {
			return err
		}
	} else {
		printRunText(cmd, res, out)
	}

	if out.Failure != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("run failed with %s", out.Failure.Code))
	}
	return nil
}

func summarize(res *oracle.CampaignResult) RunResult {
	out := RunResult{Runs: len(res.Runs), RunIDs: res.RunIDs}
	if out.RunIDs == nil {
		out.RunIDs = []string{}
	}
	for i, r := range res.Runs {
		if !r.Report.Failed() {
			out.Passed++
			continue
		}
		f := r.Report.Failure
		rf := &RunFailure{
			Seed:    r.Seed,
			Code:    f.Code,
			Step:    f.Step,
			Command: f.Command.String(),
			Message: f.Error(),
		}
		if i < len(res.RunIDs) {
			rf.RunID = res.RunIDs[i]
		}
		if r.Shrunk != nil {
			rf.ShrunkCommands = len(r.Shrunk.Commands)
			rf.ShrinkAttempts = r.ShrinkAttempts
		}
		out.Failure = rf
	}
	return out
}

func printRunText(cmd *cobra.Command, res *oracle.CampaignResult, out RunResult) {
	w := cmd.OutOrStdout()
	for i, r := range res.Runs {
		mark := passMark()
		if r.Report.Failed() {
			mark = failMark()
		}
		fmt.Fprintf(w, "%s run %d seed %d: %d steps, %d accepted, %d rejected\n",
			mark, i, r.Seed, len(r.Report.Steps),
			r.Report.Count(oracle.OutcomeAccepted), r.Report.Count(oracle.OutcomeRejected))
	}

	if res.Failed != nil {
		rep := res.Failed.Report
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Failing trace ===")
		renderSteps(w, rep.Steps, "  ")
		fmt.Fprintln(w)
		failedColor.Fprintf(w, "%s\n", rep.Failure.Error())

		if shrunk := res.Failed.Shrunk; shrunk != nil {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "=== Shrunk to %d commands (%d attempts) ===\n", len(shrunk.Commands), res.Failed.ShrinkAttempts)
			renderSteps(w, shrunk.Steps, "  ")
		}
		if out.Failure.RunID != "" {
			fmt.Fprintf(w, "\nReplay with: saleoracle replay %s\n", out.Failure.RunID)
		}
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d/%d runs passed\n", passMark(), out.Passed, out.Runs)
}
