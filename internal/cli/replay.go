package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/store"
	"github.com/roach88/saleoracle/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Shrunk   bool
}

// ReplayResult compares a replay against the recorded run.
type ReplayResult struct {
	RunID         string             `json:"run_id"`
	Sequence      string             `json:"sequence"` // "original" | "shrunk"
	Commands      int                `json:"commands"`
	Steps         int                `json:"steps"`
	// ExpectedHash and ActualHash are trace hashes; a shrunk replay has
	// no recorded trace and compares failure codes only.
	ExpectedHash  string             `json:"expected_hash,omitempty"`
	ActualHash    string             `json:"actual_hash"`
	ExpectedCode  oracle.FailureCode `json:"expected_code,omitempty"`
	ActualCode    oracle.FailureCode `json:"actual_code,omitempty"`
	Deterministic bool               `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Replay a recorded run and verify determinism",
		Long: `Replay the command sequence of a recorded run on a fresh ledger session and
compare the result with the recording.

The original sequence must reproduce the recorded trace hash and failure
code. With --shrunk the minimized reproduction is replayed instead and must
fail with the recorded code.

The ledger comes from the current configuration; replaying against a
ledger configured differently from the recording reports a difference.

Exit codes:
  0 - Replay matches the recording
  1 - Replay differs from the recording
  2 - Command error (run not found, ledger unreachable, etc.)

Examples:
  saleoracle replay 0190a8c4-5e1f-7b2a-9d3c-4e5f6a7b8c9d
  saleoracle replay 0190a8c4-5e1f-7b2a-9d3c-4e5f6a7b8c9d --shrunk --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite run store")
	cmd.Flags().BoolVar(&opts.Shrunk, "shrunk", false, "replay the shrunk reproduction")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command, runID string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := opts.setup(cmd, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := e.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	run, err := readRun(ctx, st, runID)
	if err != nil {
		return err
	}

	campCfg, err := e.cfg.Campaign()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	factory, release, err := openFactory(ctx, e.cfg, e.logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer release()

	result, rep, err := replayRun(ctx, oracle.NewCampaign(factory, campCfg, e.logger, nil), run, opts.Shrunk)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Deterministic {
			cliErr = &CLIError{Code: "NON_DETERMINISTIC", Message: "replay differs from the recorded run"}
		}
		if err := writeJSON(cmd, result, cliErr); err != nil {
			return err
		}
	} else {
		printReplayText(cmd, result, rep, opts.Verbose)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("replay of run %s is not deterministic", runID))
	}
	return nil
}

// replayRun replays the run's original or shrunk sequence and compares it
// with what was recorded.
func replayRun(ctx context.Context, camp *oracle.Campaign, run *store.Run, shrunk bool) (ReplayResult, *oracle.Report, error) {
	result := ReplayResult{RunID: run.ID, Sequence: "original"}
	cmds := run.Commands
	expected := run.Failure
	if shrunk {
		if run.Shrunk == nil {
			return result, nil, NewExitError(ExitCommandError, fmt.Sprintf("run %s has no shrunk sequence", run.ID))
		}
		result.Sequence = "shrunk"
		cmds = run.Shrunk
		expected = run.ShrunkFailure
	}
	result.Commands = len(cmds)

	rep, err := camp.Replay(ctx, cmds)
	if err != nil {
		return result, nil, WrapExitError(ExitCommandError, "replay failed", err)
	}
	result.Steps = len(rep.Steps)

	if result.ActualHash, err = trace.TraceHash(rep.Steps); err != nil {
		return result, nil, WrapExitError(ExitCommandError, "failed to hash trace", err)
	}
	if expected != nil {
		result.ExpectedCode = expected.Code
	}
	if rep.Failure != nil {
		result.ActualCode = rep.Failure.Code
	}

	result.Deterministic = result.ExpectedCode == result.ActualCode
	if !shrunk {
		result.ExpectedHash = run.TraceHash
		result.Deterministic = result.Deterministic && result.ActualHash == run.TraceHash
	}
	return result, rep, nil
}

func printReplayText(cmd *cobra.Command, result ReplayResult, rep *oracle.Report, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run %s (%s sequence, %d commands, %d steps)\n",
		result.RunID, result.Sequence, result.Commands, result.Steps)
	if verbose || !result.Deterministic {
		renderSteps(w, rep.Steps, "  ")
	}

	if result.ExpectedHash != "" {
		fmt.Fprintf(w, "  expected trace: %s\n", result.ExpectedHash)
	}
	fmt.Fprintf(w, "  actual trace:   %s\n", result.ActualHash)
	if result.ExpectedCode != "" || result.ActualCode != "" {
		fmt.Fprintf(w, "  expected code:  %s\n", codeOrNone(result.ExpectedCode))
		fmt.Fprintf(w, "  actual code:    %s\n", codeOrNone(result.ActualCode))
	}

	fmt.Fprintln(w)
	if result.Deterministic {
		fmt.Fprintf(w, "%s Replay matches the recording\n", passMark())
	} else {
		fmt.Fprintf(w, "%s Replay differs from the recording\n", failMark())
	}
}

func codeOrNone(code oracle.FailureCode) string {
	if code == "" {
		return "none"
	}
	return string(code)
}
