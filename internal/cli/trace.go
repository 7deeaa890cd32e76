package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one command kind
}

// TraceFailure is a recorded failure in trace output.
type TraceFailure struct {
	Code    oracle.FailureCode `json:"code"`
	Step    int                `json:"step"`
	Command string             `json:"command"`
	Reasons []string           `json:"reasons,omitempty"`
	Message string             `json:"message"`
}

// TraceStats summarizes the steps of a run.
type TraceStats struct {
	Steps    int `json:"steps"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Waited   int `json:"waited"`
	Failed   int `json:"failed"`
}

// TraceResult is a recorded run as printed by the trace command.
type TraceResult struct {
	RunID          string          `json:"run_id"`
	Seq            int64           `json:"seq"`
	Seed           uint64          `json:"seed"`
	SequenceHash   string          `json:"sequence_hash"`
	TraceHash      string          `json:"trace_hash"`
	Steps          json.RawMessage `json:"steps"`
	Failure        *TraceFailure   `json:"failure,omitempty"`
	Shrunk         json.RawMessage `json:"shrunk,omitempty"`
	ShrunkFailure  *TraceFailure   `json:"shrunk_failure,omitempty"`
	ShrinkAttempts int             `json:"shrink_attempts,omitempty"`
	// SameSequence lists other runs that recorded the same sequence.
	SameSequence   []string        `json:"same_sequence"`
	Stats          TraceStats      `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the recorded trace of a run",
		Long: `Show a recorded run: one line per executed command with its outcome and,
for rejections the model predicted, the reasons.

The output includes:
- Header: seed, sequence hash and trace hash
- Steps: the executed sequence, macros expanded
- Failure: the divergence that stopped the run, if any
- Shrunk: the minimized reproduction, if the run was shrunk

Examples:
  saleoracle trace 0190a8c4-5e1f-7b2a-9d3c-4e5f6a7b8c9d
  saleoracle trace 0190a8c4-5e1f-7b2a-9d3c-4e5f6a7b8c9d --kind buyTokens
  saleoracle trace 0190a8c4-5e1f-7b2a-9d3c-4e5f6a7b8c9d --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite run store")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter steps by command kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command, runID string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Kind != "" {
		if _, err := command.Lookup(command.Kind(opts.Kind)); err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
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
	same, err := st.RunsWithSequence(ctx, run.SequenceHash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up sequence", err)
	}

	steps := filterSteps(run.Steps, command.Kind(opts.Kind))
	result := TraceResult{
		RunID:          run.ID,
		Seq:            run.Seq,
		Seed:           run.Seed,
		SequenceHash:   run.SequenceHash,
		TraceHash:      run.TraceHash,
		Failure:        traceFailure(run.Failure),
		ShrunkFailure:  traceFailure(run.ShrunkFailure),
		ShrinkAttempts: run.ShrinkAttempts,
		SameSequence:   []string{},
		Stats:          traceStats(steps),
	}
	for _, id := range same {
		if id != run.ID {
			result.SameSequence = append(result.SameSequence, id)
		}
	}

	if opts.Format == "json" {
		if result.Steps, err = canonicalSteps(steps); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode steps", err)
		}
		if run.Shrunk != nil {
			if result.Shrunk, err = canonicalCommands(run.Shrunk); err != nil {
				return WrapExitError(ExitCommandError, "failed to encode shrunk sequence", err)
			}
		}
		return writeJSON(cmd, result, nil)
	}

	printTraceText(cmd, run, steps, result)
	return nil
}

// filterSteps keeps the steps of kind, matching expanded macros by origin.
// An empty kind keeps every step.
func filterSteps(steps []oracle.StepRecord, kind command.Kind) []oracle.StepRecord {
	if kind == "" {
		return steps
	}
	out := []oracle.StepRecord{}
	for _, s := range steps {
		if s.Command.Kind == kind || s.Command.Origin == kind {
			out = append(out, s)
		}
	}
	return out
}

func traceFailure(f *store.FailureRecord) *TraceFailure {
	if f == nil {
		return nil
	}
	return &TraceFailure{
		Code:    f.Code,
		Step:    f.Step,
		Command: f.Command.String(),
		Reasons: command.Strings(f.Reasons),
		Message: f.Message,
	}
}

func traceStats(steps []oracle.StepRecord) TraceStats {
	stats := TraceStats{Steps: len(steps)}
	for _, s := range steps {
		switch s.Outcome {
		case oracle.OutcomeAccepted:
			stats.Accepted++
		case oracle.OutcomeRejected:
			stats.Rejected++
		case oracle.OutcomeWaited:
			stats.Waited++
		case oracle.OutcomeFailed:
			stats.Failed++
		}
	}
	return stats
}

func printTraceText(cmd *cobra.Command, run *store.Run, steps []oracle.StepRecord, result TraceResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run %s (#%d, seed %d)\n", run.ID, run.Seq, run.Seed)
	fmt.Fprintf(w, "  sequence: %s\n", run.SequenceHash)
	fmt.Fprintf(w, "  trace:    %s\n", run.TraceHash)
	if len(result.SameSequence) > 0 {
		fmt.Fprintf(w, "  same sequence as: %v\n", result.SameSequence)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	if len(steps) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	renderSteps(w, steps, "  ")

	if f := result.Failure; f != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Failure ===")
		failedColor.Fprintf(w, "  %s at step %d\n", f.Code, f.Step)
		fmt.Fprintf(w, "  %s\n", f.Message)
	}

	if run.Shrunk != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "=== Shrunk to %d commands (%d attempts) ===\n", len(run.Shrunk), run.ShrinkAttempts)
		for i, c := range run.Shrunk {
			fmt.Fprintf(w, "  %03d %s\n", i, c)
		}
		if f := result.ShrunkFailure; f != nil {
			failedColor.Fprintf(w, "  fails with %s at step %d\n", f.Code, f.Step)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d steps (%d accepted, %d rejected, %d waited, %d failed)\n",
		result.Stats.Steps, result.Stats.Accepted, result.Stats.Rejected, result.Stats.Waited, result.Stats.Failed)
}
