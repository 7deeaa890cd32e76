package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/saleoracle/internal/oracle"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Failed   bool
}

// ListedRun is one row of list output.
type ListedRun struct {
	ID           string             `json:"id"`
	Seq          int64              `json:"seq"`
	Seed         uint64             `json:"seed"`
	SequenceHash string             `json:"sequence_hash"`
	Failed       bool               `json:"failed"`
	Steps        int                `json:"steps"`
	Code         oracle.FailureCode `json:"code,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Long: `List the runs recorded in the store, oldest first.

Examples:
  saleoracle list
  saleoracle list --failed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite run store")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only failing runs")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
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

	runs, err := st.ListRuns(ctx, opts.Failed)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	out := make([]ListedRun, len(runs))
	for i, r := range runs {
		out[i] = ListedRun{
			ID:           r.ID,
			Seq:          r.Seq,
			Seed:         r.Seed,
			SequenceHash: r.SequenceHash,
			Failed:       r.Failed,
			Steps:        r.Steps,
			Code:         r.Code,
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd, out, nil)
	}

	w := cmd.OutOrStdout()
	if len(out) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tSEED\tSTEPS\tRESULT")
	for _, r := range out {
		result := "pass"
		if r.Failed {
			result = string(r.Code)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.Seq, r.ID, r.Seed, r.Steps, result)
	}
	return tw.Flush()
}
