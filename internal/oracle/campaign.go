package oracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/sequence"
)

// CampaignConfig shapes a campaign.
type CampaignConfig struct {
	Seed     uint64
	Runs     int
	Commands int
	Shrink   bool
	// MaxShrinkAttempts bounds shrinking; zero uses the sequence default.
	MaxShrinkAttempts int
	CheckBalances     bool
	FullChecks        bool
	// ZeroChance and MaxWait tune generation; see command.GenConfig.
	ZeroChance int
	MaxWait    uint64
	// Kinds restricts sampling; empty means every kind.
	Kinds []command.Kind
}

// RunResult is one completed run.
type RunResult struct {
	Seed   uint64
	Report *Report
	// Shrunk is the minimized reproduction of a failing run, when
	// shrinking was requested.
	Shrunk *Report
	// ShrinkAttempts counts the candidate sequences tried.
	ShrinkAttempts int
}

// Recorder persists runs as they complete.
type Recorder interface {
	RecordRun(ctx context.Context, res RunResult) (string, error)
}

// CampaignResult summarizes a campaign.
type CampaignResult struct {
	Runs []RunResult
	// RunIDs holds the recorder's identifier for each run, if recording.
	RunIDs []string
	// Failed points at the first failing run, or is nil.
	Failed *RunResult
}

// Campaign runs generated sequences against fresh ledger sessions.
type Campaign struct {
	factory  ledger.Factory
	cfg      CampaignConfig
	logger   *slog.Logger
	recorder Recorder
}

// NewCampaign returns a campaign over sessions opened from factory.
// recorder may be nil.
func NewCampaign(factory ledger.Factory, cfg CampaignConfig, logger *slog.Logger, recorder Recorder) *Campaign {
	if logger == nil {
		logger = slog.Default()
	}
	return &Campaign{factory: factory, cfg: cfg, logger: logger, recorder: recorder}
}

// Run executes the configured number of runs, stopping after the first
// failing one.
func (c *Campaign) Run(ctx context.Context) (*CampaignResult, error) {
	out := &CampaignResult{}
	for i, seed := range sequence.Seeds(c.cfg.Seed, c.cfg.Runs) {
		res, err := c.RunSeed(ctx, seed)
		if err != nil {
			return out, fmt.Errorf("run %d (seed %d): %w", i, seed, err)
		}
		out.Runs = append(out.Runs, res)

		if c.recorder != nil {
			id, err := c.recorder.RecordRun(ctx, res)
			if err != nil {
				return out, fmt.Errorf("record run %d: %w", i, err)
			}
			out.RunIDs = append(out.RunIDs, id)
		}

		if res.Report.Failed() {
			out.Failed = &out.Runs[len(out.Runs)-1]
			c.logger.Error("run failed",
				"run", i,
				"seed", seed,
				"code", res.Report.Failure.Code,
				"step", res.Report.Failure.Step,
			)
			return out, nil
		}
		c.logger.Info("run passed",
			"run", i,
			"seed", seed,
			"accepted", res.Report.Count(OutcomeAccepted),
			"rejected", res.Report.Count(OutcomeRejected),
		)
	}
	return out, nil
}

// RunSeed generates and runs one sequence, shrinking it on failure.
func (c *Campaign) RunSeed(ctx context.Context, seed uint64) (RunResult, error) {
	res := RunResult{Seed: seed}

	rep, err := c.withDriver(ctx, func(d *Driver) (*Report, error) {
		gen := sequence.NewGenerator(c.genConfig(d), c.cfg.Kinds...)
		cmds, err := gen.Generate(seed, d.State(), c.cfg.Commands)
		if err != nil {
			return nil, err
		}
		return d.Run(ctx, cmds)
	})
	if err != nil {
		return res, err
	}
	res.Report = rep

	if !rep.Failed() || !c.cfg.Shrink {
		return res, nil
	}

	shrunk, attempts, err := c.shrink(ctx, rep)
	if err != nil {
		return res, fmt.Errorf("shrink: %w", err)
	}
	res.Shrunk = shrunk
	res.ShrinkAttempts = attempts
	return res, nil
}

// Replay runs cmds on a fresh session.
func (c *Campaign) Replay(ctx context.Context, cmds []command.Command) (*Report, error) {
	return c.withDriver(ctx, func(d *Driver) (*Report, error) {
		return d.Run(ctx, cmds)
	})
}

// withDriver opens a session, initializes a driver on it and runs fn.
// A *Failure from fn is reported through the Report, not as an error.
func (c *Campaign) withDriver(ctx context.Context, fn func(d *Driver) (*Report, error)) (*Report, error) {
	session, err := c.factory.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			c.logger.Warn("close session", "error", cerr)
		}
	}()

	d := NewDriver(session,
		WithLogger(c.logger),
		WithBalanceChecks(c.cfg.CheckBalances),
		WithFullChecks(c.cfg.FullChecks),
	)
	if err := d.Init(ctx); err != nil {
		return nil, fmt.Errorf("init driver: %w", err)
	}
	rep, err := fn(d)
	if _, ok := AsFailure(err); ok {
		return rep, nil
	}
	return rep, err
}

func (c *Campaign) genConfig(d *Driver) command.GenConfig {
	cfg := command.DefaultGenConfig(d.accounts.Count())
	if c.cfg.ZeroChance != 0 {
		cfg.ZeroChance = c.cfg.ZeroChance
	}
	if c.cfg.MaxWait != 0 {
		cfg.MaxWait = c.cfg.MaxWait
	}
	return cfg
}

// shrink minimizes a failing report's sequence while the failure code stays
// the same, then re-runs the minimum to report on it.
func (c *Campaign) shrink(ctx context.Context, rep *Report) (*Report, int, error) {
	want := rep.Failure.Code
	prefix := rep.Commands[:rep.FailedAt+1]

	// Candidate runs are expected to fail; keep them out of the log.
	replay := &Campaign{factory: c.factory, cfg: c.cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	s := &sequence.Shrinker{MaxAttempts: c.cfg.MaxShrinkAttempts, Logger: c.logger}
	res, err := s.Shrink(ctx, prefix, func(ctx context.Context, cand []command.Command) (bool, error) {
		r, err := replay.Replay(ctx, cand)
		if err != nil {
			return false, err
		}
		return r.Failed() && r.Failure.Code == want, nil
	})
	if err != nil {
		return nil, res.Attempts, err
	}

	final, err := c.Replay(ctx, res.Commands)
	if err != nil {
		return nil, res.Attempts, err
	}
	c.logger.Info("shrunk failing sequence",
		"from", len(rep.Commands),
		"to", len(res.Commands),
		"attempts", res.Attempts,
		"code", want,
	)
	return final, res.Attempts, nil
}
