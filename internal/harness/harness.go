package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/simledger"
	"github.com/roach88/saleoracle/internal/store"
	"github.com/roach88/saleoracle/internal/testutil"
)

// Harness runs one scenario.
type Harness struct {
	ledger *simledger.Ledger
	driver *oracle.Driver
	store  *store.Store
	logger *slog.Logger

	executed []command.Command
	failure  *oracle.Failure
	failedAt int
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for the run. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario on a fresh simulated ledger and returns the
// result. An error means the scenario could not run at all; unmet
// expectations are reported in the result.
//
// Execution flow:
//  1. Deploy the sale with the scenario's configuration
//  2. Run the setup steps, each of which must be accepted
//  3. Run the flow steps, checking each expected outcome and reason list
//  4. Record the run in an in-memory store and read the trace back
//  5. Evaluate the assertions against the final state and the trace
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	l, err := simledger.New(scenario.ledgerConfig())
	if err != nil {
		return nil, fmt.Errorf("deploy sale: %w", err)
	}
	defer l.Close()

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)))
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	driver := oracle.NewDriver(l,
		oracle.WithLogger(o.logger),
		oracle.WithFullChecks(true),
		oracle.WithBalanceChecks(scenario.checksBalances()),
	)
	if err := driver.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialize driver: %w", err)
	}

	h := &Harness{ledger: l, driver: driver, store: st, logger: o.logger, failedAt: -1}
	initial := driver.State()
	result := NewResult()

	if err := h.executeSteps(ctx, "setup", scenario.Setup, result, true); err != nil {
		return nil, err
	}
	if h.failure == nil {
		if err := h.executeSteps(ctx, "flow", scenario.Flow, result, false); err != nil {
			return nil, err
		}
	}

	rep := &oracle.Report{
		Commands: h.executed,
		Steps:    driver.Steps(),
		FailedAt: h.failedAt,
		Failure:  h.failure,
		Initial:  initial,
		Final:    driver.State(),
	}
	runID, err := st.RecordRun(ctx, oracle.RunResult{Report: rep})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	stored, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read run back: %w", err)
	}

	result.RunID = runID
	result.Steps = stored.Steps
	result.Final = rep.Final
	result.Failure = h.failure

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checksBalances turns on native balance checks when the scenario asserts
// on them.
func (s *Scenario) checksBalances() bool {
	return slices.ContainsFunc(s.Assertions, func(a Assertion) bool {
		return a.Type == AssertEthBalance || (a.Type == AssertState && a.Field == "eth_balance")
	})
}

// executeSteps runs steps in order. It stops at the first oracle failure,
// which is reported in the result rather than returned.
func (h *Harness) executeSteps(ctx context.Context, section string, steps []Step, result *Result, mustAccept bool) error {
	for i, step := range steps {
		label := fmt.Sprintf("%s[%d]", section, i)
		cmd, err := h.resolve(step)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		h.executed = append(h.executed, cmd)

		cmds := []command.Command{cmd}
		if cmd.Kind == command.KindFundToCap {
			cmds = command.ExpandFundToCap(h.driver.State(), cmd.Finalize, h.ledger.Accounts().Count())
		}

		for _, c := range cmds {
			rec, err := h.driver.Step(ctx, c)
			if err != nil {
				f, ok := oracle.AsFailure(err)
				if !ok {
					return fmt.Errorf("%s: %w", label, err)
				}
				h.failure = f
				h.failedAt = len(h.executed) - 1
				result.AddError(fmt.Sprintf("%s %s: %v", label, c, f))
				return nil
			}
			h.check(label, step, rec, result, mustAccept)
		}

		h.logger.Info("scenario step settled", "step", label, "command", cmd.String())
	}
	return nil
}

func (h *Harness) check(label string, step Step, rec oracle.StepRecord, result *Result, mustAccept bool) {
	want := step.Expect
	if mustAccept && want == "" {
		want = oracle.OutcomeAccepted
	}
	// Waits, including those a macro expands to, settle as waited.
	if want == oracle.OutcomeAccepted && rec.Command.Kind == command.KindWaitTime {
		want = oracle.OutcomeWaited
	}
	if want != "" && rec.Outcome != want {
		msg := fmt.Sprintf("%s %s: expected %s, got %s", label, rec.Command, want, rec.Outcome)
		if len(rec.Reasons) > 0 {
			msg += fmt.Sprintf(" (reasons: %v)", command.Strings(rec.Reasons))
		}
		result.AddError(msg)
	}
	if step.Reasons != nil && !sameReasons(step.Reasons, rec.Reasons) {
		result.AddError(fmt.Sprintf("%s %s: expected reasons %v, got %v",
			label, rec.Command, command.Strings(step.Reasons), command.Strings(rec.Reasons)))
	}
}

func sameReasons(a, b []command.Reason) bool {
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

// resolve builds the command for step against the current roles.
func (h *Harness) resolve(step Step) (command.Command, error) {
	st := h.driver.State()
	from, err := h.account(st, step.From)
	if err != nil {
		return command.Command{}, fmt.Errorf("from: %w", err)
	}
	target, err := h.account(st, step.Target)
	if err != nil {
		return command.Command{}, fmt.Errorf("target: %w", err)
	}

	var c command.Command
	switch step.Kind {
	case command.KindSetWallet:
		c = command.SetWallet(from, target)
	case command.KindSetToken:
		c = command.SetToken(from, target)
	case command.KindClaimVaultFunds:
		c = command.ClaimVaultFunds(from)
	case command.KindRefundAll:
		c = command.RefundAll(from, step.Indexes...)
	case command.KindBuyTokens:
		c = command.BuyTokens(from, step.Value.Big())
	case command.KindValidatePurchase:
		c = command.ValidatePurchase(from, target)
	case command.KindRejectPurchase:
		c = command.RejectPurchase(from, target)
	case command.KindPauseCrowdsale:
		c = command.PauseCrowdsale(from, step.Pause)
	case command.KindPauseToken:
		c = command.PauseToken(from, step.Pause)
	case command.KindFinalize:
		c = command.Finalize(from)
	case command.KindBurnTokens:
		c = command.BurnTokens(from, step.Tokens.Big())
	case command.KindWaitTime:
		c = command.WaitTime(step.Seconds)
	case command.KindFundToCap:
		c = command.FundToCap(step.Finalize)
	default:
		return command.Command{}, fmt.Errorf("unknown command %q", step.Kind)
	}
	return c.WithGasPrice(step.GasPrice.Big()), nil
}

// account resolves a scenario account name. Roles resolve against the
// state the step runs in; an empty name is the external address.
func (h *Harness) account(st *model.State, name string) (model.Account, error) {
	var a model.Account
	switch name {
	case "":
		return model.External, nil
	case "owner":
		a = st.Owner
	case "wallet":
		a = st.Wallet
	default:
		var err error
		if a, err = model.ParseAccount(name); err != nil {
			return 0, err
		}
	}
	if a.Indexed() && int(a) >= h.ledger.Accounts().Count() {
		return 0, fmt.Errorf("%s is out of range (%d accounts)", name, h.ledger.Accounts().Count())
	}
	return a, nil
}
