package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
)

// Driver runs commands against one ledger session and keeps the model
// state predicted for it.
//
// A Driver is not safe for concurrent use. Each step goes
// Idle → Executing → Settled before the next one starts.
type Driver struct {
	backend  ledger.Backend
	accounts *ledger.Accounts
	logger   *slog.Logger

	checkBalances bool
	fullChecks    bool

	state *model.State
	steps []StepRecord
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithBalanceChecks compares every account's native balance with the
// tracked one after each command.
func WithBalanceChecks(on bool) Option {
	return func(d *Driver) {
		d.checkBalances = on
	}
}

// WithFullChecks compares every observable field after each command
// instead of only the fields the command touches.
func WithFullChecks(on bool) Option {
	return func(d *Driver) {
		d.fullChecks = on
	}
}

// NewDriver returns a Driver for b. Call Init before stepping.
func NewDriver(b ledger.Backend, opts ...Option) *Driver {
	d := &Driver{
		backend:  b,
		accounts: b.Accounts(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns a copy of the current prediction.
func (d *Driver) State() *model.State {
	if d.state == nil {
		return nil
	}
	return d.state.Clone()
}

// Steps returns every step recorded so far.
func (d *Driver) Steps() []StepRecord {
	return append([]StepRecord(nil), d.steps...)
}

// Init reads the ledger and builds the initial prediction from it.
func (d *Driver) Init(ctx context.Context) error {
	b := d.backend
	params, err := b.Params(ctx)
	if err != nil {
		return fmt.Errorf("read sale params: %w", err)
	}
	st := model.New(params)

	roles := []struct {
		name string
		read func(context.Context) (common.Address, error)
		dst  *model.Account
	}{
		{"owner", b.Owner, &st.Owner},
		{"wallet", b.Wallet, &st.Wallet},
		{"token", b.Token, &st.Token},
		{"token owner", b.TokenOwner, &st.TokenOwner},
	}
	for _, r := range roles {
		addr, err := r.read(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", r.name, err)
		}
		*r.dst = d.accounts.Lookup(addr)
	}

	if st.CrowdsalePaused, err = b.Paused(ctx); err != nil {
		return fmt.Errorf("read paused: %w", err)
	}
	if st.TokenPaused, err = b.TokenPaused(ctx); err != nil {
		return fmt.Errorf("read token paused: %w", err)
	}
	if st.Finalized, err = b.Finalized(ctx); err != nil {
		return fmt.Errorf("read finalized: %w", err)
	}
	if st.WeiRaised, err = b.WeiRaised(ctx); err != nil {
		return fmt.Errorf("read wei raised: %w", err)
	}
	if st.TokenSupply, err = b.TotalSupply(ctx); err != nil {
		return fmt.Errorf("read total supply: %w", err)
	}
	st.CrowdsaleSupply = new(big.Int).Set(st.TokenSupply)

	head, err := b.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("read latest block: %w", err)
	}
	st.Now = head.Timestamp

	for _, a := range d.accounts.All() {
		addr := d.accounts.Address(a)
		eth, err := b.Balance(ctx, addr)
		if err != nil {
			return fmt.Errorf("read balance of %s: %w", a, err)
		}
		st.EthBalances[a] = eth

		tokens, err := b.TokenBalance(ctx, addr)
		if err != nil {
			return fmt.Errorf("read token balance of %s: %w", a, err)
		}
		if tokens.Sign() != 0 {
			st.TokenBalances[a] = tokens
		}

		deposit, err := b.Deposited(ctx, addr)
		if err != nil {
			return fmt.Errorf("read deposit of %s: %w", a, err)
		}
		if deposit.Sign() != 0 {
			st.Vault[a] = deposit
			st.FundsOwners = append(st.FundsOwners, a)
			d.logger.Warn("sale already holds deposits; assuming funder order by account", "account", a.String(), "deposit", deposit.String())
		}
	}

	d.state = st
	d.steps = nil
	d.logger.Debug("driver initialized",
		"owner", st.Owner.String(),
		"wallet", st.Wallet.String(),
		"now", st.Now,
		"start", params.StartTime,
		"end", params.EndTime,
	)
	return nil
}

// Run executes cmds in order, expanding macros against the state they are
// reached in. It stops at the first failure, which is returned both as the
// error and in the report.
func (d *Driver) Run(ctx context.Context, cmds []command.Command) (*Report, error) {
	if d.state == nil {
		return nil, errors.New("oracle: driver not initialized")
	}
	start := len(d.steps)
	rep := &Report{
		Commands: cloneCommands(cmds),
		FailedAt: -1,
		Initial:  d.state.Clone(),
	}
	finish := func() {
		rep.Steps = append([]StepRecord(nil), d.steps[start:]...)
		rep.Final = d.state.Clone()
	}

	for i, c := range cmds {
		if err := ctx.Err(); err != nil {
			finish()
			return rep, err
		}
		batch := []command.Command{c}
		if c.Kind == command.KindFundToCap {
			batch = command.ExpandFundToCap(d.state, c.Finalize, d.accounts.Count())
		}
		for _, sub := range batch {
			if _, err := d.Step(ctx, sub); err != nil {
				finish()
				if f, ok := AsFailure(err); ok {
					rep.Failure = f
					rep.FailedAt = i
				}
				return rep, err
			}
		}
	}
	finish()
	return rep, nil
}

// Step executes one primitive command and settles it against the model.
func (d *Driver) Step(ctx context.Context, c command.Command) (StepRecord, error) {
	if d.state == nil {
		return StepRecord{}, errors.New("oracle: driver not initialized")
	}
	spec, err := command.Lookup(c.Kind)
	if err != nil {
		return StepRecord{}, err
	}
	if spec.Macro {
		return StepRecord{}, fmt.Errorf("oracle: %s must be expanded before it runs", c.Kind)
	}

	s := &step{
		d:       d,
		spec:    spec,
		cmd:     c,
		pre:     d.state,
		reasons: spec.Precondition(d.state, c),
	}
	s.rec = StepRecord{Index: len(d.steps), Command: c.Clone(), Reasons: s.reasons}

	if c.Kind == command.KindWaitTime {
		return s.wait(ctx)
	}
	return s.send(ctx)
}

// step is the in-flight settlement of one command.
type step struct {
	d       *Driver
	spec    *command.Spec
	cmd     command.Command
	pre     *model.State
	reasons []command.Reason
	rec     StepRecord
}

func (s *step) fail(code FailureCode, err error) (StepRecord, error) {
	s.rec.Outcome = OutcomeFailed
	s.rec.Error = err.Error()
	s.rec.Now = s.pre.Now
	s.d.steps = append(s.d.steps, s.rec)
	s.d.logger.Error("step failed",
		"step", s.rec.Index,
		"kind", s.cmd.Kind,
		"code", code,
		"command", s.cmd.String(),
		"error", err,
	)
	return s.rec, newFailure(code, s.rec.Index, s.cmd, s.pre, s.reasons, err)
}

func (s *step) settle(next *model.State, outcome Outcome) (StepRecord, error) {
	s.d.state = next
	s.rec.Outcome = outcome
	s.rec.Now = next.Now
	s.d.steps = append(s.d.steps, s.rec)
	s.d.logger.Debug("step settled",
		"step", s.rec.Index,
		"kind", s.cmd.Kind,
		"outcome", outcome,
		"reasons", command.Strings(s.reasons),
	)
	return s.rec, nil
}

func (s *step) wait(ctx context.Context) (StepRecord, error) {
	if err := s.d.backend.IncreaseTime(ctx, s.cmd.Seconds); err != nil {
		return s.fail(CodeUnexpectedError, fmt.Errorf("increase time: %w", err))
	}
	next, err := s.spec.Transition(s.pre, s.cmd, command.Observation{})
	if err != nil {
		return s.fail(CodeUnexpectedError, err)
	}
	head, err := s.d.backend.LatestBlock(ctx)
	if err != nil {
		return s.fail(CodeUnexpectedError, fmt.Errorf("read latest block: %w", err))
	}
	// Dev chains stamp blocks with wall time plus the offset, which can run
	// ahead of the prediction.
	if head.Timestamp > next.Now {
		next.Now = head.Timestamp
	}
	s.rec.Block = head.Number
	return s.settle(next, OutcomeWaited)
}

func (s *step) send(ctx context.Context) (StepRecord, error) {
	b := s.d.backend

	before, err := b.LatestBlock(ctx)
	if err != nil {
		return s.fail(CodeUnexpectedError, fmt.Errorf("read latest block: %w", err))
	}
	s.syncClock(before.Timestamp)

	obs, err := command.Observe(ctx, b, s.cmd)
	if err != nil {
		return s.fail(CodeUnexpectedError, err)
	}

	price := command.EffectiveGasPrice(s.pre, s.cmd, b.DefaultGasPrice())
	opts := ledger.TxOpts{From: s.d.accounts.Address(s.cmd.From), GasPrice: price}
	receipt, execErr := s.spec.Execute(ctx, b, s.d.accounts, s.cmd, opts)
	if execErr != nil {
		return s.rejected(ctx, before, price, execErr)
	}
	return s.accepted(ctx, obs, receipt)
}

// syncClock moves the model clock up to the chain head and re-evaluates
// the precondition there. Blocks stamped with wall time let the chain run
// ahead of what waitTime alone predicts.
func (s *step) syncClock(head uint64) {
	if head <= s.pre.Now {
		return
	}
	pre := s.pre.Clone()
	pre.Now = head
	s.pre = pre
	s.reasons = s.spec.Precondition(pre, s.cmd)
	s.rec.Reasons = s.reasons
}

func (s *step) rejected(ctx context.Context, before ledger.Block, price *big.Int, execErr error) (StepRecord, error) {
	shouldReject := len(s.reasons) > 0
	if !IsExpectedRejection(execErr, shouldReject, s.cmd.HasZeroParty()) {
		if !shouldReject {
			return s.fail(CodeUnexpectedRejection, execErr)
		}
		return s.fail(CodeUnexpectedError, execErr)
	}

	next := s.pre.Clone()
	after, err := s.d.backend.LatestBlock(ctx)
	if err != nil {
		return s.fail(CodeUnexpectedError, fmt.Errorf("read latest block: %w", err))
	}
	// A reverted transaction is still mined and paid for. Only a block
	// holding exactly our transaction can be attributed to it.
	if after.Number > before.Number && after.TxCount == 1 {
		fee := new(big.Int).Mul(new(big.Int).SetUint64(after.GasUsed), price)
		next.SubEth(s.cmd.From, fee)
		s.rec.Block = after.Number
		s.rec.GasUsed = after.GasUsed
		s.rec.Fee = fee
	}
	s.rec.Error = execErr.Error()

	if s.d.checkBalances {
		if err := command.Verify(ctx, s.d.backend, s.d.accounts, next, command.EthChecks(next.Accounts())); err != nil {
			return s.mismatch(err)
		}
	}
	return s.settle(next, OutcomeRejected)
}

func (s *step) accepted(ctx context.Context, obs command.Observation, receipt *ledger.Receipt) (StepRecord, error) {
	if len(s.reasons) > 0 {
		if len(s.reasons) == 1 && s.reasons[0] == command.ReasonKYCRejected {
			return s.fail(CodeUnresolvedBranch, command.ErrUnresolvedBranch)
		}
		return s.fail(CodeUnexpectedSuccess, errors.New("ledger accepted a command the model rejects"))
	}

	obs.Receipt = receipt
	next, err := s.spec.Transition(s.pre, s.cmd, obs)
	if errors.Is(err, command.ErrUnresolvedBranch) {
		return s.fail(CodeUnresolvedBranch, err)
	}
	if err != nil {
		return s.fail(CodeUnexpectedError, err)
	}
	next.SubEth(s.cmd.From, receipt.Fee())
	if receipt != nil {
		s.rec.Block = receipt.BlockNumber
		s.rec.GasUsed = receipt.GasUsed
		s.rec.Fee = receipt.Fee()
	}

	if err := model.CheckInvariants(s.pre, next); err != nil {
		return s.fail(CodeInvariantViolation, err)
	}

	checks := s.spec.Checks(next, s.cmd)
	if s.d.fullChecks {
		checks = command.FullChecks(next.Accounts(), false)
	}
	if s.d.checkBalances {
		checks = append(checks, command.EthChecks(next.Accounts())...)
	}
	if err := command.Verify(ctx, s.d.backend, s.d.accounts, next, checks); err != nil {
		return s.mismatch(err)
	}
	return s.settle(next, OutcomeAccepted)
}

func (s *step) mismatch(err error) (StepRecord, error) {
	var me *command.MismatchError
	if errors.As(err, &me) {
		return s.fail(CodePostconditionMismatch, err)
	}
	return s.fail(CodeUnexpectedError, err)
}

func cloneCommands(cmds []command.Command) []command.Command {
	out := make([]command.Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.Clone()
	}
	return out
}
