package oracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/simledger"
)

const (
	day      uint64 = 24 * 3600
	genesis  uint64 = 1_700_000_000
	accounts        = 5

	owner  = model.Account(0)
	alice  = model.Account(1)
	bob    = model.Account(2)
	carol  = model.Account(3)
	wallet = model.Account(4)
)

// simConfig opens the sale at genesis: window [genesis, genesis+30d],
// cap 100, min 1, max 50, rate 10, max gas price 50.
func simConfig(faults ...simledger.Fault) simledger.Config {
	return simledger.Config{
		Accounts:                 accounts,
		InitialBalance:           big.NewInt(1_000_000_000_000),
		GasPrice:                 big.NewInt(1),
		GenesisTime:              genesis,
		StartOffset:              0,
		Duration:                 30 * day,
		Rate:                     big.NewInt(10),
		Cap:                      big.NewInt(100),
		MinInvest:                big.NewInt(1),
		MaxCumulativeInvest:      big.NewInt(50),
		MaxGasPrice:              big.NewInt(50),
		MinBuyingRequestInterval: 60,
		Faults:                   faults,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newDriver returns an initialized driver with every check enabled.
func newDriver(t *testing.T, b ledger.Session) *Driver {
	t.Helper()
	t.Cleanup(func() { _ = b.Close() })
	d := NewDriver(b, WithLogger(quietLogger()), WithBalanceChecks(true), WithFullChecks(true))
	require.NoError(t, d.Init(context.Background()))
	return d
}

func newSimDriver(t *testing.T, faults ...simledger.Fault) *Driver {
	t.Helper()
	l, err := simledger.New(simConfig(faults...))
	require.NoError(t, err)
	return newDriver(t, l)
}

// overrides wraps a session and replaces some of its calls.
type overrides struct {
	ledger.Session
	pause   func() (*ledger.Receipt, error)
	unpause func() (*ledger.Receipt, error)
	buy     func() (*ledger.Receipt, error)
}

func (o *overrides) Pause(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if o.pause != nil {
		return o.pause()
	}
	return o.Session.Pause(ctx, opts)
}

func (o *overrides) Unpause(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if o.unpause != nil {
		return o.unpause()
	}
	return o.Session.Unpause(ctx, opts)
}

func (o *overrides) BuyTokens(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if o.buy != nil {
		return o.buy()
	}
	return o.Session.BuyTokens(ctx, opts)
}

func reverted(method string) func() (*ledger.Receipt, error) {
	return func() (*ledger.Receipt, error) {
		return nil, fmt.Errorf("%s: %w", method, ledger.ErrReverted)
	}
}

// sessionFactory opens simulated sessions and can wrap each one.
type sessionFactory struct {
	cfg  simledger.Config
	wrap func(ledger.Session) ledger.Session
}

func (f sessionFactory) Open(ctx context.Context) (ledger.Session, error) {
	s, err := simledger.NewFactory(f.cfg).Open(ctx)
	if err != nil {
		return nil, err
	}
	if f.wrap != nil {
		return f.wrap(s), nil
	}
	return s, nil
}
