package sequence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
)

const t0 uint64 = 1_700_000_000

func testState() *model.State {
	st := model.New(model.SaleParams{
		Rate:                     big.NewInt(10),
		Cap:                      big.NewInt(100),
		StartTime:                t0,
		EndTime:                  t0 + 30*24*3600,
		MinInvest:                big.NewInt(1),
		MaxCumulativeInvest:      big.NewInt(50),
		MaxGasPrice:              big.NewInt(50),
		MinBuyingRequestInterval: 60,
	})
	st.Owner = 0
	st.Wallet = 4
	st.TokenPaused = true
	st.Now = t0 - 3600
	return st
}

func quietShrinker(budget int) *Shrinker {
	return &Shrinker{MaxAttempts: budget, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := NewGenerator(command.DefaultGenConfig(5))

	a, err := g.Generate(42, testState(), 60)
	require.NoError(t, err)
	b, err := g.Generate(42, testState(), 60)
	require.NoError(t, err)
	require.Len(t, a, 60)

	sa := make([]string, len(a))
	sb := make([]string, len(b))
	for i := range a {
		sa[i], sb[i] = a[i].String(), b[i].String()
	}
	assert.Equal(t, sa, sb)
}

func TestGenerate_RestrictedKinds(t *testing.T) {
	g := NewGenerator(command.DefaultGenConfig(5), command.KindWaitTime, command.KindBuyTokens)

	cmds, err := g.Generate(7, testState(), 40)
	require.NoError(t, err)
	for _, c := range cmds {
		assert.Contains(t, []command.Kind{command.KindWaitTime, command.KindBuyTokens}, c.Kind)
	}
}

func TestGenerate_KeepsMacroUnexpanded(t *testing.T) {
	g := NewGenerator(command.DefaultGenConfig(5), command.KindFundToCap)

	cmds, err := g.Generate(3, testState(), 2)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	for _, c := range cmds {
		assert.Equal(t, command.KindFundToCap, c.Kind)
		assert.Empty(t, c.Origin)
	}
}

func TestGenerate_DoesNotMutateStart(t *testing.T) {
	st := testState()
	before := st.Clone()

	_, err := NewGenerator(command.DefaultGenConfig(5)).Generate(3, st, 50)
	require.NoError(t, err)
	assert.Equal(t, before.Now, st.Now)
	assert.Equal(t, before.WeiRaised.String(), st.WeiRaised.String())
	assert.Empty(t, st.Purchases)
}

func TestSeeds(t *testing.T) {
	a := Seeds(1, 5)
	assert.Equal(t, a, Seeds(1, 5))
	assert.NotEqual(t, a, Seeds(2, 5))
	seen := map[uint64]bool{}
	for _, s := range a {
		seen[s] = true
	}
	assert.Len(t, seen, 5)
}

// hasBigBuy fails whenever some purchase is at least 10 wei.
func hasBigBuy(_ context.Context, cmds []command.Command) (bool, error) {
	for _, c := range cmds {
		if c.Kind == command.KindBuyTokens && c.Value != nil && c.Value.Cmp(big.NewInt(10)) >= 0 {
			return true, nil
		}
	}
	return false, nil
}

func TestShrink_MinimalSequence(t *testing.T) {
	cmds := []command.Command{
		command.WaitTime(3600),
		command.PauseCrowdsale(0, true),
		command.BuyTokens(1, big.NewInt(3)),
		command.BuyTokens(2, big.NewInt(37)).WithGasPrice(big.NewInt(99)),
		command.ValidatePurchase(0, 2),
		command.WaitTime(86400),
	}

	res, err := quietShrinker(0).Shrink(context.Background(), cmds, hasBigBuy)
	require.NoError(t, err)
	require.Len(t, res.Commands, 1)
	assert.Equal(t, "buyTokens(from=acct2, value=10)", res.Commands[0].String())
	assert.False(t, res.Exhausted)
	assert.Len(t, cmds, 6)
}

func TestShrink_Budget(t *testing.T) {
	cmds := []command.Command{
		command.BuyTokens(1, big.NewInt(1000)),
		command.WaitTime(3600),
	}
	res, err := quietShrinker(2).Shrink(context.Background(), cmds, hasBigBuy)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 2, res.Attempts)
}

func TestShrink_PropagatesErrors(t *testing.T) {
	boom := errors.New("ledger unavailable")
	_, err := quietShrinker(0).Shrink(context.Background(),
		[]command.Command{command.WaitTime(1), command.WaitTime(2)},
		func(context.Context, []command.Command) (bool, error) { return false, boom })
	require.ErrorIs(t, err, boom)
}

func TestShrink_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := quietShrinker(0).Shrink(ctx,
		[]command.Command{command.BuyTokens(1, big.NewInt(40)), command.WaitTime(60)}, hasBigBuy)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Attempts)
	assert.Len(t, res.Commands, 2)
}

func shrunk(c command.Command) []command.Command {
	var out []command.Command
	for _, v := range commandShrinker(c).All() {
		out = append(out, v.(command.Command))
	}
	return out
}

func TestCommandShrinker(t *testing.T) {
	alts := shrunk(command.RefundAll(0, 1, 2).WithGasPrice(big.NewInt(5)))
	require.Len(t, alts, 3)
	assert.Nil(t, alts[0].GasPrice)
	assert.Equal(t, []uint64{2}, alts[1].Indexes)
	assert.Equal(t, []uint64{1}, alts[2].Indexes)

	assert.Empty(t, shrunk(command.BuyTokens(1, big.NewInt(1))))
	assert.Len(t, shrunk(command.BuyTokens(1, big.NewInt(2))), 1)
	assert.False(t, shrunk(command.FundToCap(true))[0].Finalize)

	var secs []uint64
	for _, c := range shrunk(command.WaitTime(11)) {
		secs = append(secs, c.Seconds)
	}
	assert.Equal(t, []uint64{6, 9, 10}, secs)

	var values []string
	for _, c := range shrunk(command.BuyTokens(1, big.NewInt(37))) {
		values = append(values, c.Value.String())
	}
	assert.Equal(t, []string{"19", "28", "33", "35", "36"}, values)
}

func TestCommandShrinker_LeavesInputAlone(t *testing.T) {
	c := command.BuyTokens(1, big.NewInt(8)).WithGasPrice(big.NewInt(3))
	_ = shrunk(c)

	assert.Equal(t, "8", c.Value.String())
	assert.Equal(t, "3", c.GasPrice.String())
}
