package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/model"
)

func TestExpandFundToCap_ReachesCapAndFinalizes(t *testing.T) {
	st := newTestState()
	st.Now = t0 - 100
	st.CrowdsalePaused = true

	cmds := ExpandFundToCap(st, true, 5)
	require.NotEmpty(t, cmds)

	assert.Equal(t, PauseCrowdsale(owner, false).Kind, cmds[0].Kind)
	assert.Equal(t, KindWaitTime, cmds[1].Kind)
	assert.Equal(t, uint64(100), cmds[1].Seconds)
	assert.Equal(t, KindFinalize, cmds[len(cmds)-1].Kind)
	for _, c := range cmds {
		assert.Equal(t, KindFundToCap, c.Origin)
		assert.NotEqual(t, vaultWallet, c.From, "the wallet never buys")
	}

	final, err := Simulate(st, cmds, 5)
	require.NoError(t, err)
	assert.True(t, final.CapReached())
	assert.True(t, final.Finalized)
	assert.NoError(t, model.CheckInvariants(st, final))
}

func TestExpandFundToCap_ApprovedInvestorsSkipValidation(t *testing.T) {
	st := newTestState()
	st.KYC[alice] = model.KYCApproved
	st.KYC[bob] = model.KYCApproved

	cmds := ExpandFundToCap(st, false, 5)

	require.Len(t, cmds, 2)
	assert.Equal(t, BuyTokens(alice, wei(50)).String(), cmds[0].String())
	assert.Equal(t, BuyTokens(bob, wei(50)).String(), cmds[1].String())
}

func TestExpandFundToCap_SkipsRejectedAndFullInvestors(t *testing.T) {
	st := newTestState()
	st.KYC[alice] = model.KYCRejected
	st.KYC[bob] = model.KYCApproved
	st.AddBalance(bob, wei(50))

	cmds := ExpandFundToCap(st, false, 5)

	for _, c := range cmds {
		assert.NotEqual(t, alice, c.From)
		assert.NotEqual(t, bob, c.From)
	}
}

func TestExpandFundToCap_NothingAfterFinalize(t *testing.T) {
	st := newTestState()
	st.Finalized = true

	assert.Empty(t, ExpandFundToCap(st, true, 5))
}

func TestSimulate_ExpandsMacros(t *testing.T) {
	st := newTestState()

	final, err := Simulate(st, []Command{FundToCap(false), WaitTime(31 * day), Finalize(owner)}, 5)
	require.NoError(t, err)

	assert.True(t, final.Finalized)
	assert.Equal(t, int64(100), final.WeiRaised.Int64())
}

// Dropping the commands in front of the macro, as shrinking does, must not
// stop it from reaching the cap.
func TestSimulate_MacroFollowsReachedState(t *testing.T) {
	prefix := []Command{ValidatePurchase(owner, alice), BuyTokens(alice, wei(50))}

	for _, cmds := range [][]Command{
		append(append([]Command{}, prefix...), FundToCap(false)),
		{FundToCap(false)},
	} {
		final, err := Simulate(newTestState(), cmds, 5)
		require.NoError(t, err)
		assert.True(t, final.CapReached())
		assert.Equal(t, int64(100), final.WeiRaised.Int64())
	}

	ahead := ExpandFundToCap(newTestState(), false, 5)
	late, err := Simulate(newTestState(), prefix, 5)
	require.NoError(t, err)
	assert.NotEqual(t, len(ahead), len(ExpandFundToCap(late, false, 5)))
}
