package command

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/model"
)

const (
	t0    uint64 = 1_700_000_000
	owner        = model.Account(0)
	alice        = model.Account(1)
	bob          = model.Account(2)
	carol        = model.Account(3)
	vaultWallet  = model.Account(4)
)

// newTestState is the sale used across the catalog tests: window
// [t0, t0+30d], cap 100, min 1, max 50, rate 10, one day into the sale.
func newTestState() *model.State {
	st := model.New(model.SaleParams{
		Rate:                     big.NewInt(10),
		Cap:                      big.NewInt(100),
		StartTime:                t0,
		EndTime:                  t0 + 30*day,
		MinInvest:                big.NewInt(1),
		MaxCumulativeInvest:      big.NewInt(50),
		MaxGasPrice:              big.NewInt(50),
		MinBuyingRequestInterval: 60,
	})
	st.Owner = owner
	st.Wallet = vaultWallet
	st.TokenPaused = true
	st.Now = t0 + day
	return st
}

func wei(n int64) *big.Int { return big.NewInt(n) }

// assertSameState compares states by their JSON snapshot, which ignores the
// internal representation of equal big integers.
func assertSameState(t *testing.T, want, got *model.State) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}
