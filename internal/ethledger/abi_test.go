package ethledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABI_DeclaresCalledMembers(t *testing.T) {
	sale, err := crowdsaleMetaData.GetAbi()
	require.NoError(t, err)
	for _, m := range []string{
		"owner", "wallet", "token", "vault", "paused", "isFinalized", "rate", "cap",
		"startTime", "endTime", "minInvest", "maxCumulativeInvest", "maxGasPrice",
		"minBuyingRequestInterval", "weiRaised", "setWallet", "setToken", "claimVaultFunds",
		"refundAll", "buyTokens", "validatePurchase", "rejectPurchase", "pause", "unpause", "finalize",
	} {
		assert.Contains(t, sale.Methods, m)
	}
	assert.True(t, sale.Methods["buyTokens"].IsPayable())
	assert.False(t, sale.Methods["validatePurchase"].IsPayable())

	vault, err := vaultMetaData.GetAbi()
	require.NoError(t, err)
	assert.Contains(t, vault.Methods, "deposited")

	token, err := tokenMetaData.GetAbi()
	require.NoError(t, err)
	for _, m := range []string{"owner", "paused", "totalSupply", "balanceOf", "pause", "unpause", "burn"} {
		assert.Contains(t, token.Methods, m)
	}
}

func TestABI_PacksArguments(t *testing.T) {
	sale, err := crowdsaleMetaData.GetAbi()
	require.NoError(t, err)

	data, err := sale.Pack("refundAll", []*big.Int{big.NewInt(0), big.NewInt(2)})
	require.NoError(t, err)
	// selector, offset, length and two words
	assert.Len(t, data, 4+32*4)

	data, err = sale.Pack("validatePurchase", common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Len(t, data, 4+32)

	_, err = sale.Pack("buyTokens", big.NewInt(1))
	assert.Error(t, err, "buyTokens takes no arguments")
}
