package model

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSale() SaleParams {
	return SaleParams{
		Rate:                     big.NewInt(10),
		Cap:                      big.NewInt(100),
		StartTime:                1000,
		EndTime:                  1000 + 30*86400,
		MinInvest:                big.NewInt(1),
		MaxCumulativeInvest:      big.NewInt(50),
		MaxGasPrice:              big.NewInt(50),
		MinBuyingRequestInterval: 60,
	}
}

func TestNew_ZeroCounters(t *testing.T) {
	s := New(testSale())

	assert.Equal(t, int64(0), s.WeiRaised.Int64())
	assert.Equal(t, int64(0), s.TokenSupply.Int64())
	assert.Equal(t, External, s.Owner)
	assert.Equal(t, int64(0), s.Balance(3).Int64(), "unseen account reads as zero")
	assert.Equal(t, KYCUnset, s.KYCOf(3))
}

func TestClone_IsDeep(t *testing.T) {
	s := New(testSale())
	s.AddBalance(1, big.NewInt(5))
	s.AddDeposit(2, big.NewInt(3))
	s.KYC[1] = KYCApproved
	s.FundsOwners = append(s.FundsOwners, 2)
	s.Purchases = append(s.Purchases, Purchase{Tokens: big.NewInt(50), Rate: big.NewInt(10), Wei: big.NewInt(5), Account: 1, By: 1})

	c := s.Clone()
	c.AddBalance(1, big.NewInt(1))
	c.Vault[2].SetInt64(99)
	c.KYC[1] = KYCRejected
	c.FundsOwners[0] = 7
	c.Purchases[0].Tokens.SetInt64(0)
	c.Sale.Cap.SetInt64(1)
	c.WeiRaised.SetInt64(42)

	assert.Equal(t, int64(5), s.Balance(1).Int64())
	assert.Equal(t, int64(3), s.Deposit(2).Int64())
	assert.Equal(t, KYCApproved, s.KYCOf(1))
	assert.Equal(t, Account(2), s.FundsOwners[0])
	assert.Equal(t, int64(50), s.Purchases[0].Tokens.Int64())
	assert.Equal(t, int64(100), s.Sale.Cap.Int64())
	assert.Equal(t, int64(0), s.WeiRaised.Int64())
}

func TestAccessors_ReturnCopies(t *testing.T) {
	s := New(testSale())
	s.AddTokens(1, big.NewInt(10))

	got := s.TokenBalance(1)
	got.SetInt64(0)

	assert.Equal(t, int64(10), s.TokenBalance(1).Int64())
}

func TestAddEth_IgnoresZeroAccount(t *testing.T) {
	s := New(testSale())
	s.AddEth(ZeroAccount, big.NewInt(10))
	s.SubEth(1, big.NewInt(4))

	assert.NotContains(t, s.EthBalances, ZeroAccount)
	assert.Equal(t, int64(-4), s.EthBalance(1).Int64())
}

func TestClip(t *testing.T) {
	tests := []struct {
		name   string
		raised int64
		amount int64
		want   int64
	}{
		{"below headroom", 10, 5, 5},
		{"exactly headroom", 90, 10, 10},
		{"above headroom", 95, 10, 5},
		{"cap reached", 100, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testSale())
			s.WeiRaised.SetInt64(tt.raised)
			assert.Equal(t, tt.want, s.Clip(big.NewInt(tt.amount)).Int64())
		})
	}
}

func TestClearDeposit(t *testing.T) {
	s := New(testSale())
	s.AddDeposit(1, big.NewInt(7))

	got := s.ClearDeposit(1)

	assert.Equal(t, int64(7), got.Int64())
	assert.Equal(t, int64(0), s.Deposit(1).Int64())
}

func TestAccounts_SortedIndexedOnly(t *testing.T) {
	s := New(testSale())
	s.Owner = 0
	s.Wallet = 4
	s.AddBalance(2, big.NewInt(1))
	s.AddEth(1, big.NewInt(1))
	s.KYC[3] = KYCApproved
	s.AddTokens(External, big.NewInt(1))

	assert.Equal(t, []Account{0, 1, 2, 3, 4}, s.Accounts())
}

func TestState_JSONSnapshot(t *testing.T) {
	s := New(testSale())
	s.Owner = 0
	s.KYC[1] = KYCApproved
	s.AddBalance(1, big.NewInt(5))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, KYCApproved, decoded.KYCOf(1))
	assert.Equal(t, int64(5), decoded.Balance(1).Int64())
	assert.Equal(t, int64(100), decoded.Sale.Cap.Int64())
}

func TestSaleParams_Windows(t *testing.T) {
	p := testSale()

	assert.False(t, p.InWindow(999))
	assert.True(t, p.InWindow(1000))
	assert.True(t, p.InWindow(p.EndTime))
	assert.False(t, p.InWindow(p.EndTime+1))

	assert.True(t, p.InBonusWindow(1000+BonusWindow))
	assert.False(t, p.InBonusWindow(1000+BonusWindow+1))
}

func TestSaleParams_Valid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *SaleParams)
		valid  bool
		review bool
	}{
		{"defaults", func(p *SaleParams) {}, true, true},
		{"zero rate", func(p *SaleParams) { p.Rate = big.NewInt(0) }, false, false},
		{"zero cap", func(p *SaleParams) { p.Cap = big.NewInt(0) }, false, false},
		{"nil gas price", func(p *SaleParams) { p.MaxGasPrice = nil }, false, false},
		{"min above max", func(p *SaleParams) { p.MinInvest = big.NewInt(51) }, false, false},
		{"zero interval", func(p *SaleParams) { p.MinBuyingRequestInterval = 0 }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testSale()
			tt.mutate(&p)
			assert.Equal(t, tt.valid, p.Valid())
			assert.Equal(t, tt.review, p.ValidForReview())
		})
	}
}
