package model

import "math/big"

// BonusWindow is how long after the sale start contributions earn the bonus.
const BonusWindow uint64 = 7 * 24 * 60 * 60

// SaleParams is the immutable configuration of the sale, read once from the
// ledger when a run starts.
type SaleParams struct {
	Rate                     *big.Int `json:"rate"`
	Cap                      *big.Int `json:"cap"`
	StartTime                uint64   `json:"start_time"`
	EndTime                  uint64   `json:"end_time"`
	MinInvest                *big.Int `json:"min_invest"`
	MaxCumulativeInvest      *big.Int `json:"max_cumulative_invest"`
	MaxGasPrice              *big.Int `json:"max_gas_price"`
	MinBuyingRequestInterval uint64   `json:"min_buying_request_interval"`
}

// Valid reports whether the purchase parameters allow buying at all: every
// amount is non-zero and the minimum does not exceed the cumulative maximum.
func (p SaleParams) Valid() bool {
	for _, v := range []*big.Int{p.Rate, p.Cap, p.MaxGasPrice, p.MinInvest, p.MaxCumulativeInvest} {
		if v == nil || v.Sign() == 0 {
			return false
		}
	}
	return p.MinInvest.Cmp(p.MaxCumulativeInvest) <= 0
}

// ValidForReview is Valid plus the request interval that purchase review
// (validate or reject) additionally depends on.
func (p SaleParams) ValidForReview() bool {
	return p.Valid() && p.MinBuyingRequestInterval != 0
}

// InWindow reports whether now falls inside the sale window, bounds included.
func (p SaleParams) InWindow(now uint64) bool {
	return now >= p.StartTime && now <= p.EndTime
}

// InBonusWindow reports whether a contribution made at now earns the bonus.
func (p SaleParams) InBonusWindow(now uint64) bool {
	return now <= p.StartTime+BonusWindow
}

// Clone returns a deep copy of p.
func (p SaleParams) Clone() SaleParams {
	c := p
	c.Rate = cloneInt(p.Rate)
	c.Cap = cloneInt(p.Cap)
	c.MinInvest = cloneInt(p.MinInvest)
	c.MaxCumulativeInvest = cloneInt(p.MaxCumulativeInvest)
	c.MaxGasPrice = cloneInt(p.MaxGasPrice)
	return c
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
