package command

import (
	"math/big"

	"github.com/roach88/saleoracle/internal/model"
)

// ExpandFundToCap turns the fund-to-cap macro into primitive commands for
// the state st: unpause the sale if needed, wait for the window to open,
// buy (and validate, for investors without KYC) until the cap is reached,
// then optionally wait for the window to close and finalize.
//
// Expansion simulates each emitted command against the model so later
// commands see the effects of earlier ones. The expansion is best effort:
// when the accounts run out of headroom the cap stays unreached.
func ExpandFundToCap(st *model.State, finalize bool, accounts int) []Command {
	if st.Finalized {
		return nil
	}

	cur := st.Clone()
	var out []Command
	emit := func(c Command) {
		c.Origin = KindFundToCap
		out = append(out, c)
		if next, _, err := Apply(cur, c); err == nil {
			cur = next
		}
	}

	if cur.CrowdsalePaused {
		emit(PauseCrowdsale(cur.Owner, false))
	}

	if !cur.CapReached() && cur.Sale.Valid() {
		if cur.Now < cur.Sale.StartTime {
			emit(WaitTime(cur.Sale.StartTime - cur.Now))
		}
		for i := 1; i < accounts && !cur.CapReached() && cur.Sale.InWindow(cur.Now); i++ {
			investor := model.Account(i)
			if investor == cur.Wallet || cur.KYCOf(investor) == model.KYCRejected {
				continue
			}
			headroom := new(big.Int).Sub(cur.Sale.MaxCumulativeInvest, cur.Balance(investor))
			headroom.Sub(headroom, cur.Deposit(investor))
			if headroom.Cmp(cur.Sale.MinInvest) < 0 {
				continue
			}
			value := cur.CapRemaining()
			if value.Cmp(headroom) > 0 {
				value = headroom
			}
			if value.Cmp(cur.Sale.MinInvest) < 0 {
				value = new(big.Int).Set(cur.Sale.MinInvest)
			}

			emit(BuyTokens(investor, value))
			if cur.Deposit(investor).Sign() > 0 {
				emit(ValidatePurchase(cur.Owner, investor))
			}
		}
	}

	if finalize {
		if cur.Now <= cur.Sale.EndTime {
			emit(WaitTime(cur.Sale.EndTime + 1 - cur.Now))
		}
		emit(Finalize(cur.Owner))
	}
	return out
}
