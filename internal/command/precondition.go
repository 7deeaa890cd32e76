package command

import (
	"math/big"

	"github.com/roach88/saleoracle/internal/model"
)

// reasons accumulates broken rules in declaration order.
type reasons []Reason

func (r *reasons) when(cond bool, reason Reason) {
	if cond {
		*r = append(*r, reason)
	}
}

// tokenDetached reports whether the sale points at something other than the
// token it was deployed with. Minting through it then has no contract to call.
func tokenDetached(st *model.State) bool {
	return st.Token != model.External
}

// gasExceeded only applies inside the sale window.
func gasExceeded(st *model.State, c Command) bool {
	return c.GasPrice != nil &&
		st.Sale.MaxGasPrice != nil &&
		c.GasPrice.Cmp(st.Sale.MaxGasPrice) > 0 &&
		st.Sale.InWindow(st.Now)
}

func setWalletPrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	r.when(c.From != st.Owner, ReasonNotOwner)
	return r
}

func setTokenPrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	r.when(c.From != st.Owner, ReasonNotOwner)
	r.when(st.Sale.InWindow(st.Now), ReasonInSaleWindow)
	return r
}

func claimVaultFundsPrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	r.when(st.CrowdsalePaused, ReasonPaused)
	r.when(!st.Finalized, ReasonNotFinalized)
	return r
}

func refundAllPrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	r.when(st.CrowdsalePaused, ReasonPaused)
	r.when(!st.Finalized, ReasonNotFinalized)
	r.when(c.From != st.Owner, ReasonNotOwner)
	for _, idx := range c.Indexes {
		if idx >= uint64(len(st.FundsOwners)) {
			r = append(r, ReasonUnknownFunder)
			break
		}
	}
	return r
}

func buyTokensPrecondition(st *model.State, c Command) []Reason {
	value := orZero(c.Value)
	projected := new(big.Int).Add(st.Balance(c.From), st.Deposit(c.From))
	projected.Add(projected, value)

	var r reasons
	r.when(!st.Sale.InWindow(st.Now), ReasonOutsideSaleWindow)
	r.when(st.CrowdsalePaused, ReasonPaused)
	r.when(!st.Sale.Valid(), ReasonInvalidParams)
	r.when(st.Finalized, ReasonFinalized)
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	r.when(value.Sign() == 0, ReasonZeroValue)
	if st.Sale.Valid() {
		r.when(projected.Cmp(st.Sale.MaxCumulativeInvest) > 0, ReasonMaxExceeded)
		r.when(value.Cmp(st.Sale.MinInvest) < 0, ReasonMinNotReached)
	}
	r.when(gasExceeded(st, c), ReasonGasExceeded)
	r.when(st.CapReached(), ReasonCapReached)
	r.when(st.KYCOf(c.From) == model.KYCRejected, ReasonKYCRejected)
	r.when(st.KYCOf(c.From) == model.KYCApproved && tokenDetached(st), ReasonTokenDetached)
	return r
}

// reviewPrecondition is shared by validatePurchase and rejectPurchase.
func reviewPrecondition(st *model.State, c Command) reasons {
	deposit := st.Deposit(c.Target)
	projected := new(big.Int).Add(st.Balance(c.Target), deposit)

	var r reasons
	r.when(st.CrowdsalePaused, ReasonPaused)
	r.when(!st.Sale.ValidForReview(), ReasonInvalidParams)
	r.when(st.Finalized, ReasonFinalized)
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	if st.Sale.Valid() {
		r.when(projected.Cmp(st.Sale.MaxCumulativeInvest) > 0, ReasonMaxExceeded)
		r.when(deposit.Sign() > 0 && deposit.Cmp(st.Sale.MinInvest) < 0, ReasonMinNotReached)
	}
	r.when(gasExceeded(st, c), ReasonGasExceeded)
	r.when(c.From != st.Owner, ReasonNotOwner)
	return r
}

func validatePurchasePrecondition(st *model.State, c Command) []Reason {
	r := reviewPrecondition(st, c)
	r.when(st.Deposit(c.Target).Sign() > 0 && tokenDetached(st), ReasonTokenDetached)
	return r
}

func rejectPurchasePrecondition(st *model.State, c Command) []Reason {
	return reviewPrecondition(st, c)
}

func pauseCrowdsalePrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(st.CrowdsalePaused == c.Pause, ReasonSameState)
	r.when(c.From != st.Owner, ReasonNotOwner)
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	return r
}

func pauseTokenPrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(st.TokenPaused == c.Pause, ReasonSameState)
	r.when(!st.Finalized, ReasonNotFinalized)
	r.when(c.From != st.TokenOwner, ReasonNotTokenOwner)
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	return r
}

func finalizePrecondition(st *model.State, c Command) []Reason {
	var r reasons
	r.when(st.Finalized, ReasonFinalized)
	r.when(st.CrowdsalePaused, ReasonPaused)
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	r.when(st.Now < st.Sale.EndTime && !st.CapReached(), ReasonSaleNotOver)
	r.when(c.From != st.Owner, ReasonNotOwner)
	r.when(tokenDetached(st), ReasonTokenDetached)
	return r
}

func burnTokensPrecondition(st *model.State, c Command) []Reason {
	tokens := orZero(c.Tokens)

	var r reasons
	r.when(st.TokenPaused, ReasonTokenPaused)
	r.when(st.TokenBalance(c.From).Cmp(tokens) < 0, ReasonInsufficientTokens)
	r.when(tokens.Sign() == 0, ReasonZeroAmount)
	r.when(c.HasZeroParty(), ReasonZeroAddress)
	return r
}

func noPrecondition(*model.State, Command) []Reason {
	return nil
}
