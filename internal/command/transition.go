package command

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
)

// ErrUnresolvedBranch is returned by a transition the model cannot predict:
// an accepted purchase from a KYC-rejected investor. What the ledger should
// do with those funds is undecided, so the oracle flags the run instead of
// guessing.
var ErrUnresolvedBranch = errors.New("unresolved branch: purchase accepted from KYC-rejected investor")

// Observation carries values read from the ledger around execution that a
// transition depends on.
type Observation struct {
	Receipt *ledger.Receipt
	// SupplyBefore is the token supply read right before a finalize.
	SupplyBefore *big.Int
}

var (
	bonusNumerator   = big.NewInt(105)
	bonusDenominator = big.NewInt(100)
	mintNumerator    = big.NewInt(49)
	mintDenominator  = big.NewInt(51)
)

// TokensFor converts a contribution into token base units at rate, applying
// the 5% bonus with integer truncation when bonus is set.
func TokensFor(wei, rate *big.Int, bonus bool) *big.Int {
	tokens := new(big.Int).Mul(wei, rate)
	if bonus {
		tokens.Mul(tokens, bonusNumerator)
		tokens.Quo(tokens, bonusDenominator)
	}
	return tokens
}

// FinalizeMint is the amount minted to the wallet on finalize for a token
// supply of supply: floor(supply*49/51).
func FinalizeMint(supply *big.Int) *big.Int {
	m := new(big.Int).Mul(supply, mintNumerator)
	return m.Quo(m, mintDenominator)
}

// mint credits a purchase of wei to investor at the current rate.
func mint(st *model.State, investor, by model.Account, wei *big.Int, bonus bool) {
	tokens := TokensFor(wei, st.Sale.Rate, bonus)
	st.AddBalance(investor, wei)
	st.AddTokens(investor, tokens)
	st.WeiRaised.Add(st.WeiRaised, wei)
	st.TokensSold.Add(st.TokensSold, tokens)
	st.CrowdsaleSupply.Add(st.CrowdsaleSupply, tokens)
	st.TokenSupply.Add(st.TokenSupply, tokens)
	st.Bonus[investor] = false
	st.Purchases = append(st.Purchases, model.Purchase{
		Tokens:  tokens,
		Rate:    new(big.Int).Set(st.Sale.Rate),
		Wei:     new(big.Int).Set(wei),
		Account: investor,
		By:      by,
	})
}

func setWalletTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.Wallet = c.Target
	return next, nil
}

func setTokenTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.Token = c.Target
	return next, nil
}

func claimVaultFundsTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	refund(next, c.From)
	return next, nil
}

// refund returns an investor's whole vault deposit.
func refund(st *model.State, investor model.Account) {
	d := st.ClearDeposit(investor)
	st.AddBalance(investor, d)
	st.AddEth(investor, d)
}

func refundAllTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	for _, idx := range c.Indexes {
		if idx >= uint64(len(next.FundsOwners)) {
			return nil, fmt.Errorf("refund index %d out of range (%d funders)", idx, len(next.FundsOwners))
		}
		refund(next, next.FundsOwners[idx])
	}
	return next, nil
}

func buyTokensTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	value := orZero(c.Value)
	next := st.Clone()

	switch st.KYCOf(c.From) {
	case model.KYCApproved:
		wei := next.Clip(value)
		mint(next, c.From, c.From, wei, next.Sale.InBonusWindow(next.Now))
		next.SubEth(c.From, wei)
	case model.KYCRejected:
		return nil, ErrUnresolvedBranch
	default:
		if next.Sale.InBonusWindow(next.Now) {
			next.Bonus[c.From] = true
		}
		if !next.HasFunder(c.From) {
			next.FundsOwners = append(next.FundsOwners, c.From)
		}
		next.AddDeposit(c.From, value)
		next.SubEth(c.From, value)
	}
	return next, nil
}

func validatePurchaseTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.KYC[c.Target] = model.KYCApproved

	deposit := next.Deposit(c.Target)
	if deposit.Sign() > 0 {
		wei := next.Clip(deposit)
		mint(next, c.Target, c.From, wei, st.HasBonus(c.Target))
		next.ClearDeposit(c.Target)
		// Whatever the cap could not absorb goes back to the investor.
		next.AddEth(c.Target, new(big.Int).Sub(deposit, wei))
	}
	return next, nil
}

func rejectPurchaseTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.KYC[c.Target] = model.KYCRejected

	if deposit := next.Deposit(c.Target); deposit.Sign() > 0 {
		wei := next.Clip(deposit)
		next.AddDeposit(c.Target, new(big.Int).Neg(wei))
		next.AddBalance(c.Target, wei)
		next.AddEth(c.Target, wei)
	}
	return next, nil
}

func pauseCrowdsaleTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.CrowdsalePaused = c.Pause
	return next, nil
}

func pauseTokenTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.TokenPaused = c.Pause
	return next, nil
}

func finalizeTransition(st *model.State, _ Command, obs Observation) (*model.State, error) {
	next := st.Clone()
	supply := next.TokenSupply
	if obs.SupplyBefore != nil {
		supply = new(big.Int).Set(obs.SupplyBefore)
	}
	toMint := FinalizeMint(supply)

	next.AddTokens(next.Wallet, toMint)
	next.TokenSupply = new(big.Int).Add(supply, toMint)
	next.TokenOwner = next.Wallet
	next.TokenPaused = false
	next.Finalized = true
	next.AddEth(next.Wallet, next.WeiRaised)
	return next, nil
}

func burnTokensTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	tokens := orZero(c.Tokens)
	next := st.Clone()
	next.AddTokens(c.From, new(big.Int).Neg(tokens))
	next.CrowdsaleSupply.Sub(next.CrowdsaleSupply, tokens)
	next.TokenSupply.Sub(next.TokenSupply, tokens)
	return next, nil
}

func waitTimeTransition(st *model.State, c Command, _ Observation) (*model.State, error) {
	next := st.Clone()
	next.Now += c.Seconds
	return next, nil
}

func macroTransition(_ *model.State, c Command, _ Observation) (*model.State, error) {
	return nil, fmt.Errorf("%s is a macro and must be expanded before it runs", c.Kind)
}
