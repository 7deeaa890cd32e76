package model

import (
	"errors"
	"fmt"
	"math/big"
)

// InvariantError reports a broken state invariant.
type InvariantError struct {
	Rule    string
	Account Account
	Detail  string
}

func (e *InvariantError) Error() string {
	if e.Account.Indexed() {
		return fmt.Sprintf("invariant %s violated for %s: %s", e.Rule, e.Account, e.Detail)
	}
	return fmt.Sprintf("invariant %s violated: %s", e.Rule, e.Detail)
}

// Invariant rule names.
const (
	RuleCapRespected     = "wei_raised_within_cap"
	RuleFinalizeOnce     = "finalize_monotonic"
	RuleApprovedNoVault  = "approved_vault_empty"
	RuleApprovedMaxLimit = "approved_within_max_cumulative"
	RuleMinNotAboveMax   = "min_invest_not_above_max"
	RuleNonNegative      = "non_negative_amounts"
)

// CheckInvariants verifies the invariants that must hold after every applied
// transition from prev to next. prev may be nil for the initial state.
// All violations are returned joined.
func CheckInvariants(prev, next *State) error {
	var errs []error
	capv, minv, maxv := orZero(next.Sale.Cap), orZero(next.Sale.MinInvest), orZero(next.Sale.MaxCumulativeInvest)
	if next.WeiRaised.Cmp(capv) > 0 {
		errs = append(errs, &InvariantError{
			Rule:    RuleCapRespected,
			Account: External,
			Detail:  fmt.Sprintf("weiRaised %s > cap %s", next.WeiRaised, capv),
		})
	}
	if prev != nil && prev.Finalized && !next.Finalized {
		errs = append(errs, &InvariantError{Rule: RuleFinalizeOnce, Account: External, Detail: "finalized went back to false"})
	}
	if len(next.Purchases) > 0 && minv.Cmp(maxv) > 0 {
		errs = append(errs, &InvariantError{
			Rule:    RuleMinNotAboveMax,
			Account: External,
			Detail:  fmt.Sprintf("minInvest %s > maxCumulativeInvest %s", minv, maxv),
		})
	}

	for _, a := range next.Accounts() {
		if next.KYCOf(a) == KYCApproved {
			if d := next.Deposit(a); d.Sign() != 0 {
				errs = append(errs, &InvariantError{Rule: RuleApprovedNoVault, Account: a, Detail: "vault holds " + d.String()})
			}
			total := new(big.Int).Add(next.Balance(a), next.Deposit(a))
			if total.Cmp(maxv) > 0 {
				errs = append(errs, &InvariantError{
					Rule:    RuleApprovedMaxLimit,
					Account: a,
					Detail:  fmt.Sprintf("balance+vault %s > max %s", total, maxv),
				})
			}
		}
		for name, v := range map[string]*big.Int{
			"balance": next.Balance(a),
			"vault":   next.Deposit(a),
			"tokens":  next.TokenBalance(a),
		} {
			if v.Sign() < 0 {
				errs = append(errs, &InvariantError{Rule: RuleNonNegative, Account: a, Detail: name + " is " + v.String()})
			}
		}
	}
	return errors.Join(errs...)
}

// orZero reads an unset sale parameter as zero, as CapReached does.
func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
