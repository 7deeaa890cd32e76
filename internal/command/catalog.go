package command

import (
	"fmt"

	"pgregory.net/rand"

	"github.com/roach88/saleoracle/internal/model"
)

// Spec bundles the generator, model and executor of one command kind.
type Spec struct {
	Kind         Kind
	Generate     func(r *rand.Rand, st *model.State, cfg GenConfig) Command
	Precondition func(st *model.State, c Command) []Reason
	Transition   func(st *model.State, c Command, obs Observation) (*model.State, error)
	Execute      Executor
	Checks       func(st *model.State, c Command) []Check
	// Macro kinds are expanded when reached and never executed.
	Macro bool
}

var catalog = map[Kind]*Spec{
	KindSetWallet: {
		Kind: KindSetWallet, Generate: genSetWallet, Precondition: setWalletPrecondition,
		Transition: setWalletTransition, Execute: executeSetWallet, Checks: setWalletChecks,
	},
	KindSetToken: {
		Kind: KindSetToken, Generate: genSetToken, Precondition: setTokenPrecondition,
		Transition: setTokenTransition, Execute: executeSetToken, Checks: setTokenChecks,
	},
	KindClaimVaultFunds: {
		Kind: KindClaimVaultFunds, Generate: genClaimVaultFunds, Precondition: claimVaultFundsPrecondition,
		Transition: claimVaultFundsTransition, Execute: executeClaimVaultFunds, Checks: claimVaultFundsChecks,
	},
	KindRefundAll: {
		Kind: KindRefundAll, Generate: genRefundAll, Precondition: refundAllPrecondition,
		Transition: refundAllTransition, Execute: executeRefundAll, Checks: refundAllChecks,
	},
	KindBuyTokens: {
		Kind: KindBuyTokens, Generate: genBuyTokens, Precondition: buyTokensPrecondition,
		Transition: buyTokensTransition, Execute: executeBuyTokens, Checks: buyTokensChecks,
	},
	KindValidatePurchase: {
		Kind: KindValidatePurchase, Generate: genValidatePurchase, Precondition: validatePurchasePrecondition,
		Transition: validatePurchaseTransition, Execute: executeValidatePurchase, Checks: reviewChecks,
	},
	KindRejectPurchase: {
		Kind: KindRejectPurchase, Generate: genRejectPurchase, Precondition: rejectPurchasePrecondition,
		Transition: rejectPurchaseTransition, Execute: executeRejectPurchase, Checks: reviewChecks,
	},
	KindPauseCrowdsale: {
		Kind: KindPauseCrowdsale, Generate: genPauseCrowdsale, Precondition: pauseCrowdsalePrecondition,
		Transition: pauseCrowdsaleTransition, Execute: executePauseCrowdsale, Checks: pauseCrowdsaleChecks,
	},
	KindPauseToken: {
		Kind: KindPauseToken, Generate: genPauseToken, Precondition: pauseTokenPrecondition,
		Transition: pauseTokenTransition, Execute: executePauseToken, Checks: pauseTokenChecks,
	},
	KindFinalize: {
		Kind: KindFinalize, Generate: genFinalize, Precondition: finalizePrecondition,
		Transition: finalizeTransition, Execute: executeFinalize, Checks: finalizeChecks,
	},
	KindBurnTokens: {
		Kind: KindBurnTokens, Generate: genBurnTokens, Precondition: burnTokensPrecondition,
		Transition: burnTokensTransition, Execute: executeBurnTokens, Checks: burnTokensChecks,
	},
	KindWaitTime: {
		Kind: KindWaitTime, Generate: genWaitTime, Precondition: noPrecondition,
		Transition: waitTimeTransition, Execute: executeNothing, Checks: noChecks,
	},
	KindFundToCap: {
		Kind: KindFundToCap, Generate: genFundToCap, Precondition: noPrecondition,
		Transition: macroTransition, Execute: executeNothing, Checks: noChecks, Macro: true,
	},
}

// kinds fixes the sampling order so a seed always yields the same sequence.
var kinds = []Kind{
	KindWaitTime, KindBuyTokens, KindValidatePurchase, KindRejectPurchase, KindBurnTokens,
	KindSetWallet, KindSetToken, KindClaimVaultFunds, KindRefundAll,
	KindPauseCrowdsale, KindPauseToken, KindFinalize, KindFundToCap,
}

// Lookup returns the spec for kind.
func Lookup(kind Kind) (*Spec, error) {
	spec, ok := catalog[kind]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", kind)
	}
	return spec, nil
}

// Kinds returns every command kind in sampling order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Precondition evaluates c's precondition against st.
func Precondition(st *model.State, c Command) ([]Reason, error) {
	spec, err := Lookup(c.Kind)
	if err != nil {
		return nil, err
	}
	return spec.Precondition(st, c), nil
}

// Apply runs c against the model alone. A command whose precondition fails
// leaves the state unchanged and returns the reasons; otherwise the
// transition's result is returned. Finalize uses the modelled supply in
// place of a ledger read.
func Apply(st *model.State, c Command) (*model.State, []Reason, error) {
	spec, err := Lookup(c.Kind)
	if err != nil {
		return nil, nil, err
	}
	if spec.Macro {
		return nil, nil, fmt.Errorf("%s is a macro and must be expanded before it runs", c.Kind)
	}
	if reasons := spec.Precondition(st, c); len(reasons) > 0 {
		return st, reasons, nil
	}
	next, err := spec.Transition(st, c, Observation{})
	if err != nil {
		return nil, nil, err
	}
	return next, nil, nil
}

// Simulate applies cmds in order and returns the final state. Macros are
// expanded against the state they are reached in.
func Simulate(st *model.State, cmds []Command, accounts int) (*model.State, error) {
	cur := st
	for i, c := range cmds {
		if c.Kind == KindFundToCap {
			expanded, err := Simulate(cur, ExpandFundToCap(cur, c.Finalize, accounts), accounts)
			if err != nil {
				return nil, fmt.Errorf("command %d: %w", i, err)
			}
			cur = expanded
			continue
		}
		next, _, err := Apply(cur, c)
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, c, err)
		}
		cur = next
	}
	return cur, nil
}
