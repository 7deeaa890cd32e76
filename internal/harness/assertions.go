package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/oracle"
)

// AssertionError is a failed assertion with the trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Steps    []oracle.StepRecord
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, s := range e.Steps {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", s.Index, s.Outcome, s.Command)
	}
	return buf.String()
}

type stateField struct {
	perAccount bool
	read       func(st *model.State, a model.Account) string
}

func amount(v interface{ String() string }) string { return v.String() }

// stateFields are the fields a state assertion can name.
var stateFields = map[string]stateField{
	"owner":            {read: func(st *model.State, _ model.Account) string { return st.Owner.String() }},
	"wallet":           {read: func(st *model.State, _ model.Account) string { return st.Wallet.String() }},
	"token":            {read: func(st *model.State, _ model.Account) string { return st.Token.String() }},
	"token_owner":      {read: func(st *model.State, _ model.Account) string { return st.TokenOwner.String() }},
	"crowdsale_paused": {read: func(st *model.State, _ model.Account) string { return fmt.Sprint(st.CrowdsalePaused) }},
	"token_paused":     {read: func(st *model.State, _ model.Account) string { return fmt.Sprint(st.TokenPaused) }},
	"finalized":        {read: func(st *model.State, _ model.Account) string { return fmt.Sprint(st.Finalized) }},
	"wei_raised":       {read: func(st *model.State, _ model.Account) string { return amount(st.WeiRaised) }},
	"tokens_sold":      {read: func(st *model.State, _ model.Account) string { return amount(st.TokensSold) }},
	"token_supply":     {read: func(st *model.State, _ model.Account) string { return amount(st.TokenSupply) }},
	"now":              {read: func(st *model.State, _ model.Account) string { return fmt.Sprint(st.Now) }},
	"funders":          {read: func(st *model.State, _ model.Account) string { return fmt.Sprint(st.FundsOwners) }},

	"token_balance": {perAccount: true, read: func(st *model.State, a model.Account) string { return amount(st.TokenBalance(a)) }},
	"vault":         {perAccount: true, read: func(st *model.State, a model.Account) string { return amount(st.Deposit(a)) }},
	"balance":       {perAccount: true, read: func(st *model.State, a model.Account) string { return amount(st.Balance(a)) }},
	"eth_balance":   {perAccount: true, read: func(st *model.State, a model.Account) string { return amount(st.EthBalance(a)) }},
	"kyc":           {perAccount: true, read: func(st *model.State, a model.Account) string { return st.KYCOf(a).String() }},
	"bonus":         {perAccount: true, read: func(st *model.State, a model.Account) string { return fmt.Sprint(st.HasBonus(a)) }},
}

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertState:
		return assertState(result, a.Field, a)
	case AssertEthBalance:
		return assertState(result, "eth_balance", a)
	case AssertOutcomeCount:
		return assertOutcomeCount(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertState(result *Result, field string, a Assertion) error {
	if result.Final == nil {
		return fmt.Errorf("no final state")
	}
	f, ok := stateFields[field]
	if !ok {
		return fmt.Errorf("unknown state field %q", field)
	}

	subject := field
	acct := model.External
	if f.perAccount {
		var err error
		if acct, err = resolveRole(result.Final, a.Account); err != nil {
			return err
		}
		subject = fmt.Sprintf("%s[%s]", field, acct)
	}

	if got := f.read(result.Final, acct); got != a.Equals {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", subject, a.Equals),
			Actual:   fmt.Sprintf("%s = %s", subject, got),
			Steps:    result.Steps,
		}
	}
	return nil
}

func assertOutcomeCount(result *Result, a Assertion) error {
	n := 0
	for _, s := range result.Steps {
		if s.Outcome == a.Outcome {
			n++
		}
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s steps", *a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d %s steps", n, a.Outcome),
			Steps:    result.Steps,
		}
	}
	return nil
}

// resolveRole is account resolution against the final state.
func resolveRole(st *model.State, name string) (model.Account, error) {
	switch name {
	case "owner":
		return st.Owner, nil
	case "wallet":
		return st.Wallet, nil
	}
	return model.ParseAccount(name)
}
