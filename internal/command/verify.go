package command

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
)

// Field names an observable piece of ledger state.
type Field string

const (
	FieldOwner        Field = "owner"
	FieldWallet       Field = "wallet"
	FieldToken        Field = "token"
	FieldTokenOwner   Field = "token_owner"
	FieldPaused       Field = "crowdsale_paused"
	FieldTokenPaused  Field = "token_paused"
	FieldFinalized    Field = "finalized"
	FieldWeiRaised    Field = "wei_raised"
	FieldTotalSupply  Field = "token_supply"
	FieldTokenBalance Field = "token_balance"
	FieldDeposit      Field = "vault"
	FieldEthBalance   Field = "eth_balance"
)

// Check is one field to compare, with the account for per-account fields.
type Check struct {
	Field   Field
	Account model.Account
}

func global(f Field) Check { return Check{Field: f, Account: model.External} }

func perAccount(f Field, a model.Account) Check { return Check{Field: f, Account: a} }

func (c Check) String() string {
	if c.Account.Indexed() {
		return fmt.Sprintf("%s[%s]", c.Field, c.Account)
	}
	return string(c.Field)
}

// Mismatch is a field whose ledger value differs from the prediction.
type Mismatch struct {
	Check    Check
	Expected string
	Actual   string
}

// MismatchError lists every mismatched field found by Verify.
type MismatchError struct {
	Mismatches []Mismatch
}

func (e *MismatchError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = fmt.Sprintf("%s: expected %s, got %s", m.Check, m.Expected, m.Actual)
	}
	return "postcondition mismatch: " + strings.Join(parts, "; ")
}

// FullChecks compares everything observable for the given accounts, with
// native balances only when withEth is set.
func FullChecks(accounts []model.Account, withEth bool) []Check {
	checks := []Check{
		global(FieldOwner), global(FieldWallet), global(FieldToken), global(FieldTokenOwner),
		global(FieldPaused), global(FieldTokenPaused), global(FieldFinalized),
		global(FieldWeiRaised), global(FieldTotalSupply),
	}
	for _, a := range accounts {
		checks = append(checks, perAccount(FieldTokenBalance, a), perAccount(FieldDeposit, a))
		if withEth {
			checks = append(checks, perAccount(FieldEthBalance, a))
		}
	}
	return checks
}

// EthChecks compares the native balance of every account.
func EthChecks(accounts []model.Account) []Check {
	checks := make([]Check, 0, len(accounts))
	for _, a := range accounts {
		checks = append(checks, perAccount(FieldEthBalance, a))
	}
	return checks
}

// Verify reads every checked field from r and compares it with st.
// It returns a *MismatchError when any field differs.
func Verify(ctx context.Context, r ledger.Reader, acc *ledger.Accounts, st *model.State, checks []Check) error {
	var mismatches []Mismatch
	for _, chk := range checks {
		expected, actual, err := observe(ctx, r, acc, st, chk)
		if err != nil {
			return fmt.Errorf("read %s: %w", chk, err)
		}
		if expected != actual {
			mismatches = append(mismatches, Mismatch{Check: chk, Expected: expected, Actual: actual})
		}
	}
	if len(mismatches) > 0 {
		return &MismatchError{Mismatches: mismatches}
	}
	return nil
}

// observe returns the predicted and ledger values of one check as strings.
func observe(ctx context.Context, r ledger.Reader, acc *ledger.Accounts, st *model.State, chk Check) (string, string, error) {
	addr := acc.Address(chk.Account)

	account := func(read func(context.Context) (common.Address, error), want model.Account) (string, string, error) {
		got, err := read(ctx)
		if err != nil {
			return "", "", err
		}
		return want.String(), acc.Lookup(got).String(), nil
	}
	flag := func(read func(context.Context) (bool, error), want bool) (string, string, error) {
		got, err := read(ctx)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprint(want), fmt.Sprint(got), nil
	}
	amount := func(got *big.Int, err error, want *big.Int) (string, string, error) {
		if err != nil {
			return "", "", err
		}
		return want.String(), got.String(), nil
	}

	switch chk.Field {
	case FieldOwner:
		return account(r.Owner, st.Owner)
	case FieldWallet:
		return account(r.Wallet, st.Wallet)
	case FieldToken:
		return account(r.Token, st.Token)
	case FieldTokenOwner:
		return account(r.TokenOwner, st.TokenOwner)
	case FieldPaused:
		return flag(r.Paused, st.CrowdsalePaused)
	case FieldTokenPaused:
		return flag(r.TokenPaused, st.TokenPaused)
	case FieldFinalized:
		return flag(r.Finalized, st.Finalized)
	case FieldWeiRaised:
		got, err := r.WeiRaised(ctx)
		return amount(got, err, st.WeiRaised)
	case FieldTotalSupply:
		got, err := r.TotalSupply(ctx)
		return amount(got, err, st.TokenSupply)
	case FieldTokenBalance:
		got, err := r.TokenBalance(ctx, addr)
		return amount(got, err, st.TokenBalance(chk.Account))
	case FieldDeposit:
		got, err := r.Deposited(ctx, addr)
		return amount(got, err, st.Deposit(chk.Account))
	case FieldEthBalance:
		got, err := r.Balance(ctx, addr)
		return amount(got, err, st.EthBalance(chk.Account))
	}
	return "", "", fmt.Errorf("unknown field %q", chk.Field)
}

// Observe reads the values a transition needs from before execution.
func Observe(ctx context.Context, r ledger.Reader, c Command) (Observation, error) {
	var obs Observation
	if c.Kind == KindFinalize {
		supply, err := r.TotalSupply(ctx)
		if err != nil {
			return obs, fmt.Errorf("read supply before finalize: %w", err)
		}
		obs.SupplyBefore = supply
	}
	return obs, nil
}

func setWalletChecks(_ *model.State, _ Command) []Check { return []Check{global(FieldWallet)} }

func setTokenChecks(_ *model.State, _ Command) []Check { return []Check{global(FieldToken)} }

func claimVaultFundsChecks(_ *model.State, c Command) []Check {
	return []Check{perAccount(FieldDeposit, c.From)}
}

func refundAllChecks(st *model.State, c Command) []Check {
	var checks []Check
	for _, idx := range c.Indexes {
		if idx < uint64(len(st.FundsOwners)) {
			checks = append(checks, perAccount(FieldDeposit, st.FundsOwners[idx]))
		}
	}
	return checks
}

func buyTokensChecks(_ *model.State, c Command) []Check {
	return []Check{
		global(FieldWeiRaised), global(FieldTotalSupply),
		perAccount(FieldTokenBalance, c.From), perAccount(FieldDeposit, c.From),
	}
}

func reviewChecks(_ *model.State, c Command) []Check {
	return []Check{
		global(FieldWeiRaised), global(FieldTotalSupply),
		perAccount(FieldTokenBalance, c.Target), perAccount(FieldDeposit, c.Target),
	}
}

func pauseCrowdsaleChecks(_ *model.State, _ Command) []Check { return []Check{global(FieldPaused)} }

func pauseTokenChecks(_ *model.State, _ Command) []Check { return []Check{global(FieldTokenPaused)} }

func finalizeChecks(st *model.State, _ Command) []Check {
	return []Check{
		global(FieldFinalized), global(FieldTokenOwner), global(FieldTokenPaused),
		global(FieldTotalSupply), global(FieldWeiRaised),
		perAccount(FieldTokenBalance, st.Wallet),
	}
}

func burnTokensChecks(_ *model.State, c Command) []Check {
	return []Check{global(FieldTotalSupply), perAccount(FieldTokenBalance, c.From)}
}

func noChecks(*model.State, Command) []Check { return nil }
