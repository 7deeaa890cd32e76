package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Account identifies a participant by its index in the ledger's account set.
type Account int

const (
	// ZeroAccount is the distinguished zero identity. Any command sent from
	// or targeting it must be rejected by the ledger.
	ZeroAccount Account = -1

	// External is an address that is not one of the oracle's accounts, such
	// as the deployed token contract or the sale contract.
	External Account = -2
)

// IsZero reports whether a is the zero identity.
func (a Account) IsZero() bool {
	return a == ZeroAccount
}

// Indexed reports whether a refers to an entry in the account set.
func (a Account) Indexed() bool {
	return a >= 0
}

func (a Account) String() string {
	switch a {
	case ZeroAccount:
		return "zero"
	case External:
		return "external"
	}
	return "acct" + strconv.Itoa(int(a))
}

// ParseAccount is the inverse of Account.String.
func ParseAccount(s string) (Account, error) {
	switch s {
	case "zero":
		return ZeroAccount, nil
	case "external":
		return External, nil
	}
	rest, ok := strings.CutPrefix(s, "acct")
	if !ok {
		return 0, fmt.Errorf("invalid account %q: want acctN, zero or external", s)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 || strconv.Itoa(n) != rest {
		return 0, fmt.Errorf("invalid account index in %q", s)
	}
	return Account(n), nil
}
