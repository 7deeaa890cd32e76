package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/model"
)

// Accounts maps oracle account indexes to ledger addresses.
type Accounts struct {
	addrs []common.Address
	index map[common.Address]model.Account
}

// NewAccounts builds the mapping for addrs, where addrs[i] is account i.
func NewAccounts(addrs []common.Address) *Accounts {
	a := &Accounts{
		addrs: append([]common.Address(nil), addrs...),
		index: make(map[common.Address]model.Account, len(addrs)),
	}
	for i, addr := range a.addrs {
		a.index[addr] = model.Account(i)
	}
	return a
}

// Count returns how many indexed accounts exist.
func (a *Accounts) Count() int {
	return len(a.addrs)
}

// Address returns the address of acct. The zero identity, the External
// sentinel and out-of-range indexes all map to the zero address.
func (a *Accounts) Address(acct model.Account) common.Address {
	if acct < 0 || int(acct) >= len(a.addrs) {
		return common.Address{}
	}
	return a.addrs[acct]
}

// Lookup resolves an address back to an account.
func (a *Accounts) Lookup(addr common.Address) model.Account {
	if addr == (common.Address{}) {
		return model.ZeroAccount
	}
	if acct, ok := a.index[addr]; ok {
		return acct
	}
	return model.External
}

// All returns the indexed accounts in order.
func (a *Accounts) All() []model.Account {
	out := make([]model.Account, len(a.addrs))
	for i := range a.addrs {
		out[i] = model.Account(i)
	}
	return out
}
