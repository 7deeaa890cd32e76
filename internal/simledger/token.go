package simledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// token is a pausable, mintable, burnable token. It is deployed paused and
// owned by the sale; finalize hands it to the wallet and unpauses it.
type token struct {
	addr     common.Address
	owner    common.Address
	paused   bool
	supply   *big.Int
	balances map[common.Address]*big.Int
}

func newToken(addr, owner common.Address) *token {
	return &token{
		addr:     addr,
		owner:    owner,
		paused:   true,
		supply:   new(big.Int),
		balances: make(map[common.Address]*big.Int),
	}
}

func (t *token) balanceOf(holder common.Address) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *token) add(holder common.Address, delta *big.Int) {
	b, ok := t.balances[holder]
	if !ok {
		b = new(big.Int)
		t.balances[holder] = b
	}
	b.Add(b, delta)
}

func (t *token) mint(caller, to common.Address, amount *big.Int) error {
	if caller != t.owner {
		return errors.New("mint: caller is not the owner")
	}
	t.add(to, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

func (t *token) burn(m msg, amount *big.Int) error {
	if t.paused {
		return errors.New("burn: token is paused")
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("burn: amount must be positive")
	}
	if t.balanceOf(m.sender).Cmp(amount) < 0 {
		return errors.New("burn: amount exceeds balance")
	}
	t.add(m.sender, new(big.Int).Neg(amount))
	t.supply.Sub(t.supply, amount)
	return nil
}

func (t *token) setPaused(m msg, paused bool) error {
	if m.sender != t.owner {
		return errors.New("sender is not the token owner")
	}
	if t.paused == paused {
		if paused {
			return errors.New("token already paused")
		}
		return errors.New("token not paused")
	}
	t.paused = paused
	return nil
}
