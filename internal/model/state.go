package model

import (
	"math/big"
	"slices"
)

// Purchase records one token mint credited to an investor.
type Purchase struct {
	Tokens  *big.Int `json:"tokens"`
	Rate    *big.Int `json:"rate"`
	Wei     *big.Int `json:"wei"`
	Account Account  `json:"account"`
	// By is the caller that triggered the mint: the investor for a direct
	// purchase, the reviewer for a validated vault deposit.
	By Account `json:"by"`
}

// State is the reference prediction of the ledger.
//
// Map lookups for accounts never seen read as zero; use the accessor methods
// rather than indexing the maps directly.
type State struct {
	Owner      Account `json:"owner"`
	TokenOwner Account `json:"token_owner"`
	Wallet     Account `json:"wallet"`
	Token      Account `json:"token"`

	Sale SaleParams `json:"sale"`

	// Now is the chain time the next command will execute at.
	Now uint64 `json:"now"`

	CrowdsalePaused bool `json:"crowdsale_paused"`
	TokenPaused     bool `json:"token_paused"`
	Finalized       bool `json:"finalized"`

	WeiRaised       *big.Int `json:"wei_raised"`
	TokensSold      *big.Int `json:"tokens_sold"`
	CrowdsaleSupply *big.Int `json:"crowdsale_supply"`
	TokenSupply     *big.Int `json:"token_supply"`

	Balances      map[Account]*big.Int  `json:"balances"`
	Vault         map[Account]*big.Int  `json:"vault"`
	TokenBalances map[Account]*big.Int  `json:"token_balances"`
	EthBalances   map[Account]*big.Int  `json:"eth_balances"`
	KYC           map[Account]KYCStatus `json:"kyc"`
	Bonus         map[Account]bool      `json:"bonus"`

	FundsOwners []Account  `json:"funds_owners"`
	Purchases   []Purchase `json:"purchases"`
}

// New returns an empty state for a sale with the given parameters.
// Counters start at zero and every account map is allocated.
func New(sale SaleParams) *State {
	return &State{
		Owner:           External,
		TokenOwner:      External,
		Wallet:          External,
		Token:           External,
		Sale:            sale.Clone(),
		WeiRaised:       new(big.Int),
		TokensSold:      new(big.Int),
		CrowdsaleSupply: new(big.Int),
		TokenSupply:     new(big.Int),
		Balances:        map[Account]*big.Int{},
		Vault:           map[Account]*big.Int{},
		TokenBalances:   map[Account]*big.Int{},
		EthBalances:     map[Account]*big.Int{},
		KYC:             map[Account]KYCStatus{},
		Bonus:           map[Account]bool{},
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Sale = s.Sale.Clone()
	c.WeiRaised = cloneInt(s.WeiRaised)
	c.TokensSold = cloneInt(s.TokensSold)
	c.CrowdsaleSupply = cloneInt(s.CrowdsaleSupply)
	c.TokenSupply = cloneInt(s.TokenSupply)
	c.Balances = cloneAmounts(s.Balances)
	c.Vault = cloneAmounts(s.Vault)
	c.TokenBalances = cloneAmounts(s.TokenBalances)
	c.EthBalances = cloneAmounts(s.EthBalances)

	c.KYC = make(map[Account]KYCStatus, len(s.KYC))
	for a, v := range s.KYC {
		c.KYC[a] = v
	}
	c.Bonus = make(map[Account]bool, len(s.Bonus))
	for a, v := range s.Bonus {
		c.Bonus[a] = v
	}

	c.FundsOwners = slices.Clone(s.FundsOwners)
	if s.Purchases != nil {
		c.Purchases = make([]Purchase, len(s.Purchases))
		for i, p := range s.Purchases {
			c.Purchases[i] = Purchase{
				Tokens:  cloneInt(p.Tokens),
				Rate:    cloneInt(p.Rate),
				Wei:     cloneInt(p.Wei),
				Account: p.Account,
				By:      p.By,
			}
		}
	}
	return &c
}

func cloneAmounts(m map[Account]*big.Int) map[Account]*big.Int {
	out := make(map[Account]*big.Int, len(m))
	for a, v := range m {
		out[a] = cloneInt(v)
	}
	return out
}

func amountOf(m map[Account]*big.Int, a Account) *big.Int {
	if v, ok := m[a]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func addAmount(m map[Account]*big.Int, a Account, delta *big.Int) {
	m[a] = new(big.Int).Add(amountOf(m, a), delta)
}

// Balance returns the wei credited to a as a contribution.
func (s *State) Balance(a Account) *big.Int { return amountOf(s.Balances, a) }

// Deposit returns the wei a holds in the pending-funds vault.
func (s *State) Deposit(a Account) *big.Int { return amountOf(s.Vault, a) }

// TokenBalance returns the token base units held by a.
func (s *State) TokenBalance(a Account) *big.Int { return amountOf(s.TokenBalances, a) }

// EthBalance returns the predicted native balance of a.
func (s *State) EthBalance(a Account) *big.Int { return amountOf(s.EthBalances, a) }

// KYCOf returns the KYC status of a.
func (s *State) KYCOf(a Account) KYCStatus { return s.KYC[a] }

// HasBonus reports whether a's pending vault deposit earned the bonus.
func (s *State) HasBonus(a Account) bool { return s.Bonus[a] }

func (s *State) AddBalance(a Account, delta *big.Int) { addAmount(s.Balances, a, delta) }

func (s *State) AddDeposit(a Account, delta *big.Int) { addAmount(s.Vault, a, delta) }

func (s *State) AddTokens(a Account, delta *big.Int) { addAmount(s.TokenBalances, a, delta) }

// AddEth moves a's native balance by delta. The zero identity has no
// tracked balance and is ignored.
func (s *State) AddEth(a Account, delta *big.Int) {
	if a.IsZero() {
		return
	}
	addAmount(s.EthBalances, a, delta)
}

// SubEth is AddEth with the sign flipped.
func (s *State) SubEth(a Account, delta *big.Int) {
	s.AddEth(a, new(big.Int).Neg(delta))
}

// ClearDeposit empties a's vault entry and returns what it held.
func (s *State) ClearDeposit(a Account) *big.Int {
	d := s.Deposit(a)
	s.Vault[a] = new(big.Int)
	return d
}

// HasFunder reports whether a is already listed as a vault funder.
func (s *State) HasFunder(a Account) bool {
	return slices.Contains(s.FundsOwners, a)
}

// CapReached reports whether the raised amount has hit the cap.
func (s *State) CapReached() bool {
	if s.Sale.Cap == nil {
		return true
	}
	return s.WeiRaised.Cmp(s.Sale.Cap) >= 0
}

// CapRemaining returns cap - weiRaised, floored at zero.
func (s *State) CapRemaining() *big.Int {
	if s.Sale.Cap == nil {
		return new(big.Int)
	}
	r := new(big.Int).Sub(s.Sale.Cap, s.WeiRaised)
	if r.Sign() < 0 {
		r.SetInt64(0)
	}
	return r
}

// Clip limits an accepted contribution to the remaining cap headroom.
func (s *State) Clip(amount *big.Int) *big.Int {
	if r := s.CapRemaining(); amount.Cmp(r) > 0 {
		return r
	}
	return new(big.Int).Set(amount)
}

// Accounts returns every indexed account the state knows about, ascending.
func (s *State) Accounts() []Account {
	seen := map[Account]bool{}
	add := func(a Account) {
		if a.Indexed() {
			seen[a] = true
		}
	}
	for _, m := range []map[Account]*big.Int{s.Balances, s.Vault, s.TokenBalances, s.EthBalances} {
		for a := range m {
			add(a)
		}
	}
	for a := range s.KYC {
		add(a)
	}
	add(s.Owner)
	add(s.Wallet)
	add(s.TokenOwner)

	out := make([]Account, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
