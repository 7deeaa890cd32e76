package simledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/model"
)

// crowdsale holds contributions from unverified investors in its vault until
// the owner validates or rejects them, and mints straight away for approved
// ones. Raised funds stay in the contract until finalize.
type crowdsale struct {
	addr      common.Address
	owner     common.Address
	wallet    common.Address
	token     common.Address
	paused    bool
	finalized bool
	params    model.SaleParams
	weiRaised *big.Int

	// credited is what each investor has had accounted, bought or refunded;
	// together with the vault it bounds cumulative investment.
	credited  map[common.Address]*big.Int
	deposited map[common.Address]*big.Int
	bonus     map[common.Address]bool
	kyc       map[common.Address]model.KYCStatus
	funders   []common.Address

	chain  *chain
	tokens map[common.Address]*token
	cfg    Config
}

func amount(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if v, ok := m[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func addTo(m map[common.Address]*big.Int, addr common.Address, delta *big.Int) {
	v, ok := m[addr]
	if !ok {
		v = new(big.Int)
		m[addr] = v
	}
	v.Add(v, delta)
}

func (c *crowdsale) onlyOwner(m msg) error {
	if m.sender != c.owner {
		return errors.New("sender is not the owner")
	}
	return nil
}

func (c *crowdsale) whenNotPaused() error {
	if c.paused {
		return errors.New("sale is paused")
	}
	return nil
}

func (c *crowdsale) setWallet(m msg, wallet common.Address) error {
	if err := c.onlyOwner(m); err != nil {
		return err
	}
	if wallet == (common.Address{}) {
		return errors.New("wallet is the zero address")
	}
	c.wallet = wallet
	return nil
}

func (c *crowdsale) setToken(m msg, tok common.Address) error {
	if err := c.onlyOwner(m); err != nil {
		return err
	}
	if tok == (common.Address{}) {
		return errors.New("token is the zero address")
	}
	if c.params.InWindow(m.now) {
		return errors.New("token cannot change while the sale is open")
	}
	c.token = tok
	return nil
}

func (c *crowdsale) setPaused(m msg, paused bool) error {
	if err := c.onlyOwner(m); err != nil {
		return err
	}
	if c.paused == paused {
		if paused {
			return errors.New("sale already paused")
		}
		return errors.New("sale not paused")
	}
	c.paused = paused
	return nil
}

// mintable returns the token the sale points at, if the sale can mint there.
func (c *crowdsale) mintable() (*token, error) {
	tok, ok := c.tokens[c.token]
	if !ok {
		return nil, errors.New("token call to non-contract address")
	}
	if tok.owner != c.addr {
		return nil, errors.New("sale does not own the token")
	}
	return tok, nil
}

// clip limits an accepted amount to the cap headroom.
func (c *crowdsale) clip(wei *big.Int) *big.Int {
	if c.cfg.hasFault(FaultNoClip) {
		return new(big.Int).Set(wei)
	}
	room := new(big.Int).Sub(c.params.Cap, c.weiRaised)
	if room.Sign() < 0 {
		room.SetInt64(0)
	}
	if wei.Cmp(room) > 0 {
		return room
	}
	return new(big.Int).Set(wei)
}

func (c *crowdsale) tokensFor(wei *big.Int, bonus bool) *big.Int {
	out := new(big.Int).Mul(wei, c.params.Rate)
	if bonus && !c.cfg.hasFault(FaultNoBonus) {
		out.Mul(out, big.NewInt(105))
		out.Quo(out, big.NewInt(100))
	}
	return out
}

func (c *crowdsale) earlyBird(now uint64) bool {
	return now <= c.params.StartTime+model.BonusWindow
}

func (c *crowdsale) overMax(investor common.Address, extra *big.Int) bool {
	total := amount(c.credited, investor)
	total.Add(total, amount(c.deposited, investor))
	total.Add(total, extra)
	return total.Cmp(c.params.MaxCumulativeInvest) > 0
}

func (c *crowdsale) gasTooHigh(m msg) bool {
	return m.gasPrice.Cmp(c.params.MaxGasPrice) > 0 && c.params.InWindow(m.now)
}

// purchase mints for an accepted contribution and returns the accepted part.
func (c *crowdsale) purchase(tok *token, investor common.Address, wei *big.Int, bonus bool) *big.Int {
	accepted := c.clip(wei)
	// The sale owns tok, so minting cannot fail here.
	_ = tok.mint(c.addr, investor, c.tokensFor(accepted, bonus))
	addTo(c.credited, investor, accepted)
	c.weiRaised.Add(c.weiRaised, accepted)
	c.bonus[investor] = false
	return accepted
}

func (c *crowdsale) buyTokens(m msg) error {
	p := c.params
	if !p.InWindow(m.now) {
		return errors.New("sale is not open")
	}
	if !c.cfg.hasFault(FaultIgnorePause) {
		if err := c.whenNotPaused(); err != nil {
			return err
		}
	}
	if !p.Valid() {
		return errors.New("sale parameters are not usable")
	}
	if c.finalized {
		return errors.New("sale is finalized")
	}
	if m.value.Sign() == 0 {
		return errors.New("no value sent")
	}
	if c.overMax(m.sender, m.value) {
		return errors.New("cumulative investment above maximum")
	}
	if m.value.Cmp(p.MinInvest) < 0 {
		return errors.New("investment below minimum")
	}
	if c.gasTooHigh(m) {
		return errors.New("gas price above maximum")
	}
	if c.weiRaised.Cmp(p.Cap) >= 0 {
		return errors.New("cap reached")
	}

	switch c.kyc[m.sender] {
	case model.KYCRejected:
		return errors.New("investor was rejected")
	case model.KYCApproved:
		tok, err := c.mintable()
		if err != nil {
			return err
		}
		accepted := c.purchase(tok, m.sender, m.value, c.earlyBird(m.now))
		c.chain.transfer(c.addr, m.sender, new(big.Int).Sub(m.value, accepted))
	default:
		if c.earlyBird(m.now) {
			c.bonus[m.sender] = true
		}
		if _, seen := c.deposited[m.sender]; !seen {
			c.funders = append(c.funders, m.sender)
		}
		addTo(c.deposited, m.sender, m.value)
	}
	return nil
}

// checkReview holds the rules shared by validate and reject.
func (c *crowdsale) checkReview(m msg, investor common.Address) error {
	if err := c.whenNotPaused(); err != nil {
		return err
	}
	if !c.params.ValidForReview() {
		return errors.New("sale parameters are not usable")
	}
	if c.finalized {
		return errors.New("sale is finalized")
	}
	if investor == (common.Address{}) {
		return errors.New("investor is the zero address")
	}
	if c.overMax(investor, new(big.Int)) {
		return errors.New("cumulative investment above maximum")
	}
	if d := amount(c.deposited, investor); d.Sign() > 0 && d.Cmp(c.params.MinInvest) < 0 {
		return errors.New("deposit below minimum")
	}
	if c.gasTooHigh(m) {
		return errors.New("gas price above maximum")
	}
	return c.onlyOwner(m)
}

func (c *crowdsale) validatePurchase(m msg, investor common.Address) error {
	if err := c.checkReview(m, investor); err != nil {
		return err
	}
	deposit := amount(c.deposited, investor)
	var tok *token
	if deposit.Sign() > 0 {
		var err error
		if tok, err = c.mintable(); err != nil {
			return err
		}
	}

	c.kyc[investor] = model.KYCApproved
	if deposit.Sign() > 0 {
		accepted := c.purchase(tok, investor, deposit, c.bonus[investor])
		c.deposited[investor] = new(big.Int)
		c.chain.transfer(c.addr, investor, new(big.Int).Sub(deposit, accepted))
	}
	return nil
}

func (c *crowdsale) rejectPurchase(m msg, investor common.Address) error {
	if err := c.checkReview(m, investor); err != nil {
		return err
	}
	c.kyc[investor] = model.KYCRejected
	if deposit := amount(c.deposited, investor); deposit.Sign() > 0 {
		returned := c.clip(deposit)
		addTo(c.deposited, investor, new(big.Int).Neg(returned))
		addTo(c.credited, investor, returned)
		c.chain.transfer(c.addr, investor, returned)
	}
	return nil
}

func (c *crowdsale) refund(investor common.Address) {
	d := amount(c.deposited, investor)
	if d.Sign() == 0 {
		return
	}
	c.deposited[investor] = new(big.Int)
	addTo(c.credited, investor, d)
	c.chain.transfer(c.addr, investor, d)
}

func (c *crowdsale) claimVaultFunds(m msg) error {
	if err := c.whenNotPaused(); err != nil {
		return err
	}
	if !c.finalized {
		return errors.New("sale is not finalized")
	}
	c.refund(m.sender)
	return nil
}

func (c *crowdsale) refundAll(m msg, indexes []uint64) error {
	if err := c.onlyOwner(m); err != nil {
		return err
	}
	if err := c.whenNotPaused(); err != nil {
		return err
	}
	if !c.finalized {
		return errors.New("sale is not finalized")
	}
	for _, idx := range indexes {
		if idx >= uint64(len(c.funders)) {
			return errors.New("funder index out of range")
		}
	}
	for _, idx := range indexes {
		c.refund(c.funders[idx])
	}
	return nil
}

func (c *crowdsale) finalize(m msg) error {
	if c.finalized {
		return errors.New("sale already finalized")
	}
	if err := c.whenNotPaused(); err != nil {
		return err
	}
	if m.now < c.params.EndTime && c.weiRaised.Cmp(c.params.Cap) < 0 {
		return errors.New("sale has not ended")
	}
	if err := c.onlyOwner(m); err != nil {
		return err
	}
	tok, err := c.mintable()
	if err != nil {
		return err
	}

	toMint := new(big.Int).Mul(tok.supply, big.NewInt(49))
	toMint.Quo(toMint, big.NewInt(51))
	if c.cfg.hasFault(FaultMintShort) && toMint.Sign() > 0 {
		toMint.Sub(toMint, big.NewInt(1))
	}
	_ = tok.mint(c.addr, c.wallet, toMint)
	tok.owner = c.wallet
	tok.paused = false
	c.finalized = true
	c.chain.transfer(c.addr, c.wallet, c.weiRaised)
	return nil
}
