package simledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
)

// Ledger is one simulated chain with a sale and its token deployed.
type Ledger struct {
	mu       sync.Mutex
	cfg      Config
	chain    *chain
	sale     *crowdsale
	token    *token
	accounts *ledger.Accounts
	closed   bool
}

var _ ledger.Session = (*Ledger)(nil)

// New deploys a sale and its token according to cfg. Account 0 deploys and
// owns the sale; the last account is the initial wallet.
func New(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simledger: %w", err)
	}
	addrs, err := deriveAccounts(cfg.Accounts)
	if err != nil {
		return nil, fmt.Errorf("simledger: %w", err)
	}

	ch := newChain(cfg.GenesisTime)
	for _, addr := range addrs {
		ch.credit(addr, cfg.InitialBalance)
	}

	owner := addrs[0]
	saleAddr := crypto.CreateAddress(owner, 0)
	tok := newToken(crypto.CreateAddress(saleAddr, 1), saleAddr)

	start := cfg.GenesisTime + cfg.StartOffset
	sale := &crowdsale{
		addr:   saleAddr,
		owner:  owner,
		wallet: addrs[len(addrs)-1],
		token:  tok.addr,
		params: model.SaleParams{
			Rate:                     new(big.Int).Set(cfg.Rate),
			Cap:                      new(big.Int).Set(cfg.Cap),
			StartTime:                start,
			EndTime:                  start + cfg.Duration,
			MinInvest:                new(big.Int).Set(cfg.MinInvest),
			MaxCumulativeInvest:      new(big.Int).Set(cfg.MaxCumulativeInvest),
			MaxGasPrice:              new(big.Int).Set(cfg.MaxGasPrice),
			MinBuyingRequestInterval: cfg.MinBuyingRequestInterval,
		},
		weiRaised: new(big.Int),
		credited:  make(map[common.Address]*big.Int),
		deposited: make(map[common.Address]*big.Int),
		bonus:     make(map[common.Address]bool),
		kyc:       make(map[common.Address]model.KYCStatus),
		chain:     ch,
		tokens:    map[common.Address]*token{tok.addr: tok},
		cfg:       cfg,
	}

	return &Ledger{
		cfg:      cfg,
		chain:    ch,
		sale:     sale,
		token:    tok,
		accounts: ledger.NewAccounts(addrs),
	}, nil
}

// Accounts returns the funded accounts, account 0 being the sale owner.
func (l *Ledger) Accounts() *ledger.Accounts { return l.accounts }

// DefaultGasPrice is the configured default price.
func (l *Ledger) DefaultGasPrice() *big.Int { return new(big.Int).Set(l.cfg.GasPrice) }

// SaleAddress is where the sale is deployed.
func (l *Ledger) SaleAddress() common.Address { return l.sale.addr }

// TokenAddress is where the sale's original token is deployed.
func (l *Ledger) TokenAddress() common.Address { return l.token.addr }

// Close releases the session. Later calls fail with ErrClosed.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// read runs fn under the lock after the usual liveness checks.
func (l *Ledger) read(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	fn()
	return nil
}

// transact charges gas, mines a block and runs call as one transaction.
// Attached value is escrowed into the sale for the duration of the call and
// returned if the call reverts.
func (l *Ledger) transact(ctx context.Context, method string, opts ledger.TxOpts, gas uint64, call func(m msg) error) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if opts.From == (common.Address{}) {
		return nil, fmt.Errorf("%s: %w", method, ledger.ErrSignerLocked)
	}

	price := l.cfg.GasPrice
	if opts.GasPrice != nil {
		price = opts.GasPrice
	}
	value := new(big.Int)
	if opts.Value != nil {
		value.Set(opts.Value)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%s: negative value %s", method, value)
	}
	need := new(big.Int).Add(fee(gas, price), value)
	if have := l.chain.balance(opts.From); have.Cmp(need) < 0 {
		return nil, fmt.Errorf("%s: insufficient funds for gas * price + value: have %s want %s", method, have, need)
	}

	hash := l.chain.nextTxHash(opts.From)
	l.chain.transfer(opts.From, l.sale.addr, value)
	err := call(msg{sender: opts.From, value: value, gasPrice: new(big.Int).Set(price), now: l.chain.now})
	if err != nil {
		l.chain.transfer(l.sale.addr, opts.From, value)
		gas = gasReverted
	}
	l.chain.credit(opts.From, new(big.Int).Neg(fee(gas, price)))
	block := l.chain.mine(gas, 1)

	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, hash.Hex(), ledger.ErrReverted, err)
	}
	return &ledger.Receipt{
		TxHash:      hash,
		BlockNumber: block.Number,
		GasUsed:     gas,
		GasPrice:    new(big.Int).Set(price),
	}, nil
}
