package simledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
)

func (l *Ledger) Owner(ctx context.Context) (addr common.Address, err error) {
	err = l.read(ctx, func() { addr = l.sale.owner })
	return addr, err
}

func (l *Ledger) Wallet(ctx context.Context) (addr common.Address, err error) {
	err = l.read(ctx, func() { addr = l.sale.wallet })
	return addr, err
}

func (l *Ledger) Token(ctx context.Context) (addr common.Address, err error) {
	err = l.read(ctx, func() { addr = l.sale.token })
	return addr, err
}

func (l *Ledger) Paused(ctx context.Context) (paused bool, err error) {
	err = l.read(ctx, func() { paused = l.sale.paused })
	return paused, err
}

func (l *Ledger) Finalized(ctx context.Context) (done bool, err error) {
	err = l.read(ctx, func() { done = l.sale.finalized })
	return done, err
}

func (l *Ledger) Params(ctx context.Context) (p model.SaleParams, err error) {
	err = l.read(ctx, func() { p = l.sale.params.Clone() })
	return p, err
}

func (l *Ledger) WeiRaised(ctx context.Context) (v *big.Int, err error) {
	err = l.read(ctx, func() { v = new(big.Int).Set(l.sale.weiRaised) })
	return v, err
}

func (l *Ledger) Deposited(ctx context.Context, investor common.Address) (v *big.Int, err error) {
	err = l.read(ctx, func() { v = amount(l.sale.deposited, investor) })
	return v, err
}

func (l *Ledger) TokenOwner(ctx context.Context) (addr common.Address, err error) {
	err = l.read(ctx, func() { addr = l.token.owner })
	return addr, err
}

func (l *Ledger) TokenPaused(ctx context.Context) (paused bool, err error) {
	err = l.read(ctx, func() { paused = l.token.paused })
	return paused, err
}

func (l *Ledger) TotalSupply(ctx context.Context) (v *big.Int, err error) {
	err = l.read(ctx, func() { v = new(big.Int).Set(l.token.supply) })
	return v, err
}

func (l *Ledger) TokenBalance(ctx context.Context, holder common.Address) (v *big.Int, err error) {
	err = l.read(ctx, func() { v = l.token.balanceOf(holder) })
	return v, err
}

func (l *Ledger) Balance(ctx context.Context, addr common.Address) (v *big.Int, err error) {
	err = l.read(ctx, func() { v = l.chain.balance(addr) })
	return v, err
}

func (l *Ledger) SetWallet(ctx context.Context, opts ledger.TxOpts, wallet common.Address) (*ledger.Receipt, error) {
	return l.transact(ctx, "setWallet", opts, gasSetWallet, func(m msg) error {
		return l.sale.setWallet(m, wallet)
	})
}

func (l *Ledger) SetToken(ctx context.Context, opts ledger.TxOpts, tok common.Address) (*ledger.Receipt, error) {
	return l.transact(ctx, "setToken", opts, gasSetToken, func(m msg) error {
		return l.sale.setToken(m, tok)
	})
}

func (l *Ledger) ClaimVaultFunds(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "claimVaultFunds", opts, gasClaim, l.sale.claimVaultFunds)
}

func (l *Ledger) RefundAll(ctx context.Context, opts ledger.TxOpts, indexes []uint64) (*ledger.Receipt, error) {
	gas := gasRefundAll + gasRefundEach*uint64(len(indexes))
	return l.transact(ctx, "refundAll", opts, gas, func(m msg) error {
		return l.sale.refundAll(m, indexes)
	})
}

func (l *Ledger) BuyTokens(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "buyTokens", opts, gasBuy, l.sale.buyTokens)
}

func (l *Ledger) ValidatePurchase(ctx context.Context, opts ledger.TxOpts, investor common.Address) (*ledger.Receipt, error) {
	return l.transact(ctx, "validatePurchase", opts, gasValidate, func(m msg) error {
		return l.sale.validatePurchase(m, investor)
	})
}

func (l *Ledger) RejectPurchase(ctx context.Context, opts ledger.TxOpts, investor common.Address) (*ledger.Receipt, error) {
	return l.transact(ctx, "rejectPurchase", opts, gasReject, func(m msg) error {
		return l.sale.rejectPurchase(m, investor)
	})
}

func (l *Ledger) Pause(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "pause", opts, gasPause, func(m msg) error {
		return l.sale.setPaused(m, true)
	})
}

func (l *Ledger) Unpause(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "unpause", opts, gasPause, func(m msg) error {
		return l.sale.setPaused(m, false)
	})
}

func (l *Ledger) Finalize(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "finalize", opts, gasFinalize, l.sale.finalize)
}

func (l *Ledger) PauseToken(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "pauseToken", opts, gasPauseToken, func(m msg) error {
		return l.token.setPaused(m, true)
	})
}

func (l *Ledger) UnpauseToken(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.transact(ctx, "unpauseToken", opts, gasPauseToken, func(m msg) error {
		return l.token.setPaused(m, false)
	})
}

func (l *Ledger) Burn(ctx context.Context, opts ledger.TxOpts, amt *big.Int) (*ledger.Receipt, error) {
	return l.transact(ctx, "burn", opts, gasBurn, func(m msg) error {
		return l.token.burn(m, amt)
	})
}

func (l *Ledger) LatestBlock(ctx context.Context) (b ledger.Block, err error) {
	err = l.read(ctx, func() { b = l.chain.head() })
	return b, err
}

// IncreaseTime advances the clock and mines an empty block.
func (l *Ledger) IncreaseTime(ctx context.Context, seconds uint64) error {
	return l.read(ctx, func() {
		l.chain.now += seconds
		l.chain.mine(0, 0)
	})
}

func (l *Ledger) IncreaseTimeTo(ctx context.Context, t uint64) error {
	return l.read(ctx, func() {
		if t > l.chain.now {
			l.chain.now = t
		}
		l.chain.mine(0, 0)
	})
}
