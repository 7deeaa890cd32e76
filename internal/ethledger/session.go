package ethledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/model"
)

// Session is one snapshot of the chain bound to the sale, its vault and
// its original token.
type Session struct {
	client   *Client
	snapshot string
	sale     *bind.BoundContract
	vault    *bind.BoundContract
	token    *bind.BoundContract
	gasPrice *big.Int

	mu     sync.Mutex
	closed bool
}

var _ ledger.Session = (*Session)(nil)

func (s *Session) Accounts() *ledger.Accounts { return s.client.accounts }

func (s *Session) DefaultGasPrice() *big.Int { return new(big.Int).Set(s.gasPrice) }

// Close reverts the chain to the snapshot the session was opened at.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return s.client.revert(ctx, s.snapshot)
}

func (s *Session) live() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Session) call(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (interface{}, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	var out []interface{}
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classify(method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: want 1 result, got %d", method, len(out))
	}
	return out[0], nil
}

func (s *Session) callAddress(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (common.Address, error) {
	v, err := s.call(ctx, c, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(v, new(common.Address)).(*common.Address), nil
}

func (s *Session) callBool(ctx context.Context, c *bind.BoundContract, method string) (bool, error) {
	v, err := s.call(ctx, c, method)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(v, new(bool)).(*bool), nil
}

func (s *Session) callBig(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (*big.Int, error) {
	v, err := s.call(ctx, c, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int), nil
}

func (s *Session) callUint64(ctx context.Context, c *bind.BoundContract, method string) (uint64, error) {
	v, err := s.callBig(ctx, c, method)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s: %s overflows uint64", method, v)
	}
	return v.Uint64(), nil
}

func (s *Session) Owner(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, s.sale, "owner")
}

func (s *Session) Wallet(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, s.sale, "wallet")
}

func (s *Session) Token(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, s.sale, "token")
}

func (s *Session) Paused(ctx context.Context) (bool, error) {
	return s.callBool(ctx, s.sale, "paused")
}

func (s *Session) Finalized(ctx context.Context) (bool, error) {
	return s.callBool(ctx, s.sale, "isFinalized")
}

// Params reads the sale configuration one getter at a time.
func (s *Session) Params(ctx context.Context) (model.SaleParams, error) {
	var (
		p   model.SaleParams
		err error
	)
	amounts := []struct {
		method string
		dst    **big.Int
	}{
		{"rate", &p.Rate},
		{"cap", &p.Cap},
		{"minInvest", &p.MinInvest},
		{"maxCumulativeInvest", &p.MaxCumulativeInvest},
		{"maxGasPrice", &p.MaxGasPrice},
	}
	for _, a := range amounts {
		if *a.dst, err = s.callBig(ctx, s.sale, a.method); err != nil {
			return model.SaleParams{}, err
		}
	}
	times := []struct {
		method string
		dst    *uint64
	}{
		{"startTime", &p.StartTime},
		{"endTime", &p.EndTime},
		{"minBuyingRequestInterval", &p.MinBuyingRequestInterval},
	}
	for _, t := range times {
		if *t.dst, err = s.callUint64(ctx, s.sale, t.method); err != nil {
			return model.SaleParams{}, err
		}
	}
	return p, nil
}

func (s *Session) WeiRaised(ctx context.Context) (*big.Int, error) {
	return s.callBig(ctx, s.sale, "weiRaised")
}

func (s *Session) Deposited(ctx context.Context, investor common.Address) (*big.Int, error) {
	return s.callBig(ctx, s.vault, "deposited", investor)
}

func (s *Session) TokenOwner(ctx context.Context) (common.Address, error) {
	return s.callAddress(ctx, s.token, "owner")
}

func (s *Session) TokenPaused(ctx context.Context) (bool, error) {
	return s.callBool(ctx, s.token, "paused")
}

func (s *Session) TotalSupply(ctx context.Context) (*big.Int, error) {
	return s.callBig(ctx, s.token, "totalSupply")
}

func (s *Session) TokenBalance(ctx context.Context, holder common.Address) (*big.Int, error) {
	return s.callBig(ctx, s.token, "balanceOf", holder)
}

func (s *Session) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	return s.client.eth.BalanceAt(ctx, addr, nil)
}

// transact signs, sends and waits for one call. A mined transaction whose
// receipt reports failure is a revert.
func (s *Session) transact(ctx context.Context, c *bind.BoundContract, method string, opts ledger.TxOpts, args ...interface{}) (*ledger.Receipt, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	key, ok := s.client.keys[opts.From]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", method, opts.From.Hex(), ledger.ErrSignerLocked)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, s.client.chainID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	price := s.gasPrice
	if opts.GasPrice != nil {
		price = opts.GasPrice
	}
	auth.Context = ctx
	auth.Value = opts.Value
	auth.GasPrice = price
	auth.GasLimit = s.client.cfg.GasLimit

	tx, err := c.Transact(auth, method, args...)
	if err != nil {
		return nil, classify(method, err)
	}
	rcpt, err := bind.WaitMined(ctx, s.client.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("%s: wait for %s: %w", method, tx.Hash().Hex(), err)
	}
	if rcpt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%s: tx %s: %w", method, tx.Hash().Hex(), ledger.ErrReverted)
	}

	paid := price
	if rcpt.EffectiveGasPrice != nil {
		paid = rcpt.EffectiveGasPrice
	}
	return &ledger.Receipt{
		TxHash:      rcpt.TxHash,
		BlockNumber: rcpt.BlockNumber.Uint64(),
		GasUsed:     rcpt.GasUsed,
		GasPrice:    new(big.Int).Set(paid),
	}, nil
}

func (s *Session) SetWallet(ctx context.Context, opts ledger.TxOpts, wallet common.Address) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "setWallet", opts, wallet)
}

func (s *Session) SetToken(ctx context.Context, opts ledger.TxOpts, token common.Address) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "setToken", opts, token)
}

func (s *Session) ClaimVaultFunds(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "claimVaultFunds", opts)
}

func (s *Session) RefundAll(ctx context.Context, opts ledger.TxOpts, indexes []uint64) (*ledger.Receipt, error) {
	args := make([]*big.Int, len(indexes))
	for i, idx := range indexes {
		args[i] = new(big.Int).SetUint64(idx)
	}
	return s.transact(ctx, s.sale, "refundAll", opts, args)
}

func (s *Session) BuyTokens(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "buyTokens", opts)
}

func (s *Session) ValidatePurchase(ctx context.Context, opts ledger.TxOpts, beneficiary common.Address) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "validatePurchase", opts, beneficiary)
}

func (s *Session) RejectPurchase(ctx context.Context, opts ledger.TxOpts, beneficiary common.Address) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "rejectPurchase", opts, beneficiary)
}

func (s *Session) Pause(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "pause", opts)
}

func (s *Session) Unpause(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "unpause", opts)
}

func (s *Session) Finalize(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.sale, "finalize", opts)
}

func (s *Session) PauseToken(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.token, "pause", opts)
}

func (s *Session) UnpauseToken(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return s.transact(ctx, s.token, "unpause", opts)
}

func (s *Session) Burn(ctx context.Context, opts ledger.TxOpts, amount *big.Int) (*ledger.Receipt, error) {
	return s.transact(ctx, s.token, "burn", opts, amount)
}

// LatestBlock reads the head header and its transaction count.
func (s *Session) LatestBlock(ctx context.Context) (ledger.Block, error) {
	if err := s.live(); err != nil {
		return ledger.Block{}, err
	}
	head, err := s.client.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return ledger.Block{}, fmt.Errorf("latest header: %w", err)
	}
	n, err := s.client.eth.TransactionCount(ctx, head.Hash())
	if err != nil {
		return ledger.Block{}, fmt.Errorf("transaction count: %w", err)
	}
	return ledger.Block{
		Number:    head.Number.Uint64(),
		Timestamp: head.Time,
		GasUsed:   head.GasUsed,
		TxCount:   int(n),
	}, nil
}

func (s *Session) IncreaseTime(ctx context.Context, seconds uint64) error {
	if err := s.live(); err != nil {
		return err
	}
	if err := s.client.rpc.CallContext(ctx, nil, "evm_increaseTime", seconds); err != nil {
		return fmt.Errorf("evm_increaseTime: %w", err)
	}
	return s.mine(ctx)
}

func (s *Session) IncreaseTimeTo(ctx context.Context, t uint64) error {
	head, err := s.LatestBlock(ctx)
	if err != nil {
		return err
	}
	if t <= head.Timestamp {
		return s.mine(ctx)
	}
	return s.IncreaseTime(ctx, t-head.Timestamp)
}

func (s *Session) mine(ctx context.Context) error {
	if err := s.client.rpc.CallContext(ctx, nil, "evm_mine"); err != nil {
		return fmt.Errorf("evm_mine: %w", err)
	}
	return nil
}
