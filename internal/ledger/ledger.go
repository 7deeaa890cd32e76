package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/model"
)

// Rejection sentinels. Implementations wrap these so the classifier can use
// errors.Is regardless of the transport's own error text.
var (
	// ErrReverted means the transaction was mined and reverted.
	ErrReverted = errors.New("transaction reverted")

	// ErrInvalidOpcode means execution hit an invalid opcode (failed assert).
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrSignerLocked means the node could not sign for the sender, which is
	// how a send from the zero address fails.
	ErrSignerLocked = errors.New("could not unlock signer account")
)

// TxOpts carries the caller and payment for a mutating call.
type TxOpts struct {
	From common.Address
	// Value is the wei attached to the call. Nil means none.
	Value *big.Int
	// GasPrice overrides the backend's default price when non-nil.
	GasPrice *big.Int
}

// Receipt describes a mined, successful transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	GasPrice    *big.Int
}

// Fee returns gasUsed × gasPrice.
func (r *Receipt) Fee() *big.Int {
	if r == nil || r.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.GasPrice)
}

// Block summarizes the latest block.
type Block struct {
	Number    uint64
	Timestamp uint64
	GasUsed   uint64
	TxCount   int
}

// Reader exposes the observable state of the sale, its vault and its token.
type Reader interface {
	Owner(ctx context.Context) (common.Address, error)
	Wallet(ctx context.Context) (common.Address, error)
	// Token is the token address the sale currently points at.
	Token(ctx context.Context) (common.Address, error)
	Paused(ctx context.Context) (bool, error)
	Finalized(ctx context.Context) (bool, error)
	Params(ctx context.Context) (model.SaleParams, error)
	WeiRaised(ctx context.Context) (*big.Int, error)
	// Deposited is the vault balance held for an investor.
	Deposited(ctx context.Context, investor common.Address) (*big.Int, error)

	// The token accessors read the token deployed alongside the sale, even
	// after the sale has been pointed elsewhere.
	TokenOwner(ctx context.Context) (common.Address, error)
	TokenPaused(ctx context.Context) (bool, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	TokenBalance(ctx context.Context, holder common.Address) (*big.Int, error)

	// Balance is the native balance of an address.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Ledger is a Reader plus the sale's mutating calls.
type Ledger interface {
	Reader

	SetWallet(ctx context.Context, opts TxOpts, wallet common.Address) (*Receipt, error)
	SetToken(ctx context.Context, opts TxOpts, token common.Address) (*Receipt, error)
	ClaimVaultFunds(ctx context.Context, opts TxOpts) (*Receipt, error)
	RefundAll(ctx context.Context, opts TxOpts, indexes []uint64) (*Receipt, error)
	BuyTokens(ctx context.Context, opts TxOpts) (*Receipt, error)
	ValidatePurchase(ctx context.Context, opts TxOpts, beneficiary common.Address) (*Receipt, error)
	RejectPurchase(ctx context.Context, opts TxOpts, beneficiary common.Address) (*Receipt, error)
	Pause(ctx context.Context, opts TxOpts) (*Receipt, error)
	Unpause(ctx context.Context, opts TxOpts) (*Receipt, error)
	Finalize(ctx context.Context, opts TxOpts) (*Receipt, error)

	PauseToken(ctx context.Context, opts TxOpts) (*Receipt, error)
	UnpauseToken(ctx context.Context, opts TxOpts) (*Receipt, error)
	Burn(ctx context.Context, opts TxOpts, amount *big.Int) (*Receipt, error)
}

// Chain is the time-control surface.
type Chain interface {
	LatestBlock(ctx context.Context) (Block, error)
	// IncreaseTime advances chain time and mines an empty block.
	IncreaseTime(ctx context.Context, seconds uint64) error
	// IncreaseTimeTo advances chain time to at least t and mines an empty block.
	IncreaseTimeTo(ctx context.Context, t uint64) error
}

// Backend is everything a run needs from one ledger instance.
type Backend interface {
	Ledger
	Chain
	Accounts() *Accounts
	// DefaultGasPrice is the price used when TxOpts.GasPrice is nil.
	DefaultGasPrice() *big.Int
}

// Session is a Backend bound to a fresh ledger instance.
type Session interface {
	Backend
	Close() error
}

// Factory opens fresh sessions. Every run and every shrink attempt gets its
// own session so no state leaks between them.
type Factory interface {
	Open(ctx context.Context) (Session, error)
}
