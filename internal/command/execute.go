package command

import (
	"context"
	"fmt"

	"github.com/roach88/saleoracle/internal/ledger"
)

// Executor sends a command to a ledger with the given transaction options.
type Executor func(ctx context.Context, l ledger.Ledger, acc *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error)

func executeSetWallet(ctx context.Context, l ledger.Ledger, acc *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.SetWallet(ctx, opts, acc.Address(c.Target))
}

func executeSetToken(ctx context.Context, l ledger.Ledger, acc *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.SetToken(ctx, opts, acc.Address(c.Target))
}

func executeClaimVaultFunds(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, _ Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.ClaimVaultFunds(ctx, opts)
}

func executeRefundAll(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.RefundAll(ctx, opts, c.Indexes)
}

func executeBuyTokens(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	opts.Value = orZero(c.Value)
	return l.BuyTokens(ctx, opts)
}

func executeValidatePurchase(ctx context.Context, l ledger.Ledger, acc *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.ValidatePurchase(ctx, opts, acc.Address(c.Target))
}

func executeRejectPurchase(ctx context.Context, l ledger.Ledger, acc *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.RejectPurchase(ctx, opts, acc.Address(c.Target))
}

func executePauseCrowdsale(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if c.Pause {
		return l.Pause(ctx, opts)
	}
	return l.Unpause(ctx, opts)
}

func executePauseToken(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if c.Pause {
		return l.PauseToken(ctx, opts)
	}
	return l.UnpauseToken(ctx, opts)
}

func executeFinalize(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, _ Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.Finalize(ctx, opts)
}

func executeBurnTokens(ctx context.Context, l ledger.Ledger, _ *ledger.Accounts, c Command, opts ledger.TxOpts) (*ledger.Receipt, error) {
	return l.Burn(ctx, opts, orZero(c.Tokens))
}

func executeNothing(_ context.Context, _ ledger.Ledger, _ *ledger.Accounts, c Command, _ ledger.TxOpts) (*ledger.Receipt, error) {
	return nil, fmt.Errorf("%s does not send a transaction", c.Kind)
}
