package simledger

import (
	"context"

	"github.com/roach88/saleoracle/internal/ledger"
)

// Factory deploys a fresh simulated sale for every session.
type Factory struct {
	Config Config
}

var _ ledger.Factory = Factory{}

// NewFactory returns a Factory for cfg.
func NewFactory(cfg Config) Factory {
	return Factory{Config: cfg}
}

// Open deploys a new Ledger.
func (f Factory) Open(ctx context.Context) (ledger.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, err := New(f.Config)
	if err != nil {
		return nil, err
	}
	return l, nil
}
