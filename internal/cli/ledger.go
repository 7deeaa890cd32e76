package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/saleoracle/internal/config"
	"github.com/roach88/saleoracle/internal/ethledger"
	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/simledger"
)

// openFactory returns the session factory for the configured ledger and a
// function that releases it.
func openFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ledger.Factory, func(), error) {
	switch cfg.Ledger {
	case "sim":
		simCfg, err := cfg.SimLedger()
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("using simulated ledger", "accounts", simCfg.Accounts, "faults", simCfg.Faults)
		return simledger.NewFactory(simCfg), func() {}, nil
	case "eth":
		ethCfg, err := cfg.EthLedger()
		if err != nil {
			return nil, nil, err
		}
		client, err := ethledger.Dial(ctx, ethCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger %q", cfg.Ledger)
}
