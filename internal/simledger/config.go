package simledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// Fault is a deliberate defect injected into the simulated sale.
type Fault string

const (
	// FaultIgnorePause lets purchases through while the sale is paused.
	FaultIgnorePause Fault = "ignore_pause"
	// FaultNoBonus never applies the early-contribution bonus.
	FaultNoBonus Fault = "no_bonus"
	// FaultNoClip credits full purchases past the cap.
	FaultNoClip Fault = "no_clip"
	// FaultMintShort mints one token less to the wallet on finalize.
	FaultMintShort Fault = "mint_short"
)

// Config describes the accounts and sale deployed by New.
type Config struct {
	// Accounts is the number of funded accounts. Account 0 owns the sale
	// and the last account is the initial wallet.
	Accounts       int
	InitialBalance *big.Int
	// GasPrice is the price used for calls that do not set one.
	GasPrice *big.Int

	// GenesisTime is the timestamp of block 0.
	GenesisTime uint64
	// StartOffset and Duration place the sale window relative to genesis.
	StartOffset uint64
	Duration    uint64

	Rate                     *big.Int
	Cap                      *big.Int
	MinInvest                *big.Int
	MaxCumulativeInvest      *big.Int
	MaxGasPrice              *big.Int
	MinBuyingRequestInterval uint64

	Faults []Fault
}

func etherAmount(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// DefaultConfig returns a sale opening one day after genesis and lasting
// thirty days, with a 100 ether cap and 1..50 ether per investor.
func DefaultConfig() Config {
	return Config{
		Accounts:                 6,
		InitialBalance:           etherAmount(1_000_000),
		GasPrice:                 big.NewInt(22 * params.GWei),
		GenesisTime:              1_700_000_000,
		StartOffset:              24 * 3600,
		Duration:                 30 * 24 * 3600,
		Rate:                     big.NewInt(10),
		Cap:                      etherAmount(100),
		MinInvest:                etherAmount(1),
		MaxCumulativeInvest:      etherAmount(50),
		MaxGasPrice:              big.NewInt(50 * params.GWei),
		MinBuyingRequestInterval: 60,
	}
}

// Validate checks the config can be deployed. Sale parameters may be zero:
// a sale with unusable parameters is a legitimate thing to test.
func (c Config) Validate() error {
	if c.Accounts < 2 {
		return fmt.Errorf("need at least 2 accounts, got %d", c.Accounts)
	}
	for name, v := range map[string]*big.Int{
		"initial_balance":       c.InitialBalance,
		"gas_price":             c.GasPrice,
		"rate":                  c.Rate,
		"cap":                   c.Cap,
		"min_invest":            c.MinInvest,
		"max_cumulative_invest": c.MaxCumulativeInvest,
		"max_gas_price":         c.MaxGasPrice,
	} {
		if v == nil {
			return fmt.Errorf("%s is required", name)
		}
		if v.Sign() < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c Config) hasFault(f Fault) bool {
	for _, have := range c.Faults {
		if have == f {
			return true
		}
	}
	return false
}
