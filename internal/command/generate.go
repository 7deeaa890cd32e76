package command

import (
	"math/big"

	"pgregory.net/rand"

	"github.com/roach88/saleoracle/internal/model"
)

// GenConfig shapes random command generation.
type GenConfig struct {
	// Accounts is the number of indexed accounts to draw from.
	Accounts int
	// ZeroChance makes one draw in ZeroChance yield the zero identity.
	// Zero disables it.
	ZeroChance int
	// MaxWait bounds the random part of waitTime draws, in seconds.
	MaxWait uint64
}

// DefaultGenConfig returns the generation settings used by the CLI.
func DefaultGenConfig(accounts int) GenConfig {
	return GenConfig{Accounts: accounts, ZeroChance: 12, MaxWait: 10 * 24 * 3600}
}

const day = 24 * 3600

func drawAccount(r *rand.Rand, cfg GenConfig) model.Account {
	if cfg.ZeroChance > 0 && r.Intn(cfg.ZeroChance) == 0 {
		return model.ZeroAccount
	}
	if cfg.Accounts <= 0 {
		return model.ZeroAccount
	}
	return model.Account(r.Intn(cfg.Accounts))
}

// drawPrivileged favours the holder of a privileged role so owner-only
// commands are accepted often enough to matter.
func drawPrivileged(r *rand.Rand, cfg GenConfig, holder model.Account) model.Account {
	if holder.Indexed() && r.Intn(4) != 0 {
		return holder
	}
	return drawAccount(r, cfg)
}

// drawBig returns a uniform-ish value in [lo, hi].
func drawBig(r *rand.Rand, lo, hi *big.Int) *big.Int {
	if hi.Cmp(lo) <= 0 {
		return new(big.Int).Set(lo)
	}
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big.NewInt(1))
	if span.IsUint64() {
		return new(big.Int).Add(lo, new(big.Int).SetUint64(r.Uint64n(span.Uint64())))
	}
	words := len(span.Bits()) + 1
	n := new(big.Int)
	for i := 0; i < words; i++ {
		n.Lsh(n, 64)
		n.Or(n, new(big.Int).SetUint64(r.Uint64()))
	}
	return n.Add(lo, n.Mod(n, span))
}

// drawValue picks a contribution around the sale's interesting boundaries.
func drawValue(r *rand.Rand, st *model.State) *big.Int {
	minInvest, maxInvest := orZero(st.Sale.MinInvest), orZero(st.Sale.MaxCumulativeInvest)
	one := big.NewInt(1)
	switch r.Intn(8) {
	case 0:
		return new(big.Int)
	case 1:
		if minInvest.Sign() > 0 {
			return new(big.Int).Sub(minInvest, one)
		}
		return new(big.Int)
	case 2:
		return new(big.Int).Set(minInvest)
	case 3:
		return new(big.Int).Set(maxInvest)
	case 4:
		return new(big.Int).Add(maxInvest, one)
	case 5:
		if rem := st.CapRemaining(); rem.Sign() > 0 {
			return rem
		}
		return new(big.Int).Set(minInvest)
	default:
		return drawBig(r, minInvest, maxInvest)
	}
}

// drawGasPrice usually leaves the price unset so the default applies.
func drawGasPrice(r *rand.Rand, st *model.State) *big.Int {
	if st.Sale.MaxGasPrice == nil {
		return nil
	}
	switch r.Intn(10) {
	case 0:
		return new(big.Int).Set(st.Sale.MaxGasPrice)
	case 1:
		return new(big.Int).Add(st.Sale.MaxGasPrice, big.NewInt(1))
	case 2:
		return new(big.Int).Rsh(st.Sale.MaxGasPrice, 1)
	}
	return nil
}

func genSetWallet(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return SetWallet(drawPrivileged(r, cfg, st.Owner), drawAccount(r, cfg))
}

func genSetToken(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return SetToken(drawPrivileged(r, cfg, st.Owner), drawAccount(r, cfg))
}

func genClaimVaultFunds(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	if len(st.FundsOwners) > 0 && r.Intn(2) == 0 {
		return ClaimVaultFunds(st.FundsOwners[r.Intn(len(st.FundsOwners))])
	}
	return ClaimVaultFunds(drawAccount(r, cfg))
}

func genRefundAll(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	n := r.Intn(4)
	indexes := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		indexes = append(indexes, uint64(r.Intn(len(st.FundsOwners)+2)))
	}
	return RefundAll(drawPrivileged(r, cfg, st.Owner), indexes...)
}

func genBuyTokens(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return BuyTokens(drawAccount(r, cfg), drawValue(r, st)).WithGasPrice(drawGasPrice(r, st))
}

func genValidatePurchase(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return ValidatePurchase(drawPrivileged(r, cfg, st.Owner), drawBeneficiary(r, st, cfg)).WithGasPrice(drawGasPrice(r, st))
}

func genRejectPurchase(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return RejectPurchase(drawPrivileged(r, cfg, st.Owner), drawBeneficiary(r, st, cfg)).WithGasPrice(drawGasPrice(r, st))
}

// drawBeneficiary prefers investors with something pending in the vault.
func drawBeneficiary(r *rand.Rand, st *model.State, cfg GenConfig) model.Account {
	if len(st.FundsOwners) > 0 && r.Intn(3) != 0 {
		return st.FundsOwners[r.Intn(len(st.FundsOwners))]
	}
	return drawAccount(r, cfg)
}

func genPauseCrowdsale(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return PauseCrowdsale(drawPrivileged(r, cfg, st.Owner), r.Intn(2) == 0)
}

func genPauseToken(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return PauseToken(drawPrivileged(r, cfg, st.TokenOwner), r.Intn(2) == 0)
}

func genFinalize(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	return Finalize(drawPrivileged(r, cfg, st.Owner))
}

func genBurnTokens(r *rand.Rand, st *model.State, cfg GenConfig) Command {
	from := drawAccount(r, cfg)
	balance := st.TokenBalance(from)
	var tokens *big.Int
	switch r.Intn(4) {
	case 0:
		tokens = new(big.Int)
	case 1:
		tokens = balance
	case 2:
		tokens = new(big.Int).Add(balance, big.NewInt(1))
	default:
		tokens = drawBig(r, big.NewInt(1), balance)
	}
	return BurnTokens(from, tokens)
}

func genWaitTime(r *rand.Rand, _ *model.State, cfg GenConfig) Command {
	switch r.Intn(5) {
	case 0:
		return WaitTime(r.Uint64n(3600) + 1)
	case 1:
		return WaitTime(day)
	case 2:
		return WaitTime(7 * day)
	case 3:
		return WaitTime(30 * day)
	}
	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = day
	}
	return WaitTime(r.Uint64n(maxWait) + 1)
}

func genFundToCap(r *rand.Rand, _ *model.State, _ GenConfig) Command {
	return FundToCap(r.Intn(2) == 0)
}
