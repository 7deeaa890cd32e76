package command

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/roach88/saleoracle/internal/model"
)

// Kind names a command.
type Kind string

const (
	KindSetWallet        Kind = "setWallet"
	KindSetToken         Kind = "setToken"
	KindClaimVaultFunds  Kind = "claimVaultFunds"
	KindRefundAll        Kind = "refundAll"
	KindBuyTokens        Kind = "buyTokens"
	KindValidatePurchase Kind = "validatePurchase"
	KindRejectPurchase   Kind = "rejectPurchase"
	KindPauseCrowdsale   Kind = "pauseCrowdsale"
	KindPauseToken       Kind = "pauseToken"
	KindFinalize         Kind = "finalizeCrowdsale"
	KindBurnTokens       Kind = "burnTokens"
	KindWaitTime         Kind = "waitTime"

	// KindFundToCap is a macro. It never reaches a ledger: the driver
	// expands it into primitive commands using the state at that point.
	KindFundToCap Kind = "fundCrowdsaleToCap"
)

// Command is one step of a sequence. Only the fields relevant to Kind are
// set; Target is model.External for kinds without a second party.
type Command struct {
	Kind Kind          `json:"kind"`
	From model.Account `json:"from"`
	// Target is the new wallet, the new token or the reviewed beneficiary.
	Target   model.Account `json:"target"`
	Value    *big.Int      `json:"value,omitempty"`
	GasPrice *big.Int      `json:"gas_price,omitempty"`
	Tokens   *big.Int      `json:"tokens,omitempty"`
	Pause    bool          `json:"pause,omitempty"`
	Seconds  uint64        `json:"seconds,omitempty"`
	Indexes  []uint64      `json:"indexes,omitempty"`
	// Finalize asks the fund-to-cap macro to finish with a finalize.
	Finalize bool `json:"finalize,omitempty"`
	// Origin names the macro a command was expanded from, if any.
	Origin Kind `json:"origin,omitempty"`
}

func SetWallet(from, wallet model.Account) Command {
	return Command{Kind: KindSetWallet, From: from, Target: wallet}
}

func SetToken(from, token model.Account) Command {
	return Command{Kind: KindSetToken, From: from, Target: token}
}

func ClaimVaultFunds(from model.Account) Command {
	return Command{Kind: KindClaimVaultFunds, From: from, Target: model.External}
}

func RefundAll(from model.Account, indexes ...uint64) Command {
	return Command{Kind: KindRefundAll, From: from, Target: model.External, Indexes: indexes}
}

func BuyTokens(from model.Account, value *big.Int) Command {
	return Command{Kind: KindBuyTokens, From: from, Target: model.External, Value: value}
}

func ValidatePurchase(from, beneficiary model.Account) Command {
	return Command{Kind: KindValidatePurchase, From: from, Target: beneficiary}
}

func RejectPurchase(from, beneficiary model.Account) Command {
	return Command{Kind: KindRejectPurchase, From: from, Target: beneficiary}
}

func PauseCrowdsale(from model.Account, pause bool) Command {
	return Command{Kind: KindPauseCrowdsale, From: from, Target: model.External, Pause: pause}
}

func PauseToken(from model.Account, pause bool) Command {
	return Command{Kind: KindPauseToken, From: from, Target: model.External, Pause: pause}
}

func Finalize(from model.Account) Command {
	return Command{Kind: KindFinalize, From: from, Target: model.External}
}

func BurnTokens(from model.Account, tokens *big.Int) Command {
	return Command{Kind: KindBurnTokens, From: from, Target: model.External, Tokens: tokens}
}

func WaitTime(seconds uint64) Command {
	return Command{Kind: KindWaitTime, From: model.External, Target: model.External, Seconds: seconds}
}

func FundToCap(finalize bool) Command {
	return Command{Kind: KindFundToCap, From: model.External, Target: model.External, Finalize: finalize}
}

// WithGasPrice returns a copy of c sent at the given gas price.
func (c Command) WithGasPrice(price *big.Int) Command {
	c.GasPrice = price
	return c
}

// Clone returns a deep copy of c.
func (c Command) Clone() Command {
	out := c
	out.Value = copyInt(c.Value)
	out.GasPrice = copyInt(c.GasPrice)
	out.Tokens = copyInt(c.Tokens)
	out.Indexes = slices.Clone(c.Indexes)
	return out
}

// Parties returns the accounts whose addresses the call carries. A zero
// identity among them makes the call invalid.
func (c Command) Parties() []model.Account {
	switch c.Kind {
	case KindSetWallet, KindSetToken, KindValidatePurchase, KindRejectPurchase:
		return []model.Account{c.From, c.Target}
	case KindWaitTime, KindFundToCap:
		return nil
	}
	return []model.Account{c.From}
}

// HasZeroParty reports whether any party of c is the zero identity.
func (c Command) HasZeroParty() bool {
	return slices.ContainsFunc(c.Parties(), model.Account.IsZero)
}

// Sends reports whether executing c submits a transaction.
func (c Command) Sends() bool {
	return c.Kind != KindWaitTime && c.Kind != KindFundToCap
}

func (c Command) String() string {
	var args []string
	if c.Sends() {
		args = append(args, "from="+c.From.String())
	}
	switch c.Kind {
	case KindSetWallet:
		args = append(args, "wallet="+c.Target.String())
	case KindSetToken:
		args = append(args, "token="+c.Target.String())
	case KindValidatePurchase, KindRejectPurchase:
		args = append(args, "beneficiary="+c.Target.String())
	}
	if c.Value != nil {
		args = append(args, "value="+c.Value.String())
	}
	if c.Tokens != nil {
		args = append(args, "tokens="+c.Tokens.String())
	}
	if c.Kind == KindPauseCrowdsale || c.Kind == KindPauseToken {
		args = append(args, fmt.Sprintf("pause=%t", c.Pause))
	}
	if c.Kind == KindWaitTime {
		args = append(args, fmt.Sprintf("seconds=%d", c.Seconds))
	}
	if c.Kind == KindRefundAll {
		args = append(args, fmt.Sprintf("indexes=%v", c.Indexes))
	}
	if c.Kind == KindFundToCap {
		args = append(args, fmt.Sprintf("finalize=%t", c.Finalize))
	}
	if c.GasPrice != nil {
		args = append(args, "gasPrice="+c.GasPrice.String())
	}
	return string(c.Kind) + "(" + strings.Join(args, ", ") + ")"
}

// EffectiveGasPrice is the price c is sent at. Purchase and review calls
// default to the sale's maximum gas price, everything else to fallback.
func EffectiveGasPrice(st *model.State, c Command, fallback *big.Int) *big.Int {
	if c.GasPrice != nil {
		return copyInt(c.GasPrice)
	}
	switch c.Kind {
	case KindBuyTokens, KindValidatePurchase, KindRejectPurchase:
		if st.Sale.MaxGasPrice != nil {
			return copyInt(st.Sale.MaxGasPrice)
		}
	}
	return copyInt(fallback)
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
