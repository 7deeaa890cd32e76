package command

// Reason names one rule a command breaks. A command with any reason must be
// rejected by the ledger.
type Reason string

const (
	ReasonZeroAddress        Reason = "zero_address"
	ReasonNotOwner           Reason = "not_owner"
	ReasonNotTokenOwner      Reason = "not_token_owner"
	ReasonInSaleWindow       Reason = "in_sale_window"
	ReasonOutsideSaleWindow  Reason = "outside_sale_window"
	ReasonPaused             Reason = "sale_paused"
	ReasonTokenPaused        Reason = "token_paused"
	ReasonNotFinalized       Reason = "not_finalized"
	ReasonFinalized          Reason = "already_finalized"
	ReasonInvalidParams      Reason = "invalid_sale_params"
	ReasonZeroValue          Reason = "zero_value"
	ReasonMaxExceeded        Reason = "max_cumulative_exceeded"
	ReasonMinNotReached      Reason = "min_invest_not_reached"
	ReasonGasExceeded        Reason = "gas_price_exceeded"
	ReasonCapReached         Reason = "cap_reached"
	ReasonKYCRejected        Reason = "kyc_rejected"
	ReasonUnknownFunder      Reason = "unknown_funder_index"
	ReasonSameState          Reason = "already_in_state"
	ReasonSaleNotOver        Reason = "sale_not_over"
	ReasonInsufficientTokens Reason = "insufficient_tokens"
	ReasonZeroAmount         Reason = "zero_amount"
	ReasonTokenDetached      Reason = "token_detached"
)

// Strings converts reasons for logging and storage.
func Strings(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
