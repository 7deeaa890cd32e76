package trace

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
)

func TestRender(t *testing.T) {
	steps := []oracle.StepRecord{
		{Index: 0, Command: command.ValidatePurchase(0, 1), Outcome: oracle.OutcomeAccepted},
		{Index: 1, Command: command.BuyTokens(1, big.NewInt(60)), Outcome: oracle.OutcomeRejected,
			Reasons: []command.Reason{command.ReasonMaxExceeded}},
		{Index: 2, Command: command.WaitTime(10), Outcome: oracle.OutcomeWaited},
	}
	want := "000 accepted validatePurchase(from=acct0, beneficiary=acct1)\n" +
		"001 rejected buyTokens(from=acct1, value=60) [max_cumulative_exceeded]\n" +
		"002 waited waitTime(seconds=10)\n"
	assert.Equal(t, want, RenderString(steps))
}
