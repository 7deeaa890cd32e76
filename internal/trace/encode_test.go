package trace

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/oracle"
)

func TestCommandEncoding(t *testing.T) {
	expanded := command.PauseCrowdsale(0, false)
	expanded.Origin = command.KindFundToCap

	tests := []struct {
		name     string
		cmd      command.Command
		expected string
	}{
		{"buy", command.BuyTokens(2, big.NewInt(10)).WithGasPrice(big.NewInt(5)),
			`{"from":"acct2","gas_price":"5","kind":"buyTokens","value":"10"}`},
		{"wait", command.WaitTime(60), `{"kind":"waitTime","seconds":60}`},
		{"refund", command.RefundAll(0, 1, 0), `{"from":"acct0","indexes":[1,0],"kind":"refundAll"}`},
		{"review", command.ValidatePurchase(0, 3), `{"from":"acct0","kind":"validatePurchase","target":"acct3"}`},
		{"zero sender", command.Finalize(model.ZeroAccount), `{"from":"zero","kind":"finalizeCrowdsale"}`},
		{"pause false", command.PauseCrowdsale(1, false), `{"from":"acct1","kind":"pauseCrowdsale","pause":false}`},
		{"macro", command.FundToCap(true), `{"finalize":true,"kind":"fundCrowdsaleToCap"}`},
		{"expanded", expanded, `{"from":"acct0","kind":"pauseCrowdsale","origin":"fundCrowdsaleToCap","pause":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(Command(tt.cmd))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestCommandsRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	cmds := []command.Command{
		command.SetWallet(0, 4),
		command.SetToken(0, model.ZeroAccount),
		command.ClaimVaultFunds(2),
		command.RefundAll(0, 0, 2),
		command.BuyTokens(1, huge),
		command.RejectPurchase(0, 1).WithGasPrice(big.NewInt(51)),
		command.PauseToken(4, true),
		command.BurnTokens(3, big.NewInt(0)),
		command.WaitTime(7 * 24 * 3600),
		command.FundToCap(false),
	}

	data, err := MarshalCommands(cmds)
	require.NoError(t, err)

	decoded, err := UnmarshalCommands(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(cmds))
	for i := range cmds {
		assert.Equal(t, cmds[i].String(), decoded[i].String(), "command %d", i)
	}

	again, err := MarshalCommands(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestUnmarshalCommandsAcceptsNumbers(t *testing.T) {
	cmds, err := UnmarshalCommands([]byte(`[{"kind":"buyTokens","from":"acct1","value":7}]`))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "7", cmds[0].Value.String())
	assert.Equal(t, model.External, cmds[0].Target)
}

func TestUnmarshalCommandsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `{`, "decode commands"},
		{"unknown field", `[{"kind":"finalizeCrowdsale","from":"acct0","color":"red"}]`, `unknown field "color"`},
		{"unknown kind", `[{"kind":"mint","from":"acct0"}]`, `unknown command "mint"`},
		{"bad amount", `[{"kind":"buyTokens","from":"acct0","value":"1e3"}]`, "invalid amount"},
		{"negative seconds", `[{"kind":"waitTime","seconds":-1}]`, "out of range"},
		{"bad account", `[{"kind":"claimVaultFunds","from":"bob"}]`, "invalid account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCommands([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStepEncoding(t *testing.T) {
	rec := oracle.StepRecord{
		Index:   1,
		Command: command.BuyTokens(1, big.NewInt(60)),
		Outcome: oracle.OutcomeRejected,
		Reasons: []command.Reason{command.ReasonMaxExceeded},
		Error:   "reverted",
		Block:   9,
		Fee:     big.NewInt(24000),
	}
	out, err := Marshal(Step(rec))
	require.NoError(t, err)
	assert.Equal(t,
		`{"command":{"from":"acct1","kind":"buyTokens","value":"60"},"index":1,"outcome":"rejected","reasons":["max_cumulative_exceeded"]}`,
		string(out))
}

func TestUnmarshalCommand(t *testing.T) {
	c, err := UnmarshalCommand([]byte(`{"from":"acct0","kind":"rejectPurchase","target":"acct2"}`))
	require.NoError(t, err)
	assert.Equal(t, "rejectPurchase(from=acct0, beneficiary=acct2)", c.String())

	_, err = UnmarshalCommand([]byte(`[]`))
	require.Error(t, err)
}
