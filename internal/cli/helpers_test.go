package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// smallSale is a sim section with wei-sized amounts so campaigns reach
// the cap quickly.
const smallSale = `
gas_price: "1 wei"
sim:
  accounts: 5
  initial_balance: "1000000000000 wei"
  start_offset: 0
  rate: "10"
  cap: "100 wei"
  min_invest: "1 wei"
  max_cumulative_invest: "50 wei"
  max_gas_price: "50 wei"
`

// faultyRun finds the ignore_pause fault with a campaign over the three
// kinds that can expose it.
const faultyRun = smallSale + `  faults: [ignore_pause]
seed: 7
runs: 30
commands: 40
kinds: [waitTime, pauseCrowdsale, buyTokens]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oracle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse unmarshals a JSON response, decoding its data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Data: data, Error: raw.Error}
}

// failedRunID runs the faulty campaign into db and returns the failing
// run's ID.
func failedRunID(t *testing.T, cfgPath, db string) string {
	t.Helper()
	out, err := execute(NewRunCommand(&RootOptions{Format: "json", Config: cfgPath}), "--db", db)
	require.Equal(t, ExitFailure, GetExitCode(err), "error: %v", err)

	var res RunResult
	decodeResponse(t, out, &res)
	require.NotNil(t, res.Failure)
	require.NotEmpty(t, res.Failure.RunID)
	return res.Failure.RunID
}
