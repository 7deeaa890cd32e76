package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/oracle"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}

func TestWriteJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, writeJSON(cmd, map[string]int{"runs": 2}, nil))
	var data map[string]int
	resp := decodeResponse(t, buf.String(), &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 2, data["runs"])

	buf.Reset()
	require.NoError(t, writeJSON(cmd, nil, &CLIError{Code: "E", Message: "boom"}))
	resp = decodeResponse(t, buf.String(), nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", resp.Error.Message)
}

func TestRenderSteps(t *testing.T) {
	steps := []oracle.StepRecord{
		{Index: 0, Command: command.WaitTime(60), Outcome: oracle.OutcomeWaited},
		{Index: 1, Command: command.PauseCrowdsale(model.Account(0), true), Outcome: oracle.OutcomeFailed, Error: "ledger said no"},
	}
	buf := &bytes.Buffer{}
	renderSteps(buf, steps, "> ")

	out := buf.String()
	assert.Contains(t, out, "> 000 waited ")
	assert.Contains(t, out, "> 001 failed ")
	assert.Contains(t, out, "ledger said no")
}
