package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/oracle"
)

func TestTrace_Text(t *testing.T) {
	cfg := writeConfig(t, faultyRun)
	db := filepath.Join(t.TempDir(), "runs.db")
	id := failedRunID(t, cfg, db)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text", Config: cfg}), "--db", db, id)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+id)
	assert.Contains(t, out, "=== Steps ===")
	assert.Contains(t, out, "=== Failure ===")
	assert.Contains(t, out, string(oracle.CodeUnexpectedSuccess))
	assert.Contains(t, out, "=== Shrunk to")
	assert.Contains(t, out, "Stats:")
}

func TestTrace_JSON(t *testing.T) {
	cfg := writeConfig(t, faultyRun)
	db := filepath.Join(t.TempDir(), "runs.db")
	id := failedRunID(t, cfg, db)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json", Config: cfg}), "--db", db, id)
	require.NoError(t, err)

	var res TraceResult
	decodeResponse(t, out, &res)
	assert.Equal(t, id, res.RunID)
	assert.NotEmpty(t, res.SequenceHash)
	assert.NotEmpty(t, res.TraceHash)

	var steps []map[string]any
	require.NoError(t, json.Unmarshal(res.Steps, &steps))
	assert.Len(t, steps, res.Stats.Steps)
	assert.Equal(t, 1, res.Stats.Failed)
	require.NotNil(t, res.Failure)
	assert.Equal(t, oracle.CodeUnexpectedSuccess, res.Failure.Code)
	require.NotNil(t, res.ShrunkFailure)
	assert.NotEmpty(t, res.Shrunk)
	assert.NotNil(t, res.SameSequence)
}

func TestTrace_KindFilter(t *testing.T) {
	cfg := writeConfig(t, faultyRun)
	db := filepath.Join(t.TempDir(), "runs.db")
	id := failedRunID(t, cfg, db)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json", Config: cfg}), "--db", db, "--kind", "pauseCrowdsale", id)
	require.NoError(t, err)

	var res TraceResult
	decodeResponse(t, out, &res)
	var steps []struct {
		Command struct {
			Kind string `json:"kind"`
		} `json:"command"`
	}
	require.NoError(t, json.Unmarshal(res.Steps, &steps))
	require.NotEmpty(t, steps)
	for _, s := range steps {
		assert.Equal(t, "pauseCrowdsale", s.Command.Kind)
	}
}

func TestTrace_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--kind", "mintTokens", "some-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --kind")

	_, err = execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "some-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}
