package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/oracle"
)

func TestList_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(NewListCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	out, err = execute(NewListCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)
	var runs []ListedRun
	decodeResponse(t, out, &runs)
	assert.Empty(t, runs)
}

func TestList_AfterCampaign(t *testing.T) {
	cfg := writeConfig(t, faultyRun)
	db := filepath.Join(t.TempDir(), "runs.db")
	id := failedRunID(t, cfg, db)

	out, err := execute(NewListCommand(&RootOptions{Format: "json", Config: cfg}), "--db", db)
	require.NoError(t, err)
	var all []ListedRun
	decodeResponse(t, out, &all)
	require.NotEmpty(t, all)
	last := all[len(all)-1]
	assert.Equal(t, id, last.ID)
	assert.Equal(t, int64(len(all)), last.Seq)
	assert.True(t, last.Failed)
	for _, r := range all[:len(all)-1] {
		assert.False(t, r.Failed)
		assert.Empty(t, r.Code)
	}

	out, err = execute(NewListCommand(&RootOptions{Format: "json", Config: cfg}), "--db", db, "--failed")
	require.NoError(t, err)
	var failed []ListedRun
	decodeResponse(t, out, &failed)
	require.Len(t, failed, 1)
	assert.Equal(t, oracle.CodeUnexpectedSuccess, failed[0].Code)

	out, err = execute(NewListCommand(&RootOptions{Format: "text", Config: cfg}), "--db", db, "--failed")
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, id)
	assert.Contains(t, out, string(oracle.CodeUnexpectedSuccess))
}
