package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func TestScenario_SingleFilePasses(t *testing.T) {
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}),
		filepath.Join(scenariosDir, "approved_purchase.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "approved_purchase")
	assert.Contains(t, out, "Passed: 1/1")
}

func TestScenario_DirectoryReportsFault(t *testing.T) {
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "json"}), scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var summary ScenarioSummary
	resp := decodeResponse(t, out, &summary)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, summary.Total, summary.Passed+summary.Failed)

	var fault *ScenarioResult
	for i := range summary.Scenarios {
		if summary.Scenarios[i].Name == "paused_purchase_fault" {
			fault = &summary.Scenarios[i]
		}
	}
	require.NotNil(t, fault)
	assert.False(t, fault.Pass)
	assert.Equal(t, "UNEXPECTED_SUCCESS", fault.Code)
	assert.NotEmpty(t, fault.Errors)
}

func TestScenario_Filter(t *testing.T) {
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "json"}), scenariosDir, "--filter", "approved*")
	require.NoError(t, err)

	var summary ScenarioSummary
	decodeResponse(t, out, &summary)
	require.Equal(t, 1, summary.Total)
	assert.Equal(t, "approved_purchase", summary.Scenarios[0].Name)
	assert.True(t, summary.Scenarios[0].Pass)
}

func TestScenario_UpdateWritesGolden(t *testing.T) {
	golden := t.TempDir()
	file := filepath.Join(scenariosDir, "approved_purchase.yaml")

	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), file, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	got, err := os.ReadFile(filepath.Join(golden, "approved_purchase.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/approved_purchase.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// A tampered golden file fails the comparison.
	require.NoError(t, os.WriteFile(filepath.Join(golden, "approved_purchase.golden"), []byte("{}"), 0o644))
	out, err = execute(NewScenarioCommand(&RootOptions{Format: "text"}), file, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenario_Errors(t *testing.T) {
	_, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), "no-such-dir")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(NewScenarioCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: bad\n"), 0o644))
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
}
