package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	logger, closer := newLogger(cfg, false, buf)
	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, closer.Close())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger, _ = newLogger(cfg, true, buf)
	logger.Debug("verbose")
	assert.Contains(t, buf.String(), "verbose")
}

func TestNewLogger_File(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Log.File = filepath.Join(t.TempDir(), "oracle.log")

	buf := &bytes.Buffer{}
	logger, closer := newLogger(cfg, false, buf)
	logger.Info("campaign starting", "runs", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "campaign starting")
	assert.Contains(t, string(data), "runs=3")
	assert.Contains(t, buf.String(), "campaign starting")
}
