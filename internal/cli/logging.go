package cli

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/saleoracle/internal/config"
)

// newLogger builds the command logger: a text handler on stderr, teed into
// a size-rotated file when log.file is set. --verbose forces debug level.
// The returned closer releases the file.
func newLogger(cfg *config.Config, verbose bool, stderr io.Writer) (*slog.Logger, io.Closer) {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}

	w := stderr
	var closer io.Closer = nopCloser{}
	if cfg.Log.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		w = io.MultiWriter(stderr, file)
		closer = file
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
