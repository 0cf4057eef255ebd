// Package logging provides structured logging setup for the sales hub.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup builds the process logger and installs it as the slog default.
// Dev mode uses human-readable text at debug level; prod uses JSON at info.
// A nil w writes to stdout.
func Setup(devMode bool, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
