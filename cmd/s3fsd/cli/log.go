package cli

import (
	"log"
	"log/slog"
	"os"
)

// stdout/stderr carry operator-facing startup and shutdown banners; request
// diagnostics go through the structured slog.Logger built in serve.go
// instead.
var stdout = log.New(os.Stdout, "[s3fsd] ", 0)
var stderr = log.New(os.Stderr, "[s3fsd] ", 0)

// NewRequestLogger builds the base structured logger every request's
// context is derived from.
func NewRequestLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if !verbose {
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
