// Package logging provides structured, rotating, leveled logging built on
// log/slog, shared by the CLI, the pipeline orchestrator, and the RPC
// server.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls where and how logs are written.
type Config struct {
	Level         string // debug, info, warn, error
	FilePath      string // empty disables file logging
	MaxSizeMB     int
	MaxFiles      int
	WriteToStderr bool
}

// DefaultConfig returns file logging under repoRoot at info level, also
// echoed to stderr.
func DefaultConfig(repoRoot string) Config {
	return Config{
		Level:         "info",
		FilePath:      LogPath(repoRoot),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds a *slog.Logger writing JSON lines to a rotating file (and
// optionally stderr), returning a cleanup function that must be called
// before process exit to flush and close the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// SetupDefault wires Setup(DefaultConfig(repoRoot)) and installs the result
// as slog's process-wide default logger.
func SetupDefault(repoRoot string) (func(), error) {
	logger, cleanup, err := Setup(DefaultConfig(repoRoot))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// ParseLevel converts a config string to an slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
