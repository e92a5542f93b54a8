// Package ui renders the live status dashboard behind "status --watch":
// a bubbletea TUI on an interactive terminal, falling back to a plain
// line-per-poll renderer under CI, pipes, or --no-tui.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/omnicontext/omnicontext/internal/status"
)

// StatusSource is satisfied by status.Reporter.
type StatusSource interface {
	Report(ctx context.Context) (status.Snapshot, error)
}

// LatencySource is satisfied by status.LatencyTracker. It is optional:
// a nil LatencySource simply omits the latency panel from the dashboard.
type LatencySource interface {
	Snapshot() status.Percentiles
}

const defaultPollInterval = 2 * time.Second

// Config configures a Watch call.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Interval   time.Duration
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithForcePlain forces the non-TTY renderer even on an interactive terminal.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) { c.ForcePlain = force }
}

// WithNoColor disables styled output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) { c.NoColor = noColor }
}

// WithInterval sets the status poll interval.
func WithInterval(d time.Duration) ConfigOption {
	return func(c *Config) { c.Interval = d }
}

// NewConfig builds a Config, applying defaults then the given options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output, Interval: defaultPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Watch polls source (and, if non-nil, latency) on cfg.Interval and renders
// the result until ctx is cancelled or the user quits the TUI. It chooses
// the dashboard for an interactive terminal and the plain renderer
// otherwise, the same TTY/CI detection the indexer's progress renderer uses.
func Watch(ctx context.Context, source StatusSource, latency LatencySource, cfg Config) error {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}

	if !cfg.ForcePlain && IsTTY(cfg.Output) && !DetectCI() {
		if err := runDashboard(ctx, source, latency, cfg); err == nil {
			return nil
		}
		// Fall through to the plain renderer if the TUI can't start
		// (e.g. the output stream doesn't actually support a full-screen
		// program despite passing IsTTY).
	}
	return runPlain(ctx, source, latency, cfg)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether the process appears to be running under CI.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
