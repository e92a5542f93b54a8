// Package watcher emits a debounced stream of filesystem change events for
// the pipeline orchestrator, backed by fsnotify with a polling fallback.
package watcher

import (
	"context"
	"time"
)

// Operation classifies a single filesystem change.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
	OpGitignoreChange
	OpConfigChange
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "created"
	case OpModify:
		return "modified"
	case OpDelete:
		return "deleted"
	case OpRename:
		return "renamed"
	case OpGitignoreChange:
		return "gitignore_changed"
	case OpConfigChange:
		return "config_changed"
	default:
		return "unknown"
	}
}

// FileEvent is one change to a path relative to the watched root.
type FileEvent struct {
	Path      string
	OldPath   string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher emits batches of coalesced file events for a watched root.
type Watcher interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// Options configures debounce timing, polling fallback cadence, and ignore
// patterns applied in addition to .gitignore.
type Options struct {
	DebounceWindow  time.Duration
	PollInterval    time.Duration
	EventBufferSize int
	IgnorePatterns  []string
}

// DefaultOptions matches the watcher.debounce_ms default of 200ms.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults fills zero-valued fields with DefaultOptions' values.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}
