package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omnicontext/omnicontext/internal/types"
)

// pollHashSizeLimit caps how large a file this watcher will content-hash on
// each poll; above it, change detection falls back to mtime so reading
// every large file on every tick doesn't turn the poll interval itself
// into the bottleneck.
const pollHashSizeLimit = 4 << 20 // 4MiB

// PollingWatcher detects changes by periodically re-scanning the watched
// tree and comparing each regular file's content fingerprint against its
// last scan — the same types.HashContent invariant internal/pipeline's
// startup reconciliation uses to decide a file needs reprocessing, so a
// polled tree and a freshly-reconciled one agree on what "changed" means.
// A touch that bumps mtime without altering bytes (common after a git
// checkout or container bind-mount remount) is correctly reported
// unchanged. Used when fsnotify fails to initialize (network mounts, some
// container filesystems).
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	fingerprint string
	size        int64
	isDir       bool
}

// NewPollingWatcher creates a PollingWatcher that scans every interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 256),
		errors:    make(chan error, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start scans root once to establish a baseline, then scans again every
// interval until ctx is cancelled or Stop is called.
func (p *PollingWatcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.rootPath = absPath

	baseline, err := p.snapshotTree(ctx)
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.mu.Lock()
	p.fileState = baseline
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(ctx); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Stop halts scanning and closes the output channels.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of raw (pre-debounce) file events.
func (p *PollingWatcher) Events() <-chan FileEvent { return p.events }

// Errors returns the channel of scan errors.
func (p *PollingWatcher) Errors() <-chan error { return p.errors }

// dirEntry is one path discovered by a tree walk, still awaiting
// fingerprinting.
type dirEntry struct {
	relPath string
	size    int64
	isDir   bool
}

// snapshotTree walks rootPath once, then fans the (size-gated) hashing
// work for every regular file out across a bounded pool — the same
// semaphore-gated errgroup shape internal/pipeline's Run uses for its own
// per-file work — since the walk itself is cheap but reading file content
// for hashing is not.
func (p *PollingWatcher) snapshotTree(ctx context.Context) (map[string]fileSnapshot, error) {
	var entries []dirEntry
	walkErr := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, dirEntry{relPath: relPath, size: info.Size(), isDir: d.IsDir()})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	state := make(map[string]fileSnapshot, len(entries))
	var mu sync.Mutex

	workers := max(2, runtime.NumCPU()-1)
	sem := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)

entries:
	for _, e := range entries {
		if e.isDir {
			state[e.relPath] = fileSnapshot{isDir: true}
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break entries
		}
		g.Go(func() error {
			defer func() { <-sem }()
			snap := p.fingerprintFile(e.relPath, e.size)
			mu.Lock()
			state[e.relPath] = snap
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, gctx.Err()
}

// fingerprintFile hashes relPath's content when it's under the size gate,
// otherwise snapshots its modification time; either way a read/stat
// failure (the file vanished mid-scan, a permission error) degrades to a
// bare size record rather than aborting the whole scan.
func (p *PollingWatcher) fingerprintFile(relPath string, size int64) fileSnapshot {
	abs := filepath.Join(p.rootPath, relPath)

	if size > pollHashSizeLimit {
		info, err := os.Stat(abs)
		if err != nil {
			return fileSnapshot{size: size}
		}
		return fileSnapshot{size: size, fingerprint: info.ModTime().String()}
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return fileSnapshot{size: size}
	}
	return fileSnapshot{size: size, fingerprint: types.HashContent(content)}
}

// detectChanges re-snapshots the tree and diffs it against the previous
// scan: new paths become OpCreate, a changed fingerprint on an existing
// regular file becomes OpModify, and a path present before but missing now
// becomes OpDelete.
func (p *PollingWatcher) detectChanges(ctx context.Context) error {
	current, err := p.snapshotTree(ctx)
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for relPath, snap := range current {
		prev, existed := p.fileState[relPath]
		switch {
		case !existed:
			p.emitEvent(FileEvent{Path: relPath, Operation: OpCreate, IsDir: snap.isDir, Timestamp: time.Now()})
		case !snap.isDir && prev.fingerprint != snap.fingerprint:
			p.emitEvent(FileEvent{Path: relPath, Operation: OpModify, IsDir: snap.isDir, Timestamp: time.Now()})
		}
	}

	for relPath, prev := range p.fileState {
		if _, exists := current[relPath]; !exists {
			p.emitEvent(FileEvent{Path: relPath, Operation: OpDelete, IsDir: prev.isDir, Timestamp: time.Now()})
		}
	}

	p.fileState = current
	return nil
}

// emitEvent must be called with mu held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}
