package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRotatingWriter builds a size-rotated log writer at path using
// gopkg.in/natefinch/lumberjack.v2: rotate once the active file exceeds
// maxSizeMB, keep at most maxFiles gzip-compressed backups, and drop the
// rest. Lumberjack's own "name-2006-01-02T15-04-05.000.log.gz" backup
// naming replaces the hand-rolled path.1/path.2/... generation scheme a
// custom rotator would otherwise have to reimplement and keep in sync with
// the compression step.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxFiles,
		Compress:   true,
	}, nil
}
