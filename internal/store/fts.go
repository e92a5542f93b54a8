package store

import (
	"context"
	"fmt"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
)

// FullTextIndex is the standalone full-text search contract: index,
// query, and delete by chunk id. BleveFTSIndex satisfies it as a separate,
// swappable backend selected by `store.fts_backend` in config.toml.
// SQLiteStore does not implement it: its FTS5 table lives in the same
// database as the relational tables and is served through QueryFTS.
type FullTextIndex interface {
	Index(ctx context.Context, chunkID uint64, content string) error
	Search(ctx context.Context, query string, limit int) ([]FTSHit, error)
	Delete(ctx context.Context, chunkIDs []uint64) error
	Close() error
}

// NewFullTextIndex builds the configured FullTextIndex backend. "sqlite"
// returns nil: the SQLiteStore already indexes FTS rows as part of
// ReplaceChunks/QueryFTS, so no separate component is needed in that mode.
// "bleve" opens a standalone bleve index at path.
func NewFullTextIndex(backend, path string) (FullTextIndex, error) {
	switch backend {
	case "", "sqlite":
		return nil, nil
	case "bleve":
		return NewBleveFTSIndex(path)
	default:
		return nil, omnierrors.ConfigError(fmt.Sprintf("unknown store.fts_backend %q", backend), nil)
	}
}
