package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
	"github.com/omnicontext/omnicontext/internal/types"
)

// SQLiteStore implements MetadataStore over modernc.org/sqlite (pure Go,
// no cgo) with an FTS5 virtual table for full-text search. The pool holds
// a single connection, so every read and write from this process goes
// through it one at a time (SQLite allows exactly one writer at a time);
// the database runs in WAL mode.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

var _ MetadataStore = (*SQLiteStore)(nil)

// writeRetry is the metadata store's I/O retry policy: up to 5 attempts,
// waiting 100ms, 200ms, 400ms, then 800ms between them (capped at 1.6s).
var writeRetry = omnierrors.RetryConfig{
	MaxRetries:   4,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     1600 * time.Millisecond,
	Multiplier:   2.0,
	Jitter:       false,
}

// OpenSQLiteStore opens (creating if absent) the metadata store at path.
// An existing file that fails its integrity check is treated as
// DatabaseCorruption: a fatal error surfaced to the caller rather than
// silently rebuilt.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
		}
		if err := checkIntegrity(path); err != nil {
			return nil, omnierrors.DatabaseCorruption(err.Error())
		}
	}

	dsn := ":memory:"
	if path != "" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, omnierrors.DatabaseCorruption(err.Error())
	}
	return s, nil
}

// checkIntegrity opens path read-only and runs PRAGMA integrity_check.
// A missing file is not an error: it will be created fresh.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for integrity check: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("metadata store corrupted: %s", result)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY,
	path TEXT UNIQUE NOT NULL,
	content_hash TEXT NOT NULL,
	language TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	mod_time INTEGER NOT NULL DEFAULT 0,
	extractor_version INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	byte_start INTEGER NOT NULL,
	byte_end INTEGER NOT NULL,
	line_start INTEGER NOT NULL,
	line_end INTEGER NOT NULL,
	kind TEXT NOT NULL,
	visibility TEXT NOT NULL,
	symbol_path TEXT NOT NULL DEFAULT '',
	short_name TEXT NOT NULL DEFAULT '',
	doc_comment TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	language TEXT NOT NULL,
	fingerprint TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_file_id ON chunks(file_id);

CREATE TABLE IF NOT EXISTS edges (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	from_fqn TEXT NOT NULL,
	to_fqn TEXT NOT NULL,
	kind TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_file_id ON edges(file_id);

CREATE VIRTUAL TABLE IF NOT EXISTS fts_chunks USING fts5(
	chunk_id UNINDEXED,
	content,
	tokenize='unicode61'
);
`

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

func int64Of(id uint64) int64 { return int64(id) }
func uint64Of(id int64) uint64 { return uint64(id) }

// UpsertFile implements MetadataStore.
func (s *SQLiteStore) UpsertFile(ctx context.Context, path, contentHash, language string) (uint64, error) {
	id := types.FileID(path)
	var execErr error
	err := omnierrors.Retry(ctx, writeRetry, func() error {
		_, execErr = s.db.ExecContext(ctx, `
			INSERT INTO files (id, path, content_hash, language, mod_time)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash,
				language=excluded.language, mod_time=excluded.mod_time
		`, int64Of(id), path, contentHash, language, time.Now().Unix())
		return execErr
	})
	if err != nil {
		return 0, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	return id, nil
}

// ReplaceChunks implements MetadataStore: deletes every chunk previously
// stored for fileID and its FTS rows, then inserts the replacement set, all
// within one transaction.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, fileID uint64, chunks []types.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return omnierrors.Retry(ctx, writeRetry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE file_id = ?`, int64Of(fileID))
		if err != nil {
			return err
		}
		var oldIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			oldIDs = append(oldIDs, id)
		}
		rows.Close()

		for _, id := range oldIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM fts_chunks WHERE chunk_id = ?`, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, int64Of(fileID)); err != nil {
			return err
		}

		insertChunk, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, file_id, file_path, byte_start, byte_end, line_start, line_end,
				kind, visibility, symbol_path, short_name, doc_comment, content, language, fingerprint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer insertChunk.Close()

		insertFTS, err := tx.PrepareContext(ctx, `INSERT INTO fts_chunks(chunk_id, content) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer insertFTS.Close()

		for _, c := range chunks {
			_, err := insertChunk.ExecContext(ctx, int64Of(c.ID), int64Of(fileID), c.FilePath,
				c.ByteRange.Start, c.ByteRange.End, c.LineRange.Start, c.LineRange.End,
				string(c.Kind), string(c.Visibility), c.SymbolPath, c.ShortName,
				c.DocComment, c.Content, c.Language, c.Fingerprint)
			if err != nil {
				return err
			}

			tokens := TokenizeCode(c.Content + " " + c.SymbolPath)
			if _, err := insertFTS.ExecContext(ctx, int64Of(c.ID), strings.Join(tokens, " ")); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

// UpsertEdges implements MetadataStore: replaces every edge previously
// recorded as originating from fileID.
func (s *SQLiteStore) UpsertEdges(ctx context.Context, fileID uint64, edges []types.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return omnierrors.Retry(ctx, writeRetry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE file_id = ?`, int64Of(fileID)); err != nil {
			return err
		}

		insert, err := tx.PrepareContext(ctx, `INSERT INTO edges (file_id, from_fqn, to_fqn, kind) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insert.Close()

		for _, e := range edges {
			if _, err := insert.ExecContext(ctx, int64Of(fileID), e.FromFQN, e.ToFQN, string(e.Kind)); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

// QueryFTS implements MetadataStore. A custom code-aware tokenizer
// (TokenizeCode) is applied to both the indexed content and the query
// before handing off to FTS5's bm25() ranking (k1=1.2, b=0.75 are FTS5's
// compiled-in defaults).
func (s *SQLiteStore) QueryFTS(ctx context.Context, query string, k int) ([]FTSHit, error) {
	tokens := TokenizeCode(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	processed := strings.Join(tokens, " ")

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, bm25(fts_chunks) AS score
		FROM fts_chunks
		WHERE content MATCH ?
		ORDER BY score
		LIMIT ?
	`, processed, k)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var chunkID int64
		var score float64
		if err := rows.Scan(&chunkID, &score); err != nil {
			return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
		}
		// FTS5's bm25() returns a negative cost (lower = better match);
		// negate it so descending score means descending relevance.
		hits = append(hits, FTSHit{ChunkID: uint64Of(chunkID), Score: -score})
	}
	return hits, rows.Err()
}

// GetChunk implements MetadataStore.
func (s *SQLiteStore) GetChunk(ctx context.Context, id uint64) (*types.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_id, file_path, byte_start, byte_end, line_start, line_end,
			kind, visibility, symbol_path, short_name, doc_comment, content, language, fingerprint
		FROM chunks WHERE id = ?
	`, int64Of(id))
	c, err := scanChunk(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, omnierrors.NotFound(fmt.Sprintf("chunk:%d", id))
		}
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	return c, nil
}

// GetChunksByFile implements MetadataStore.
func (s *SQLiteStore) GetChunksByFile(ctx context.Context, fileID uint64) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, file_path, byte_start, byte_end, line_start, line_end,
			kind, visibility, symbol_path, short_name, doc_comment, content, language, fingerprint
		FROM chunks WHERE file_id = ?
	`, int64Of(fileID))
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// GetChunksBySymbolPath implements MetadataStore.
func (s *SQLiteStore) GetChunksBySymbolPath(ctx context.Context, fqn string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, file_path, byte_start, byte_end, line_start, line_end,
			kind, visibility, symbol_path, short_name, doc_comment, content, language, fingerprint
		FROM chunks WHERE symbol_path = ?
	`, fqn)
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row *sql.Row) (*types.Chunk, error)    { return scanChunkFrom(row) }
func scanChunkRows(rows *sql.Rows) (*types.Chunk, error) { return scanChunkFrom(rows) }

func scanChunkFrom(r rowScanner) (*types.Chunk, error) {
	var c types.Chunk
	var id, fileID int64
	var kind, visibility string
	if err := r.Scan(&id, &fileID, &c.FilePath, &c.ByteRange.Start, &c.ByteRange.End,
		&c.LineRange.Start, &c.LineRange.End, &kind, &visibility, &c.SymbolPath,
		&c.ShortName, &c.DocComment, &c.Content, &c.Language, &c.Fingerprint); err != nil {
		return nil, err
	}
	c.ID = uint64Of(id)
	c.FileID = uint64Of(fileID)
	c.Kind = types.ChunkKind(kind)
	c.Visibility = types.Visibility(visibility)
	return &c, nil
}

// GetFileByPath implements MetadataStore.
func (s *SQLiteStore) GetFileByPath(ctx context.Context, path string) (*types.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, content_hash, language, size_bytes, mod_time, extractor_version
		FROM files WHERE path = ?
	`, path)
	f, err := scanFile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, omnierrors.NotFound(fmt.Sprintf("file:%s", path))
		}
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	return f, nil
}

// AllFiles implements MetadataStore.
func (s *SQLiteStore) AllFiles(ctx context.Context) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content_hash, language, size_bytes, mod_time, extractor_version FROM files
	`)
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	defer rows.Close()

	var files []types.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func scanFile(r rowScanner) (*types.File, error) {
	var f types.File
	var id int64
	var modUnix int64
	if err := r.Scan(&id, &f.Path, &f.ContentHash, &f.Language, &f.SizeBytes, &modUnix, &f.ExtractorVersion); err != nil {
		return nil, err
	}
	f.ID = uint64Of(id)
	f.ModTime = time.Unix(modUnix, 0)
	return &f, nil
}

// DeleteFile implements MetadataStore; ON DELETE CASCADE removes chunks
// and edges, and we separately drop the chunk's FTS rows (fts5 tables
// don't support foreign keys).
func (s *SQLiteStore) DeleteFile(ctx context.Context, fileID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return omnierrors.Retry(ctx, writeRetry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE file_id = ?`, int64Of(fileID))
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM fts_chunks WHERE chunk_id = ?`, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, int64Of(fileID)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Stats implements MetadataStore.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&st.FileCount); err != nil {
		return st, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.ChunkCount); err != nil {
		return st, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE symbol_path != ''`).Scan(&st.SymbolCount); err != nil {
		return st, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&st.EdgeCount); err != nil {
		return st, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	return st, nil
}

// Close implements MetadataStore.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		slog.Warn("error closing metadata store", "error", err)
		return err
	}
	return nil
}
