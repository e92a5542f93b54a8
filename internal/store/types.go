// Package store persists the canonical data model: a relational +
// full-text metadata store over files/chunks/symbols/edges, and an
// approximate-nearest-neighbor vector index over chunk embeddings.
package store

import (
	"context"

	"github.com/omnicontext/omnicontext/internal/types"
)

// Stats summarizes the metadata store's current contents.
type Stats struct {
	FileCount   int
	ChunkCount  int
	SymbolCount int
	EdgeCount   int
}

// FTSHit is one full-text search result, ordered by descending BM25 score.
type FTSHit struct {
	ChunkID uint64
	Score   float64
}

// MetadataStore is the durable relational + full-text store described by
// the metadata-store contract: atomic per-file transactions
// (upsert_file -> replace_chunks -> upsert_edges -> commit), full-text
// query over chunk content + symbol path, and point lookups.
type MetadataStore interface {
	// UpsertFile inserts or updates a file record by path, returning its id.
	UpsertFile(ctx context.Context, path, contentHash, language string) (uint64, error)

	// ReplaceChunks deletes every chunk previously stored for fileID and
	// inserts the given chunks in its place, cascading to their FTS rows.
	ReplaceChunks(ctx context.Context, fileID uint64, chunks []types.Chunk) error

	// UpsertEdges replaces the edges previously recorded as originating
	// from fileID with the given set.
	UpsertEdges(ctx context.Context, fileID uint64, edges []types.Edge) error

	// QueryFTS returns up to k chunk ids ranked by BM25 score, descending.
	QueryFTS(ctx context.Context, query string, k int) ([]FTSHit, error)

	// GetChunk fetches a single chunk by id.
	GetChunk(ctx context.Context, id uint64) (*types.Chunk, error)

	// GetChunksByFile returns every chunk currently stored for fileID.
	GetChunksByFile(ctx context.Context, fileID uint64) ([]types.Chunk, error)

	// GetChunksBySymbolPath returns every chunk whose SymbolPath exactly
	// matches fqn, for resolving a graph node to its defining chunk(s) in
	// the search engine's graph-proximity retrieval path.
	GetChunksBySymbolPath(ctx context.Context, fqn string) ([]types.Chunk, error)

	// GetFileByPath looks up a file's current record, for startup
	// reconciliation (content-hash diffing).
	GetFileByPath(ctx context.Context, path string) (*types.File, error)

	// AllFiles returns every tracked file, for reconciliation sweeps.
	AllFiles(ctx context.Context) ([]types.File, error)

	// DeleteFile removes a file and cascades to its chunks/edges.
	DeleteFile(ctx context.Context, fileID uint64) error

	// Stats reports current row counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying database handle.
	Close() error
}

// VectorHit is one ANN search result. Similarity is the dot product of
// two unit vectors (cosine similarity), in [-1, 1].
type VectorHit struct {
	ChunkID    uint64
	Similarity float32
}

// VectorIndex is the approximate-nearest-neighbor contract over normalized
// chunk embeddings.
type VectorIndex interface {
	// Add inserts or replaces the vector for chunkID. v must already be
	// L2-normalized to within 1e-5 of unit length.
	Add(chunkID uint64, v []float32) error

	// Remove tombstones chunkID; it is excluded from subsequent searches.
	Remove(chunkID uint64) error

	// Search returns up to k nearest neighbors to q by cosine similarity,
	// excluding tombstoned ids.
	Search(q []float32, k int) ([]VectorHit, error)

	// Len returns the number of live (non-tombstoned) vectors.
	Len() int

	// Persist writes the index to path.
	Persist(path string) error

	// Load reads the index from path.
	Load(path string) error

	// Close releases any resources held by the index.
	Close() error
}
