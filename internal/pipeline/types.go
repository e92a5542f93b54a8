// Package pipeline is the orchestrator that keeps the metadata store,
// vector index, and dependency graph consistent with the tree on disk: it
// consumes debounced watcher events, runs each changed file through
// extraction, chunking, and embedding, and commits the result under a
// per-file lock so concurrent events for different files can proceed in
// parallel.
package pipeline

import (
	"github.com/omnicontext/omnicontext/internal/chunk"
	"github.com/omnicontext/omnicontext/internal/embed"
	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/graph"
	"github.com/omnicontext/omnicontext/internal/store"
)

// markdownExtensions mirrors chunk.Router's own extension table; duplicated
// here because the pipeline needs to classify a file before handing it to
// the router (to decide whether import extraction applies at all).
var markdownExtensions = map[string]bool{".md": true, ".markdown": true, ".mdx": true}

// Dependencies are the collaborators a Pipeline is built over. RootPath,
// Metadata and Vectors are required. Extractor defaults to
// extract.NewTreeSitterExtractor(), Router to a chunk.Router over that
// extractor, and ShardCount to DefaultShardCount; a nil Graph or Embedder
// skips graph maintenance or embedding.
type Dependencies struct {
	RootPath   string
	Metadata   store.MetadataStore
	Vectors    store.VectorIndex
	Graph      *graph.Graph
	Embedder   *embed.Coordinator
	Extractor  extract.StructuralExtractor
	Router     *chunk.Router
	ShardCount int // defaults to 64 (spec's per-file lock shard count)
}

// Result is the outcome of one indexing run, matching the RPC index()
// response shape.
type Result struct {
	FilesProcessed      int
	FilesFailed         int
	ChunksCreated       int
	SymbolsExtracted    int
	EmbeddingsGenerated int
}

// add accumulates another Result into r (reconciliation sums per-file
// results into a single run total).
func (r *Result) add(other Result) {
	r.FilesProcessed += other.FilesProcessed
	r.FilesFailed += other.FilesFailed
	r.ChunksCreated += other.ChunksCreated
	r.SymbolsExtracted += other.SymbolsExtracted
	r.EmbeddingsGenerated += other.EmbeddingsGenerated
}
