// Package status computes the live health snapshot surfaced by the status
// RPC tool and the status CLI/TUI: index coverage, graph health, and search
// mode, plus rolling search-latency percentiles.
package status

import (
	"context"

	"github.com/omnicontext/omnicontext/internal/embed"
	"github.com/omnicontext/omnicontext/internal/graph"
	"github.com/omnicontext/omnicontext/internal/store"
)

const (
	SearchModeHybrid      = "hybrid"
	SearchModeKeywordOnly = "keyword-only"
)

// Snapshot is the point-in-time health report, matching the status RPC
// tool's JSON shape exactly.
type Snapshot struct {
	FilesIndexed             int     `json:"files_indexed"`
	ChunksIndexed            int     `json:"chunks_indexed"`
	VectorsIndexed           int     `json:"vectors_indexed"`
	EmbeddingCoveragePercent float64 `json:"embedding_coverage_percent"`
	SearchMode               string  `json:"search_mode"`
	GraphNodes               int     `json:"graph_nodes"`
	GraphEdges               int     `json:"graph_edges"`
	HasCycles                bool    `json:"has_cycles"`
}

// Reporter assembles a Snapshot from the live store, vector index, graph,
// and embedding coordinator. Metadata is required; Vectors, Graph or
// Embedder left nil report as zero/empty rather than panicking, so a
// Reporter can be built incrementally (e.g. before the graph has been
// populated on a cold start).
type Reporter struct {
	Metadata store.MetadataStore
	Vectors  store.VectorIndex
	Graph    *graph.Graph
	Embedder *embed.Coordinator
}

// Report computes the current Snapshot.
func (r *Reporter) Report(ctx context.Context) (Snapshot, error) {
	stats, err := r.Metadata.Stats(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var vectorCount int
	if r.Vectors != nil {
		vectorCount = r.Vectors.Len()
	}

	mode := SearchModeHybrid
	if r.Embedder != nil && r.Embedder.IsKeywordOnly() {
		mode = SearchModeKeywordOnly
	}

	var coverage float64
	if stats.ChunkCount > 0 {
		coverage = float64(vectorCount) / float64(stats.ChunkCount) * 100.0
	}

	var nodes, edges int
	var hasCycles bool
	if r.Graph != nil {
		nodes = r.Graph.NodeCount()
		edges = r.Graph.EdgeCount()
		hasCycles = r.Graph.HasCycles()
	}

	return Snapshot{
		FilesIndexed:             stats.FileCount,
		ChunksIndexed:            stats.ChunkCount,
		VectorsIndexed:           vectorCount,
		EmbeddingCoveragePercent: coverage,
		SearchMode:               mode,
		GraphNodes:               nodes,
		GraphEdges:               edges,
		HasCycles:                hasCycles,
	}, nil
}
