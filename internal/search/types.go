// Package search implements the hybrid search engine: query classification,
// three-way retrieval (lexical FTS, semantic ANN, graph proximity),
// Reciprocal Rank Fusion, an optional cross-encoder reranker, and result
// hydration.
package search

import (
	"context"

	"github.com/omnicontext/omnicontext/internal/types"
)

// QueryClass is the query-analysis outcome that selects RRF fusion weights.
type QueryClass string

const (
	ClassSymbolLookup    QueryClass = "symbol_lookup"
	ClassNaturalLanguage QueryClass = "natural_language"
	ClassMixed           QueryClass = "mixed"
)

// Weights are the per-path RRF fusion weights for one query class.
type Weights struct {
	Lexical  float64
	Semantic float64
	Graph    float64
}

// WeightsForClass returns the fixed per-class weight table.
func WeightsForClass(c QueryClass) Weights {
	switch c {
	case ClassSymbolLookup:
		return Weights{Lexical: 1.0, Semantic: 0.3, Graph: 0.6}
	case ClassNaturalLanguage:
		return Weights{Lexical: 0.4, Semantic: 1.0, Graph: 0.2}
	default:
		return Weights{Lexical: 0.7, Semantic: 0.7, Graph: 0.3}
	}
}

// SearchOptions configures one Search call.
type SearchOptions struct {
	// Limit is the number of results to return after fusion and hydration.
	Limit int

	// Weights overrides the classifier-derived weights, when non-nil.
	Weights *Weights
}

// DefaultLimit is the default number of results returned per query.
const DefaultLimit = 10

// SearchResult is one hydrated, ranked chunk.
type SearchResult struct {
	Chunk    types.Chunk
	Score    float64
	Snippet  string
	LexRank  int
	SemRank  int
	InGraph  bool
}

// Engine is the hybrid search engine's external contract.
type Engine interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}
