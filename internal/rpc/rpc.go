// Package rpc exposes the indexing pipeline, search engine, status
// reporter, and dependency graph as MCP tools over stdio, matching the RPC
// surface's exact JSON request/response shapes.
package rpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omnicontext/omnicontext/internal/graph"
	"github.com/omnicontext/omnicontext/internal/pipeline"
	"github.com/omnicontext/omnicontext/internal/search"
	"github.com/omnicontext/omnicontext/internal/status"
	"github.com/omnicontext/omnicontext/pkg/version"
)

// Server bridges the pipeline/search/status/graph components to MCP
// clients. Grounded on internal/mcp's Server (construct-with-deps,
// registerTools, Serve(ctx, transport)) but carrying this repository's
// four tools instead of its search/search_code/search_docs/index_status
// set.
type Server struct {
	mcp      *mcp.Server
	pipeline *pipeline.Pipeline
	engine   search.Engine
	reporter *status.Reporter
	graph    *graph.Graph
	logger   *slog.Logger
}

// New builds a Server and registers its tools. Any dependency left nil
// makes the corresponding tool return an error when invoked, rather than
// failing construction outright.
func New(p *pipeline.Pipeline, engine search.Engine, reporter *status.Reporter, g *graph.Graph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pipeline: p,
		engine:   engine,
		reporter: reporter,
		graph:    g,
		logger:   logger.With("component", "rpc"),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "omnicontext", Version: version.Version},
		nil,
	)
	s.registerTools()
	return s
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "omnicontext_index",
		Description: "Reconciles the index against the current state of the repository tree, processing new and changed files and removing deleted ones.",
	}, s.handleIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "omnicontext_search",
		Description: "Runs a hybrid lexical/semantic/graph search over the indexed repository and returns ranked chunk matches.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "omnicontext_status",
		Description: "Reports index health: file/chunk/vector counts, embedding coverage, current search mode, and dependency graph health.",
	}, s.handleStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "omnicontext_get_dependencies",
		Description: "Returns the fully-qualified names upstream (callers) or downstream (dependencies) of a symbol, within a bounded hop depth.",
	}, s.handleGetDependencies)

	s.logger.Debug("registered MCP tools", slog.Int("count", 4))
}

// IndexOutput mirrors the index() RPC's JSON shape.
type IndexOutput struct {
	FilesProcessed      int `json:"files_processed"`
	FilesFailed         int `json:"files_failed"`
	ChunksCreated       int `json:"chunks_created"`
	SymbolsExtracted    int `json:"symbols_extracted"`
	EmbeddingsGenerated int `json:"embeddings_generated"`
}

type indexInput struct{}

func (s *Server) handleIndex(ctx context.Context, _ *mcp.CallToolRequest, _ indexInput) (*mcp.CallToolResult, IndexOutput, error) {
	if s.pipeline == nil {
		return nil, IndexOutput{}, fmt.Errorf("indexing pipeline is not configured")
	}
	result, err := s.pipeline.Reconcile(ctx)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	return nil, IndexOutput{
		FilesProcessed:      result.FilesProcessed,
		FilesFailed:         result.FilesFailed,
		ChunksCreated:       result.ChunksCreated,
		SymbolsExtracted:    result.SymbolsExtracted,
		EmbeddingsGenerated: result.EmbeddingsGenerated,
	}, nil
}

// SearchInput mirrors the search({query, limit}) RPC's request shape.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchResultOutput is one entry of the search() RPC's response list.
type SearchResultOutput struct {
	FilePath   string  `json:"file_path"`
	LineStart  int     `json:"line_start"`
	LineEnd    int     `json:"line_end"`
	SymbolPath string  `json:"symbol_path,omitempty"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// SearchOutput mirrors the search() RPC's response shape.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if s.engine == nil {
		return nil, SearchOutput{}, fmt.Errorf("search engine is not configured")
	}
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query parameter is required")
	}

	opts := search.SearchOptions{Limit: search.DefaultLimit}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}

	results, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			FilePath:   r.Chunk.FilePath,
			LineStart:  r.Chunk.LineRange.Start,
			LineEnd:    r.Chunk.LineRange.End,
			SymbolPath: r.Chunk.SymbolPath,
			Score:      r.Score,
			Snippet:    r.Snippet,
		})
	}
	return nil, out, nil
}

type statusInput struct{}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ statusInput) (*mcp.CallToolResult, status.Snapshot, error) {
	if s.reporter == nil {
		return nil, status.Snapshot{}, fmt.Errorf("status reporter is not configured")
	}
	snap, err := s.reporter.Report(ctx)
	if err != nil {
		return nil, status.Snapshot{}, err
	}
	return nil, snap, nil
}

// DependenciesInput mirrors the get_dependencies({symbol, direction, depth})
// RPC's request shape.
type DependenciesInput struct {
	Symbol    string `json:"symbol" jsonschema:"the fully-qualified symbol name to query"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (callers) or downstream (dependencies), default downstream"`
	Depth     int    `json:"depth,omitempty" jsonschema:"maximum hop count, default 1"`
}

// DependenciesOutput mirrors the get_dependencies() RPC's response shape.
type DependenciesOutput struct {
	Symbols []string `json:"symbols"`
}

const defaultDependencyDepth = 1

func (s *Server) handleGetDependencies(ctx context.Context, _ *mcp.CallToolRequest, input DependenciesInput) (*mcp.CallToolResult, DependenciesOutput, error) {
	if s.graph == nil {
		return nil, DependenciesOutput{}, fmt.Errorf("dependency graph is not configured")
	}
	if input.Symbol == "" {
		return nil, DependenciesOutput{}, fmt.Errorf("symbol parameter is required")
	}

	depth := input.Depth
	if depth <= 0 {
		depth = defaultDependencyDepth
	}

	var fqns []string
	switch input.Direction {
	case "upstream":
		fqns = s.graph.Upstream(input.Symbol, depth)
	default:
		fqns = s.graph.Downstream(input.Symbol, depth)
	}

	return nil, DependenciesOutput{Symbols: fqns}, nil
}
