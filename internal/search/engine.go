package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/omnicontext/omnicontext/internal/embed"
	"github.com/omnicontext/omnicontext/internal/graph"
	"github.com/omnicontext/omnicontext/internal/store"
)

// queryEmbedPrefix matches the chunk-side embedding text's "[lang] path"
// prefix scheme (types.Chunk.EmbeddingText) with the query-side convention:
// prefix the raw query with "query: " before embedding.
const queryEmbedPrefix = "query: "

// graphDepth is the fixed traversal depth for the graph-proximity
// retrieval path.
const graphDepth = 2

const (
	lexicalPoolSize  = 50 // K_fts
	semanticPoolSize = 50 // K_ann
)

// HybridEngine wires the three retrieval paths (FTS, ANN, graph
// proximity), RRF fusion, optional reranking, and hydration into the
// Engine contract. Grounded on the reference hybrid-search Engine
// (engine.go), trimmed down: no multi-query decomposition, adjacent-chunk
// enrichment, or test-file/path-boost heuristics.
type HybridEngine struct {
	metadata   store.MetadataStore
	vectors    store.VectorIndex
	graph      *graph.Graph
	embedder   embed.Embedder
	keywordOnly func() bool
	classifier *Classifier
	fusion     *Fusion
	reranker   Reranker
}

// HybridEngineOption configures a HybridEngine at construction time.
type HybridEngineOption func(*HybridEngine)

// WithReranker attaches a cross-encoder reranker. Defaults to NoOpReranker
// (reranking silently skipped) when not supplied.
func WithReranker(r Reranker) HybridEngineOption {
	return func(e *HybridEngine) { e.reranker = r }
}

// WithKRRF overrides the default k_rrf=60 fusion constant.
func WithKRRF(k int) HybridEngineOption {
	return func(e *HybridEngine) { e.fusion = NewFusion(k) }
}

// NewHybridEngine builds the search engine over the given stores, graph,
// and embedder. keywordOnly reports the embedding coordinator's current
// degradation state: the semantic retrieval path is skipped entirely while
// it reports true.
func NewHybridEngine(
	metadata store.MetadataStore,
	vectors store.VectorIndex,
	g *graph.Graph,
	embedder embed.Embedder,
	keywordOnly func() bool,
	opts ...HybridEngineOption,
) *HybridEngine {
	e := &HybridEngine{
		metadata:    metadata,
		vectors:     vectors,
		graph:       g,
		embedder:    embedder,
		keywordOnly: keywordOnly,
		classifier:  NewClassifier(),
		fusion:      NewFusion(RRFConstant),
		reranker:    NoOpReranker{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Engine = (*HybridEngine)(nil)

// Search runs the query → analyze → {FTS, ANN, graph} → RRF fuse →
// optional rerank → hydrate → results pipeline.
func (e *HybridEngine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	class := e.classifier.Classify(query)
	weights := WeightsForClass(class)
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	lexHits, err := e.metadata.QueryFTS(ctx, query, lexicalPoolSize)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	semHits, err := e.semanticSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	graphIDs, err := e.graphCandidates(ctx, query, class)
	if err != nil {
		return nil, fmt.Errorf("graph proximity: %w", err)
	}

	fused := e.fusion.Fuse(lexHits, semHits, graphIDs, weights)

	poolSize := rerankTopK
	if poolSize > len(fused) {
		poolSize = len(fused)
	}
	texts, err := e.loadTexts(ctx, fused[:poolSize])
	if err != nil {
		return nil, fmt.Errorf("load candidate texts: %w", err)
	}
	fused = applyRerank(ctx, e.reranker, query, fused, texts)

	if len(fused) > limit {
		fused = fused[:limit]
	}

	return e.hydrate(ctx, fused, query)
}

// semanticSearch embeds the query and searches the ANN index, unless the
// coordinator has degraded to keyword-only mode.
func (e *HybridEngine) semanticSearch(ctx context.Context, query string) ([]store.VectorHit, error) {
	if e.embedder == nil || (e.keywordOnly != nil && e.keywordOnly()) {
		return nil, nil
	}

	vectors, err := e.embedder.EmbedBatch(ctx, []string{queryEmbedPrefix + query})
	if err != nil || len(vectors) == 0 {
		return nil, nil // embedder failure degrades this query to lexical+graph only
	}

	return e.vectors.Search(vectors[0], semanticPoolSize)
}

// graphCandidates resolves a symbol_lookup (or mixed) query's matched
// identifier to its defining chunk(s), then walks upstream ∪ downstream to
// graphDepth, returning the union of their defining chunk ids.
func (e *HybridEngine) graphCandidates(ctx context.Context, query string, class QueryClass) ([]uint64, error) {
	if e.graph == nil || class == ClassNaturalLanguage {
		return nil, nil
	}

	symbol := extractSymbolFQN(query)
	if symbol == "" {
		return nil, nil
	}

	neighbors := append(e.graph.Upstream(symbol, graphDepth), e.graph.Downstream(symbol, graphDepth)...)
	if len(neighbors) == 0 {
		return nil, nil
	}

	seen := make(map[uint64]bool)
	var ids []uint64
	for _, fqn := range neighbors {
		chunks, err := e.metadata.GetChunksBySymbolPath(ctx, fqn)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}
	return ids, nil
}

// extractSymbolFQN returns the query verbatim when it looks like a known
// symbol reference (the same shape the classifier treats as
// symbol_lookup), since the graph is keyed by the chunker's SymbolPath
// convention, not a separate identifier index.
func extractSymbolFQN(query string) string {
	query = strings.TrimSpace(query)
	if symbolLookupPattern.MatchString(query) {
		return query
	}
	if !strings.ContainsAny(query, " \t\n") && identifierPattern.MatchString(query) {
		return query
	}
	return ""
}

func (e *HybridEngine) loadTexts(ctx context.Context, candidates []FusedResult) (map[uint64]string, error) {
	texts := make(map[uint64]string, len(candidates))
	for _, c := range candidates {
		chunk, err := e.metadata.GetChunk(ctx, c.ChunkID)
		if err != nil {
			continue // a chunk removed mid-query is dropped from the rerank pool, not a hard failure
		}
		texts[c.ChunkID] = chunk.EmbeddingText()
	}
	return texts, nil
}

// hydrate fetches each fused candidate's full chunk row and attaches a
// content snippet.
func (e *HybridEngine) hydrate(ctx context.Context, fused []FusedResult, query string) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(fused))
	for _, f := range fused {
		chunk, err := e.metadata.GetChunk(ctx, f.ChunkID)
		if err != nil {
			continue
		}

		results = append(results, SearchResult{
			Chunk:   *chunk,
			Score:   f.RRFScore,
			Snippet: snippetFor(chunk.Content, query),
			LexRank: f.LexRank,
			SemRank: f.SemRank,
			InGraph: f.InGraph,
		})
	}
	return results, nil
}

// snippetFor returns the first 10 lines of content, or a ±3-line window
// around the first line containing a query term.
func snippetFor(content, query string) string {
	lines := strings.Split(content, "\n")

	terms := strings.Fields(strings.ToLower(query))
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, term := range terms {
			if term != "" && strings.Contains(lower, term) {
				start := i - 3
				if start < 0 {
					start = 0
				}
				end := i + 4
				if end > len(lines) {
					end = len(lines)
				}
				return strings.Join(lines[start:end], "\n")
			}
		}
	}

	end := 10
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[:end], "\n")
}
