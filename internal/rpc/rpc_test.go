package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/omnicontext/omnicontext/internal/embed"
	"github.com/omnicontext/omnicontext/internal/graph"
	"github.com/omnicontext/omnicontext/internal/pipeline"
	"github.com/omnicontext/omnicontext/internal/search"
	"github.com/omnicontext/omnicontext/internal/status"
	"github.com/omnicontext/omnicontext/internal/store"
	"github.com/omnicontext/omnicontext/internal/types"
)

// stubMetadataStore and stubVectorIndex mirror the fakes in
// internal/status's test suite: a fixed Stats()/Len() and errors on
// everything this package's tests never exercise.
type stubMetadataStore struct{ stats store.Stats }

func (s *stubMetadataStore) UpsertFile(context.Context, string, string, string) (uint64, error) {
	return 1, nil
}
func (s *stubMetadataStore) ReplaceChunks(context.Context, uint64, []types.Chunk) error { return nil }
func (s *stubMetadataStore) UpsertEdges(context.Context, uint64, []types.Edge) error    { return nil }
func (s *stubMetadataStore) QueryFTS(context.Context, string, int) ([]store.FTSHit, error) {
	return nil, nil
}
func (s *stubMetadataStore) GetChunk(context.Context, uint64) (*types.Chunk, error) {
	return nil, errors.New("unused")
}
func (s *stubMetadataStore) GetChunksByFile(context.Context, uint64) ([]types.Chunk, error) {
	return nil, nil
}
func (s *stubMetadataStore) GetChunksBySymbolPath(context.Context, string) ([]types.Chunk, error) {
	return nil, nil
}
func (s *stubMetadataStore) GetFileByPath(context.Context, string) (*types.File, error) {
	return nil, errors.New("unused")
}
func (s *stubMetadataStore) AllFiles(context.Context) ([]types.File, error) { return nil, nil }
func (s *stubMetadataStore) DeleteFile(context.Context, uint64) error       { return nil }
func (s *stubMetadataStore) Stats(context.Context) (store.Stats, error)     { return s.stats, nil }
func (s *stubMetadataStore) Close() error                                  { return nil }

var _ store.MetadataStore = (*stubMetadataStore)(nil)

type stubVectorIndex struct{ n int }

func (s *stubVectorIndex) Add(uint64, []float32) error                      { return nil }
func (s *stubVectorIndex) Remove(uint64) error                              { return nil }
func (s *stubVectorIndex) Search([]float32, int) ([]store.VectorHit, error) { return nil, nil }
func (s *stubVectorIndex) Len() int                                        { return s.n }
func (s *stubVectorIndex) Persist(string) error                            { return nil }
func (s *stubVectorIndex) Load(string) error                               { return nil }
func (s *stubVectorIndex) Close() error                                    { return nil }

var _ store.VectorIndex = (*stubVectorIndex)(nil)

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("unused")
}
func (stubEmbedder) Health(context.Context) error { return nil }
func (stubEmbedder) Dimensions() int              { return 2 }
func (stubEmbedder) ModelName() string            { return "stub" }

// fakeSearchEngine is a hand-rolled search.Engine stub: it records the last
// query/opts it was called with and returns a fixed result set, or an
// error when primed to.
type fakeSearchEngine struct {
	results []search.SearchResult
	err     error

	lastQuery string
	lastOpts  search.SearchOptions
}

func (f *fakeSearchEngine) Search(_ context.Context, query string, opts search.SearchOptions) ([]search.SearchResult, error) {
	f.lastQuery = query
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

var _ search.Engine = (*fakeSearchEngine)(nil)

func newTestPipeline(t *testing.T, root string) *pipeline.Pipeline {
	t.Helper()
	cache, err := embed.NewFingerprintCache("", 0)
	if err != nil {
		t.Fatalf("NewFingerprintCache: %v", err)
	}
	return pipeline.New(pipeline.Dependencies{
		RootPath: root,
		Metadata: &stubMetadataStore{},
		Vectors:  &stubVectorIndex{},
		Graph:    graph.New(),
		Embedder: embed.NewCoordinator(stubEmbedder{}, cache),
	})
}

func TestHandleIndex_ReturnsErrorWhenPipelineUnconfigured(t *testing.T) {
	s := New(nil, nil, nil, nil, nil)
	if _, _, err := s.handleIndex(t.Context(), nil, indexInput{}); err == nil {
		t.Fatal("expected error when no pipeline is configured")
	}
}

func TestHandleIndex_ReconcilesEmptyTreeWithoutError(t *testing.T) {
	root := t.TempDir()
	s := New(newTestPipeline(t, root), nil, nil, nil, nil)
	_, out, err := s.handleIndex(t.Context(), nil, indexInput{})
	if err != nil {
		t.Fatalf("handleIndex: %v", err)
	}
	if out.FilesProcessed != 0 || out.FilesFailed != 0 {
		t.Errorf("expected a no-op reconcile over an empty tree, got %+v", out)
	}
}

func TestHandleSearch_RejectsEmptyQuery(t *testing.T) {
	s := New(nil, &fakeSearchEngine{}, nil, nil, nil)
	if _, _, err := s.handleSearch(t.Context(), nil, SearchInput{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestHandleSearch_ReturnsErrorWhenEngineUnconfigured(t *testing.T) {
	s := New(nil, nil, nil, nil, nil)
	if _, _, err := s.handleSearch(t.Context(), nil, SearchInput{Query: "foo"}); err == nil {
		t.Fatal("expected error when no search engine is configured")
	}
}

func TestHandleSearch_AppliesDefaultLimitAndMapsResults(t *testing.T) {
	engine := &fakeSearchEngine{results: []search.SearchResult{
		{
			Chunk: types.Chunk{
				FilePath:   "internal/foo/bar.go",
				LineRange:  types.LineRange{Start: 10, End: 20},
				SymbolPath: "foo.Bar",
			},
			Score:   0.87,
			Snippet: "func Bar() {}",
		},
	}}
	s := New(nil, engine, nil, nil, nil)

	_, out, err := s.handleSearch(t.Context(), nil, SearchInput{Query: "Bar"})
	if err != nil {
		t.Fatalf("handleSearch: %v", err)
	}
	if engine.lastOpts.Limit != search.DefaultLimit {
		t.Errorf("expected default limit %d, got %d", search.DefaultLimit, engine.lastOpts.Limit)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	got := out.Results[0]
	if got.FilePath != "internal/foo/bar.go" || got.LineStart != 10 || got.LineEnd != 20 ||
		got.SymbolPath != "foo.Bar" || got.Score != 0.87 || got.Snippet != "func Bar() {}" {
		t.Errorf("unexpected mapped result: %+v", got)
	}
}

func TestHandleSearch_HonorsExplicitLimit(t *testing.T) {
	engine := &fakeSearchEngine{}
	s := New(nil, engine, nil, nil, nil)

	if _, _, err := s.handleSearch(t.Context(), nil, SearchInput{Query: "x", Limit: 3}); err != nil {
		t.Fatalf("handleSearch: %v", err)
	}
	if engine.lastOpts.Limit != 3 {
		t.Errorf("expected limit 3, got %d", engine.lastOpts.Limit)
	}
}

func TestHandleSearch_PropagatesEngineError(t *testing.T) {
	engine := &fakeSearchEngine{err: errors.New("index corrupt")}
	s := New(nil, engine, nil, nil, nil)
	if _, _, err := s.handleSearch(t.Context(), nil, SearchInput{Query: "x"}); err == nil {
		t.Fatal("expected propagated engine error")
	}
}

func TestHandleStatus_ReturnsErrorWhenReporterUnconfigured(t *testing.T) {
	s := New(nil, nil, nil, nil, nil)
	if _, _, err := s.handleStatus(t.Context(), nil, statusInput{}); err == nil {
		t.Fatal("expected error when no status reporter is configured")
	}
}

func TestHandleStatus_ReturnsReporterSnapshot(t *testing.T) {
	reporter := &status.Reporter{
		Metadata: &stubMetadataStore{stats: store.Stats{FileCount: 5, ChunkCount: 10}},
		Vectors:  &stubVectorIndex{n: 10},
	}
	s := New(nil, nil, reporter, nil, nil)
	_, snap, err := s.handleStatus(t.Context(), nil, statusInput{})
	if err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	if snap.FilesIndexed != 5 || snap.ChunksIndexed != 10 || snap.VectorsIndexed != 10 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.SearchMode != status.SearchModeHybrid {
		t.Errorf("expected hybrid mode with no embedder configured, got %q", snap.SearchMode)
	}
}

func TestHandleGetDependencies_RejectsEmptySymbol(t *testing.T) {
	s := New(nil, nil, nil, graph.New(), nil)
	if _, _, err := s.handleGetDependencies(t.Context(), nil, DependenciesInput{}); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestHandleGetDependencies_ReturnsErrorWhenGraphUnconfigured(t *testing.T) {
	s := New(nil, nil, nil, nil, nil)
	if _, _, err := s.handleGetDependencies(t.Context(), nil, DependenciesInput{Symbol: "a"}); err == nil {
		t.Fatal("expected error when no graph is configured")
	}
}

func TestHandleGetDependencies_DefaultsToDownstream(t *testing.T) {
	g := graph.New()
	g.RegisterSymbol("a")
	g.RegisterSymbol("b")
	g.AddEdge(1, "a", "b", types.EdgeCall)

	s := New(nil, nil, nil, g, nil)
	_, out, err := s.handleGetDependencies(t.Context(), nil, DependenciesInput{Symbol: "a"})
	if err != nil {
		t.Fatalf("handleGetDependencies: %v", err)
	}
	if len(out.Symbols) != 1 || out.Symbols[0] != "b" {
		t.Errorf("expected downstream [b], got %v", out.Symbols)
	}
}

func TestHandleGetDependencies_HonorsUpstreamDirection(t *testing.T) {
	g := graph.New()
	g.RegisterSymbol("a")
	g.RegisterSymbol("b")
	g.AddEdge(1, "a", "b", types.EdgeCall)

	s := New(nil, nil, nil, g, nil)
	_, out, err := s.handleGetDependencies(t.Context(), nil, DependenciesInput{Symbol: "b", Direction: "upstream"})
	if err != nil {
		t.Fatalf("handleGetDependencies: %v", err)
	}
	if len(out.Symbols) != 1 || out.Symbols[0] != "a" {
		t.Errorf("expected upstream [a], got %v", out.Symbols)
	}
}
