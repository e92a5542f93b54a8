package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/omnicontext/omnicontext/internal/chunk"
	"github.com/omnicontext/omnicontext/internal/embed"
	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/types"
	"github.com/omnicontext/omnicontext/internal/watcher"
)

// Pipeline consumes watcher events (or a startup reconciliation scan) and
// keeps the metadata store, vector index, and dependency graph consistent.
// Grounded on internal/index's Coordinator (coordinator.go), restructured
// around this module's Chunk/Graph/Embedder types and the extract → chunk →
// embed → commit step sequence each file goes through.
type Pipeline struct {
	deps   Dependencies
	locks  *shardLocks
	router *chunk.Router
}

// New builds a Pipeline over deps, filling in defaults (extractor, router,
// shard count) where the caller left them nil/zero.
func New(deps Dependencies) *Pipeline {
	if deps.ShardCount <= 0 {
		deps.ShardCount = DefaultShardCount
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewTreeSitterExtractor()
	}
	router := deps.Router
	if router == nil {
		router = chunk.NewRouter(deps.Extractor, chunk.Options{})
	}
	return &Pipeline{
		deps:   deps,
		locks:  newShardLocks(deps.ShardCount),
		router: router,
	}
}

// Run wires a Watcher's debounced event stream into the worker pool until
// ctx is cancelled or the watcher closes its channels: the watcher stops
// emitting, any events already queued drain through the worker pool, and
// Run returns once the pool is idle.
func (p *Pipeline) Run(ctx context.Context, w watcher.Watcher) error {
	workers := max2(2, runtime.NumCPU()-1)
	sem := make(chan struct{}, workers)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			p.dispatchBatch(ctx, batch, sem)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// dispatchBatch processes one coalesced batch of events, bounding
// concurrency to the worker pool size via sem while letting events for
// distinct files run in parallel.
func (p *Pipeline) dispatchBatch(ctx context.Context, batch []watcher.FileEvent, sem chan struct{}) {
	g, gctx := errgroup.WithContext(ctx)
	for _, event := range batch {
		event := event
		if event.IsDir {
			continue
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := p.handleEvent(gctx, event); err != nil {
				slog.Warn("failed to process file event",
					slog.String("path", event.Path),
					slog.String("operation", event.Operation.String()),
					slog.String("error", err.Error()))
			}
			return nil // one file's failure never aborts the batch
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) handleEvent(ctx context.Context, event watcher.FileEvent) error {
	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify, watcher.OpGitignoreChange, watcher.OpConfigChange:
		_, err := p.ProcessFile(ctx, event.Path)
		return err
	case watcher.OpDelete:
		return p.RemoveFile(ctx, event.Path)
	default:
		return nil
	}
}

func max2(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// moduleID derives the file-level graph node identifier: the same
// "basename without extension" prefix the chunker uses for its element
// SymbolPaths, so element-level and file-level FQNs interleave cleanly.
func moduleID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveImportTarget best-effort resolves an import's literal path to the
// module identifier it names: the base component of the path, stripped of
// any extension. This does not perform real module resolution (no search
// path, no package-to-directory mapping) — it is deliberately the same
// name-matching heuristic the chunker itself uses for symbol paths, which
// is sufficient to detect import cycles among files already indexed by
// this pipeline without building a full linker.
func resolveImportTarget(importPath string) string {
	cleaned := strings.Trim(importPath, "\"'`")
	base := filepath.Base(cleaned)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// languageFor classifies relPath by extension. Unknown extensions return
// ok=false, so the caller records the file entry only, without chunking.
func languageFor(relPath string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(relPath))
	if markdownExtensions[ext] {
		return "markdown", true
	}
	return extract.LanguageForExtension(ext)
}

// ProcessFile runs the full per-file pipeline for relPath (relative to
// deps.RootPath): hash, extract, chunk, embed, commit. It is safe to call
// concurrently for different files; concurrent calls for the same relPath
// serialize on that file's shard lock.
func (p *Pipeline) ProcessFile(ctx context.Context, relPath string) (Result, error) {
	fileID := types.FileID(relPath)
	unlock := p.locks.lock(fileID)
	defer unlock()

	absPath := filepath.Join(p.deps.RootPath, relPath)

	info, err := os.Lstat(absPath)
	if err != nil {
		return Result{}, p.removeFileLocked(ctx, relPath)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return Result{}, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return Result{FilesFailed: 1}, omnierrors.Wrap(omnierrors.CodeIO, err)
	}

	// Step 1: compute hash, skip if unchanged.
	hash := types.HashContent(content)
	if existing, err := p.deps.Metadata.GetFileByPath(ctx, relPath); err == nil && existing != nil && existing.ContentHash == hash {
		return Result{}, nil
	}

	// Step 2: detect language by extension.
	language, ok := languageFor(relPath)
	if !ok {
		if _, err := p.deps.Metadata.UpsertFile(ctx, relPath, hash, ""); err != nil {
			return Result{FilesFailed: 1}, err
		}
		return Result{FilesProcessed: 1}, nil
	}

	// Step 3: extract structure + imports.
	var imports []string
	if language != "markdown" && p.deps.Extractor != nil && p.deps.Extractor.SupportsLanguage(language) {
		parsed, err := p.deps.Extractor.Imports(content, language)
		if err != nil {
			slog.Warn("import extraction failed, continuing with no edges",
				slog.String("path", relPath), slog.String("error", err.Error()))
		}
		for _, imp := range parsed {
			imports = append(imports, resolveImportTarget(imp.Path))
		}
	}

	// Step 4: produce chunks via the chunker. A parse failure still
	// indexes the file's full text under a single fallback chunk rather
	// than dropping the file entirely.
	chunks, err := p.router.ChunkFile(chunk.Input{Path: relPath, Content: content, Language: language})
	if err != nil {
		slog.Warn("chunking failed, indexing whole file",
			slog.String("path", relPath), slog.String("error", err.Error()))
		chunks = []types.Chunk{wholeFileFallback(relPath, content, language)}
	}

	for i := range chunks {
		chunks[i].FileID = fileID
	}

	oldChunks, _ := p.deps.Metadata.GetChunksByFile(ctx, fileID)

	// Step 5: upsert file, replace chunks, replace edges.
	if _, err := p.deps.Metadata.UpsertFile(ctx, relPath, hash, language); err != nil {
		return Result{FilesFailed: 1}, fmt.Errorf("upsert file: %w", err)
	}
	if err := p.deps.Metadata.ReplaceChunks(ctx, fileID, chunks); err != nil {
		return Result{FilesFailed: 1}, fmt.Errorf("replace chunks: %w", err)
	}

	module := moduleID(relPath)
	edges := make([]types.Edge, 0, len(imports))
	for _, target := range imports {
		edges = append(edges, types.Edge{FromFQN: module, ToFQN: target, Kind: types.EdgeImport})
	}
	if err := p.deps.Metadata.UpsertEdges(ctx, fileID, edges); err != nil {
		return Result{FilesFailed: 1}, fmt.Errorf("upsert edges: %w", err)
	}

	// Step 6: remove obsolete vectors, embed new chunks.
	embeddingsGenerated := p.syncVectors(ctx, oldChunks, chunks)

	// Step 7: rebuild the file's subgraph in the in-memory graph.
	p.rebuildGraph(fileID, module, chunks, edges)

	return Result{
		FilesProcessed:      1,
		ChunksCreated:       len(chunks),
		SymbolsExtracted:    countSymbols(chunks),
		EmbeddingsGenerated: embeddingsGenerated,
	}, nil
}

// syncVectors removes the vector index entries for chunk ids no longer
// present after replacement, and submits the current chunk set for
// embedding, adding each resulting vector to the index. Chunks whose
// embedding fails (degraded/keyword-only mode) stay lexically indexed
// only.
func (p *Pipeline) syncVectors(ctx context.Context, oldChunks, newChunks []types.Chunk) int {
	newIDs := make(map[uint64]bool, len(newChunks))
	for _, c := range newChunks {
		newIDs[c.ID] = true
	}
	for _, old := range oldChunks {
		if !newIDs[old.ID] {
			_ = p.deps.Vectors.Remove(old.ID)
		}
	}

	if p.deps.Embedder == nil || len(newChunks) == 0 {
		return 0
	}

	reqs := make([]embed.Request, len(newChunks))
	for i, c := range newChunks {
		reqs[i] = embed.Request{
			ChunkID:     c.ID,
			Fingerprint: c.Fingerprint,
			Text:        c.EmbeddingText(),
		}
	}

	results := p.deps.Embedder.Submit(ctx, reqs)
	generated := 0
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if err := p.deps.Vectors.Add(res.ChunkID, res.Vector); err != nil {
			slog.Warn("failed to add vector", slog.Uint64("chunk_id", res.ChunkID), slog.String("error", err.Error()))
			continue
		}
		generated++
	}
	return generated
}

// rebuildGraph drops fileID's previous subgraph and re-adds the current
// one: every chunk's SymbolPath as a registered symbol, the file's own
// module node, and the import edges discovered this pass.
func (p *Pipeline) rebuildGraph(fileID uint64, module string, chunks []types.Chunk, edges []types.Edge) {
	if p.deps.Graph == nil {
		return
	}
	p.deps.Graph.RemoveEdgesFromFile(fileID)
	p.deps.Graph.RegisterSymbol(module)
	for _, c := range chunks {
		if c.SymbolPath != "" {
			p.deps.Graph.RegisterSymbol(c.SymbolPath)
		}
	}
	for _, e := range edges {
		p.deps.Graph.AddEdge(fileID, e.FromFQN, e.ToFQN, e.Kind)
	}
}

// RemoveFile deletes relPath's chunks, edges, and vectors (a watcher
// OpDelete event, or a file missing during reconciliation/Lstat).
func (p *Pipeline) RemoveFile(ctx context.Context, relPath string) error {
	fileID := types.FileID(relPath)
	unlock := p.locks.lock(fileID)
	defer unlock()
	return p.removeFileLocked(ctx, relPath)
}

func (p *Pipeline) removeFileLocked(ctx context.Context, relPath string) error {
	fileID := types.FileID(relPath)

	chunks, err := p.deps.Metadata.GetChunksByFile(ctx, fileID)
	if err != nil {
		return nil // file was never indexed
	}
	for _, c := range chunks {
		_ = p.deps.Vectors.Remove(c.ID)
	}
	if err := p.deps.Metadata.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if p.deps.Graph != nil {
		p.deps.Graph.RemoveEdgesFromFile(fileID)
	}
	return nil
}

func countSymbols(chunks []types.Chunk) int {
	n := 0
	for _, c := range chunks {
		if c.SymbolPath != "" {
			n++
		}
	}
	return n
}

// wholeFileFallback builds a single Block-kind chunk spanning the entire
// file, used when the chunker fails to parse a file's structure.
func wholeFileFallback(relPath string, content []byte, language string) types.Chunk {
	br := types.ByteRange{Start: 0, End: len(content)}
	lines := strings.Count(string(content), "\n") + 1
	return types.Chunk{
		ID:          types.ChunkID(relPath, br, types.KindBlock),
		FilePath:    relPath,
		ByteRange:   br,
		LineRange:   types.LineRange{Start: 1, End: lines},
		Kind:        types.KindBlock,
		Visibility:  types.VisibilityPublic,
		SymbolPath:  "",
		ShortName:   moduleID(relPath),
		Content:     string(content),
		Language:    language,
		Fingerprint: types.ContentFingerprint(types.KindBlock, moduleID(relPath), string(content)),
	}
}
