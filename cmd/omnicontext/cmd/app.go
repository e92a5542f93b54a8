package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/omnicontext/omnicontext/internal/chunk"
	"github.com/omnicontext/omnicontext/internal/config"
	"github.com/omnicontext/omnicontext/internal/embed"
	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/graph"
	"github.com/omnicontext/omnicontext/internal/logging"
	"github.com/omnicontext/omnicontext/internal/pipeline"
	"github.com/omnicontext/omnicontext/internal/schedule"
	"github.com/omnicontext/omnicontext/internal/search"
	"github.com/omnicontext/omnicontext/internal/status"
	"github.com/omnicontext/omnicontext/internal/store"
)

// app bundles the live dependencies every subcommand needs: the root
// directory being indexed, the durable stores, the pipeline orchestrator,
// the search engine, and a status reporter over the same live state.
// Grounded on the per-command bootstrap blocks in cmd/amanmcp/cmd/index.go
// and search.go, collapsed into one shared constructor since every
// omnicontext subcommand wires the same collaborators rather than each
// assembling its own subset.
type app struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger

	metadata  store.MetadataStore
	vectors   *store.HNSWIndex
	graph     *graph.Graph
	cache     *embed.FingerprintCache
	embedder  embed.Embedder
	coord     *embed.Coordinator
	pipeline  *pipeline.Pipeline
	engine    search.Engine
	reporter  *status.Reporter
	latency   *status.LatencyTracker
	scheduler *schedule.Scheduler
	lock      *store.InstanceLock

	closeLogging func()
}

// openApp resolves root, loads configuration, and wires every
// collaborator needed to serve index/search/status/deps/serve. Callers
// must call Close when finished.
func openApp(root string) (*app, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	cleanup, err := logging.SetupDefault(root)
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	logger := slog.Default()

	lock := store.NewInstanceLock(config.LockPath(root))
	acquired, err := lock.TryLock()
	if err != nil {
		cleanup()
		return nil, err
	}
	if !acquired {
		cleanup()
		return nil, omnierrors.ConfigError("another omnicontext instance is already indexing this project", nil)
	}

	a := &app{root: root, cfg: cfg, logger: logger, lock: lock, closeLogging: cleanup}

	metadata, err := store.OpenSQLiteStore(config.MetadataDBPath(root))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.metadata = metadata

	fts, err := store.NewFullTextIndex(cfg.Store.FTSBackend, config.StateDir(root)+"/fts")
	if err != nil {
		a.Close()
		return nil, err
	}
	if fts != nil {
		a.metadata = store.NewFTSBackedStore(metadata, fts)
	}

	a.vectors = store.NewHNSWIndex(cfg.Vector.M, cfg.Vector.EfConstruction, cfg.Vector.EfSearch)
	_ = a.vectors.Load(config.VectorsPath(root)) // absent on first run

	a.graph = graph.New()

	cache, err := embed.NewFingerprintCache(config.EmbedCachePath(root), 10000)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = cache

	embedder := buildEmbedder(cfg)
	a.embedder = embedder
	a.coord = embed.NewCoordinator(embedder, cache,
		embed.WithBatchSize(cfg.Embedder.Batch),
		embed.WithFlushDelay(time.Duration(cfg.Embedder.FlushMs)*time.Millisecond))
	if cfg.SkipModelDownload() {
		a.coord.StartInKeywordOnlyMode()
	}

	extractor := extract.NewTreeSitterExtractor()
	router := chunk.NewRouter(extractor, chunk.Options{MaxLines: cfg.Chunker.MaxLines, MaxBytes: cfg.Chunker.MaxBytes})

	a.pipeline = pipeline.New(pipeline.Dependencies{
		RootPath:   root,
		Metadata:   a.metadata,
		Vectors:    a.vectors,
		Graph:      a.graph,
		Embedder:   a.coord,
		Extractor:  extractor,
		Router:     router,
		ShardCount: cfg.Pipeline.ShardCount,
	})

	var opts []search.HybridEngineOption
	if cfg.Search.KRRF > 0 {
		opts = append(opts, search.WithKRRF(cfg.Search.KRRF))
	}
	if cfg.Search.Rerank {
		opts = append(opts, search.WithReranker(search.NewHTTPReranker(cfg.Embedder.OllamaHost, "rerank")))
	}
	a.engine = search.NewHybridEngine(a.metadata, a.vectors, a.graph, embedder, a.coord.IsKeywordOnly, opts...)

	a.reporter = &status.Reporter{Metadata: a.metadata, Vectors: a.vectors, Graph: a.graph, Embedder: a.coord}
	a.latency = status.NewLatencyTracker(0)
	a.scheduler = schedule.New(a.coord, a.vectors, logger)

	return a, nil
}

// buildEmbedder selects Ollama or the static fallback, matching the
// `OMNI_SKIP_MODEL_DOWNLOAD`/offline-mode contract: the static embedder
// never makes a network call, so choosing it up front avoids the startup
// health probe that would otherwise immediately degrade the coordinator.
func buildEmbedder(cfg *config.Config) embed.Embedder {
	if cfg.SkipModelDownload() {
		return embed.NewStaticEmbedder(cfg.Embedder.Dim)
	}
	return embed.NewOllamaEmbedder(cfg.Embedder.OllamaHost, cfg.Embedder.Model, cfg.Embedder.Dim)
}

// persist writes the vector index back to disk. Called before Close on any
// path that may have mutated it.
func (a *app) persist() error {
	if a.vectors == nil {
		return nil
	}
	return a.vectors.Persist(config.VectorsPath(a.root))
}

// Close releases every resource opened by openApp, in reverse order,
// continuing past individual failures so a partially-initialized app can
// still be torn down cleanly.
func (a *app) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.embedder != nil {
		if closer, ok := a.embedder.(interface{ Close() error }); ok {
			record(closer.Close())
		}
	}
	if a.cache != nil {
		record(a.cache.Flush())
	}
	if a.metadata != nil {
		record(a.metadata.Close())
	}
	if a.lock != nil {
		record(a.lock.Unlock())
	}
	if a.closeLogging != nil {
		a.closeLogging()
	}
	return firstErr
}

// startBackgroundJobs starts the health-probe and compaction scheduler.
// Callers running a one-shot command (index, search, status) do not need
// this; only `serve` keeps the process alive long enough for it to matter.
func (a *app) startBackgroundJobs(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			a.logger.Warn("scheduler failed to start", slog.String("error", err.Error()))
		}
	}
}

// stopBackgroundJobs stops the scheduler, if running.
func (a *app) stopBackgroundJobs(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
}

// resolveRoot finds the project root to operate on: starting from an
// explicit --root flag when one is given, otherwise from the current
// directory, it walks upward looking for `.git` or an existing
// `.omnicontext/config.toml`.
func resolveRoot(explicit string) (string, error) {
	if explicit != "" {
		return config.FindProjectRoot(explicit)
	}
	return config.FindProjectRoot(".")
}

// exitCode maps err to the documented exit-code scheme using the error's
// Code rather than inspecting message text: 0 ok, 2 config error, 3
// corruption, 4 I/O, 1 for anything else structurally tagged or untagged.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch omnierrors.GetCode(err) {
	case omnierrors.CodeConfigError:
		return 2
	case omnierrors.CodeDatabaseCorruption:
		return 3
	case omnierrors.CodeIO, omnierrors.CodeInsufficientDisk:
		return 4
	default:
		return 1
	}
}
