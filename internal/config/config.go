// Package config loads and validates OmniContext's configuration: defaults,
// then `<repo>/.omnicontext/config.toml`, then `OMNI_*` environment
// variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
)

// Config is the full configuration tree: every key the indexing,
// embedding, search, and storage subsystems read, plus the ambient keys
// logging, config loading, and testing need.
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Chunker  ChunkerConfig  `toml:"chunker"`
	Embedder EmbedderConfig `toml:"embedder"`
	Vector   VectorConfig   `toml:"vector"`
	Search   SearchConfig   `toml:"search"`
	Watcher  WatcherConfig  `toml:"watcher"`
	Store    StoreConfig    `toml:"store"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`

	skipModelDownload bool
}

// PathsConfig configures which files the pipeline considers.
type PathsConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// ChunkerConfig holds the chunker.* keys.
type ChunkerConfig struct {
	MaxLines int `toml:"max_lines"`
	MaxBytes int `toml:"max_bytes"`
}

// EmbedderConfig holds the embedder.* keys.
type EmbedderConfig struct {
	Model      string `toml:"model"`
	Dim        int    `toml:"dim"`
	Batch      int    `toml:"batch"`
	FlushMs    int    `toml:"flush_ms"`
	OllamaHost string `toml:"ollama_host"`
}

// VectorConfig holds the vector.* keys.
type VectorConfig struct {
	M                 int     `toml:"m"`
	EfSearch          int     `toml:"ef_search"`
	EfConstruction    int     `toml:"ef_construction"`
	TombstoneFraction float64 `toml:"tombstone_fraction"`
}

// SearchConfig holds the search.* keys.
type SearchConfig struct {
	KRRF   int  `toml:"k_rrf"`
	Rerank bool `toml:"rerank"`
}

// WatcherConfig holds the watcher.* key.
type WatcherConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// StoreConfig selects the full-text backend, mirroring the dual
// BM25-backend factory pattern.
type StoreConfig struct {
	FTSBackend string `toml:"fts_backend"` // "sqlite" | "bleve"
}

// PipelineConfig configures orchestrator concurrency.
type PipelineConfig struct {
	Workers    int `toml:"workers"`
	ShardCount int `toml:"shard_count"`
}

// ServerConfig configures the RPC/CLI front end.
type ServerConfig struct {
	Transport string `toml:"transport"`
	LogLevel  string `toml:"log_level"`
}

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/.omnicontext/**",
}

// Default returns the configuration with every key at its documented
// default value.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{},
			Exclude: append([]string{}, defaultExcludePatterns...),
		},
		Chunker: ChunkerConfig{
			MaxLines: 120,
			MaxBytes: 2048,
		},
		Embedder: EmbedderConfig{
			Model:      "local-default",
			Dim:        384,
			Batch:      32,
			FlushMs:    50,
			OllamaHost: "http://localhost:11434",
		},
		Vector: VectorConfig{
			M:                 16,
			EfSearch:          64,
			EfConstruction:    200,
			TombstoneFraction: 0.25,
		},
		Search: SearchConfig{
			KRRF:   60,
			Rerank: true,
		},
		Watcher: WatcherConfig{
			DebounceMS: 200,
		},
		Store: StoreConfig{
			FTSBackend: "sqlite",
		},
		Pipeline: PipelineConfig{
			Workers:    max(2, runtime.NumCPU()-1),
			ShardCount: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Dir is the per-repository state directory name.
const Dir = ".omnicontext"

// ConfigFileName is the TOML config file's name within Dir.
const ConfigFileName = "config.toml"

// Load reads `<repoRoot>/.omnicontext/config.toml` (if present), merges it
// over Default(), applies a repo-root `.env` file (if present) and
// `OMNI_*` environment overrides, then validates the result.
func Load(repoRoot string) (*Config, error) {
	cfg := Default()

	envPath := filepath.Join(repoRoot, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, omnierrors.ConfigError("failed to load .env", err)
		}
	}

	configPath := filepath.Join(repoRoot, Dir, ConfigFileName)
	if data, err := os.ReadFile(configPath); err == nil {
		var parsed Config
		if _, err := toml.Decode(string(data), &parsed); err != nil {
			return nil, omnierrors.ConfigError(fmt.Sprintf("failed to parse %s", configPath), err)
		}
		cfg.mergeFrom(&parsed)
	} else if !os.IsNotExist(err) {
		return nil, omnierrors.ConfigError(fmt.Sprintf("failed to read %s", configPath), err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFrom overlays non-zero fields from other onto c. TOML zero values
// (0, "", nil, false) are treated as "not set" at this layer; explicit
// false booleans must be set via environment override instead.
func (c *Config) mergeFrom(other *Config) {
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if other.Chunker.MaxLines != 0 {
		c.Chunker.MaxLines = other.Chunker.MaxLines
	}
	if other.Chunker.MaxBytes != 0 {
		c.Chunker.MaxBytes = other.Chunker.MaxBytes
	}
	if other.Embedder.Model != "" {
		c.Embedder.Model = other.Embedder.Model
	}
	if other.Embedder.Dim != 0 {
		c.Embedder.Dim = other.Embedder.Dim
	}
	if other.Embedder.Batch != 0 {
		c.Embedder.Batch = other.Embedder.Batch
	}
	if other.Embedder.FlushMs != 0 {
		c.Embedder.FlushMs = other.Embedder.FlushMs
	}
	if other.Embedder.OllamaHost != "" {
		c.Embedder.OllamaHost = other.Embedder.OllamaHost
	}
	if other.Vector.M != 0 {
		c.Vector.M = other.Vector.M
	}
	if other.Vector.EfSearch != 0 {
		c.Vector.EfSearch = other.Vector.EfSearch
	}
	if other.Vector.EfConstruction != 0 {
		c.Vector.EfConstruction = other.Vector.EfConstruction
	}
	if other.Vector.TombstoneFraction != 0 {
		c.Vector.TombstoneFraction = other.Vector.TombstoneFraction
	}
	if other.Search.KRRF != 0 {
		c.Search.KRRF = other.Search.KRRF
	}
	c.Search.Rerank = other.Search.Rerank || c.Search.Rerank
	if other.Watcher.DebounceMS != 0 {
		c.Watcher.DebounceMS = other.Watcher.DebounceMS
	}
	if other.Store.FTSBackend != "" {
		c.Store.FTSBackend = other.Store.FTSBackend
	}
	if other.Pipeline.Workers != 0 {
		c.Pipeline.Workers = other.Pipeline.Workers
	}
	if other.Pipeline.ShardCount != 0 {
		c.Pipeline.ShardCount = other.Pipeline.ShardCount
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies every OMNI_* variable this binary honors to c,
// parsing and setting each one in turn.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("OMNI_SKIP_MODEL_DOWNLOAD"); ok && v != "" && v != "0" {
		c.Embedder.Model = "local-default"
		c.skipModelDownload = true
	}
	if v := os.Getenv("OMNI_EMBEDDER_MODEL"); v != "" {
		c.Embedder.Model = v
	}
	if v := os.Getenv("OMNI_EMBEDDER_OLLAMA_HOST"); v != "" {
		c.Embedder.OllamaHost = v
	}
	if v := os.Getenv("OMNI_STORE_FTS_BACKEND"); v != "" {
		c.Store.FTSBackend = v
	}
	if v := os.Getenv("OMNI_SEARCH_K_RRF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.KRRF = n
		}
	}
	if v := os.Getenv("OMNI_SEARCH_RERANK"); v != "" {
		c.Search.Rerank = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("OMNI_WATCHER_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Watcher.DebounceMS = n
		}
	}
	if v := os.Getenv("OMNI_PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("OMNI_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// skipModelDownload records whether OMNI_SKIP_MODEL_DOWNLOAD=1 was set,
// which forces the embedding coordinator into model-unavailable mode
// regardless of the configured provider.
func (c *Config) SkipModelDownload() bool { return c.skipModelDownload }

// Validate rejects configurations that would misbehave rather than letting
// downstream code fail confusingly. Violations are Fatal ConfigErrors.
func (c *Config) Validate() error {
	if c.Chunker.MaxLines <= 0 {
		return omnierrors.ConfigError("chunker.max_lines must be positive", nil)
	}
	if c.Chunker.MaxBytes <= 0 {
		return omnierrors.ConfigError("chunker.max_bytes must be positive", nil)
	}
	if c.Embedder.Dim <= 0 {
		return omnierrors.ConfigError("embedder.dim must be positive", nil)
	}
	if c.Embedder.Batch <= 0 {
		return omnierrors.ConfigError("embedder.batch must be positive", nil)
	}
	if c.Embedder.FlushMs <= 0 {
		return omnierrors.ConfigError("embedder.flush_ms must be positive", nil)
	}
	if c.Vector.M <= 0 {
		return omnierrors.ConfigError("vector.m must be positive", nil)
	}
	if c.Vector.EfSearch <= 0 {
		return omnierrors.ConfigError("vector.ef_search must be positive", nil)
	}
	if c.Search.KRRF <= 0 {
		return omnierrors.ConfigError("search.k_rrf must be positive", nil)
	}
	if c.Watcher.DebounceMS <= 0 {
		return omnierrors.ConfigError("watcher.debounce_ms must be positive", nil)
	}
	switch c.Store.FTSBackend {
	case "sqlite", "bleve":
	default:
		return omnierrors.ConfigError(fmt.Sprintf("store.fts_backend must be sqlite or bleve, got %q", c.Store.FTSBackend), nil)
	}
	if c.Pipeline.Workers <= 0 {
		return omnierrors.ConfigError("pipeline.workers must be positive", nil)
	}
	return nil
}

// StateDir returns `<repoRoot>/.omnicontext`.
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, Dir)
}

// MetadataDBPath, VectorsPath, EmbedCachePath, ExtractorVersionPath return
// the fixed filesystem layout under the state directory.
func MetadataDBPath(repoRoot string) string  { return filepath.Join(StateDir(repoRoot), "metadata.db") }
func VectorsPath(repoRoot string) string     { return filepath.Join(StateDir(repoRoot), "vectors.bin") }
func EmbedCachePath(repoRoot string) string  { return filepath.Join(StateDir(repoRoot), "embed_cache.db") }
func ExtractorVersionPath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "extractor.version")
}
func LockPath(repoRoot string) string { return filepath.Join(StateDir(repoRoot), "lock") }

// FindProjectRoot walks up from startDir looking for a `.git` directory or
// an existing `.omnicontext/config.toml`, returning the first directory
// that has either. If neither is found before reaching the filesystem
// root, it returns the absolute form of startDir unchanged so callers can
// still operate on it (e.g. to create a fresh `.omnicontext` there).
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}

	dir := absDir
	for {
		if isDir(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if isFile(filepath.Join(dir, Dir, ConfigFileName)) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
