package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Chunker.MaxLines != 120 || cfg.Chunker.MaxBytes != 2048 {
		t.Fatalf("unexpected chunker defaults: %+v", cfg.Chunker)
	}
	if cfg.Embedder.Dim != 384 || cfg.Embedder.Batch != 32 || cfg.Embedder.FlushMs != 50 {
		t.Fatalf("unexpected embedder defaults: %+v", cfg.Embedder)
	}
	if cfg.Vector.M != 16 || cfg.Vector.EfSearch != 64 {
		t.Fatalf("unexpected vector defaults: %+v", cfg.Vector)
	}
	if cfg.Search.KRRF != 60 || !cfg.Search.Rerank {
		t.Fatalf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Watcher.DebounceMS != 200 {
		t.Fatalf("unexpected watcher defaults: %+v", cfg.Watcher)
	}
}

func TestLoadMergesProjectConfigOverDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	toml := `
[chunker]
max_lines = 200

[search]
k_rrf = 45
`
	if err := os.WriteFile(filepath.Join(dir, Dir, ConfigFileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunker.MaxLines != 200 {
		t.Errorf("expected overridden max_lines=200, got %d", cfg.Chunker.MaxLines)
	}
	if cfg.Chunker.MaxBytes != 2048 {
		t.Errorf("expected default max_bytes to survive merge, got %d", cfg.Chunker.MaxBytes)
	}
	if cfg.Search.KRRF != 45 {
		t.Errorf("expected overridden k_rrf=45, got %d", cfg.Search.KRRF)
	}
}

func TestEnvOverrideTakesPrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, Dir, ConfigFileName), []byte("[search]\nk_rrf = 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OMNI_SEARCH_K_RRF", "99")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.KRRF != 99 {
		t.Errorf("expected env override to win, got %d", cfg.Search.KRRF)
	}
}

func TestSkipModelDownloadEnvVar(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OMNI_SKIP_MODEL_DOWNLOAD", "1")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.SkipModelDownload() {
		t.Error("expected SkipModelDownload to be true")
	}
}

func TestValidateRejectsUnknownFTSBackend(t *testing.T) {
	cfg := Default()
	cfg.Store.FTSBackend = "elasticsearch"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown fts_backend")
	}
}

func TestValidateRejectsNonPositiveChunkerLimits(t *testing.T) {
	cfg := Default()
	cfg.Chunker.MaxLines = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero max_lines")
	}
}

func TestFindProjectRootFindsGitDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, err := FindProjectRoot(sub)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	if got != root {
		t.Errorf("expected %q, got %q", root, got)
	}
}

func TestFindProjectRootFindsExistingConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, Dir), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, Dir, ConfigFileName), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sub := filepath.Join(root, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	got, err := FindProjectRoot(sub)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	if got != root {
		t.Errorf("expected %q, got %q", root, got)
	}
}

func TestFindProjectRootFallsBackToStartDir(t *testing.T) {
	dir := t.TempDir()
	got, err := FindProjectRoot(dir)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	absDir, _ := filepath.Abs(dir)
	if got != absDir {
		t.Errorf("expected fallback to %q, got %q", absDir, got)
	}
}
