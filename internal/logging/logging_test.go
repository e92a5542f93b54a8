package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogPathUnderStateDir(t *testing.T) {
	path := LogPath("/repo")
	if filepath.Base(path) != "omnicontext.log" {
		t.Errorf("expected omnicontext.log, got %s", path)
	}
	if filepath.Dir(path) != filepath.Join("/repo", ".omnicontext", "logs") {
		t.Errorf("expected logs under .omnicontext, got %s", path)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer cleanup()

	logger.Info("indexing started", "files", 12)
	cleanup()

	data, err := os.ReadFile(LogPath(dir))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log output")
	}
	if !strings.Contains(string(data), `"msg":"indexing started"`) {
		t.Errorf("expected JSON log line with msg field, got: %s", data)
	}
}

func TestRotatingWriterRotatesOnDemand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	w, err := NewRotatingWriter(path, 10, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("line one\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := w.Write([]byte("line two\n")); err != nil {
		t.Fatalf("write after rotate: %v", err)
	}

	backups, err := filepath.Glob(filepath.Join(dir, "test-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(backups) == 0 {
		t.Errorf("expected a compressed backup matching test-*, found none in %s", dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading active log file: %v", err)
	}
	if !strings.Contains(string(data), "line two") {
		t.Errorf("expected active file to contain post-rotation writes, got: %s", data)
	}
}
