package chunk

import (
	"strings"
	"testing"

	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/types"
)

func TestCodeChunkerAcceptsSmallFunctionAsIs(t *testing.T) {
	src := []byte(`package main

// Run executes the program.
func Run() error {
	return nil
}
`)
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	chunks, err := c.Chunk(Input{Path: "main.go", Content: src, Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}

	found := false
	for _, ch := range chunks {
		if ch.ShortName == "Run" {
			found = true
			if ch.Kind != types.KindFunction {
				t.Errorf("expected KindFunction, got %v", ch.Kind)
			}
			if ch.Visibility != types.VisibilityPublic {
				t.Errorf("expected public visibility, got %v", ch.Visibility)
			}
			if ch.SymbolPath != "main.Run" {
				t.Errorf("expected symbol path main.Run, got %q", ch.SymbolPath)
			}
		}
	}
	if !found {
		t.Fatalf("expected a Run chunk, got %+v", chunks)
	}
}

func TestCodeChunkerSkipsTinyElementWithoutDocComment(t *testing.T) {
	src := []byte(`package main

func f() {}
`)
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	chunks, err := c.Chunk(Input{Path: "tiny.go", Content: src, Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	for _, ch := range chunks {
		if ch.ShortName == "f" {
			t.Fatalf("expected f() to be skipped (under 3 lines, no doc comment), got %+v", ch)
		}
	}
}

func TestCodeChunkerSkipsGeneratedFile(t *testing.T) {
	longLine := strings.Repeat("x", 500)
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString(longLine)
		b.WriteString("\n")
	}
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	chunks, err := c.Chunk(Input{Path: "bundle.go", Content: []byte(b.String()), Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected generated file to be skipped, got %d chunks", len(chunks))
	}
}

func TestCodeChunkerEmptyFileProducesNoChunks(t *testing.T) {
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	chunks, err := c.Chunk(Input{Path: "empty.go", Content: []byte("   \n  \n"), Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty file, got %d", len(chunks))
	}
}

func TestCodeChunkerSplitsLargeFunctionIntoWindows(t *testing.T) {
	var body strings.Builder
	body.WriteString("package main\n\nfunc Big() {\n")
	for i := 0; i < 200; i++ {
		body.WriteString("\tx := 1\n\t_ = x\n")
	}
	body.WriteString("}\n")

	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{MaxLines: 120, MaxBytes: 2048})
	chunks, err := c.Chunk(Input{Path: "big.go", Content: []byte(body.String()), Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected Big() to split into multiple window chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.Kind != types.KindFunction {
			t.Errorf("expected window chunks to keep KindFunction, got %v", ch.Kind)
		}
	}
}

func TestCodeChunkerFallsBackToWholeFileForUnsupportedLanguage(t *testing.T) {
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	src := []byte("SELECT * FROM users WHERE id = 1;\n-- a comment for good measure\n")
	chunks, err := c.Chunk(Input{Path: "query.sql", Content: src, Language: "sql"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one whole-file chunk, got %d", len(chunks))
	}
	if chunks[0].Kind != types.KindModule {
		t.Errorf("expected KindModule, got %v", chunks[0].Kind)
	}
}

func TestCodeChunkerDeterministicChunkIDs(t *testing.T) {
	src := []byte(`package main

// Run executes the program.
func Run() error {
	return nil
}
`)
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	first, err := c.Chunk(Input{Path: "main.go", Content: src, Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	second, err := c.Chunk(Input{Path: "main.go", Content: src, Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected identical chunk counts across runs, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("expected stable chunk id at index %d, got %d and %d", i, first[i].ID, second[i].ID)
		}
	}
}

func TestCodeChunkerEmbeddingTextPrefix(t *testing.T) {
	src := []byte(`package main

// Run executes the program.
func Run() error {
	return nil
}
`)
	c := NewCodeChunker(extract.NewTreeSitterExtractor(), Options{})
	chunks, err := c.Chunk(Input{Path: "main.go", Content: src, Language: "go"})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	for _, ch := range chunks {
		if ch.ShortName != "Run" {
			continue
		}
		want := "[go] main.Run\n\n"
		if !strings.HasPrefix(ch.EmbeddingText(), want) {
			t.Errorf("expected embedding text to start with %q, got %q", want, ch.EmbeddingText())
		}
	}
}
