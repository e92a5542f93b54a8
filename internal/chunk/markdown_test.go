package chunk

import (
	"strings"
	"testing"

	"github.com/omnicontext/omnicontext/internal/types"
)

func TestMarkdownChunkerSplitsByHeaderSections(t *testing.T) {
	src := `# Title

Intro paragraph with enough words to not be skipped.

## Section One

Body of section one, long enough to survive the skip rule.

## Section Two

Body of section two, also long enough to survive.
`
	c := NewMarkdownChunker(Options{})
	chunks, err := c.Chunk(Input{Path: "README.md", Content: []byte(src)})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 section chunks, got %d: %+v", len(chunks), chunks)
	}
	for _, ch := range chunks {
		if ch.Kind != types.KindSection {
			t.Errorf("expected KindSection, got %v", ch.Kind)
		}
		if ch.Language != "markdown" {
			t.Errorf("expected markdown language tag, got %q", ch.Language)
		}
	}
	if chunks[1].SymbolPath != "Title > Section One" {
		t.Errorf("expected nested header path, got %q", chunks[1].SymbolPath)
	}
}

func TestMarkdownChunkerHeaderOnlySectionSkipped(t *testing.T) {
	src := "# Title\n\nBody text long enough to count.\n\n## Empty Section\n"
	c := NewMarkdownChunker(Options{})
	chunks, err := c.Chunk(Input{Path: "doc.md", Content: []byte(src)})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	for _, ch := range chunks {
		if ch.ShortName == "Empty Section" {
			t.Fatalf("expected header-only section to be skipped, got %+v", ch)
		}
	}
}

func TestMarkdownChunkerNoHeadersProducesSingleSection(t *testing.T) {
	src := "Just a paragraph of text with no headers at all, spanning a few lines\nof content, long enough\nto be indexed.\n"
	c := NewMarkdownChunker(Options{})
	chunks, err := c.Chunk(Input{Path: "notes.md", Content: []byte(src)})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk for headerless content, got %d", len(chunks))
	}
}

func TestMarkdownChunkerEmptyFileProducesNoChunks(t *testing.T) {
	c := NewMarkdownChunker(Options{})
	chunks, err := c.Chunk(Input{Path: "blank.md", Content: []byte("   \n\n")})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for blank file, got %d", len(chunks))
	}
}

func TestMarkdownChunkerSplitsLargeSectionIntoWindows(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Big Section\n\n")
	for i := 0; i < 200; i++ {
		b.WriteString("line of prose content for the section body\n")
	}
	c := NewMarkdownChunker(Options{MaxLines: 120, MaxBytes: 4096})
	chunks, err := c.Chunk(Input{Path: "big.md", Content: []byte(b.String())})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized section to split into multiple window chunks, got %d", len(chunks))
	}
}

func TestMarkdownChunkerSkipsGeneratedFile(t *testing.T) {
	longLine := strings.Repeat("y", 500)
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString(longLine)
		b.WriteString("\n")
	}
	c := NewMarkdownChunker(Options{})
	chunks, err := c.Chunk(Input{Path: "generated.md", Content: []byte(b.String())})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected generated markdown file to be skipped, got %d", len(chunks))
	}
}
