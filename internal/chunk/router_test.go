package chunk

import (
	"testing"

	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/types"
)

func TestRouterDispatchesMarkdownByExtension(t *testing.T) {
	r := NewRouter(extract.NewTreeSitterExtractor(), Options{})
	chunks, err := r.ChunkFile(Input{Path: "README.md", Content: []byte("# Title\n\nSome body content here.\n")})
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(chunks) == 0 || chunks[0].Kind != types.KindSection {
		t.Fatalf("expected a Section chunk for .md file, got %+v", chunks)
	}
}

func TestRouterDispatchesGoByExtensionAndInfersLanguage(t *testing.T) {
	r := NewRouter(extract.NewTreeSitterExtractor(), Options{})
	src := []byte("package main\n\n// Run executes the program.\nfunc Run() error {\n\treturn nil\n}\n")
	chunks, err := r.ChunkFile(Input{Path: "main.go", Content: src})
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	found := false
	for _, ch := range chunks {
		if ch.ShortName == "Run" && ch.Language == "go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Run chunk with inferred go language, got %+v", chunks)
	}
}
