// Package chunk transforms structural elements and raw source text into
// the embeddable chunks the metadata store, vector index, and dependency
// graph all key off of. It consumes an internal/extract.StructuralExtractor
// for code files and applies its own header-based splitting for Markdown,
// but never touches tree-sitter directly: the size policy, split rules, and
// skip rules live here, parsing lives in internal/extract.
package chunk

import "github.com/omnicontext/omnicontext/internal/types"

// Input is one file ready to be chunked.
type Input struct {
	Path     string
	Content  []byte
	Language string // "" for unrecognized/non-code files, e.g. markdown
}

// Chunker produces chunks from a file. CodeChunker and MarkdownChunker are
// the two concrete implementations, selected by the pipeline on file
// extension/language.
type Chunker interface {
	Chunk(in Input) ([]types.Chunk, error)
}

// Default size policy thresholds, overridable via config.ChunkerConfig.
const (
	DefaultMaxLines = 120
	DefaultMaxBytes = 2048

	// Sliding-window split parameters for elements too large even for the
	// class/method split.
	windowLines = 80
	strideLines = 60

	// Skip rule thresholds.
	minLinesWithoutDoc = 3
	generatedP95LineLen = 400
)

// Options configures a Chunker's size policy. Zero values fall back to the
// package defaults.
type Options struct {
	MaxLines int
	MaxBytes int
}

func (o Options) withDefaults() Options {
	if o.MaxLines <= 0 {
		o.MaxLines = DefaultMaxLines
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}
