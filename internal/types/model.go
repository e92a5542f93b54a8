// Package types holds the canonical data model shared by every subsystem:
// files, chunks, symbols, edges, and vectors, plus the fingerprints that
// tie them together across revisions.
package types

import "time"

// ChunkKind classifies the structural element a chunk was produced from.
type ChunkKind string

const (
	KindFunction ChunkKind = "function"
	KindClass    ChunkKind = "class"
	KindMethod   ChunkKind = "method"
	KindModule   ChunkKind = "module"
	KindConst    ChunkKind = "const"
	KindSection  ChunkKind = "section"
	KindBlock    ChunkKind = "block"
)

// Visibility classifies a symbol's accessibility.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityInternal  Visibility = "internal"
)

// EdgeKind classifies a directed dependency between two symbols.
type EdgeKind string

const (
	EdgeImport     EdgeKind = "import"
	EdgeCall       EdgeKind = "call"
	EdgeInherits   EdgeKind = "inherits"
	EdgeImplements EdgeKind = "implements"
	EdgeReferences EdgeKind = "references"
)

// File is a tracked source file, identified by canonical path + content hash.
type File struct {
	ID              uint64
	Path            string // relative to the project root, as the pipeline records it
	ContentHash     string // hex SHA-256 of file bytes
	Language        string
	SizeBytes       int64
	ModTime         time.Time
	ExtractorVersion int
}

// ByteRange is a half-open byte span [Start, End) into a file's content.
type ByteRange struct {
	Start int
	End   int
}

// LineRange is a 1-indexed inclusive line span.
type LineRange struct {
	Start int
	End   int
}

// Chunk is a coherent, embeddable span of source.
type Chunk struct {
	ID              uint64
	FileID          uint64
	FilePath        string
	ByteRange       ByteRange
	LineRange       LineRange
	Kind            ChunkKind
	Visibility      Visibility
	SymbolPath      string // dotted/slashed FQN; empty for Block/Section chunks
	ShortName       string
	DocComment      string
	Content         string // raw source text
	Language        string
	Fingerprint     string // hash(kind || symbol_path || content); embedding cache key
}

// EmbeddingText is the text fed to the embedder: "[lang] symbol_path\n\ncontent".
func (c Chunk) EmbeddingText() string {
	prefix := "[" + c.Language + "] " + c.SymbolPath
	return prefix + "\n\n" + c.Content
}

// Symbol is a named declaration, 1:1 with the chunk that defines it.
type Symbol struct {
	FQN            string
	Kind           ChunkKind
	DefiningChunk  uint64
}

// Edge is a directed dependency between two symbol FQNs.
type Edge struct {
	FromFQN string
	ToFQN   string
	Kind    EdgeKind
}

// Vector is a dense embedding for a chunk. Invariant: L2 norm = 1 ± 1e-5.
type Vector struct {
	ChunkID uint64
	Dim     int
	Values  []float32
}
