package chunk

import (
	"path/filepath"
	"strings"

	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/types"
)

var markdownExtensions = map[string]bool{".md": true, ".markdown": true, ".mdx": true}

// Router picks the right Chunker for a file by extension: the Markdown
// chunker for documentation files, the code chunker (backed by a
// StructuralExtractor) for everything else.
type Router struct {
	code     *CodeChunker
	markdown *MarkdownChunker
}

// NewRouter builds a Router from a shared StructuralExtractor and size
// policy, used for both the code and Markdown chunkers.
func NewRouter(extractor extract.StructuralExtractor, opts Options) *Router {
	return &Router{
		code:     NewCodeChunker(extractor, opts),
		markdown: NewMarkdownChunker(opts),
	}
}

// ChunkFile dispatches to the appropriate Chunker based on in.Path's
// extension, resolving Language via internal/extract's registry when the
// caller left it blank.
func (r *Router) ChunkFile(in Input) ([]types.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(in.Path))
	if markdownExtensions[ext] {
		return r.markdown.Chunk(in)
	}
	if in.Language == "" {
		if lang, ok := extract.LanguageForExtension(ext); ok {
			in.Language = lang
		}
	}
	return r.code.Chunk(in)
}
