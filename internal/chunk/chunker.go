package chunk

import (
	"path/filepath"
	"strconv"
	"strings"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
	"github.com/omnicontext/omnicontext/internal/extract"
	"github.com/omnicontext/omnicontext/internal/types"
)

// CodeChunker turns a parsed source file's structural elements into chunks,
// applying a size policy: accept as-is under the line/byte
// threshold, split class-like containers into a header chunk plus one
// chunk per method, and fall back to overlapping sliding windows for
// anything still too large. Grounded on the reference CodeChunker in
// code_chunker.go, restructured around internal/extract's Element/Import
// types instead of its tree-sitter-coupled symbolNodeInfo.
type CodeChunker struct {
	extractor extract.StructuralExtractor
	options   Options
}

var _ Chunker = (*CodeChunker)(nil)

// NewCodeChunker builds a CodeChunker backed by extractor, applying opts'
// size policy (falling back to the default thresholds for zero fields).
func NewCodeChunker(extractor extract.StructuralExtractor, opts Options) *CodeChunker {
	return &CodeChunker{extractor: extractor, options: opts.withDefaults()}
}

// Chunk implements Chunker.
func (c *CodeChunker) Chunk(in Input) ([]types.Chunk, error) {
	if len(strings.TrimSpace(string(in.Content))) == 0 {
		return nil, nil
	}

	lines := strings.Split(string(in.Content), "\n")
	if looksGenerated(lines) {
		return nil, nil
	}

	if !c.extractor.SupportsLanguage(in.Language) {
		return c.chunkWholeFile(in, lines)
	}

	elements, err := c.extractor.Elements(in.Content, in.Language)
	if err != nil {
		return nil, omnierrors.ParseError(in.Path, err)
	}
	if len(elements) == 0 {
		return c.chunkWholeFile(in, lines)
	}

	modulePath := modulePathFor(in.Path)

	var chunks []types.Chunk
	for _, el := range elements {
		content := string(in.Content[el.StartByte:el.EndByte])
		elLines := el.EndLine - el.StartLine + 1
		if skipElement(elLines, content, el.DocComment) {
			continue
		}

		symbolPath := modulePath + "." + el.Name
		kind := chunkKindFor(el.Kind)
		visibility := visibilityFor(el.Exported)

		byteCount := el.EndByte - el.StartByte
		if elLines <= c.options.MaxLines && byteCount <= c.options.MaxBytes {
			chunks = append(chunks, c.buildChunk(in, el, content, symbolPath, kind, visibility))
			continue
		}

		if kind == types.KindClass {
			chunks = append(chunks, c.splitClass(in, el, content, symbolPath, visibility)...)
			continue
		}

		chunks = append(chunks, c.splitWindow(in, el, content, symbolPath, kind, visibility)...)
	}

	return chunks, nil
}

func (c *CodeChunker) buildChunk(in Input, el extract.Element, content, symbolPath string, kind types.ChunkKind, vis types.Visibility) types.Chunk {
	br := types.ByteRange{Start: el.StartByte, End: el.EndByte}
	return types.Chunk{
		ID:          types.ChunkID(in.Path, br, kind),
		FilePath:    in.Path,
		ByteRange:   br,
		LineRange:   types.LineRange{Start: el.StartLine, End: el.EndLine},
		Kind:        kind,
		Visibility:  vis,
		SymbolPath:  symbolPath,
		ShortName:   el.Name,
		DocComment:  el.DocComment,
		Content:     content,
		Language:    in.Language,
		Fingerprint: types.ContentFingerprint(kind, symbolPath, content),
	}
}

// splitClass splits a class-like container into one header chunk (the
// portion before the first nested element) plus one chunk per method,
// mirroring the reference class/method split intent (code_chunker.go's
// splitClassByMethods, a placeholder there that this implementation
// completes using extract's flat element list instead of walking
// tree-sitter children directly).
func (c *CodeChunker) splitClass(in Input, el extract.Element, content, symbolPath string, vis types.Visibility) []types.Chunk {
	nested, err := c.extractor.Elements(in.Content[el.StartByte:el.EndByte], in.Language)
	if err != nil {
		return c.splitWindow(in, el, content, symbolPath, types.KindClass, vis)
	}
	// Re-parsing the class body re-matches the class/interface node itself
	// (it still satisfies classTypes at offset 0); only methods name the
	// nested chunks this split produces.
	var methods []extract.Element
	for _, m := range nested {
		if m.Kind == extract.ElementMethod || m.Kind == extract.ElementFunction {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		return c.splitWindow(in, el, content, symbolPath, types.KindClass, vis)
	}

	var chunks []types.Chunk
	headerEnd := methods[0].StartByte
	if headerEnd <= 0 {
		return c.splitWindow(in, el, content, symbolPath, types.KindClass, vis)
	}
	headerContent := content[:headerEnd]
	headerBR := types.ByteRange{Start: el.StartByte, End: el.StartByte + headerEnd}
	chunks = append(chunks, types.Chunk{
		ID:          types.ChunkID(in.Path, headerBR, types.KindClass),
		FilePath:    in.Path,
		ByteRange:   headerBR,
		LineRange:   types.LineRange{Start: el.StartLine, End: el.StartLine + strings.Count(headerContent, "\n")},
		Kind:        types.KindClass,
		Visibility:  vis,
		SymbolPath:  symbolPath,
		ShortName:   el.Name,
		DocComment:  el.DocComment,
		Content:     headerContent,
		Language:    in.Language,
		Fingerprint: types.ContentFingerprint(types.KindClass, symbolPath, headerContent),
	})

	for _, m := range methods {
		mContent := content[m.StartByte:m.EndByte]
		mLines := m.EndLine - m.StartLine + 1
		if skipElement(mLines, mContent, m.DocComment) {
			continue
		}
		mSymbolPath := symbolPath + "." + m.Name
		mBR := types.ByteRange{Start: el.StartByte + m.StartByte, End: el.StartByte + m.EndByte}
		chunks = append(chunks, types.Chunk{
			ID:          types.ChunkID(in.Path, mBR, types.KindMethod),
			FilePath:    in.Path,
			ByteRange:   mBR,
			LineRange:   types.LineRange{Start: el.StartLine + m.StartLine - 1, End: el.StartLine + m.EndLine - 1},
			Kind:        types.KindMethod,
			Visibility:  visibilityFor(m.Exported),
			SymbolPath:  mSymbolPath,
			ShortName:   m.Name,
			DocComment:  m.DocComment,
			Content:     mContent,
			Language:    in.Language,
			Fingerprint: types.ContentFingerprint(types.KindMethod, mSymbolPath, mContent),
		})
	}
	return chunks
}

// splitWindow splits content into overlapping sliding windows (80-line
// window, 60-line stride; 20-line overlap), the fallback for elements
// still too large after the class/method split.
func (c *CodeChunker) splitWindow(in Input, el extract.Element, content, symbolPath string, kind types.ChunkKind, vis types.Visibility) []types.Chunk {
	lines := strings.Split(content, "\n")
	var chunks []types.Chunk
	for start := 0; start < len(lines); start += strideLines {
		end := start + windowLines
		if end > len(lines) {
			end = len(lines)
		}
		windowContent := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(windowContent) != "" {
			startByte, endByte := byteOffsetsForLines(content, start, end)
			br := types.ByteRange{Start: el.StartByte + startByte, End: el.StartByte + endByte}
			partPath := symbolPath
			if start > 0 {
				partPath = symbolPath + "#window" + strconv.Itoa(start/strideLines+1)
			}
			chunks = append(chunks, types.Chunk{
				ID:          types.ChunkID(in.Path, br, kind),
				FilePath:    in.Path,
				ByteRange:   br,
				LineRange:   types.LineRange{Start: el.StartLine + start, End: el.StartLine + end - 1},
				Kind:        kind,
				Visibility:  vis,
				SymbolPath:  partPath,
				ShortName:   el.Name,
				Content:     windowContent,
				Language:    in.Language,
				Fingerprint: types.ContentFingerprint(kind, partPath, windowContent),
			})
		}
		if end >= len(lines) {
			break
		}
	}
	return chunks
}

// chunkWholeFile handles files in a language the extractor doesn't support
// (or reports no elements for): the whole file becomes one Module chunk,
// still subject to the sliding-window fallback if it's too large. Parse
// failures do not come here: Chunk returns a ParseError for them, and the
// pipeline indexes such a file's full text under its own whole-file
// fallback chunk.
func (c *CodeChunker) chunkWholeFile(in Input, lines []string) ([]types.Chunk, error) {
	content := string(in.Content)
	if skipElement(len(lines), content, "") {
		return nil, nil
	}
	pseudo := extract.Element{
		Name: filepath.Base(in.Path), Kind: extract.ElementType,
		StartByte: 0, EndByte: len(in.Content),
		StartLine: 1, EndLine: len(lines),
	}
	symbolPath := modulePathFor(in.Path)
	if len(content) <= c.options.MaxBytes && len(lines) <= c.options.MaxLines {
		br := types.ByteRange{Start: 0, End: len(in.Content)}
		return []types.Chunk{{
			ID:          types.ChunkID(in.Path, br, types.KindModule),
			FilePath:    in.Path,
			ByteRange:   br,
			LineRange:   types.LineRange{Start: 1, End: len(lines)},
			Kind:        types.KindModule,
			Visibility:  types.VisibilityPublic,
			SymbolPath:  symbolPath,
			ShortName:   pseudo.Name,
			Content:     content,
			Language:    in.Language,
			Fingerprint: types.ContentFingerprint(types.KindModule, symbolPath, content),
		}}, nil
	}
	return c.splitWindow(in, pseudo, content, symbolPath, types.KindModule, types.VisibilityPublic), nil
}

func chunkKindFor(k extract.ElementKind) types.ChunkKind {
	switch k {
	case extract.ElementFunction:
		return types.KindFunction
	case extract.ElementMethod:
		return types.KindMethod
	case extract.ElementClass, extract.ElementInterface:
		return types.KindClass
	case extract.ElementConst:
		return types.KindConst
	default:
		return types.KindBlock
	}
}

func visibilityFor(exported bool) types.Visibility {
	if exported {
		return types.VisibilityPublic
	}
	return types.VisibilityPrivate
}

// modulePathFor derives the dotted prefix used to build a chunk's
// SymbolPath: the file's base name without extension. The extractor
// doesn't report package/module declarations, so this is the nearest
// enclosing scope it can offer; see DESIGN.md.
func modulePathFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func byteOffsetsForLines(content string, startLine, endLine int) (int, int) {
	lines := strings.SplitAfter(content, "\n")
	startByte := 0
	for i := 0; i < startLine && i < len(lines); i++ {
		startByte += len(lines[i])
	}
	endByte := startByte
	for i := startLine; i < endLine && i < len(lines); i++ {
		endByte += len(lines[i])
	}
	return startByte, endByte
}
