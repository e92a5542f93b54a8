package chunk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/omnicontext/omnicontext/internal/types"
)

// headerPattern matches ATX-style Markdown headers: "# Title" .. "###### Title".
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// MarkdownChunker splits a Markdown file into header-delimited sections,
// producing Section-kind chunks so documentation files are indexed
// alongside code. Ported from the reference MarkdownChunker
// (markdown_chunker.go), trimmed to the header/section split it itself
// falls back on for unheadered content, and re-targeted at a line/byte
// size policy instead of its token budget.
type MarkdownChunker struct {
	options Options
}

var _ Chunker = (*MarkdownChunker)(nil)

// NewMarkdownChunker builds a MarkdownChunker with opts' size policy
// (falling back to the default thresholds for zero fields).
func NewMarkdownChunker(opts Options) *MarkdownChunker {
	return &MarkdownChunker{options: opts.withDefaults()}
}

type section struct {
	headerLevel int
	headerTitle string
	headerPath  string
	content     string
	startLine   int // 0-indexed, relative to the file
}

// Chunk implements Chunker.
func (c *MarkdownChunker) Chunk(in Input) ([]types.Chunk, error) {
	content := string(in.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")
	if looksGenerated(lines) {
		return nil, nil
	}

	sections := parseSections(content)
	if len(sections) == 0 {
		return c.sectionChunks(in, &section{content: content, startLine: 0}), nil
	}

	var chunks []types.Chunk
	for _, sec := range sections {
		chunks = append(chunks, c.sectionChunks(in, sec)...)
	}
	return chunks, nil
}

func parseSections(content string) []*section {
	lines := strings.Split(content, "\n")
	var sections []*section
	headerStack := make([]string, 6)

	var current *section
	var builder strings.Builder

	flush := func() {
		if current != nil {
			current.content = builder.String()
			sections = append(sections, current)
			builder.Reset()
		}
	}

	for lineNum, line := range lines {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			headerStack[level-1] = title
			for i := level; i < 6; i++ {
				headerStack[i] = ""
			}
			var parts []string
			for i := 0; i < level; i++ {
				if headerStack[i] != "" {
					parts = append(parts, headerStack[i])
				}
			}
			current = &section{headerLevel: level, headerTitle: title, headerPath: strings.Join(parts, " > "), startLine: lineNum}
			builder.WriteString(line)
			builder.WriteString("\n")
			continue
		}
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	flush()
	return sections
}

// sectionChunks turns one section into chunks, applying the same
// size/skip policy the code chunker uses, keyed by header path rather
// than symbol path.
func (c *MarkdownChunker) sectionChunks(in Input, sec *section) []types.Chunk {
	content := strings.TrimRight(sec.content, "\n")
	trimmed := strings.TrimSpace(content)
	lines := strings.Split(trimmed, "\n")
	if skipElement(len(lines), content, "") {
		return nil
	}
	// A section containing only its own header line has no body worth
	// indexing.
	if len(lines) <= 1 && headerPattern.MatchString(trimmed) {
		return nil
	}

	symbolPath := sec.headerPath
	if symbolPath == "" {
		symbolPath = sec.headerTitle
	}

	startLine := sec.startLine + 1 // 1-indexed
	endLine := startLine + strings.Count(content, "\n")

	if len(lines) <= c.options.MaxLines && len(content) <= c.options.MaxBytes {
		br := types.ByteRange{Start: 0, End: len(content)}
		return []types.Chunk{{
			ID:          types.ChunkID(in.Path, br, types.KindSection),
			FilePath:    in.Path,
			ByteRange:   br,
			LineRange:   types.LineRange{Start: startLine, End: endLine},
			Kind:        types.KindSection,
			Visibility:  types.VisibilityPublic,
			SymbolPath:  symbolPath,
			ShortName:   sec.headerTitle,
			Content:     content,
			Language:    "markdown",
			Fingerprint: types.ContentFingerprint(types.KindSection, symbolPath, content),
		}}
	}

	return c.splitSectionWindow(in, sec, content, symbolPath, startLine)
}

// splitSectionWindow applies the sliding-window fallback (80-line window,
// 60-line stride) to a section too large for one chunk.
func (c *MarkdownChunker) splitSectionWindow(in Input, sec *section, content, symbolPath string, startLine int) []types.Chunk {
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
			br := types.ByteRange{Start: startByte, End: endByte}
			partPath := symbolPath
			if start > 0 {
				partPath = symbolPath + "#window" + strconv.Itoa(start/strideLines+1)
			}
			chunks = append(chunks, types.Chunk{
				ID:          types.ChunkID(in.Path, br, types.KindSection),
				FilePath:    in.Path,
				ByteRange:   br,
				LineRange:   types.LineRange{Start: startLine + start, End: startLine + end - 1},
				Kind:        types.KindSection,
				Visibility:  types.VisibilityPublic,
				SymbolPath:  partPath,
				ShortName:   sec.headerTitle,
				Content:     windowContent,
				Language:    "markdown",
				Fingerprint: types.ContentFingerprint(types.KindSection, partPath, windowContent),
			})
		}
		if end >= len(lines) {
			break
		}
	}
	return chunks
}
