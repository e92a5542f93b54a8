package extract

import (
	"context"
	"regexp"
	"strings"
)

// TreeSitterExtractor is the default StructuralExtractor, backed by
// github.com/smacker/go-tree-sitter grammars for Go, JavaScript, TypeScript
// (and TSX), and Python.
type TreeSitterExtractor struct{}

var _ StructuralExtractor = (*TreeSitterExtractor)(nil)

// NewTreeSitterExtractor builds the default extractor.
func NewTreeSitterExtractor() *TreeSitterExtractor {
	return &TreeSitterExtractor{}
}

// SupportsLanguage implements StructuralExtractor.
func (e *TreeSitterExtractor) SupportsLanguage(language string) bool {
	_, ok := defaultRegistry.grammarFor(language)
	return ok
}

// LanguageForExtension maps a file extension (e.g. ".go") to a supported
// language name, for the pipeline's file-classification step.
func LanguageForExtension(ext string) (string, bool) {
	return defaultRegistry.languageForExtension(ext)
}

// Elements implements StructuralExtractor by walking the parsed tree and
// classifying each node against the language's node-type tables.
func (e *TreeSitterExtractor) Elements(source []byte, language string) ([]Element, error) {
	spec, ok := defaultRegistry.byName(language)
	if !ok {
		return nil, nil
	}

	root, err := parseTree(context.Background(), source, language)
	if err != nil {
		return nil, err
	}

	var elements []Element
	root.walk(func(n *node) bool {
		if el := classify(n, source, spec, language); el != nil {
			elements = append(elements, *el)
		}
		return true
	})
	return elements, nil
}

func classify(n *node, source []byte, spec *languageSpec, language string) *Element {
	kind, ok := kindForType(n.Type, spec)
	if !ok {
		return nil
	}

	name := extractName(n, source, language)
	if name == "" {
		return nil
	}

	content := n.content(source)
	return &Element{
		Name:       name,
		Kind:       kind,
		StartByte:  n.StartByte,
		EndByte:    n.EndByte,
		StartLine:  n.StartLine,
		EndLine:    n.EndLine,
		Signature:  firstLine(content),
		DocComment: precedingComment(source, n.StartByte, language),
		Exported:   isExported(name, content, language),
	}
}

func kindForType(nodeType string, spec *languageSpec) (ElementKind, bool) {
	switch {
	case contains(spec.functionTypes, nodeType):
		return ElementFunction, true
	case contains(spec.methodTypes, nodeType):
		return ElementMethod, true
	case contains(spec.classTypes, nodeType):
		return ElementClass, true
	case contains(spec.interfaceTypes, nodeType):
		return ElementInterface, true
	case contains(spec.typeDefTypes, nodeType):
		return ElementType, true
	case contains(spec.constantTypes, nodeType):
		return ElementConst, true
	case contains(spec.variableTypes, nodeType):
		return ElementVariable, true
	default:
		return "", false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// extractName finds the identifier that names a declaration. Each language
// nests its name differently, mirroring the shape of per-language name
// extraction elsewhere in this package.
func extractName(n *node, source []byte, language string) string {
	switch language {
	case "go":
		return extractGoName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return extractJSName(n, source)
	case "python":
		return firstIdentifier(n, source, "identifier")
	default:
		return firstIdentifier(n, source, "identifier")
	}
}

func extractGoName(n *node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		return firstIdentifier(n, source, "identifier")
	case "method_declaration":
		return firstIdentifier(n, source, "field_identifier")
	case "type_declaration":
		if spec := n.firstChildOfType("type_spec"); spec != nil {
			return firstIdentifier(spec, source, "type_identifier")
		}
	case "const_declaration":
		if spec := n.firstChildOfType("const_spec"); spec != nil {
			return firstIdentifier(spec, source, "identifier")
		}
	case "var_declaration":
		if spec := n.firstChildOfType("var_spec"); spec != nil {
			return firstIdentifier(spec, source, "identifier")
		}
	}
	return ""
}

func extractJSName(n *node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		if decl := n.firstChildOfType("variable_declarator"); decl != nil {
			return firstIdentifier(decl, source, "identifier")
		}
		return ""
	}
	for _, t := range []string{"identifier", "type_identifier", "property_identifier"} {
		if name := firstIdentifier(n, source, t); name != "" {
			return name
		}
	}
	return ""
}

func firstIdentifier(n *node, source []byte, nodeType string) string {
	if c := n.firstChildOfType(nodeType); c != nil {
		return c.content(source)
	}
	return ""
}

func firstLine(content string) string {
	line := content
	if idx := strings.IndexByte(content, '\n'); idx != -1 {
		line = content[:idx]
	}
	line = strings.TrimSpace(line)
	if idx := strings.IndexByte(line, '{'); idx != -1 {
		return strings.TrimSpace(line[:idx])
	}
	return line
}

// precedingComment looks at the line immediately before startByte for a
// single-line comment, the same "check the previous line" heuristic the
// teacher uses rather than a full leading-trivia walk.
func precedingComment(source []byte, startByte int, language string) string {
	if startByte == 0 {
		return ""
	}
	lineStart := startByte
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart == 0 {
		return ""
	}
	prevEnd := lineStart - 1
	prevStart := prevEnd
	for prevStart > 0 && source[prevStart-1] != '\n' {
		prevStart--
	}
	prevLine := strings.TrimSpace(string(source[prevStart:prevEnd]))

	switch language {
	case "python":
		return "" // docstrings live inside the body, not before it
	default:
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimSpace(strings.TrimPrefix(prevLine, "//"))
		}
	}
	return ""
}

var pythonPrivateRe = regexp.MustCompile(`^_`)

// isExported applies the per-language visibility-inference fallback: Go's
// capitalization rule where available, `export` keyword presence for
// JS/TS, and leading-underscore for Python (see DESIGN.md's Open Question
// resolution).
func isExported(name, content, language string) bool {
	switch language {
	case "go":
		return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
	case "typescript", "tsx", "javascript", "jsx":
		return strings.HasPrefix(strings.TrimSpace(content), "export")
	case "python":
		return !pythonPrivateRe.MatchString(name)
	default:
		return true
	}
}

// Imports implements StructuralExtractor by walking top-level statements
// for the language's import node types and extracting the literal path.
func (e *TreeSitterExtractor) Imports(source []byte, language string) ([]Import, error) {
	spec, ok := defaultRegistry.byName(language)
	if !ok {
		return nil, nil
	}

	root, err := parseTree(context.Background(), source, language)
	if err != nil {
		return nil, err
	}

	var imports []Import
	for _, top := range root.Children {
		if !contains(spec.importTypes, top.Type) {
			continue
		}
		for _, path := range importPaths(top, source, language) {
			imports = append(imports, Import{Path: path, StartLine: top.StartLine})
		}
	}
	return imports, nil
}

// importPaths extracts the literal path(s) named by one import
// statement/declaration node. Go import declarations can hold multiple
// specs in a parenthesized block; other languages hold exactly one. Python
// names its module as a bare dotted_name, not a string literal, unlike
// every other supported language.
func importPaths(n *node, source []byte, language string) []string {
	if language == "python" {
		var names []string
		n.walk(func(child *node) bool {
			if child.Type == "dotted_name" {
				names = append(names, child.content(source))
				return false
			}
			return true
		})
		return names
	}

	var paths []string
	n.walk(func(child *node) bool {
		if child.Type == "interpreted_string_literal" || child.Type == "string" {
			paths = append(paths, strings.Trim(child.content(source), "\"'`"))
			return false
		}
		return true
	})
	return paths
}
