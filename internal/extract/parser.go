package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// node is our own copy of the tree-sitter AST, detached from the parser's
// internal tree once parsing completes, so it can be walked freely without
// holding a reference to the tree-sitter tree.
type node struct {
	Type      string
	StartByte int
	EndByte   int
	StartLine int // 1-indexed
	EndLine   int // 1-indexed
	Children  []*node
}

func (n *node) content(source []byte) string {
	if n.StartByte >= n.EndByte || n.EndByte > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

func (n *node) firstChildOfType(t string) *node {
	for _, c := range n.Children {
		if c.Type == t {
			return c
		}
	}
	return nil
}

func (n *node) walk(fn func(*node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// parseTree parses source with the tree-sitter grammar for language and
// returns our detached node tree rooted at the file.
func parseTree(ctx context.Context, source []byte, language string) (*node, error) {
	grammar, ok := defaultRegistry.grammarFor(language)
	if !ok {
		return nil, fmt.Errorf("extract: unsupported language %q", language)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("extract: parse failed: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("extract: parse produced a nil tree")
	}

	return convert(tree.RootNode()), nil
}

func convert(tsNode *sitter.Node) *node {
	if tsNode == nil {
		return nil
	}
	n := &node{
		Type:      tsNode.Type(),
		StartByte: int(tsNode.StartByte()),
		EndByte:   int(tsNode.EndByte()),
		StartLine: int(tsNode.StartPoint().Row) + 1,
		EndLine:   int(tsNode.EndPoint().Row) + 1,
		Children:  make([]*node, 0, int(tsNode.ChildCount())),
	}
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if child := tsNode.Child(i); child != nil {
			n.Children = append(n.Children, convert(child))
		}
	}
	return n
}
