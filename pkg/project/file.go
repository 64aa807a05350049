package project

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"tsrefactor/pkg/types"
)

// SourceFile is an in-memory TypeScript file with its parse tree. Text is
// the authoritative content; the tree is reparsed whenever Text changes.
type SourceFile struct {
	// Path is the absolute path used as the registry key.
	Path string
	// Text is the current buffer content, which may be ahead of disk.
	Text string
	// Tree is the parse tree for Text.
	Tree *tree_sitter.Tree
	// Hash is the xxhash of the content as last seen on disk.
	Hash uint64

	dirty bool
}

// parseTypeScript parses content with the TypeScript grammar. Both .ts and
// .tsx files go through the same grammar. The returned tree must be closed
// by the caller.
func parseTypeScript(path string, content []byte) (*tree_sitter.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	lang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	if err := parser.SetLanguage(lang); err != nil {
		return nil, types.NewError(types.ParseError, "failed to set language for %s: %v", path, err)
	}

	// The parser may retain the buffer, so hand it a private copy.
	buf := make([]byte, len(content))
	copy(buf, content)

	tree := parser.Parse(buf, nil)
	if tree == nil {
		return nil, types.NewError(types.ParseError, "failed to parse %s", path)
	}
	return tree, nil
}

// NewSourceFile parses content and wraps it as a SourceFile.
func NewSourceFile(path, content string) (*SourceFile, error) {
	tree, err := parseTypeScript(path, []byte(content))
	if err != nil {
		return nil, err
	}
	return &SourceFile{
		Path: path,
		Text: content,
		Tree: tree,
		Hash: xxhash.Sum64String(content),
	}, nil
}

// SetText replaces the buffer content and reparses. The file is marked
// dirty until the next Persist.
func (sf *SourceFile) SetText(content string) error {
	tree, err := parseTypeScript(sf.Path, []byte(content))
	if err != nil {
		return err
	}
	if sf.Tree != nil {
		sf.Tree.Close()
	}
	sf.Text = content
	sf.Tree = tree
	sf.dirty = true
	return nil
}

// Root returns the root node of the parse tree.
func (sf *SourceFile) Root() *tree_sitter.Node {
	return sf.Tree.RootNode()
}

// NodeText returns the source text covered by a node.
func (sf *SourceFile) NodeText(n *tree_sitter.Node) string {
	return sf.Text[n.StartByte():n.EndByte()]
}

// Dirty reports whether the buffer has unsaved changes.
func (sf *SourceFile) Dirty() bool {
	return sf.dirty
}

// Position converts a byte offset into a 1-based line and column.
func (sf *SourceFile) Position(offset int) (line, column int) {
	if offset > len(sf.Text) {
		offset = len(sf.Text)
	}
	before := sf.Text[:offset]
	line = strings.Count(before, "\n") + 1
	if idx := strings.LastIndexByte(before, '\n'); idx >= 0 {
		column = offset - idx
	} else {
		column = offset + 1
	}
	return line, column
}

// Offset converts a 1-based line and column into a byte offset, clamped
// to the end of the line. Past-the-end lines map to the end of the text.
func (sf *SourceFile) Offset(line, column int) int {
	offset := 0
	for line > 1 {
		idx := strings.IndexByte(sf.Text[offset:], '\n')
		if idx < 0 {
			return len(sf.Text)
		}
		offset += idx + 1
		line--
	}
	end := len(sf.Text)
	if idx := strings.IndexByte(sf.Text[offset:], '\n'); idx >= 0 {
		end = offset + idx
	}
	if column > 0 {
		offset += column - 1
	}
	if offset > end {
		offset = end
	}
	return offset
}

// Close releases the parse tree.
func (sf *SourceFile) Close() {
	if sf.Tree != nil {
		sf.Tree.Close()
		sf.Tree = nil
	}
}
