package analysis

import (
	"log/slog"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// scaffoldingMarkers flag comments that belong to tooling or generated
// code rather than the symbol, and must not travel with a move.
var scaffoldingMarkers = []string{
	"@ts-nocheck",
	"@ts-expect-error",
	"eslint-disable",
	"AUTO-GENERATED",
	"<auto-sync>",
	"TODO(codegen)",
}

// maxCommentGap is the largest line distance between a comment and the
// declaration below it for the comment to count as attached.
const maxCommentGap = 2

// TypeDecl is one same-file type declaration that accompanies a moved
// symbol.
type TypeDecl struct {
	Name     string
	Text     string
	Exported bool
}

// Extraction is the payload produced for one declaration: the wire shape
// plus the pieces movers recombine.
type Extraction struct {
	types.ExtractedSymbol
	// OwnText is the symbol's own declaration text with its export
	// keyword normalized to its true export status.
	OwnText string
	// TypeDecls carries the full text and export status for every entry
	// in Dependencies.Types, in the same order.
	TypeDecls []TypeDecl
}

// DependencyExtractor computes what a declaration needs to stand alone in
// another file.
type DependencyExtractor struct {
	project *project.Project
	logger  *slog.Logger
}

func NewDependencyExtractor(p *project.Project, logger *slog.Logger) *DependencyExtractor {
	return &DependencyExtractor{
		project: p,
		logger:  logger,
	}
}

// ExtractDependencies walks every identifier the declaration references
// and resolves each against the file's declarations and imports. Same-file
// type declarations are recorded with recursion into their own references;
// same-file values become local references; imported names map to their
// origin module.
func (de *DependencyExtractor) ExtractDependencies(decl *Declaration) types.Dependencies {
	deps, _ := de.collect(decl)
	return deps
}

// ExtractSymbol assembles the self-contained payload for a declaration.
// The caller supplies the true export status, which may come from an
// export clause elsewhere in the file.
func (de *DependencyExtractor) ExtractSymbol(decl *Declaration, isExported bool) *Extraction {
	deps, typeDecls := de.collect(decl)
	comments := de.leadingComments(decl)
	ownText := normalizeExport(declarationText(decl), isExported)

	var parts []string
	parts = append(parts, comments...)
	for _, td := range typeDecls {
		parts = append(parts, td.Text)
	}
	parts = append(parts, ownText)

	de.logger.Debug("extracted symbol",
		"symbol", decl.Name,
		"types", len(typeDecls),
		"imports", len(deps.Imports),
		"localRefs", len(deps.LocalReferences))

	return &Extraction{
		ExtractedSymbol: types.ExtractedSymbol{
			Text:            strings.Join(parts, "\n\n"),
			LeadingComments: comments,
			Dependencies:    deps,
			IsExported:      isExported,
		},
		OwnText:   ownText,
		TypeDecls: typeDecls,
	}
}

// collect gathers the dependency sets for a declaration, recursing through
// same-file type dependencies with a visited set to stay cycle-safe.
func (de *DependencyExtractor) collect(decl *Declaration) (types.Dependencies, []TypeDecl) {
	deps := types.Dependencies{Imports: make(map[string]string)}
	var typeDecls []TypeDecl

	fileDecls := make(map[string]*Declaration)
	for _, d := range TopLevelDeclarations(decl.File) {
		if _, ok := fileDecls[d.Name]; !ok {
			fileDecls[d.Name] = d
		}
	}

	imports := make(map[string]string)
	for _, binding := range ScanImports(decl.File) {
		imports[binding.LocalName] = binding.Source
	}

	visited := map[string]bool{decl.Name: true}
	localSeen := make(map[string]bool)

	var resolve func(node *tree_sitter.Node, selfName string)
	resolve = func(node *tree_sitter.Node, selfName string) {
		for _, name := range referencedIdentifiers(decl.File, node, selfName) {
			if target, ok := fileDecls[name]; ok && target.Name != decl.Name {
				if typeLikeKinds[target.Kind] {
					if visited[name] {
						continue
					}
					visited[name] = true
					deps.Types = append(deps.Types, name)
					typeDecls = append(typeDecls, TypeDecl{
						Name:     name,
						Text:     target.StatementText(),
						Exported: isExportedNode(target.Node),
					})
					resolve(target.Node, name)
					continue
				}
				if !localSeen[name] {
					localSeen[name] = true
					deps.LocalReferences = append(deps.LocalReferences, name)
				}
				continue
			}
			if source, ok := imports[name]; ok {
				deps.Imports[name] = source
				continue
			}
			if !ambientGlobals[name] {
				de.logger.Debug("unresolved identifier left behind",
					"name", name, "symbol", decl.Name)
			}
		}
	}
	resolve(decl.Node, decl.Name)

	return deps, typeDecls
}

// referencedIdentifiers lists the distinct identifiers a declaration
// references, in document order, excluding property accesses, object
// keys, binding positions, and primitive names.
func referencedIdentifiers(sf *project.SourceFile, node *tree_sitter.Node, selfName string) []string {
	seen := make(map[string]bool)
	var names []string
	ownName := nameNode(node)

	walk(node, func(n *tree_sitter.Node) bool {
		if !identifierKinds[n.Kind()] {
			return true
		}
		text := sf.NodeText(n)
		if text == selfName || primitiveNames[text] || seen[text] {
			return true
		}
		if ownName != nil && sameNode(n, ownName) {
			return true
		}

		parent := n.Parent()
		if parent != nil {
			switch parent.Kind() {
			case "member_expression":
				if sameNode(parent.ChildByFieldName("property"), n) {
					return true
				}
			case "pair":
				if sameNode(parent.ChildByFieldName("key"), n) {
					return true
				}
			case "nested_type_identifier":
				if sameNode(parent.ChildByFieldName("name"), n) {
					return true
				}
			}
			if isBindingPosition(n, parent) {
				return true
			}
		}

		seen[text] = true
		names = append(names, text)
		return true
	})
	return names
}

// leadingComments collects the comment block attached above a declaration
// statement, dropping scaffolding markers. Comments further than
// maxCommentGap lines away are not attached.
func (de *DependencyExtractor) leadingComments(decl *Declaration) []string {
	sf := decl.File
	stmt := decl.Statement()

	var comments []string
	nextRow := int(stmt.StartPosition().Row)
	for prev := stmt.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "comment" {
			break
		}
		gap := nextRow - int(prev.EndPosition().Row)
		if gap > maxCommentGap {
			break
		}
		text := sf.NodeText(prev)
		if !isScaffolding(text) {
			comments = append([]string{text}, comments...)
		}
		nextRow = int(prev.StartPosition().Row)
	}
	return comments
}

func isScaffolding(comment string) bool {
	for _, marker := range scaffoldingMarkers {
		if strings.Contains(comment, marker) {
			return true
		}
	}
	return false
}

// AttachedCommentStart returns the byte offset where the comment chain
// attached above stmt begins, scaffolding included, or stmt's own start
// when no comment is attached. Removal ranges use this so a deleted
// declaration takes its comments with it.
func AttachedCommentStart(sf *project.SourceFile, stmt *tree_sitter.Node) int {
	start := int(stmt.StartByte())
	nextRow := int(stmt.StartPosition().Row)
	for prev := stmt.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "comment" {
			break
		}
		if nextRow-int(prev.EndPosition().Row) > maxCommentGap {
			break
		}
		start = int(prev.StartByte())
		nextRow = int(prev.StartPosition().Row)
	}
	return start
}

// declarationText returns the movable text of a declaration without any
// export wrapper. Variable declarators that share a statement with other
// declarators are rebuilt as a standalone statement.
func declarationText(decl *Declaration) string {
	sf := decl.File
	if decl.Kind != types.VariableSymbol {
		return decl.Text()
	}

	stmt := decl.Node.Parent()
	if stmt == nil {
		return decl.Text()
	}
	declarators := variableDeclarators(stmt)
	if len(declarators) == 1 {
		return sf.NodeText(stmt)
	}

	keyword := "const"
	if first := stmt.Child(0); first != nil {
		keyword = sf.NodeText(first)
	}
	return keyword + " " + decl.Text() + ";"
}

// normalizeExport makes the export keyword reflect the symbol's true
// export status.
func normalizeExport(text string, isExported bool) string {
	hasExport := strings.HasPrefix(text, "export ")
	if isExported && !hasExport {
		return "export " + text
	}
	if !isExported && hasExport {
		return strings.TrimPrefix(text, "export ")
	}
	return text
}
