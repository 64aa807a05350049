package refactor

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// boundNames returns every name bound at a file's module scope, top-level
// declarations and import bindings both.
func boundNames(sf *project.SourceFile) map[string]bool {
	names := make(map[string]bool)
	for _, d := range analysis.TopLevelDeclarations(sf) {
		names[d.Name] = true
	}
	for _, b := range analysis.ScanImports(sf) {
		if b.LocalName != "" {
			names[b.LocalName] = true
		}
	}
	return names
}

// freeName returns name when it is unbound, otherwise the first numbered
// variant that is.
func freeName(bound map[string]bool, name string) string {
	if !bound[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if !bound[candidate] {
			return candidate
		}
	}
}

func specifierText(exported, local string) string {
	if local == "" || local == exported {
		return exported
	}
	return exported + " as " + local
}

func localNameOf(spec string) string {
	if i := strings.LastIndex(spec, " as "); i >= 0 {
		return spec[i+4:]
	}
	return spec
}

// importPlan makes the named specifiers importable in sf. moduleKey
// identifies the module when matching existing imports: an absolute
// project path, or the bare specifier verbatim. moduleSpec is what a newly
// written statement says. Specifiers whose local name the module already
// provides are skipped; the rest merge into an existing named import when
// one exists, otherwise the statement text comes back for the caller to
// place with insertWithImports.
func importPlan(p *project.Project, sf *project.SourceFile, moduleKey, moduleSpec string, specifiers []string) ([]types.Change, string) {
	stmt, locals := findNamedImport(p, sf, moduleKey)

	var missing []string
	for _, spec := range specifiers {
		if !locals[localNameOf(spec)] {
			missing = append(missing, spec)
		}
	}
	if len(missing) == 0 {
		return nil, ""
	}

	if stmt != nil {
		if change, ok := mergeIntoNamedImport(sf, stmt, missing); ok {
			return []types.Change{change}, ""
		}
	}
	return nil, fmt.Sprintf("import { %s } from %q;", strings.Join(missing, ", "), moduleSpec)
}

// findNamedImport locates the first import statement with a named clause
// importing from the module, along with every local name any import of
// that module binds.
func findNamedImport(p *project.Project, sf *project.SourceFile, moduleKey string) (*tree_sitter.Node, map[string]bool) {
	locals := make(map[string]bool)
	var stmt *tree_sitter.Node
	for _, b := range analysis.ScanImports(sf) {
		if !moduleMatches(p, sf, b.Source, moduleKey) {
			continue
		}
		if b.LocalName != "" {
			locals[b.LocalName] = true
		}
		if stmt == nil && !b.IsDefault && !b.IsNamespace && b.Imported != "" {
			stmt = b.Statement
		}
	}
	return stmt, locals
}

// moduleMatches reports whether an import source written in sf refers to
// moduleKey, an absolute file path for project modules or the specifier
// itself for package imports.
func moduleMatches(p *project.Project, sf *project.SourceFile, source, moduleKey string) bool {
	if source == moduleKey {
		return true
	}
	if !project.IsRelativeSpecifier(source) {
		return false
	}
	abs, ok := p.ResolveImport(sf.Path, source)
	return ok && abs == moduleKey
}

// mergeIntoNamedImport appends specifiers after the last one of an
// existing named import clause.
func mergeIntoNamedImport(sf *project.SourceFile, stmt *tree_sitter.Node, specifiers []string) (types.Change, bool) {
	clause := childOfKind(stmt, "import_clause")
	if clause == nil {
		return types.Change{}, false
	}
	named := childOfKind(clause, "named_imports")
	if named == nil {
		return types.Change{}, false
	}
	var last *tree_sitter.Node
	for i := uint(0); i < named.ChildCount(); i++ {
		if child := named.Child(i); child.Kind() == "import_specifier" {
			last = child
		}
	}
	if last == nil {
		return types.Change{}, false
	}
	at := int(last.EndByte())
	return types.Change{
		File:        sf.Path,
		Start:       at,
		End:         at,
		NewText:     ", " + strings.Join(specifiers, ", "),
		Description: fmt.Sprintf("Import %s", strings.Join(specifiers, ", ")),
	}, true
}

func childOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

// insertWithImports returns a change placing stmtText among the file's
// imports. The anchor is the line start of the first import statement: a
// zero-width insertion there stays disjoint from any statement removal in
// the same change set, which can only begin at that offset, never cross
// it.
func insertWithImports(sf *project.SourceFile, stmtText string) types.Change {
	at := 0
	root := sf.Root()
	for i := uint(0); i < root.ChildCount(); i++ {
		if child := root.Child(i); child.Kind() == "import_statement" {
			at = int(child.StartByte())
			for at > 0 && sf.Text[at-1] != '\n' {
				at--
			}
			break
		}
	}
	return types.Change{
		File:        sf.Path,
		Start:       at,
		End:         at,
		NewText:     stmtText + "\n",
		Description: fmt.Sprintf("Add %s", truncate(stmtText)),
	}
}

// removeSpecifier removes one specifier from its import or export clause,
// taking the whole statement when it is the only one left.
func removeSpecifier(sf *project.SourceFile, spec *tree_sitter.Node, description string) types.Change {
	clause := spec.Parent()
	count := 0
	for i := uint(0); i < clause.ChildCount(); i++ {
		if clause.Child(i).Kind() == spec.Kind() {
			count++
		}
	}

	content := sf.Text
	var start, end int
	if count <= 1 {
		stmt := clause
		for stmt != nil && stmt.Kind() != "import_statement" && stmt.Kind() != "export_statement" {
			stmt = stmt.Parent()
		}
		if stmt == nil {
			stmt = clause
		}
		start, end = statementRemovalRange(content, int(stmt.StartByte()), int(stmt.EndByte()))
	} else {
		start, end = removeWithSeparator(content, spec)
	}
	return types.Change{
		File:        sf.Path,
		Start:       start,
		End:         end,
		OldText:     content[start:end],
		Description: description,
	}
}

// statementRemovalRange widens a statement span to whole lines, newline
// left behind included.
func statementRemovalRange(content string, start, end int) (int, int) {
	for start > 0 && content[start-1] != '\n' {
		start--
	}
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return start, end
}

// removeWithSeparator widens a list element's span to swallow one
// adjoining comma, preferring the trailing one so the leading element of a
// list keeps its shape.
func removeWithSeparator(content string, node *tree_sitter.Node) (int, int) {
	start := int(node.StartByte())
	end := int(node.EndByte())

	i := end
	for i < len(content) && (content[i] == ' ' || content[i] == '\t') {
		i++
	}
	if i < len(content) && content[i] == ',' {
		end = i + 1
		for end < len(content) && (content[end] == ' ' || content[end] == '\t') {
			end++
		}
		if end < len(content) && content[end] == '\n' {
			end++
			for end < len(content) && (content[end] == ' ' || content[end] == '\t') {
				end++
			}
		}
		return start, end
	}

	j := start - 1
	for j >= 0 && (content[j] == ' ' || content[j] == '\t' || content[j] == '\n' || content[j] == '\r') {
		j--
	}
	if j >= 0 && content[j] == ',' {
		start = j
	}
	return start, end
}
