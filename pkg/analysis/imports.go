package analysis

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/project"
)

// ImportBinding is one name made available in a file by an import
// statement.
type ImportBinding struct {
	// LocalName is the name the file uses, after aliasing.
	LocalName string
	// Imported is the exported name at the source module. Empty for
	// namespace and default imports.
	Imported string
	// Source is the module specifier exactly as written.
	Source string
	// IsNamespace marks `import * as ns` bindings.
	IsNamespace bool
	// IsDefault marks `import def from` bindings.
	IsDefault bool
	// Statement is the enclosing import_statement node.
	Statement *tree_sitter.Node
	// Node is the specifier or binding identifier node.
	Node *tree_sitter.Node
}

// ReExport is one entry of an `export { ... } from "..."` clause, or of a
// local `export { ... }` clause when Source is empty.
type ReExport struct {
	Name      string
	Alias     string
	Source    string
	Specifier *tree_sitter.Node
	Statement *tree_sitter.Node
}

// stringValue extracts the unquoted value of a string literal node.
func stringValue(sf *project.SourceFile, str *tree_sitter.Node) string {
	for i := uint(0); i < str.ChildCount(); i++ {
		child := str.Child(i)
		if child.Kind() == "string_fragment" {
			return sf.NodeText(child)
		}
	}
	// Empty string literal has no fragment child.
	return strings.Trim(sf.NodeText(str), "'\"`")
}

// ScanImports collects every import binding declared in a file.
func ScanImports(sf *project.SourceFile) []ImportBinding {
	var bindings []ImportBinding
	root := sf.Root()
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt.Kind() != "import_statement" {
			continue
		}
		src := stmt.ChildByFieldName("source")
		if src == nil {
			continue
		}
		source := stringValue(sf, src)

		for j := uint(0); j < stmt.ChildCount(); j++ {
			clause := stmt.Child(j)
			if clause.Kind() != "import_clause" {
				continue
			}
			bindings = append(bindings, clauseBindings(sf, clause, source, stmt)...)
		}
	}
	return bindings
}

// clauseBindings expands a single import clause into its bindings.
func clauseBindings(sf *project.SourceFile, clause *tree_sitter.Node, source string, stmt *tree_sitter.Node) []ImportBinding {
	var bindings []ImportBinding
	for i := uint(0); i < clause.ChildCount(); i++ {
		part := clause.Child(i)
		switch part.Kind() {
		case "identifier":
			bindings = append(bindings, ImportBinding{
				LocalName: sf.NodeText(part),
				Source:    source,
				IsDefault: true,
				Statement: stmt,
				Node:      part,
			})
		case "namespace_import":
			for k := uint(0); k < part.ChildCount(); k++ {
				if id := part.Child(k); id.Kind() == "identifier" {
					bindings = append(bindings, ImportBinding{
						LocalName:   sf.NodeText(id),
						Source:      source,
						IsNamespace: true,
						Statement:   stmt,
						Node:        id,
					})
				}
			}
		case "named_imports":
			for k := uint(0); k < part.ChildCount(); k++ {
				spec := part.Child(k)
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				binding := ImportBinding{
					LocalName: sf.NodeText(name),
					Imported:  sf.NodeText(name),
					Source:    source,
					Statement: stmt,
					Node:      spec,
				}
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					binding.LocalName = sf.NodeText(alias)
				}
				bindings = append(bindings, binding)
			}
		}
	}
	return bindings
}

// ScanReExports collects export clause entries, both re-exports with a
// source module and local export lists.
func ScanReExports(sf *project.SourceFile) []ReExport {
	var entries []ReExport
	root := sf.Root()
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt.Kind() != "export_statement" {
			continue
		}
		source := ""
		if src := stmt.ChildByFieldName("source"); src != nil {
			source = stringValue(sf, src)
		}
		for j := uint(0); j < stmt.ChildCount(); j++ {
			clause := stmt.Child(j)
			if clause.Kind() != "export_clause" {
				continue
			}
			for k := uint(0); k < clause.ChildCount(); k++ {
				spec := clause.Child(k)
				if spec.Kind() != "export_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				entry := ReExport{
					Name:      sf.NodeText(name),
					Source:    source,
					Specifier: spec,
					Statement: stmt,
				}
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					entry.Alias = sf.NodeText(alias)
				}
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// ModuleRef is one module specifier a file references, along with the
// statement carrying it.
type ModuleRef struct {
	Specifier string
	// IsExport marks `export ... from` statements.
	IsExport  bool
	Statement *tree_sitter.Node
}

// ScanModuleRefs collects every module specifier referenced by the
// file's import and export statements, one entry per statement. Unlike
// ScanImports it also reports side-effect imports and star re-exports,
// which bind no names.
func ScanModuleRefs(sf *project.SourceFile) []ModuleRef {
	var refs []ModuleRef
	root := sf.Root()
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		kind := stmt.Kind()
		if kind != "import_statement" && kind != "export_statement" {
			continue
		}
		src := stmt.ChildByFieldName("source")
		if src == nil {
			continue
		}
		refs = append(refs, ModuleRef{
			Specifier: stringValue(sf, src),
			IsExport:  kind == "export_statement",
			Statement: stmt,
		})
	}
	return refs
}

// BindingsFrom filters a file's imports down to those whose source
// resolves to the given absolute file path.
func BindingsFrom(p *project.Project, sf *project.SourceFile, targetAbs string) []ImportBinding {
	var matched []ImportBinding
	for _, binding := range ScanImports(sf) {
		resolved, ok := p.ResolveImport(sf.Path, binding.Source)
		if ok && resolved == targetAbs {
			matched = append(matched, binding)
		}
	}
	return matched
}

// NamedImportFrom returns the first import statement in sf importing from
// the given absolute path with a named-imports clause, for merging new
// names into.
func NamedImportFrom(p *project.Project, sf *project.SourceFile, targetAbs string) *tree_sitter.Node {
	for _, binding := range BindingsFrom(p, sf, targetAbs) {
		if binding.IsNamespace || binding.IsDefault {
			continue
		}
		return binding.Statement
	}
	return nil
}
