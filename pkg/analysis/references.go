package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// Occurrence is one syntactic mention of a symbol name somewhere in the
// project, classified by position so callers can filter or rewrite it.
type Occurrence struct {
	File  *project.SourceFile
	Start int
	End   int
	Line  int

	SameFile          bool
	IsDeclarationName bool
	InOwnBody         bool
	InImportClause    bool
	InExportClause    bool
}

// identifierKinds are the leaf node kinds that can mention a symbol by
// name in value or type position.
var identifierKinds = newStringSet(
	"identifier", "type_identifier", "shorthand_property_identifier",
)

// FindOccurrences enumerates every syntactic occurrence of the declared
// symbol across the project. Files are visited in sorted path order, the
// declaring file included. Aliased bindings in other files are matched at
// their import specifier only, since local uses go through the alias.
func FindOccurrences(p *project.Project, decl *Declaration) []Occurrence {
	if decl.Kind == types.MethodSymbol || decl.Kind == types.PropertySymbol {
		return memberOccurrences(p, decl)
	}

	var occurrences []Occurrence
	for _, path := range p.ListFiles() {
		sf, ok := p.File(path)
		if !ok {
			continue
		}
		if sf.Path == decl.File.Path {
			occurrences = append(occurrences, sameFileOccurrences(decl)...)
		} else {
			occurrences = append(occurrences, crossFileOccurrences(p, decl, sf)...)
		}
	}
	return occurrences
}

// sameFileOccurrences scans the declaring file. Local variables are only
// searched within their enclosing function body.
func sameFileOccurrences(decl *Declaration) []Occurrence {
	sf := decl.File
	root := sf.Root()
	if !decl.TopLevel && decl.Kind == types.VariableSymbol {
		if fn := enclosingFunction(decl.Node); fn != nil {
			root = fn
		}
	}

	declName := nameNode(decl.Node)
	var occurrences []Occurrence
	walk(root, func(n *tree_sitter.Node) bool {
		// A file cannot reference its own top-level symbol through an
		// import, and a sourced re-export names another module's symbol.
		if n.Kind() == "import_statement" {
			return false
		}
		if n.Kind() == "export_statement" && n.ChildByFieldName("source") != nil {
			return false
		}
		if !identifierKinds[n.Kind()] || sf.NodeText(n) != decl.Name {
			return true
		}

		occ, ok := classify(sf, n, decl, declName)
		if ok {
			occ.SameFile = true
			occurrences = append(occurrences, occ)
		}
		return true
	})
	return occurrences
}

// crossFileOccurrences scans one other file. Occurrences exist only where
// the file actually binds the symbol from the declaring module: named
// import specifiers, bare uses under an unaliased named import, uses
// qualified by a namespace import, and re-export clause entries.
func crossFileOccurrences(p *project.Project, decl *Declaration, sf *project.SourceFile) []Occurrence {
	var occurrences []Occurrence

	var namedUnaliased bool
	var namespaceNames []string
	for _, binding := range BindingsFrom(p, sf, decl.File.Path) {
		if binding.IsNamespace {
			namespaceNames = append(namespaceNames, binding.LocalName)
			continue
		}
		if binding.IsDefault {
			continue
		}
		if binding.Imported != decl.Name {
			continue
		}
		if name := nameNode(binding.Node); name != nil {
			occurrences = append(occurrences, Occurrence{
				File:           sf,
				Start:          int(name.StartByte()),
				End:            int(name.EndByte()),
				Line:           int(name.StartPosition().Row) + 1,
				InImportClause: true,
			})
		}
		if binding.LocalName == decl.Name {
			namedUnaliased = true
		}
	}

	for _, entry := range ScanReExports(sf) {
		if entry.Name != decl.Name || entry.Source == "" {
			continue
		}
		resolved, ok := p.ResolveImport(sf.Path, entry.Source)
		if !ok || resolved != decl.File.Path {
			continue
		}
		if name := nameNode(entry.Specifier); name != nil {
			occurrences = append(occurrences, Occurrence{
				File:           sf,
				Start:          int(name.StartByte()),
				End:            int(name.EndByte()),
				Line:           int(name.StartPosition().Row) + 1,
				InExportClause: true,
			})
		}
	}

	if namedUnaliased {
		walk(sf.Root(), func(n *tree_sitter.Node) bool {
			// Import clauses were handled above; sourced re-exports name
			// the source module's symbols directly.
			if n.Kind() == "import_statement" {
				return false
			}
			if n.Kind() == "export_statement" && n.ChildByFieldName("source") != nil {
				return false
			}
			if !identifierKinds[n.Kind()] || sf.NodeText(n) != decl.Name {
				return true
			}
			if occ, ok := classify(sf, n, nil, nil); ok {
				occurrences = append(occurrences, occ)
			}
			return true
		})
	}

	for _, ns := range namespaceNames {
		occurrences = append(occurrences, qualifiedOccurrences(sf, ns, decl.Name)...)
	}

	return occurrences
}

// qualifiedOccurrences finds `ns.name` accesses for a namespace import
// binding, in both value position (member expressions) and type position
// (nested type identifiers).
func qualifiedOccurrences(sf *project.SourceFile, nsName, symName string) []Occurrence {
	var occurrences []Occurrence
	record := func(property *tree_sitter.Node) {
		occurrences = append(occurrences, Occurrence{
			File:  sf,
			Start: int(property.StartByte()),
			End:   int(property.EndByte()),
			Line:  int(property.StartPosition().Row) + 1,
		})
	}

	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "member_expression":
			object := n.ChildByFieldName("object")
			property := n.ChildByFieldName("property")
			if object == nil || property == nil {
				return true
			}
			if object.Kind() == "identifier" && sf.NodeText(object) == nsName && sf.NodeText(property) == symName {
				record(property)
			}
		case "nested_type_identifier":
			module := n.ChildByFieldName("module")
			name := n.ChildByFieldName("name")
			if module == nil || name == nil {
				return true
			}
			if module.Kind() == "identifier" && sf.NodeText(module) == nsName && sf.NodeText(name) == symName {
				record(name)
			}
		}
		return true
	})
	return occurrences
}

// QualifiedUses returns the full member_expression and
// nested_type_identifier nodes spelling ns.name, for callers that rewrite
// the whole qualified reference rather than just the name part.
func QualifiedUses(sf *project.SourceFile, nsName, symName string) []*tree_sitter.Node {
	var nodes []*tree_sitter.Node
	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "member_expression":
			object := n.ChildByFieldName("object")
			property := n.ChildByFieldName("property")
			if object != nil && property != nil &&
				object.Kind() == "identifier" && sf.NodeText(object) == nsName && sf.NodeText(property) == symName {
				nodes = append(nodes, n)
				return false
			}
		case "nested_type_identifier":
			module := n.ChildByFieldName("module")
			name := n.ChildByFieldName("name")
			if module != nil && name != nil &&
				module.Kind() == "identifier" && sf.NodeText(module) == nsName && sf.NodeText(name) == symName {
				nodes = append(nodes, n)
				return false
			}
		}
		return true
	})
	return nodes
}

// BareUses returns identifier nodes referring to name in value or type
// position, skipping declaration names, binding positions, member
// accesses, object keys and import/export clauses.
func BareUses(sf *project.SourceFile, name string) []*tree_sitter.Node {
	var nodes []*tree_sitter.Node
	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "import_statement" {
			return false
		}
		if !identifierKinds[n.Kind()] || sf.NodeText(n) != name {
			return true
		}
		occ, ok := classify(sf, n, nil, nil)
		if ok && !occ.IsDeclarationName && !occ.InImportClause && !occ.InExportClause {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// memberOccurrences handles method and property symbols, which are
// referenced through member access on a receiver rather than imports.
func memberOccurrences(p *project.Project, decl *Declaration) []Occurrence {
	declName := nameNode(decl.Node)
	var occurrences []Occurrence
	for _, path := range p.ListFiles() {
		sf, ok := p.File(path)
		if !ok {
			continue
		}
		sameFile := sf.Path == decl.File.Path

		walk(sf.Root(), func(n *tree_sitter.Node) bool {
			if n.Kind() != "property_identifier" || sf.NodeText(n) != decl.Name {
				return true
			}
			parent := n.Parent()
			if parent == nil {
				return true
			}

			occ := Occurrence{
				File:     sf,
				Start:    int(n.StartByte()),
				End:      int(n.EndByte()),
				Line:     int(n.StartPosition().Row) + 1,
				SameFile: sameFile,
			}
			if sameFile && declName != nil && sameNode(n, declName) {
				occ.IsDeclarationName = true
				occurrences = append(occurrences, occ)
				return true
			}
			if parent.Kind() == "member_expression" && sameNode(parent.ChildByFieldName("property"), n) {
				occ.InOwnBody = sameFile && within(n, decl.Node)
				occurrences = append(occurrences, occ)
			}
			// Everything else is an unrelated member of the same name or
			// an object key.
			return true
		})
	}
	return occurrences
}

// classify decides whether an identifier node is a real occurrence and
// labels its position. Returns false for positions that do not reference
// the symbol: property accesses, object keys, and name positions of
// unrelated declarations.
func classify(sf *project.SourceFile, n *tree_sitter.Node, decl *Declaration, declName *tree_sitter.Node) (Occurrence, bool) {
	occ := Occurrence{
		File:  sf,
		Start: int(n.StartByte()),
		End:   int(n.EndByte()),
		Line:  int(n.StartPosition().Row) + 1,
	}

	if declName != nil && n.StartByte() == declName.StartByte() && n.EndByte() == declName.EndByte() {
		occ.IsDeclarationName = true
		return occ, true
	}

	parent := n.Parent()
	if parent == nil {
		return occ, false
	}

	switch parent.Kind() {
	case "export_specifier":
		if sameNode(parent.ChildByFieldName("name"), n) {
			occ.InExportClause = true
			return occ, true
		}
		return occ, false
	case "import_specifier":
		if sameNode(parent.ChildByFieldName("name"), n) {
			occ.InImportClause = true
			return occ, true
		}
		return occ, false
	case "member_expression":
		// Property position accesses a member of some object, not the
		// symbol itself.
		if sameNode(parent.ChildByFieldName("property"), n) {
			return occ, false
		}
	case "pair":
		if sameNode(parent.ChildByFieldName("key"), n) {
			return occ, false
		}
	case "nested_type_identifier":
		// Qualified type like ns.Foo; the name part resolves through the
		// namespace, not as a bare binding.
		if sameNode(parent.ChildByFieldName("name"), n) {
			return occ, false
		}
	case "nested_identifier":
		// Inner segments of a qualified name; only the head is a bare
		// reference.
		if parent.Child(0) == nil || !sameNode(parent.Child(0), n) {
			return occ, false
		}
	}

	// Name positions of other declarations introduce new bindings.
	if isBindingPosition(n, parent) {
		return occ, false
	}

	if decl != nil && within(n, decl.Node) {
		occ.InOwnBody = true
	}
	return occ, true
}

// isBindingPosition reports whether n is the name being declared by its
// parent rather than a use.
func isBindingPosition(n, parent *tree_sitter.Node) bool {
	kind := parent.Kind()
	if _, ok := declarationKinds[kind]; ok {
		return sameNode(parent.ChildByFieldName("name"), n)
	}
	if _, ok := memberKinds[kind]; ok {
		return sameNode(parent.ChildByFieldName("name"), n)
	}
	switch kind {
	case "variable_declarator":
		return sameNode(parent.ChildByFieldName("name"), n)
	case "required_parameter", "optional_parameter":
		return sameNode(parent.ChildByFieldName("pattern"), n)
	case "arrow_function":
		return sameNode(parent.ChildByFieldName("parameter"), n)
	case "type_parameter":
		return sameNode(parent.ChildByFieldName("name"), n)
	case "namespace_import":
		return true
	case "import_clause":
		// Default import binding.
		return true
	}
	return false
}

// sameNode compares two nodes by byte range.
func sameNode(a, b *tree_sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// within reports whether n lies inside the byte range of container.
func within(n, container *tree_sitter.Node) bool {
	return n.StartByte() >= container.StartByte() && n.EndByte() <= container.EndByte()
}

// enclosingFunction climbs to the nearest function-like ancestor.
func enclosingFunction(n *tree_sitter.Node) *tree_sitter.Node {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "function_declaration", "generator_function_declaration",
			"function_expression", "arrow_function", "method_definition":
			return cur
		}
	}
	return nil
}

// ExternalReferences returns the references that survive the three
// filters: the declaration site itself, references nested inside the
// declaration's own body, and references living only in export clauses.
// What remains is what blocks removal and what move and rename rewrite in
// other files.
func ExternalReferences(p *project.Project, decl *Declaration) []types.ReferenceInfo {
	var refs []types.ReferenceInfo
	for _, occ := range FindOccurrences(p, decl) {
		if occ.IsDeclarationName || occ.InOwnBody || occ.InExportClause {
			continue
		}
		refs = append(refs, types.ReferenceInfo{
			FilePath:         occ.File.Path,
			Line:             occ.Line,
			IsInSameFile:     occ.SameFile,
			IsInExportClause: occ.InExportClause,
			Start:            occ.Start,
			End:              occ.End,
		})
	}
	return refs
}
