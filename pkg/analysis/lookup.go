package analysis

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// Declaration is a named declaration located in a parsed file. The node is
// owned by the file's tree and becomes stale as soon as the file text
// changes, so declarations are re-resolved per operation rather than held
// across mutations.
type Declaration struct {
	File *project.SourceFile
	Node *tree_sitter.Node
	Name string
	Kind types.SymbolKind
	// TopLevel is true when the declaration statement sits directly under
	// the program root.
	TopLevel bool
}

// Statement returns the outermost statement node carrying the declaration,
// including an export wrapper when present.
func (d *Declaration) Statement() *tree_sitter.Node {
	return statementOf(d.Node)
}

// Handle returns the byte-offset handle for the declaration.
func (d *Declaration) Handle() types.NodeHandle {
	return handleFor(d.Node)
}

// Text returns the declaration's own source text.
func (d *Declaration) Text() string {
	return d.File.NodeText(d.Node)
}

// StatementText returns the full statement text including any export
// keyword.
func (d *Declaration) StatementText() string {
	return d.File.NodeText(d.Statement())
}

// FindDeclaration locates the declaration a selector names within one
// file. It returns nil when nothing matches; resolution errors are the
// caller's concern.
func FindDeclaration(sf *project.SourceFile, sel types.Selector) *Declaration {
	if sel.Scope != nil {
		return findScoped(sf, sel)
	}
	if sel.Kind == types.ExportSpecifierSymbol {
		return findExportSpecifier(sf, sel.Name)
	}

	candidates := topLevelByKind(sf, sel.Kind, sel.Name)
	if len(candidates) == 0 && (sel.Kind == types.MethodSymbol || sel.Kind == types.PropertySymbol) {
		// A bare member selector searches every container in the file.
		candidates = membersAnywhere(sf, sel.Kind, sel.Name)
	}
	return pickCandidate(candidates, sel.SignatureHint)
}

// pickCandidate applies signature-hint disambiguation across overloads.
func pickCandidate(candidates []*Declaration, hint string) *Declaration {
	if len(candidates) == 0 {
		return nil
	}
	if hint != "" {
		for _, cand := range candidates {
			if strings.Contains(cand.StatementText(), hint) {
				return cand
			}
		}
	}
	return candidates[0]
}

// topLevelByKind scans the program root for declarations of one kind and
// name. Variable lookups scan the declarators of every variable statement.
func topLevelByKind(sf *project.SourceFile, kind types.SymbolKind, name string) []*Declaration {
	var found []*Declaration
	root := sf.Root()
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		decl := unwrapExport(stmt)
		if decl == nil {
			continue
		}

		switch decl.Kind() {
		case "lexical_declaration", "variable_declaration":
			if kind != types.VariableSymbol {
				continue
			}
			for _, declarator := range variableDeclarators(decl) {
				if matchesName(sf, declarator, name) {
					found = append(found, &Declaration{
						File: sf, Node: declarator, Name: name,
						Kind: types.VariableSymbol, TopLevel: true,
					})
				}
			}
		default:
			declKind, ok := declarationKinds[decl.Kind()]
			if !ok || declKind != kind {
				continue
			}
			if matchesName(sf, decl, name) {
				found = append(found, &Declaration{
					File: sf, Node: decl, Name: name,
					Kind: declKind, TopLevel: true,
				})
			}
		}
	}
	return found
}

// findScoped resolves the scope container first and then the nested member
// within it.
func findScoped(sf *project.SourceFile, sel types.Selector) *Declaration {
	container := findContainer(sf, sel.Scope)
	if container == nil {
		return nil
	}

	if sel.Scope.Type == types.FunctionScope {
		return findLocalVariable(sf, container, sel.Name)
	}

	// Constructor lookup is a named special case.
	if sel.Name == "constructor" && sel.Scope.Type == types.ClassScope {
		return findConstructor(sf, container)
	}

	body := container.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	var candidates []*Declaration
	if sel.Scope.Type == types.NamespaceScope {
		// Namespace bodies nest ordinary declarations.
		candidates = namespaceMembers(sf, body, sel.Kind, sel.Name)
	} else {
		candidates = containerMembers(sf, body, sel.Kind, sel.Name)
	}
	return pickCandidate(candidates, sel.SignatureHint)
}

// findContainer locates a scope container declaration by type and name.
func findContainer(sf *project.SourceFile, scope *types.ScopeRef) *tree_sitter.Node {
	var kinds []string
	switch scope.Type {
	case types.ClassScope:
		kinds = []string{"class_declaration", "abstract_class_declaration"}
	case types.InterfaceScope:
		kinds = []string{"interface_declaration"}
	case types.FunctionScope:
		kinds = []string{"function_declaration", "generator_function_declaration"}
	case types.NamespaceScope:
		kinds = []string{"internal_module", "module"}
	default:
		return nil
	}

	var container *tree_sitter.Node
	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		if container != nil {
			return false
		}
		for _, kind := range kinds {
			if n.Kind() == kind && matchesName(sf, n, scope.Name) {
				container = n
				return false
			}
		}
		return true
	})
	return container
}

// ContainerOf reports the named scope holding a member declaration, or
// nil for top-level declarations.
func ContainerOf(decl *Declaration) *types.ScopeRef {
	if decl.TopLevel {
		return nil
	}
	for n := decl.Node.Parent(); n != nil; n = n.Parent() {
		var scopeType types.ScopeType
		switch n.Kind() {
		case "class_declaration", "abstract_class_declaration":
			scopeType = types.ClassScope
		case "interface_declaration":
			scopeType = types.InterfaceScope
		case "function_declaration", "generator_function_declaration":
			scopeType = types.FunctionScope
		case "internal_module", "module":
			scopeType = types.NamespaceScope
		default:
			continue
		}
		if nn := nameNode(n); nn != nil {
			return &types.ScopeRef{Type: scopeType, Name: decl.File.NodeText(nn)}
		}
	}
	return nil
}

// containerMembers collects matching members of a class or interface body.
func containerMembers(sf *project.SourceFile, body *tree_sitter.Node, kind types.SymbolKind, name string) []*Declaration {
	var found []*Declaration
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		memberKind, ok := memberKinds[member.Kind()]
		if !ok || memberKind != kind {
			continue
		}
		if matchesName(sf, member, name) {
			found = append(found, &Declaration{
				File: sf, Node: member, Name: name,
				Kind: memberKind, TopLevel: false,
			})
		}
	}
	return found
}

// namespaceMembers resolves declarations nested in a namespace body.
func namespaceMembers(sf *project.SourceFile, body *tree_sitter.Node, kind types.SymbolKind, name string) []*Declaration {
	var found []*Declaration
	for i := uint(0); i < body.ChildCount(); i++ {
		decl := unwrapExport(body.Child(i))
		if decl == nil {
			continue
		}
		if decl.Kind() == "lexical_declaration" || decl.Kind() == "variable_declaration" {
			if kind != types.VariableSymbol {
				continue
			}
			for _, declarator := range variableDeclarators(decl) {
				if matchesName(sf, declarator, name) {
					found = append(found, &Declaration{
						File: sf, Node: declarator, Name: name,
						Kind: types.VariableSymbol, TopLevel: false,
					})
				}
			}
			continue
		}
		declKind, ok := declarationKinds[decl.Kind()]
		if !ok || declKind != kind {
			continue
		}
		if matchesName(sf, decl, name) {
			found = append(found, &Declaration{
				File: sf, Node: decl, Name: name,
				Kind: declKind, TopLevel: false,
			})
		}
	}
	return found
}

// findConstructor returns the first constructor of a class.
func findConstructor(sf *project.SourceFile, class *tree_sitter.Node) *Declaration {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		if member.Kind() != "method_definition" {
			continue
		}
		if matchesName(sf, member, "constructor") {
			return &Declaration{
				File: sf, Node: member, Name: "constructor",
				Kind: types.MethodSymbol, TopLevel: false,
			}
		}
	}
	return nil
}

// findLocalVariable walks all descendant variable declarators of a
// function body looking for a name match.
func findLocalVariable(sf *project.SourceFile, fn *tree_sitter.Node, name string) *Declaration {
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var found *Declaration
	walk(body, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == "variable_declarator" && matchesName(sf, n, name) {
			found = &Declaration{
				File: sf, Node: n, Name: name,
				Kind: types.VariableSymbol, TopLevel: false,
			}
			return false
		}
		return true
	})
	return found
}

// membersAnywhere searches every class and interface body in the file for
// a member of the given kind and name.
func membersAnywhere(sf *project.SourceFile, kind types.SymbolKind, name string) []*Declaration {
	var found []*Declaration
	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		memberKind, ok := memberKinds[n.Kind()]
		if ok && memberKind == kind && matchesName(sf, n, name) {
			found = append(found, &Declaration{
				File: sf, Node: n, Name: name,
				Kind: memberKind, TopLevel: false,
			})
		}
		return true
	})
	return found
}

// findExportSpecifier locates an entry of an export clause by name,
// matching `export { name }` and `export { name } from "./mod"` alike.
func findExportSpecifier(sf *project.SourceFile, name string) *Declaration {
	var found *Declaration
	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() != "export_specifier" {
			return true
		}
		if matchesName(sf, n, name) {
			found = &Declaration{
				File: sf, Node: n, Name: name,
				Kind: types.ExportSpecifierSymbol, TopLevel: false,
			}
			return false
		}
		return true
	})
	return found
}

// matchesName reports whether a declaration's name field equals name.
func matchesName(sf *project.SourceFile, decl *tree_sitter.Node, name string) bool {
	nn := nameNode(decl)
	return nn != nil && sf.NodeText(nn) == name
}

// TopLevelDeclarations enumerates every top-level declaration in a file,
// in document order.
func TopLevelDeclarations(sf *project.SourceFile) []*Declaration {
	var decls []*Declaration
	root := sf.Root()
	for i := uint(0); i < root.ChildCount(); i++ {
		decl := unwrapExport(root.Child(i))
		if decl == nil {
			continue
		}
		switch decl.Kind() {
		case "lexical_declaration", "variable_declaration":
			for _, declarator := range variableDeclarators(decl) {
				nn := nameNode(declarator)
				if nn == nil {
					continue
				}
				decls = append(decls, &Declaration{
					File: sf, Node: declarator, Name: sf.NodeText(nn),
					Kind: types.VariableSymbol, TopLevel: true,
				})
			}
		default:
			declKind, ok := declarationKinds[decl.Kind()]
			if !ok {
				continue
			}
			nn := nameNode(decl)
			if nn == nil {
				continue
			}
			decls = append(decls, &Declaration{
				File: sf, Node: decl, Name: sf.NodeText(nn),
				Kind: declKind, TopLevel: true,
			})
		}
	}
	return decls
}

// IdentifierAt returns the name-like node covering a byte offset, or nil
// when the offset does not land on a name.
func IdentifierAt(sf *project.SourceFile, offset int) *tree_sitter.Node {
	if offset < 0 || offset >= len(sf.Text) {
		return nil
	}
	var found *tree_sitter.Node
	walk(sf.Root(), func(n *tree_sitter.Node) bool {
		if int(n.StartByte()) > offset || int(n.EndByte()) <= offset {
			return false
		}
		switch n.Kind() {
		case "identifier", "type_identifier", "property_identifier":
			found = n
		}
		return true
	})
	return found
}

// DeclarationAt resolves the name under a byte offset to its declaration,
// following named import bindings to the declaring file. Lookup is
// syntactic: a use of a shadowing local resolves to the top-level
// declaration of the same name.
func DeclarationAt(p *project.Project, sf *project.SourceFile, offset int) *Declaration {
	id := IdentifierAt(sf, offset)
	if id == nil {
		return nil
	}
	name := sf.NodeText(id)

	// Cursor on a member's own name inside a class or interface body.
	if parent := id.Parent(); parent != nil {
		if kind, ok := memberKinds[parent.Kind()]; ok {
			if nn := nameNode(parent); nn != nil && sameNode(nn, id) {
				return &Declaration{File: sf, Node: parent, Name: name, Kind: kind, TopLevel: false}
			}
		}
	}

	for _, decl := range TopLevelDeclarations(sf) {
		if decl.Name == name {
			return decl
		}
	}

	for _, binding := range ScanImports(sf) {
		if binding.LocalName != name || binding.Imported == "" {
			continue
		}
		target, ok := p.ResolveImport(sf.Path, binding.Source)
		if !ok {
			continue
		}
		if err := p.EnsureFileLoaded(target); err != nil {
			continue
		}
		targetFile, ok := p.File(target)
		if !ok {
			continue
		}
		for _, decl := range TopLevelDeclarations(targetFile) {
			if decl.Name == binding.Imported {
				return decl
			}
		}
	}
	return nil
}
