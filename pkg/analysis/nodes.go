package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/types"
)

// declarationKinds maps tree-sitter node kinds to symbol kinds for nodes
// that introduce a named declaration directly.
var declarationKinds = map[string]types.SymbolKind{
	"function_declaration":           types.FunctionSymbol,
	"generator_function_declaration": types.FunctionSymbol,
	"class_declaration":              types.ClassSymbol,
	"abstract_class_declaration":     types.ClassSymbol,
	"interface_declaration":          types.InterfaceSymbol,
	"type_alias_declaration":         types.TypeAliasSymbol,
	"enum_declaration":               types.EnumSymbol,
	"internal_module":                types.NamespaceSymbol,
	"module":                         types.NamespaceSymbol,
}

// memberKinds maps class and interface member node kinds to symbol kinds.
var memberKinds = map[string]types.SymbolKind{
	"method_definition":         types.MethodSymbol,
	"method_signature":          types.MethodSymbol,
	"abstract_method_signature": types.MethodSymbol,
	"public_field_definition":   types.PropertySymbol,
	"property_signature":        types.PropertySymbol,
}

// typeLikeKinds are the declaration kinds whose full text can accompany a
// moved symbol as a dependency.
var typeLikeKinds = map[types.SymbolKind]bool{
	types.InterfaceSymbol: true,
	types.TypeAliasSymbol: true,
	types.EnumSymbol:      true,
	types.ClassSymbol:     true,
}

// walk visits node and all descendants in document order. The visitor
// returns false to skip a subtree.
func walk(node *tree_sitter.Node, visit func(*tree_sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walk(node.Child(i), visit)
	}
}

// nameNode returns the identifier node naming a declaration, or nil.
func nameNode(node *tree_sitter.Node) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName("name")
}

// unwrapExport returns the declared node inside an export statement, or
// the node itself when it is not an export wrapper.
func unwrapExport(node *tree_sitter.Node) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == "export_statement" {
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return decl
		}
	}
	return node
}

// statementOf returns the outermost statement carrying a declaration: the
// export wrapper when present, otherwise the declaration statement itself.
// For variable declarators it climbs to the enclosing declaration
// statement.
func statementOf(node *tree_sitter.Node) *tree_sitter.Node {
	stmt := node
	for stmt != nil {
		parent := stmt.Parent()
		if parent == nil {
			return stmt
		}
		switch parent.Kind() {
		case "export_statement", "lexical_declaration", "variable_declaration":
			stmt = parent
		default:
			return stmt
		}
	}
	return node
}

// isTopLevel reports whether a declaration statement sits directly under
// the program root, possibly wrapped in an export statement.
func isTopLevel(node *tree_sitter.Node) bool {
	stmt := statementOf(node)
	parent := stmt.Parent()
	return parent != nil && parent.Kind() == "program"
}

// variableDeclarators collects the variable_declarator children of a
// lexical or var declaration statement.
func variableDeclarators(stmt *tree_sitter.Node) []*tree_sitter.Node {
	var decls []*tree_sitter.Node
	for i := uint(0); i < stmt.ChildCount(); i++ {
		child := stmt.Child(i)
		if child != nil && child.Kind() == "variable_declarator" {
			decls = append(decls, child)
		}
	}
	return decls
}

// handleFor builds the offset handle for a declaration node.
func handleFor(node *tree_sitter.Node) types.NodeHandle {
	stmt := statementOf(node)
	name := nameNode(node)
	pos := node.StartPosition()
	if name != nil {
		pos = name.StartPosition()
	}
	return types.NodeHandle{
		Start:     int(node.StartByte()),
		End:       int(node.EndByte()),
		StmtStart: int(stmt.StartByte()),
		StmtEnd:   int(stmt.EndByte()),
		Line:      int(pos.Row) + 1,
		Column:    int(pos.Column) + 1,
	}
}

// isExportedNode reports whether a declaration is marked exported at its
// site, either by an export wrapper or by sitting in an exported variable
// statement.
func isExportedNode(node *tree_sitter.Node) bool {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "export_statement":
			return true
		case "lexical_declaration", "variable_declaration":
			continue
		default:
			return false
		}
	}
	return false
}

func newStringSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// primitiveNames are identifier texts never treated as project symbols.
var primitiveNames = newStringSet(
	"string", "number", "boolean", "void", "any", "unknown", "never",
	"null", "undefined", "object", "symbol", "bigint", "this",
	"true", "false",
)

// ambientGlobals are runtime-provided bindings that need no import.
var ambientGlobals = newStringSet(
	"console", "Math", "JSON", "Object", "Array", "Promise", "Date",
	"Error", "TypeError", "RangeError", "Map", "Set", "WeakMap", "WeakSet",
	"RegExp", "Number", "String", "Boolean", "Symbol", "BigInt",
	"Infinity", "NaN", "globalThis", "window", "document", "process",
	"Buffer", "setTimeout", "setInterval", "clearTimeout", "clearInterval",
	"queueMicrotask", "structuredClone", "parseInt", "parseFloat",
	"isNaN", "isFinite", "encodeURIComponent", "decodeURIComponent",
	"fetch",
)
