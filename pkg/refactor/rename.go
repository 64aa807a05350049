package refactor

import (
	"fmt"
	"unicode"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/types"
)

// reservedWords are the identifiers TypeScript rejects as declaration
// names. Modules are always strict mode, so the strict-mode set counts.
var reservedWords = wordSet(
	"break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "enum", "export", "extends",
	"false", "finally", "for", "function", "if", "import", "in",
	"instanceof", "new", "null", "return", "super", "switch", "this",
	"throw", "true", "try", "typeof", "var", "void", "while", "with",
	"implements", "interface", "let", "package", "private", "protected",
	"public", "static", "yield",
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func isValidIdentifier(name string) bool {
	for i, r := range name {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return name != ""
}

// RenameSymbolOperation renames a declaration and rewrites every reference
// to it: call sites, import and export clauses, and namespace-qualified
// uses. Aliased import specifiers rewrite only the source name; the local
// alias stays.
type RenameSymbolOperation struct {
	Selector types.Selector
	NewName  string
	Scope    types.RenameScope
}

func (op *RenameSymbolOperation) Validate(e *Engine) *types.ValidationResult {
	v := &types.ValidationResult{CanProceed: true}

	if op.NewName == "" {
		v.AddBlocker("new name cannot be empty")
		return v
	}
	if reservedWords[op.NewName] {
		v.AddBlocker("'%s' is a reserved word and cannot name a declaration", op.NewName)
		return v
	}
	if !isValidIdentifier(op.NewName) {
		v.AddBlocker("'%s' is not a valid identifier", op.NewName)
		return v
	}

	decl, err := e.resolver.Resolve(op.Selector)
	if err != nil {
		v.AddBlocker("%s", err.Error())
		return v
	}
	if decl.Name == op.NewName {
		v.AddBlocker("symbol is already named '%s'", op.NewName)
		return v
	}
	if op.Scope == types.FileScope && len(e.resolver.FindExternalReferences(decl)) > 0 {
		v.AddWarning("file-scoped rename leaves references to '%s' in other files untouched", decl.Name)
	}

	op.checkCollisions(e, decl, v)
	return v
}

// checkCollisions rejects a rename that would shadow or collide with an
// existing binding: in the declaring scope always, and in every file whose
// import would be rewritten when the rename is project-wide.
func (op *RenameSymbolOperation) checkCollisions(e *Engine, decl *analysis.Declaration, v *types.ValidationResult) {
	switch decl.Kind {
	case types.MethodSymbol, types.PropertySymbol:
		if memberNames(decl)[op.NewName] {
			v.AddBlocker("naming conflict: member '%s' already exists on the containing type", op.NewName)
		}
		return
	}

	if boundNames(decl.File)[op.NewName] {
		v.AddBlocker("naming conflict: '%s' is already bound in %s",
			op.NewName, e.serializer.displayPath(decl.File.Path))
	}
	if op.Scope == types.FileScope {
		return
	}

	for _, path := range e.project.ListFiles() {
		if path == decl.File.Path {
			continue
		}
		sf, ok := e.project.File(path)
		if !ok {
			continue
		}
		for _, b := range analysis.BindingsFrom(e.project, sf, decl.File.Path) {
			if b.Imported != decl.Name || b.LocalName != decl.Name {
				continue
			}
			// The unaliased specifier will bind the new name here.
			if boundNames(sf)[op.NewName] {
				v.AddBlocker("naming conflict: '%s' is already bound in %s",
					op.NewName, e.serializer.displayPath(path))
			}
			break
		}
	}
}

// memberNames collects the sibling member names of a method or property
// declaration's container body.
func memberNames(decl *analysis.Declaration) map[string]bool {
	names := make(map[string]bool)
	body := decl.Node.Parent()
	if body == nil {
		return names
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case "method_definition", "method_signature", "abstract_method_signature",
			"public_field_definition", "property_signature":
			if name := child.ChildByFieldName("name"); name != nil {
				names[decl.File.NodeText(name)] = true
			}
		}
	}
	return names
}

func (op *RenameSymbolOperation) Execute(e *Engine) (*outcome, error) {
	decl, err := e.resolver.Resolve(op.Selector)
	if err != nil {
		return nil, err
	}

	occurrences := analysis.FindOccurrences(e.project, decl)
	var changes []types.Change
	for _, occ := range occurrences {
		if op.Scope == types.FileScope && !occ.SameFile {
			continue
		}
		changes = append(changes, types.Change{
			File:        occ.File.Path,
			Start:       occ.Start,
			End:         occ.End,
			OldText:     decl.Name,
			NewText:     op.NewName,
			Description: fmt.Sprintf("Rename %s to %s", decl.Name, op.NewName),
		})
	}
	if len(changes) == 0 {
		return nil, types.NewError(types.SymbolNotFound,
			"no occurrences of '%s' found to rename", decl.Name)
	}

	if err := e.serializer.Apply(changes); err != nil {
		return nil, err
	}

	e.logger.Info("renamed symbol",
		"from", decl.Name, "to", op.NewName, "occurrences", len(changes))
	return &outcome{affectedFiles: affectedFiles(e.project.Root(), changes)}, nil
}
