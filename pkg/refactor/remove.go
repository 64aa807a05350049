package refactor

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/types"
)

// RemoveSymbolOperation deletes a declaration that nothing outside its
// own body references. The execution strategy degrades from removing the
// whole statement, to surgically cutting a list element, to blanking the
// exact declaration span; the strategy used is reported back.
type RemoveSymbolOperation struct {
	Selector types.Selector
}

func (op *RemoveSymbolOperation) Validate(e *Engine) *types.ValidationResult {
	decl, err := e.resolver.Resolve(op.Selector)
	if err != nil {
		v := &types.ValidationResult{CanProceed: true}
		v.AddBlocker("%s", err.Error())
		return v
	}
	return e.resolver.ValidateForRemoval(decl)
}

func (op *RemoveSymbolOperation) Execute(e *Engine) (*outcome, error) {
	decl, err := e.resolver.Resolve(op.Selector)
	if err != nil {
		return &outcome{methodTag: types.MethodFailed}, err
	}

	change, tag := removalChange(decl)
	if tag == types.MethodFailed {
		return &outcome{methodTag: tag}, types.NewError(types.UnsupportedSymbolKind,
			"no removal strategy applies to %s '%s'", decl.Kind, decl.Name)
	}

	if err := e.serializer.Apply([]types.Change{change}); err != nil {
		return &outcome{methodTag: types.MethodFailed}, err
	}

	e.logger.Info("removed symbol",
		"symbol", decl.Name, "kind", decl.Kind.String(), "method", tag.String())
	return &outcome{
		affectedFiles: affectedFiles(e.project.Root(), []types.Change{change}),
		methodTag:     tag,
	}, nil
}

// removalChange picks the least invasive removal that leaves the file
// structurally sound.
func removalChange(decl *analysis.Declaration) (types.Change, types.MethodTag) {
	if decl.Node == nil {
		return types.Change{}, types.MethodFailed
	}

	switch decl.Kind {
	case types.VariableSymbol:
		if len(declaratorSiblings(decl.Statement())) > 1 {
			return listElementRemoval(decl)
		}
	case types.ExportSpecifierSymbol:
		return specifierRemoval(decl)
	}
	return standardRemoval(decl), types.MethodStandard
}

// standardRemoval takes the whole statement, its attached comments and the
// blank line the removal leaves behind.
func standardRemoval(decl *analysis.Declaration) types.Change {
	sf := decl.File
	content := sf.Text
	stmt := decl.Statement()

	start := analysis.AttachedCommentStart(sf, stmt)
	end := int(stmt.EndByte())
	start, end = statementRemovalRange(content, start, end)

	return types.Change{
		File:        sf.Path,
		Start:       start,
		End:         end,
		OldText:     content[start:end],
		Description: fmt.Sprintf("Remove declaration of %s", decl.Name),
	}
}

// listElementRemoval cuts one declarator out of a statement it shares
// with siblings, fixing the separator up.
func listElementRemoval(decl *analysis.Declaration) (types.Change, types.MethodTag) {
	sf := decl.File
	content := sf.Text
	start, end := removeWithSeparator(content, decl.Node)
	if start == int(decl.Node.StartByte()) && end == int(decl.Node.EndByte()) {
		// No separator found; the statement is not the list we expected.
		return manualRemoval(decl), types.MethodManual
	}
	return types.Change{
		File:        sf.Path,
		Start:       start,
		End:         end,
		OldText:     content[start:end],
		Description: fmt.Sprintf("Remove declarator %s", decl.Name),
	}, types.MethodAggressive
}

// specifierRemoval drops an export specifier, taking the whole clause
// statement when it is the last one.
func specifierRemoval(decl *analysis.Declaration) (types.Change, types.MethodTag) {
	clause := decl.Node.Parent()
	if clause == nil || clause.Kind() != "export_clause" {
		return manualRemoval(decl), types.MethodManual
	}
	count := 0
	for i := uint(0); i < clause.ChildCount(); i++ {
		if clause.Child(i).Kind() == "export_specifier" {
			count++
		}
	}
	change := removeSpecifier(decl.File, decl.Node, fmt.Sprintf("Remove export of %s", decl.Name))
	if count <= 1 {
		return change, types.MethodStandard
	}
	return change, types.MethodAggressive
}

// manualRemoval blanks the exact declaration span, nothing more.
func manualRemoval(decl *analysis.Declaration) types.Change {
	sf := decl.File
	start := int(decl.Node.StartByte())
	end := int(decl.Node.EndByte())
	return types.Change{
		File:        sf.Path,
		Start:       start,
		End:         end,
		OldText:     sf.Text[start:end],
		Description: fmt.Sprintf("Blank declaration of %s", decl.Name),
	}
}

// declaratorSiblings lists the variable_declarator nodes of a variable
// statement, unwrapping an export wrapper first.
func declaratorSiblings(stmt *tree_sitter.Node) []*tree_sitter.Node {
	inner := stmt
	if inner.Kind() == "export_statement" {
		if d := inner.ChildByFieldName("declaration"); d != nil {
			inner = d
		}
	}
	var declarators []*tree_sitter.Node
	for i := uint(0); i < inner.ChildCount(); i++ {
		if child := inner.Child(i); child.Kind() == "variable_declarator" {
			declarators = append(declarators, child)
		}
	}
	return declarators
}
