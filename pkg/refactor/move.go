package refactor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// MoveSymbolOperation moves one top-level declaration to another module
// and rewires the project around it: the payload travels with its attached
// comments and non-exported type dependencies, exported dependencies are
// imported from the source instead of copied, and every importer of the
// old module is repointed at the new one.
type MoveSymbolOperation struct {
	Selector       types.Selector
	TargetFilePath string
	CopyOnly       bool
}

func (op *MoveSymbolOperation) Validate(e *Engine) *types.ValidationResult {
	v := &types.ValidationResult{CanProceed: true}

	target, err := op.normalizedTarget(e)
	if err != nil {
		v.AddBlocker("%s", err.Error())
		return v
	}

	decl, err := e.resolver.Resolve(op.Selector)
	if err != nil {
		v.AddBlocker("%s", err.Error())
		return v
	}

	moveCheck := e.resolver.ValidateForMove(decl)
	v.Blockers = append(v.Blockers, moveCheck.Blockers...)
	v.Warnings = append(v.Warnings, moveCheck.Warnings...)
	if !moveCheck.CanProceed {
		v.CanProceed = false
	}

	if filepath.Clean(decl.File.Path) == target {
		v.AddBlocker("source and target are the same file: %s", op.TargetFilePath)
	}

	if conflict := targetConflict(e, target, decl.File.Path, decl.Name, decl.Kind); conflict != "" {
		v.AddBlocker("%s", conflict)
	}

	// Non-exported same-file values cannot follow the symbol and cannot
	// be imported back either.
	deps := e.extractor.ExtractDependencies(decl)
	locals := topLevelIndex(decl.File)
	for _, name := range deps.LocalReferences {
		if d, ok := locals[name]; ok && !e.resolver.IsExported(d) {
			v.AddWarning("'%s' references non-exported '%s', which stays in %s and is not importable from there",
				decl.Name, name, e.serializer.displayPath(decl.File.Path))
		}
	}
	return v
}

func (op *MoveSymbolOperation) normalizedTarget(e *Engine) (string, error) {
	target, err := project.NormalizeUserPath(e.project.Root(), op.TargetFilePath)
	if err != nil {
		return "", err
	}
	if !project.IsSupportedFile(target) {
		return "", types.NewError(types.UnexpectedIOError,
			"target %s is not a TypeScript source file", op.TargetFilePath)
	}
	return target, nil
}

// targetConflict reports an existing binding that would collide with the
// moved symbol in the target file. An import of the symbol from the source
// module is exempt: the move replaces it with the declaration itself.
func targetConflict(e *Engine, targetPath, sourcePath, name string, kind types.SymbolKind) string {
	sf, ok := e.project.File(targetPath)
	if !ok {
		if _, err := os.Stat(targetPath); err != nil {
			return "" // Target does not exist yet; the move creates it.
		}
		if err := e.project.EnsureFileLoaded(targetPath); err != nil {
			return fmt.Sprintf("cannot read target file: %v", err)
		}
		sf, _ = e.project.File(targetPath)
	}

	for _, d := range analysis.TopLevelDeclarations(sf) {
		if d.Name == name && d.Kind == kind {
			return fmt.Sprintf("naming conflict: %s '%s' already exists in %s",
				kind, name, e.serializer.displayPath(targetPath))
		}
	}
	for _, b := range analysis.ScanImports(sf) {
		if b.LocalName != name {
			continue
		}
		if moduleMatches(e.project, sf, b.Source, sourcePath) {
			continue
		}
		return fmt.Sprintf("naming conflict: '%s' is already imported in %s from %q",
			name, e.serializer.displayPath(targetPath), b.Source)
	}
	return ""
}

func (op *MoveSymbolOperation) Execute(e *Engine) (*outcome, error) {
	target, err := op.normalizedTarget(e)
	if err != nil {
		return nil, err
	}
	decl, err := e.resolver.Resolve(op.Selector)
	if err != nil {
		return nil, err
	}

	// The target may have gained a colliding declaration since validation,
	// from an earlier operation in the same batch. Check live state and
	// fail without mutating rather than skip silently.
	if conflict := targetConflict(e, target, decl.File.Path, decl.Name, decl.Kind); conflict != "" {
		return nil, types.NewError(types.NamingConflict, "%s", conflict)
	}

	changes, err := op.plan(e, decl, target)
	if err != nil {
		return nil, err
	}
	if err := e.serializer.Apply(changes); err != nil {
		return nil, err
	}

	e.logger.Info("moved symbol",
		"symbol", decl.Name,
		"from", e.serializer.displayPath(decl.File.Path),
		"to", e.serializer.displayPath(target),
		"copyOnly", op.CopyOnly)
	return &outcome{affectedFiles: affectedFiles(e.project.Root(), changes)}, nil
}

// plan computes the full change set for the move against current buffer
// state. Nothing is mutated here.
func (op *MoveSymbolOperation) plan(e *Engine, decl *analysis.Declaration, target string) ([]types.Change, error) {
	p := e.project
	source := decl.File.Path

	occurrences := analysis.FindOccurrences(p, decl)
	crossFileRefs := false
	sourceStillUses := false
	for _, occ := range occurrences {
		if occ.IsDeclarationName || occ.InOwnBody {
			continue
		}
		if occ.SameFile {
			if !occ.InExportClause {
				sourceStillUses = true
			}
		} else {
			crossFileRefs = true
		}
	}

	wasExported := e.resolver.IsExported(decl)
	exportAtTarget := wasExported || crossFileRefs || (sourceStillUses && !op.CopyOnly)
	if op.CopyOnly {
		exportAtTarget = wasExported
	}

	extraction := e.extractor.ExtractSymbol(decl, exportAtTarget)

	// Gather what the payload must import at the target, keyed by module.
	needs := make(map[string][]string)
	specOf := make(map[string]string)
	addNeed := func(key, spec, name string) {
		needs[key] = append(needs[key], name)
		specOf[key] = spec
	}

	importNames := make([]string, 0, len(extraction.Dependencies.Imports))
	for name := range extraction.Dependencies.Imports {
		importNames = append(importNames, name)
	}
	sort.Strings(importNames)
	for _, name := range importNames {
		mod := extraction.Dependencies.Imports[name]
		if resolved, ok := p.ResolveImport(source, mod); ok {
			if resolved == target {
				// The symbol imported this name from the move target; it
				// is local there.
				continue
			}
			addNeed(resolved, project.RelativeImportPath(target, resolved), name)
		} else if project.IsRelativeSpecifier(mod) {
			joined := filepath.Join(filepath.Dir(source), filepath.FromSlash(mod))
			addNeed(joined, project.RelativeImportPath(target, joined), name)
		} else {
			addNeed(mod, mod, name)
		}
	}

	// Exported same-file dependencies stay behind and are imported from
	// the source instead of copied.
	var fromSource []string
	locals := topLevelIndex(decl.File)
	for _, td := range extraction.TypeDecls {
		if td.Exported {
			fromSource = append(fromSource, td.Name)
		}
	}
	for _, name := range extraction.Dependencies.LocalReferences {
		if d, ok := locals[name]; ok && e.resolver.IsExported(d) {
			fromSource = append(fromSource, name)
		}
	}

	// Payload: attached comments, traveling type dependencies, then the
	// declaration itself.
	var blocks []string
	for _, td := range extraction.TypeDecls {
		if !td.Exported {
			blocks = append(blocks, td.Text)
		}
	}
	body := extraction.OwnText
	if len(extraction.LeadingComments) > 0 {
		body = strings.Join(extraction.LeadingComments, "\n") + "\n" + extraction.OwnText
	}
	blocks = append(blocks, body)
	payload := strings.Join(blocks, "\n\n")

	var changes []types.Change
	changes = append(changes, op.targetChanges(e, decl, target, payload, needs, specOf, fromSource)...)
	if !op.CopyOnly {
		sourceChanges, err := op.sourceChanges(e, decl, target, sourceStillUses)
		if err != nil {
			return nil, err
		}
		changes = append(changes, sourceChanges...)
		changes = append(changes, op.importerChanges(e, decl, target)...)
	}
	return changes, nil
}

// targetChanges inserts the payload and reworks the target's imports: the
// now-satisfied import of the symbol goes away, payload dependencies come
// in, qualified uses through a source namespace import flatten to the
// local name.
func (op *MoveSymbolOperation) targetChanges(e *Engine, decl *analysis.Declaration, target, payload string, needs map[string][]string, specOf map[string]string, fromSource []string) []types.Change {
	p := e.project
	source := decl.File.Path

	keys := make([]string, 0, len(needs))
	for key := range needs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tsf, hasTarget := p.File(target)
	if !hasTarget {
		var stmts []string
		if len(fromSource) > 0 {
			stmts = append(stmts, fmt.Sprintf("import { %s } from %q;",
				strings.Join(fromSource, ", "), project.RelativeImportPath(target, source)))
		}
		for _, key := range keys {
			stmts = append(stmts, fmt.Sprintf("import { %s } from %q;",
				strings.Join(needs[key], ", "), specOf[key]))
		}
		content := payload + "\n"
		if len(stmts) > 0 {
			content = strings.Join(stmts, "\n") + "\n\n" + content
		}
		return []types.Change{{
			File:        target,
			Start:       0,
			End:         0,
			NewText:     content,
			Description: fmt.Sprintf("Create %s with %s", e.serializer.displayPath(target), decl.Name),
		}}
	}

	var changes []types.Change
	bound := boundNames(tsf)

	// Rework the target's named import of the source module in one pass:
	// drop the moved symbol, merge exported source dependencies.
	clauseChanges, alias, merged := rebuildSourceImport(p, tsf, source, decl.Name, fromSource)
	changes = append(changes, clauseChanges...)
	if alias != "" {
		for _, use := range analysis.BareUses(tsf, alias) {
			changes = append(changes, types.Change{
				File:        tsf.Path,
				Start:       int(use.StartByte()),
				End:         int(use.EndByte()),
				OldText:     alias,
				NewText:     decl.Name,
				Description: fmt.Sprintf("Use %s directly", decl.Name),
			})
		}
	}

	// Qualified uses through a namespace import of the source flatten to
	// the now-local name.
	for _, b := range analysis.BindingsFrom(p, tsf, source) {
		if !b.IsNamespace {
			continue
		}
		for _, use := range analysis.QualifiedUses(tsf, b.LocalName, decl.Name) {
			start, end := int(use.StartByte()), int(use.EndByte())
			changes = append(changes, types.Change{
				File:        tsf.Path,
				Start:       start,
				End:         end,
				OldText:     tsf.Text[start:end],
				NewText:     decl.Name,
				Description: fmt.Sprintf("Use %s directly", decl.Name),
			})
		}
	}

	var newStmts []string
	if !merged && len(fromSource) > 0 {
		mergeChanges, stmt := importPlan(p, tsf, source, project.RelativeImportPath(target, source), fromSource)
		changes = append(changes, mergeChanges...)
		if stmt != "" {
			newStmts = append(newStmts, stmt)
		}
	}
	for _, key := range keys {
		wanted := make([]string, 0, len(needs[key]))
		for _, name := range needs[key] {
			if bound[name] {
				e.logger.Warn("skipping import, name already bound in target",
					"name", name, "target", e.serializer.displayPath(target))
				continue
			}
			wanted = append(wanted, name)
		}
		if len(wanted) == 0 {
			continue
		}
		mergeChanges, stmt := importPlan(p, tsf, key, specOf[key], wanted)
		changes = append(changes, mergeChanges...)
		if stmt != "" {
			newStmts = append(newStmts, stmt)
		}
	}
	if len(newStmts) > 0 {
		changes = append(changes, insertWithImports(tsf, strings.Join(newStmts, "\n")))
	}

	sep := "\n\n"
	if strings.HasSuffix(tsf.Text, "\n") {
		sep = "\n"
	}
	at := len(tsf.Text)
	changes = append(changes, types.Change{
		File:        target,
		Start:       at,
		End:         at,
		NewText:     sep + payload + "\n",
		Description: fmt.Sprintf("Insert %s", decl.Name),
	})
	return changes
}

// sourceChanges removes the original declaration, drops the symbol from a
// local export clause, and adds a back-import when remaining source code
// still references the symbol.
func (op *MoveSymbolOperation) sourceChanges(e *Engine, decl *analysis.Declaration, target string, sourceStillUses bool) ([]types.Change, error) {
	p := e.project
	sf := decl.File

	var changes []types.Change
	removal, tag := removalChange(decl)
	if tag == types.MethodFailed {
		return nil, types.NewError(types.UnsupportedSymbolKind,
			"cannot remove %s '%s' from its old module", decl.Kind, decl.Name)
	}
	changes = append(changes, removal)

	for _, re := range analysis.ScanReExports(sf) {
		if re.Source != "" || re.Name != decl.Name {
			continue
		}
		changes = append(changes, removeSpecifier(sf, re.Specifier,
			fmt.Sprintf("Stop exporting %s from its old module", decl.Name)))
	}

	if sourceStillUses {
		spec := project.RelativeImportPath(sf.Path, target)
		mergeChanges, stmt := importPlan(p, sf, target, spec, []string{decl.Name})
		changes = append(changes, mergeChanges...)
		if stmt != "" {
			changes = append(changes, insertWithImports(sf, stmt))
		}
	}
	return changes, nil
}

// importerChanges repoints every other file that imports or re-exports the
// symbol from the source module at the target module.
func (op *MoveSymbolOperation) importerChanges(e *Engine, decl *analysis.Declaration, target string) []types.Change {
	p := e.project
	source := decl.File.Path

	var changes []types.Change
	for _, path := range p.ListFiles() {
		if path == source || path == target {
			continue
		}
		sf, ok := p.File(path)
		if !ok {
			continue
		}

		var newStmts []string
		targetSpec := project.RelativeImportPath(path, target)

		bindings := analysis.BindingsFrom(p, sf, source)
		namedLocal := ""
		for _, b := range bindings {
			if !b.IsDefault && !b.IsNamespace && b.Imported == decl.Name {
				namedLocal = b.LocalName
				break
			}
		}

		for _, b := range bindings {
			switch {
			case b.IsNamespace:
				uses := analysis.QualifiedUses(sf, b.LocalName, decl.Name)
				if len(uses) == 0 {
					continue
				}
				// A direct named binding being repointed already provides
				// the symbol; reuse its local name.
				local := namedLocal
				if local == "" {
					local = freeName(boundNames(sf), decl.Name)
					mergeChanges, stmt := importPlan(p, sf, target, targetSpec, []string{specifierText(decl.Name, local)})
					changes = append(changes, mergeChanges...)
					if stmt != "" {
						newStmts = append(newStmts, stmt)
					}
				}
				if local != decl.Name {
					e.logger.Warn("aliasing moved symbol to avoid a collision",
						"file", e.serializer.displayPath(path), "alias", local)
				}
				for _, use := range uses {
					start, end := int(use.StartByte()), int(use.EndByte())
					changes = append(changes, types.Change{
						File:        path,
						Start:       start,
						End:         end,
						OldText:     sf.Text[start:end],
						NewText:     local,
						Description: fmt.Sprintf("Rewrite qualified use of %s", decl.Name),
					})
				}
			case b.IsDefault:
				continue
			case b.Imported == decl.Name:
				changes = append(changes, removeSpecifier(sf, b.Node,
					fmt.Sprintf("Stop importing %s from its old module", decl.Name)))
				mergeChanges, stmt := importPlan(p, sf, target, targetSpec, []string{specifierText(decl.Name, b.LocalName)})
				changes = append(changes, mergeChanges...)
				if stmt != "" {
					newStmts = append(newStmts, stmt)
				}
			}
		}

		for _, re := range analysis.ScanReExports(sf) {
			if re.Source == "" || re.Name != decl.Name {
				continue
			}
			abs, ok := p.ResolveImport(sf.Path, re.Source)
			if !ok || abs != source {
				continue
			}
			changes = append(changes, removeSpecifier(sf, re.Specifier,
				fmt.Sprintf("Stop re-exporting %s from its old module", decl.Name)))
			newStmts = append(newStmts, fmt.Sprintf("export { %s } from %q;",
				specifierText(re.Name, re.Alias), targetSpec))
		}

		if len(newStmts) > 0 {
			changes = append(changes, insertWithImports(sf, strings.Join(newStmts, "\n")))
		}
	}
	return changes
}

// rebuildSourceImport rewrites the target's named import of the source
// module once the symbol lives in the target: the symbol's own specifier
// disappears and missing names from add merge in. The returned alias is
// the local name the target had bound the symbol to when it differed. The
// final bool reports whether the add names were taken care of here.
func rebuildSourceImport(p *project.Project, tsf *project.SourceFile, source, symName string, add []string) ([]types.Change, string, bool) {
	var stmt *tree_sitter.Node
	var entries []analysis.ImportBinding
	for _, b := range analysis.BindingsFrom(p, tsf, source) {
		if b.IsDefault || b.IsNamespace || b.Imported == "" {
			continue
		}
		if stmt == nil {
			stmt = b.Statement
		}
		if sameSpan(b.Statement, stmt) {
			entries = append(entries, b)
		}
	}
	if stmt == nil {
		return nil, "", false
	}
	clause := childOfKind(stmt, "import_clause")
	if clause == nil {
		return nil, "", false
	}
	named := childOfKind(clause, "named_imports")
	if named == nil {
		return nil, "", false
	}

	alias := ""
	removed := false
	var specs []string
	present := make(map[string]bool)
	for _, b := range entries {
		if b.Imported == symName {
			if b.LocalName != symName {
				alias = b.LocalName
			}
			removed = true
			continue
		}
		specs = append(specs, specifierText(b.Imported, b.LocalName))
		present[b.Imported] = true
	}
	var missing []string
	for _, name := range add {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if !removed && len(missing) == 0 {
		return nil, "", true
	}
	specs = append(specs, missing...)

	content := tsf.Text
	if len(specs) == 0 {
		if onlyNamedClause(clause) {
			start, end := statementRemovalRange(content, int(stmt.StartByte()), int(stmt.EndByte()))
			return []types.Change{{
				File:        tsf.Path,
				Start:       start,
				End:         end,
				OldText:     content[start:end],
				Description: fmt.Sprintf("Drop satisfied import of %s", symName),
			}}, alias, true
		}
		start, end := int(named.StartByte()), int(named.EndByte())
		return []types.Change{{
			File:        tsf.Path,
			Start:       start,
			End:         end,
			OldText:     content[start:end],
			NewText:     "{}",
			Description: fmt.Sprintf("Drop satisfied import of %s", symName),
		}}, alias, true
	}

	start, end := int(named.StartByte()), int(named.EndByte())
	return []types.Change{{
		File:        tsf.Path,
		Start:       start,
		End:         end,
		OldText:     content[start:end],
		NewText:     "{ " + strings.Join(specs, ", ") + " }",
		Description: "Rework import from the symbol's old module",
	}}, alias, true
}

func onlyNamedClause(clause *tree_sitter.Node) bool {
	for i := uint(0); i < clause.ChildCount(); i++ {
		switch clause.Child(i).Kind() {
		case "identifier", "namespace_import":
			return false
		}
	}
	return true
}

func sameSpan(a, b *tree_sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// topLevelIndex maps each top-level name to its first declaration.
func topLevelIndex(sf *project.SourceFile) map[string]*analysis.Declaration {
	index := make(map[string]*analysis.Declaration)
	for _, d := range analysis.TopLevelDeclarations(sf) {
		if _, ok := index[d.Name]; !ok {
			index[d.Name] = d
		}
	}
	return index
}
