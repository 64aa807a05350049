package analysis

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// SymbolResolver locates symbols and validates operations against the
// current project state. Resolution is re-run per operation; nothing is
// cached across mutations.
type SymbolResolver struct {
	project *project.Project
	logger  *slog.Logger
}

func NewSymbolResolver(p *project.Project, logger *slog.Logger) *SymbolResolver {
	return &SymbolResolver{
		project: p,
		logger:  logger,
	}
}

// Resolve finds the declaration a selector names. The selector's file is
// loaded on demand. A missing symbol is reported with a near-match
// suggestion when one exists.
func (sr *SymbolResolver) Resolve(sel types.Selector) (*Declaration, error) {
	path, err := project.NormalizeUserPath(sr.project.Root(), sel.FilePath)
	if err != nil {
		return nil, err
	}
	if err := sr.project.EnsureFileLoaded(path); err != nil {
		return nil, err
	}
	sf, ok := sr.project.File(path)
	if !ok {
		return nil, types.NewError(types.UnexpectedIOError, "file not loaded: %s", path)
	}

	decl := FindDeclaration(sf, sel)
	if decl == nil {
		msg := fmt.Sprintf("symbol not found: %s", sel.String())
		if suggestion := sr.suggestName(sf, sel.Name); suggestion != "" {
			msg += fmt.Sprintf(". Did you mean '%s'?", suggestion)
		}
		sr.logger.Debug("symbol resolution failed", "selector", sel.String())
		return nil, types.NewError(types.SymbolNotFound, "%s", msg)
	}
	return decl, nil
}

// suggestName proposes the closest declared name within a small edit
// distance.
func (sr *SymbolResolver) suggestName(sf *project.SourceFile, name string) string {
	best := ""
	bestDistance := 3
	for _, decl := range TopLevelDeclarations(sf) {
		if decl.Name == name {
			continue
		}
		if d := levenshtein.ComputeDistance(name, decl.Name); d < bestDistance {
			bestDistance = d
			best = decl.Name
		}
	}
	return best
}

// IsExported reports whether a declaration is visible outside its file:
// exported at its declaration site, or named by a local export clause.
func (sr *SymbolResolver) IsExported(decl *Declaration) bool {
	if isExportedNode(decl.Node) {
		return true
	}
	for _, entry := range ScanReExports(decl.File) {
		if entry.Source == "" && entry.Name == decl.Name {
			return true
		}
	}
	return false
}

// Resolved builds the transient symbol description for a declaration.
func (sr *SymbolResolver) Resolved(decl *Declaration) *types.ResolvedSymbol {
	return &types.ResolvedSymbol{
		Decl:       decl.Handle(),
		Name:       decl.Name,
		Kind:       decl.Kind,
		IsExported: sr.IsExported(decl),
		FilePath:   decl.File.Path,
	}
}

// FindExternalReferences returns the filtered reference set that blocks
// removal and drives import rewriting.
func (sr *SymbolResolver) FindExternalReferences(decl *Declaration) []types.ReferenceInfo {
	return ExternalReferences(sr.project, decl)
}

// ValidateForMove checks that a declaration is movable. All applicable
// blockers are collected, not just the first.
func (sr *SymbolResolver) ValidateForMove(decl *Declaration) *types.ValidationResult {
	result := &types.ValidationResult{CanProceed: true}

	if !decl.Kind.Movable() || !decl.TopLevel {
		result.AddBlocker("not a top-level symbol: %s '%s'", decl.Kind, decl.Name)
		return result
	}
	if decl.Kind == types.VariableSymbol && !sr.IsExported(decl) {
		result.AddBlocker("variable '%s' must be exported to be moved", decl.Name)
	}
	return result
}

// ValidateForRemoval checks that a declaration is removable and
// unreferenced. Both checks run so the caller sees every blocker at once.
func (sr *SymbolResolver) ValidateForRemoval(decl *Declaration) *types.ValidationResult {
	result := &types.ValidationResult{CanProceed: true}

	if !decl.Kind.Removable() {
		result.AddBlocker("symbol '%s' of kind %s cannot be removed", decl.Name, decl.Kind)
	}

	refs := sr.FindExternalReferences(decl)
	if len(refs) > 0 {
		files := referencingFiles(sr.project.Root(), refs)
		result.AddBlocker("'%s' is referenced in %d locations across %d files: %s",
			decl.Name, len(refs), len(files), strings.Join(files, ", "))
	}
	return result
}

// referencingFiles lists the distinct files holding references, relative
// to the project root, in sorted order.
func referencingFiles(root string, refs []types.ReferenceInfo) []string {
	seen := make(map[string]bool)
	var files []string
	for _, ref := range refs {
		rel, err := filepath.Rel(root, ref.FilePath)
		if err != nil {
			rel = ref.FilePath
		}
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			seen[rel] = true
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	return files
}
