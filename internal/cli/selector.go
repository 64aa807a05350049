package cli

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// selectorFlags collects the flags that narrow a symbol lookup. Kind is
// detected from the file when the flag is omitted.
type selectorFlags struct {
	kind string
	in   string
	hint string
}

func (f *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "Symbol kind (function, class, interface, type-alias, enum, variable, method, property, namespace)")
	cmd.Flags().StringVar(&f.in, "in", "", "Container of a member symbol, as type:name (e.g. class:Pipeline)")
	cmd.Flags().StringVar(&f.hint, "hint", "", "Declaration text fragment, to pick between overloads")
}

// build resolves the flag values plus a name and file argument into a
// selector against the loaded project.
func (f *selectorFlags) build(p *project.Project, name, userPath string) (types.Selector, error) {
	path, err := project.NormalizeUserPath(p.Root(), userPath)
	if err != nil {
		return types.Selector{}, err
	}

	var scope *types.ScopeRef
	if f.in != "" {
		scopeType, scopeName, ok := strings.Cut(f.in, ":")
		if !ok || scopeName == "" {
			return types.Selector{}, fmt.Errorf("invalid --in value %q, expected type:name", f.in)
		}
		st, err := types.ParseScopeType(scopeType)
		if err != nil {
			return types.Selector{}, err
		}
		scope = &types.ScopeRef{Type: st, Name: scopeName}
	}

	var kind types.SymbolKind
	if f.kind != "" {
		kind, err = types.ParseSymbolKind(f.kind)
		if err != nil {
			return types.Selector{}, err
		}
	} else {
		kind, err = detectKind(p, path, name, scope)
		if err != nil {
			return types.Selector{}, err
		}
	}

	return types.Selector{
		Name:          name,
		Kind:          kind,
		FilePath:      path,
		Scope:         scope,
		SignatureHint: f.hint,
	}, nil
}

// detectKind infers the kind of the named symbol from the file's
// declarations. Ambiguous names (declaration merging) need an explicit
// --kind.
func detectKind(p *project.Project, path, name string, scope *types.ScopeRef) (types.SymbolKind, error) {
	if err := p.EnsureFileLoaded(path); err != nil {
		return 0, err
	}
	sf, ok := p.File(path)
	if !ok {
		return 0, types.NewError(types.UnexpectedIOError, "file not loaded: %s", path)
	}

	if scope != nil {
		for _, kind := range []types.SymbolKind{types.MethodSymbol, types.PropertySymbol} {
			sel := types.Selector{Name: name, Kind: kind, FilePath: path, Scope: scope}
			if analysis.FindDeclaration(sf, sel) != nil {
				return kind, nil
			}
		}
		return 0, types.NewError(types.SymbolNotFound, "no member named '%s' in %s %s", name, scope.Type, scope.Name)
	}

	var kinds []types.SymbolKind
	for _, decl := range analysis.TopLevelDeclarations(sf) {
		if decl.Name == name {
			kinds = append(kinds, decl.Kind)
		}
	}
	switch len(kinds) {
	case 0:
		msg := fmt.Sprintf("no top-level symbol named '%s' in %s", name, path)
		if suggestion := nearestName(sf, name); suggestion != "" {
			msg += fmt.Sprintf(". Did you mean '%s'?", suggestion)
		}
		return 0, types.NewError(types.SymbolNotFound, "%s", msg)
	case 1:
		return kinds[0], nil
	default:
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		return 0, fmt.Errorf("'%s' is declared as %s; pass --kind to disambiguate", name, strings.Join(names, " and "))
	}
}

// nearestName proposes the closest declared name within a small edit
// distance.
func nearestName(sf *project.SourceFile, name string) string {
	best := ""
	bestDistance := 3
	for _, decl := range analysis.TopLevelDeclarations(sf) {
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
