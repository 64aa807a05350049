package cli

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// loadProject writes the given files under a temp root and loads a
// project over them.
func loadProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	dir := writeFixture(t, files)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := project.NewProject(dir, logger)
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	t.Cleanup(p.Close)
	if err := p.Load(); err != nil {
		t.Fatalf("Failed to load project: %v", err)
	}
	return p
}

func normalized(t *testing.T, p *project.Project, rel string) string {
	t.Helper()
	path, err := project.NormalizeUserPath(p.Root(), rel)
	if err != nil {
		t.Fatalf("Failed to normalize %s: %v", rel, err)
	}
	return path
}

const mixedDeclarations = `export function helper(input: string): string {
  return input;
}

export const value = helper('x');

export interface Options {
  verbose: boolean;
}
`

func TestDetectKindTopLevel(t *testing.T) {
	p := loadProject(t, map[string]string{"src/util.ts": mixedDeclarations})
	path := normalized(t, p, "src/util.ts")

	tests := []struct {
		name string
		want types.SymbolKind
	}{
		{"helper", types.FunctionSymbol},
		{"value", types.VariableSymbol},
		{"Options", types.InterfaceSymbol},
	}
	for _, tt := range tests {
		kind, err := detectKind(p, path, tt.name, nil)
		if err != nil {
			t.Fatalf("Expected kind detection for %s to succeed, got: %v", tt.name, err)
		}
		if kind != tt.want {
			t.Errorf("Expected %s for %s, got %s", tt.want, tt.name, kind)
		}
	}
}

func TestDetectKindAmbiguousDeclarationMerging(t *testing.T) {
	p := loadProject(t, map[string]string{"src/dual.ts": `export function dual(): void {}

export namespace dual {
  export const version = 1;
}
`})
	path := normalized(t, p, "src/dual.ts")

	_, err := detectKind(p, path, "dual", nil)
	if err == nil {
		t.Fatal("Expected merged declarations to be ambiguous")
	}
	if !strings.Contains(err.Error(), "declared as function and namespace") {
		t.Errorf("Expected both kinds named, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "--kind") {
		t.Errorf("Expected a pointer to --kind, got %q", err.Error())
	}
}

func TestDetectKindClassMembers(t *testing.T) {
	p := loadProject(t, map[string]string{"src/pipeline.ts": `export class Pipeline {
  limit = 10;

  run(input: string): string {
    return input;
  }
}
`})
	path := normalized(t, p, "src/pipeline.ts")
	scope := &types.ScopeRef{Type: types.ClassScope, Name: "Pipeline"}

	kind, err := detectKind(p, path, "run", scope)
	if err != nil {
		t.Fatalf("Expected method detection to succeed, got: %v", err)
	}
	if kind != types.MethodSymbol {
		t.Errorf("Expected method, got %s", kind)
	}

	kind, err = detectKind(p, path, "limit", scope)
	if err != nil {
		t.Fatalf("Expected property detection to succeed, got: %v", err)
	}
	if kind != types.PropertySymbol {
		t.Errorf("Expected property, got %s", kind)
	}

	_, err = detectKind(p, path, "missing", scope)
	if err == nil {
		t.Fatal("Expected unknown member to fail")
	}
	if !strings.Contains(err.Error(), "no member named 'missing'") {
		t.Errorf("Expected no-member error, got %q", err.Error())
	}
}

func TestDetectKindSuggestsNearName(t *testing.T) {
	p := loadProject(t, map[string]string{"src/util.ts": mixedDeclarations})
	path := normalized(t, p, "src/util.ts")

	_, err := detectKind(p, path, "helpr", nil)
	if err == nil {
		t.Fatal("Expected unknown symbol to fail")
	}
	if !strings.Contains(err.Error(), "Did you mean 'helper'?") {
		t.Errorf("Expected a suggestion, got %q", err.Error())
	}
}

func TestDetectKindNoSuggestionForDistantNames(t *testing.T) {
	p := loadProject(t, map[string]string{"src/util.ts": mixedDeclarations})
	path := normalized(t, p, "src/util.ts")

	_, err := detectKind(p, path, "unrelatedName", nil)
	if err == nil {
		t.Fatal("Expected unknown symbol to fail")
	}
	if strings.Contains(err.Error(), "Did you mean") {
		t.Errorf("Expected no suggestion for a distant name, got %q", err.Error())
	}
}

func TestSelectorBuildParsesIn(t *testing.T) {
	p := loadProject(t, map[string]string{"src/pipeline.ts": `export class Pipeline {
  run(input: string): string {
    return input;
  }
}
`})

	flags := selectorFlags{in: "class:Pipeline"}
	sel, err := flags.build(p, "run", "src/pipeline.ts")
	if err != nil {
		t.Fatalf("Expected selector build to succeed, got: %v", err)
	}
	if sel.Scope == nil || sel.Scope.Type != types.ClassScope || sel.Scope.Name != "Pipeline" {
		t.Errorf("Expected class:Pipeline scope, got %+v", sel.Scope)
	}
	if sel.Kind != types.MethodSymbol {
		t.Errorf("Expected method kind, got %s", sel.Kind)
	}
}

func TestSelectorBuildRejectsMalformedIn(t *testing.T) {
	p := loadProject(t, map[string]string{"src/util.ts": mixedDeclarations})

	flags := selectorFlags{in: "Pipeline"}
	_, err := flags.build(p, "run", "src/util.ts")
	if err == nil {
		t.Fatal("Expected malformed --in to fail")
	}
	if !strings.Contains(err.Error(), "type:name") {
		t.Errorf("Expected format hint in error, got %q", err.Error())
	}
}

func TestSelectorBuildExplicitKindAlias(t *testing.T) {
	p := loadProject(t, map[string]string{"src/util.ts": mixedDeclarations})

	flags := selectorFlags{kind: "const"}
	sel, err := flags.build(p, "value", "src/util.ts")
	if err != nil {
		t.Fatalf("Expected explicit kind to succeed, got: %v", err)
	}
	if sel.Kind != types.VariableSymbol {
		t.Errorf("Expected variable kind for const alias, got %s", sel.Kind)
	}
}
