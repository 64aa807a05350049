package analysis

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProject writes the given files under a temp root and loads them.
func newTestProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	tmpDir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}

	p, err := project.NewProject(tmpDir, testLogger())
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	t.Cleanup(p.Close)
	if err := p.Load(); err != nil {
		t.Fatalf("Failed to load project: %v", err)
	}
	return p
}

func fileOf(t *testing.T, p *project.Project, rel string) *project.SourceFile {
	t.Helper()
	sf, ok := p.File(filepath.Join(p.Root(), filepath.FromSlash(rel)))
	if !ok {
		t.Fatalf("File %s not loaded", rel)
	}
	return sf
}

const lookupFixture = `import { helper } from './util';

export function processData(input: string): string {
  return helper(input);
}

export function processData2(input: number): number {
  return input * 2;
}

export class Pipeline {
  name: string;

  constructor(name: string) {
    this.name = name;
  }

  run(input: string): string {
    const normalized = input.trim();
    return processData(normalized);
  }
}

export interface Stage {
  execute(input: string): string;
}

export type StageList = Stage[];

export enum Mode {
  Fast,
  Thorough,
}

const internalLimit = 100;
export const defaultMode = Mode.Fast;
let counter = 0, total = 0;
`

func TestFindDeclarationTopLevel(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/pipeline.ts": lookupFixture})
	sf := fileOf(t, p, "src/pipeline.ts")

	testCases := []struct {
		name string
		kind types.SymbolKind
	}{
		{"processData", types.FunctionSymbol},
		{"Pipeline", types.ClassSymbol},
		{"Stage", types.InterfaceSymbol},
		{"StageList", types.TypeAliasSymbol},
		{"Mode", types.EnumSymbol},
		{"internalLimit", types.VariableSymbol},
		{"defaultMode", types.VariableSymbol},
		{"counter", types.VariableSymbol},
		{"total", types.VariableSymbol},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decl := FindDeclaration(sf, types.Selector{Name: tc.name, Kind: tc.kind})
			if decl == nil {
				t.Fatalf("Expected to find %s", tc.name)
			}
			if decl.Kind != tc.kind {
				t.Errorf("Expected kind %s, got %s", tc.kind, decl.Kind)
			}
			if !decl.TopLevel {
				t.Errorf("Expected %s to be top-level", tc.name)
			}
		})
	}
}

func TestFindDeclarationNotFound(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/pipeline.ts": lookupFixture})
	sf := fileOf(t, p, "src/pipeline.ts")

	decl := FindDeclaration(sf, types.Selector{Name: "missing", Kind: types.FunctionSymbol})
	if decl != nil {
		t.Error("Expected nil for a missing symbol")
	}

	// Right name, wrong kind.
	decl = FindDeclaration(sf, types.Selector{Name: "Pipeline", Kind: types.FunctionSymbol})
	if decl != nil {
		t.Error("Expected nil when the kind does not match")
	}
}

func TestFindDeclarationScopedMembers(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/pipeline.ts": lookupFixture})
	sf := fileOf(t, p, "src/pipeline.ts")

	decl := FindDeclaration(sf, types.Selector{
		Name: "run",
		Kind: types.MethodSymbol,
		Scope: &types.ScopeRef{
			Type: types.ClassScope,
			Name: "Pipeline",
		},
	})
	if decl == nil {
		t.Fatal("Expected to find method run")
	}
	if decl.TopLevel {
		t.Error("Expected a class member to not be top-level")
	}

	decl = FindDeclaration(sf, types.Selector{
		Name: "name",
		Kind: types.PropertySymbol,
		Scope: &types.ScopeRef{
			Type: types.ClassScope,
			Name: "Pipeline",
		},
	})
	if decl == nil {
		t.Fatal("Expected to find property name")
	}

	decl = FindDeclaration(sf, types.Selector{
		Name: "execute",
		Kind: types.MethodSymbol,
		Scope: &types.ScopeRef{
			Type: types.InterfaceScope,
			Name: "Stage",
		},
	})
	if decl == nil {
		t.Fatal("Expected to find interface method execute")
	}
}

func TestFindDeclarationConstructor(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/pipeline.ts": lookupFixture})
	sf := fileOf(t, p, "src/pipeline.ts")

	decl := FindDeclaration(sf, types.Selector{
		Name: "constructor",
		Kind: types.MethodSymbol,
		Scope: &types.ScopeRef{
			Type: types.ClassScope,
			Name: "Pipeline",
		},
	})
	if decl == nil {
		t.Fatal("Expected to find the constructor")
	}
	if got := sf.NodeText(decl.Node); got == "" {
		t.Error("Expected constructor text")
	}
}

func TestFindDeclarationLocalVariable(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/local.ts": `export function outer(): number {
  const localValue = 42;
  let mutable = 0;
  if (localValue > 0) {
    const nested = localValue * 2;
    mutable = nested;
  }
  return mutable;
}
`})
	sf := fileOf(t, p, "src/local.ts")

	testCases := []string{"localValue", "mutable", "nested"}
	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			decl := FindDeclaration(sf, types.Selector{
				Name: name,
				Kind: types.VariableSymbol,
				Scope: &types.ScopeRef{
					Type: types.FunctionScope,
					Name: "outer",
				},
			})
			if decl == nil {
				t.Fatalf("Expected to find local %s", name)
			}
			if decl.TopLevel {
				t.Errorf("Expected %s to not be top-level", name)
			}
		})
	}
}

func TestFindDeclarationSignatureHint(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/overloads.ts": `export function parse(input: string): number;
export function parse(input: number): string;
export function parse(input: any): any {
  return input;
}
`})
	sf := fileOf(t, p, "src/overloads.ts")

	decl := FindDeclaration(sf, types.Selector{
		Name:          "parse",
		Kind:          types.FunctionSymbol,
		SignatureHint: "input: number",
	})
	if decl == nil {
		t.Fatal("Expected to find an overload")
	}
	if got := decl.StatementText(); got != "export function parse(input: number): string;" {
		t.Errorf("Expected the hinted overload, got %q", got)
	}

	// Without a hint the first candidate wins.
	decl = FindDeclaration(sf, types.Selector{Name: "parse", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find parse")
	}
	if got := decl.StatementText(); got != "export function parse(input: string): number;" {
		t.Errorf("Expected the first overload, got %q", got)
	}
}

func TestFindDeclarationNamespaceMember(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/ns.ts": `export namespace Config {
  export const version = "1.0";
  export function describe(): string {
    return version;
  }
}
`})
	sf := fileOf(t, p, "src/ns.ts")

	decl := FindDeclaration(sf, types.Selector{
		Name: "describe",
		Kind: types.FunctionSymbol,
		Scope: &types.ScopeRef{
			Type: types.NamespaceScope,
			Name: "Config",
		},
	})
	if decl == nil {
		t.Fatal("Expected to find namespace function")
	}

	decl = FindDeclaration(sf, types.Selector{
		Name: "version",
		Kind: types.VariableSymbol,
		Scope: &types.ScopeRef{
			Type: types.NamespaceScope,
			Name: "Config",
		},
	})
	if decl == nil {
		t.Fatal("Expected to find namespace variable")
	}
}

func TestFindExportSpecifier(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"src/impl.ts":  "export function realWork(): void {}\n",
		"src/index.ts": "export { realWork } from './impl';\n",
	})
	sf := fileOf(t, p, "src/index.ts")

	decl := FindDeclaration(sf, types.Selector{Name: "realWork", Kind: types.ExportSpecifierSymbol})
	if decl == nil {
		t.Fatal("Expected to find the export specifier")
	}
	if decl.Kind != types.ExportSpecifierSymbol {
		t.Errorf("Expected export-specifier kind, got %s", decl.Kind)
	}
}

func TestTopLevelDeclarations(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/pipeline.ts": lookupFixture})
	sf := fileOf(t, p, "src/pipeline.ts")

	decls := TopLevelDeclarations(sf)

	names := make(map[string]types.SymbolKind)
	for _, d := range decls {
		names[d.Name] = d.Kind
	}
	expected := map[string]types.SymbolKind{
		"processData":   types.FunctionSymbol,
		"processData2":  types.FunctionSymbol,
		"Pipeline":      types.ClassSymbol,
		"Stage":         types.InterfaceSymbol,
		"StageList":     types.TypeAliasSymbol,
		"Mode":          types.EnumSymbol,
		"internalLimit": types.VariableSymbol,
		"defaultMode":   types.VariableSymbol,
		"counter":       types.VariableSymbol,
		"total":         types.VariableSymbol,
	}
	for name, kind := range expected {
		got, ok := names[name]
		if !ok {
			t.Errorf("Expected %s in top-level declarations", name)
			continue
		}
		if got != kind {
			t.Errorf("Expected %s to be %s, got %s", name, kind, got)
		}
	}
	// Class members must not appear.
	if _, ok := names["run"]; ok {
		t.Error("Did not expect a method in top-level declarations")
	}
}

func TestContainerOf(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/pipeline.ts": lookupFixture})
	sf := fileOf(t, p, "src/pipeline.ts")

	decl := FindDeclaration(sf, types.Selector{
		Name: "run", Kind: types.MethodSymbol,
		Scope: &types.ScopeRef{Type: types.ClassScope, Name: "Pipeline"},
	})
	if decl == nil {
		t.Fatal("Expected to find Pipeline.run")
	}
	scope := ContainerOf(decl)
	if scope == nil {
		t.Fatal("Expected a container for a method")
	}
	if scope.Type != types.ClassScope || scope.Name != "Pipeline" {
		t.Errorf("Expected class Pipeline, got %s %q", scope.Type, scope.Name)
	}

	top := FindDeclaration(sf, types.Selector{Name: "processData", Kind: types.FunctionSymbol})
	if top == nil {
		t.Fatal("Expected to find processData")
	}
	if ContainerOf(top) != nil {
		t.Error("Expected no container for a top-level function")
	}
}

func TestIdentifierAt(t *testing.T) {
	content := "export function greet(name: string): string {\n  return name;\n}\n"
	p := newTestProject(t, map[string]string{"src/a.ts": content})
	sf := fileOf(t, p, "src/a.ts")

	id := IdentifierAt(sf, strings.Index(content, "greet")+2)
	if id == nil {
		t.Fatal("Expected an identifier under the cursor")
	}
	if got := sf.NodeText(id); got != "greet" {
		t.Errorf("Expected identifier greet, got %q", got)
	}

	if IdentifierAt(sf, strings.Index(content, "{")) != nil {
		t.Error("Expected no identifier on punctuation")
	}
	if IdentifierAt(sf, -1) != nil || IdentifierAt(sf, len(content)+5) != nil {
		t.Error("Expected no identifier outside the text")
	}
}

func TestDeclarationAt(t *testing.T) {
	util := "export function helper(input: string): string {\n  return input;\n}\n"
	app := "import { helper } from './util';\n\n" +
		"export const value = helper('x');\n\n" +
		"export class Service {\n  run(): string {\n    return helper('y');\n  }\n}\n"
	p := newTestProject(t, map[string]string{
		"src/util.ts": util,
		"src/app.ts":  app,
	})
	appFile := fileOf(t, p, "src/app.ts")
	utilFile := fileOf(t, p, "src/util.ts")

	// A use of an imported name resolves to the declaring file.
	decl := DeclarationAt(p, appFile, strings.Index(app, "helper('x')"))
	if decl == nil {
		t.Fatal("Expected a declaration for the imported name")
	}
	if decl.File.Path != utilFile.Path {
		t.Errorf("Expected declaration in util.ts, got %s", decl.File.Path)
	}
	if decl.Kind != types.FunctionSymbol {
		t.Errorf("Expected FunctionSymbol, got %s", decl.Kind)
	}

	// The import specifier itself resolves the same way.
	decl = DeclarationAt(p, appFile, strings.Index(app, "helper"))
	if decl == nil || decl.File.Path != utilFile.Path {
		t.Error("Expected the import specifier to resolve to the declaring file")
	}

	// A same-file top-level name.
	decl = DeclarationAt(p, appFile, strings.Index(app, "value"))
	if decl == nil {
		t.Fatal("Expected a declaration for a top-level name")
	}
	if decl.Kind != types.VariableSymbol {
		t.Errorf("Expected VariableSymbol, got %s", decl.Kind)
	}

	// A member name at its own declaration site.
	decl = DeclarationAt(p, appFile, strings.Index(app, "run()"))
	if decl == nil {
		t.Fatal("Expected a declaration for a method name")
	}
	if decl.Kind != types.MethodSymbol {
		t.Errorf("Expected MethodSymbol, got %s", decl.Kind)
	}
	if decl.TopLevel {
		t.Error("Expected a member declaration to not be top-level")
	}

	if DeclarationAt(p, appFile, strings.Index(app, "=")) != nil {
		t.Error("Expected no declaration on punctuation")
	}
}
