package analysis

import (
	"strings"
	"testing"

	"tsrefactor/pkg/types"
)

func TestExtractDependenciesClosure(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/model.ts": `import { Logger } from './logging';

export interface Base {
  id: number;
}

export interface Parent extends Base {
  label: string;
}

export interface Child extends Parent {
  weight: number;
}

export function inspect(child: Child, log: Logger): string {
  return format(child) + log.name;
}

function format(child: Child): string {
  return String(child.weight);
}
`,
		"src/logging.ts": "export interface Logger {\n  name: string;\n}\n"})
	sf := fileOf(t, p, "src/model.ts")

	extractor := NewDependencyExtractor(p, testLogger())

	decl := FindDeclaration(sf, types.Selector{Name: "inspect", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find inspect")
	}

	deps := extractor.ExtractDependencies(decl)

	// Child pulls in Parent, which pulls in Base.
	wantTypes := []string{"Child", "Parent", "Base"}
	if len(deps.Types) != len(wantTypes) {
		t.Fatalf("Expected types %v, got %v", wantTypes, deps.Types)
	}
	for i, name := range wantTypes {
		if deps.Types[i] != name {
			t.Errorf("Expected types[%d] = %s, got %s", i, name, deps.Types[i])
		}
	}

	if source, ok := deps.Imports["Logger"]; !ok || source != "./logging" {
		t.Errorf("Expected Logger mapped to ./logging, got %v", deps.Imports)
	}

	if len(deps.LocalReferences) != 1 || deps.LocalReferences[0] != "format" {
		t.Errorf("Expected local reference to format, got %v", deps.LocalReferences)
	}
}

func TestExtractDependenciesCycleSafe(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/cyclic.ts": `export interface Node {
  parent: Tree | null;
}

export interface Tree {
  root: Node;
}

export function walkTree(tree: Tree): void {
  console.log(tree.root);
}
`})
	sf := fileOf(t, p, "src/cyclic.ts")

	extractor := NewDependencyExtractor(p, testLogger())
	decl := FindDeclaration(sf, types.Selector{Name: "walkTree", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find walkTree")
	}

	deps := extractor.ExtractDependencies(decl)

	seen := make(map[string]int)
	for _, name := range deps.Types {
		seen[name]++
	}
	if seen["Tree"] != 1 || seen["Node"] != 1 {
		t.Errorf("Expected Tree and Node exactly once, got %v", deps.Types)
	}
}

func TestExtractDependenciesSkipsNoise(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/noise.ts": `export function report(): void {
  const payload = { status: "ok", count: 2 };
  console.log(JSON.stringify(payload));
  Math.max(1, payload.count);
}
`})
	sf := fileOf(t, p, "src/noise.ts")

	extractor := NewDependencyExtractor(p, testLogger())
	decl := FindDeclaration(sf, types.Selector{Name: "report", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find report")
	}

	deps := extractor.ExtractDependencies(decl)
	if len(deps.Types) != 0 {
		t.Errorf("Expected no type dependencies, got %v", deps.Types)
	}
	if len(deps.Imports) != 0 {
		t.Errorf("Expected no imports, got %v", deps.Imports)
	}
	if len(deps.LocalReferences) != 0 {
		t.Errorf("Expected no local references, got %v", deps.LocalReferences)
	}
}

func TestExtractSymbolLeadingComments(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/doc.ts": `const spacer = 1;

// Far away comment.


/**
 * Computes the checksum for a payload.
 */
// eslint-disable-next-line complexity
export function checksum(data: string): number {
  return data.length;
}
`})
	sf := fileOf(t, p, "src/doc.ts")

	extractor := NewDependencyExtractor(p, testLogger())
	decl := FindDeclaration(sf, types.Selector{Name: "checksum", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find checksum")
	}

	extraction := extractor.ExtractSymbol(decl, true)

	if len(extraction.LeadingComments) != 1 {
		t.Fatalf("Expected 1 leading comment, got %d: %v",
			len(extraction.LeadingComments), extraction.LeadingComments)
	}
	if !strings.Contains(extraction.LeadingComments[0], "Computes the checksum") {
		t.Errorf("Expected the doc comment, got %q", extraction.LeadingComments[0])
	}
	if strings.Contains(extraction.Text, "eslint-disable") {
		t.Error("Expected the scaffolding comment to be dropped")
	}
	if strings.Contains(extraction.Text, "Far away comment") {
		t.Error("Expected the distant comment to be dropped")
	}
}

func TestExtractSymbolExportNormalization(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/norm.ts": `function implicitlyExported(): void {}

export { implicitlyExported };

export function directlyExported(): void {}
`})
	sf := fileOf(t, p, "src/norm.ts")

	extractor := NewDependencyExtractor(p, testLogger())

	decl := FindDeclaration(sf, types.Selector{Name: "implicitlyExported", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find implicitlyExported")
	}
	extraction := extractor.ExtractSymbol(decl, true)
	if !strings.HasPrefix(extraction.OwnText, "export function implicitlyExported") {
		t.Errorf("Expected export keyword to be added, got %q", extraction.OwnText)
	}

	decl = FindDeclaration(sf, types.Selector{Name: "directlyExported", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find directlyExported")
	}
	extraction = extractor.ExtractSymbol(decl, true)
	if !strings.HasPrefix(extraction.OwnText, "export function directlyExported") {
		t.Errorf("Expected a single export keyword, got %q", extraction.OwnText)
	}
	if strings.Contains(extraction.OwnText, "export export") {
		t.Errorf("Export keyword duplicated: %q", extraction.OwnText)
	}
}

func TestExtractSymbolVariableStatement(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/vars.ts": `export const first = 1, second = 2;
export const alone = 3;
`})
	sf := fileOf(t, p, "src/vars.ts")

	extractor := NewDependencyExtractor(p, testLogger())

	decl := FindDeclaration(sf, types.Selector{Name: "second", Kind: types.VariableSymbol})
	if decl == nil {
		t.Fatal("Expected to find second")
	}
	extraction := extractor.ExtractSymbol(decl, true)
	if extraction.OwnText != "export const second = 2;" {
		t.Errorf("Expected a standalone statement, got %q", extraction.OwnText)
	}

	decl = FindDeclaration(sf, types.Selector{Name: "alone", Kind: types.VariableSymbol})
	if decl == nil {
		t.Fatal("Expected to find alone")
	}
	extraction = extractor.ExtractSymbol(decl, true)
	if extraction.OwnText != "export const alone = 3;" {
		t.Errorf("Expected the whole statement, got %q", extraction.OwnText)
	}
}

func TestExtractSymbolTypeDeclsCarryExportStatus(t *testing.T) {
	p := newTestProject(t, map[string]string{"src/mixed.ts": `export interface Shared {
  id: number;
}

interface Hidden {
  secret: string;
}

export function use(shared: Shared, hidden: Hidden): void {
  console.log(shared, hidden);
}
`})
	sf := fileOf(t, p, "src/mixed.ts")

	extractor := NewDependencyExtractor(p, testLogger())
	decl := FindDeclaration(sf, types.Selector{Name: "use", Kind: types.FunctionSymbol})
	if decl == nil {
		t.Fatal("Expected to find use")
	}

	extraction := extractor.ExtractSymbol(decl, true)
	if len(extraction.TypeDecls) != 2 {
		t.Fatalf("Expected 2 type declarations, got %d", len(extraction.TypeDecls))
	}

	byName := make(map[string]TypeDecl)
	for _, td := range extraction.TypeDecls {
		byName[td.Name] = td
	}
	if !byName["Shared"].Exported {
		t.Error("Expected Shared to be marked exported")
	}
	if byName["Hidden"].Exported {
		t.Error("Expected Hidden to be marked not exported")
	}
}
