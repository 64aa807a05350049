package refactor

import (
	"context"
	"strings"
	"testing"

	"tsrefactor/pkg/types"
)

func moveOp(name string, kind types.SymbolKind, file, target string) types.Operation {
	return types.Operation{
		Op:             types.MoveOp,
		Selector:       types.Selector{Name: name, Kind: kind, FilePath: file},
		TargetFilePath: target,
	}
}

func TestMoveFunctionRewritesImporters(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/original.ts": `export function validateEmail(email: string): boolean {
  return email.includes('@');
}

export function other(): number {
  return 1;
}
`,
		"src/app.ts": `import { validateEmail } from './original';

export const ok = validateEmail('a@b.c');
`,
		"src/main.ts": `import { validateEmail, other } from './original';

export const both = validateEmail('x@y.z') && other() > 0;
`,
	})

	result := e.Execute(context.Background(),
		moveOp("validateEmail", types.FunctionSymbol, "src/original.ts", "src/validators.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	original := readDisk(t, e, "src/original.ts")
	if strings.Contains(original, "validateEmail") {
		t.Errorf("Expected the old module to lose the symbol entirely, got %q", original)
	}
	if !strings.Contains(original, "export function other") {
		t.Errorf("Expected unrelated declarations to survive, got %q", original)
	}

	target := readDisk(t, e, "src/validators.ts")
	if !strings.Contains(target, "export function validateEmail(email: string): boolean {") {
		t.Errorf("Expected the target to declare the symbol, got %q", target)
	}

	app := readDisk(t, e, "src/app.ts")
	if !strings.Contains(app, "import { validateEmail } from './validators';") {
		t.Errorf("Expected the importer repointed at the target, got %q", app)
	}
	if strings.Contains(app, "./original") {
		t.Errorf("Expected no import of the old module to remain, got %q", app)
	}
	if !strings.Contains(app, "validateEmail('a@b.c')") {
		t.Errorf("Expected call sites untouched, got %q", app)
	}

	main := readDisk(t, e, "src/main.ts")
	if !strings.Contains(main, "import { validateEmail } from './validators';") {
		t.Errorf("Expected a new import of the target, got %q", main)
	}
	if !strings.Contains(main, "import { other } from './original';") {
		t.Errorf("Expected the remaining specifier to keep its import, got %q", main)
	}
}

func TestMoveImportsExportedDependencyInsteadOfCopying(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/models.ts": `export interface Parent {
  id: string;
}

export interface Child extends Parent {
  name: string;
}
`,
	})

	result := e.Execute(context.Background(),
		moveOp("Child", types.InterfaceSymbol, "src/models.ts", "src/child.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	child := readDisk(t, e, "src/child.ts")
	if !strings.Contains(child, "import { Parent } from './models';") {
		t.Errorf("Expected the exported dependency to be imported, got %q", child)
	}
	if !strings.Contains(child, "export interface Child extends Parent {") {
		t.Errorf("Expected the moved declaration, got %q", child)
	}
	if strings.Contains(child, "interface Parent {") {
		t.Errorf("Expected Parent to be imported, not copied, got %q", child)
	}

	models := readDisk(t, e, "src/models.ts")
	if !strings.Contains(models, "export interface Parent") {
		t.Errorf("Expected Parent to stay in the source, got %q", models)
	}
	if strings.Contains(models, "Child") {
		t.Errorf("Expected Child gone from the source, got %q", models)
	}
}

func TestMoveCopiesNonExportedTypeDependency(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/util.ts": `interface Options {
  retries: number;
}

export function send(options: Options): void {
  void options;
}
`,
	})

	result := e.Execute(context.Background(),
		moveOp("send", types.FunctionSymbol, "src/util.ts", "src/sender.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	sender := readDisk(t, e, "src/sender.ts")
	if !strings.Contains(sender, "interface Options {") {
		t.Errorf("Expected the non-exported type to travel with the symbol, got %q", sender)
	}
	if !strings.Contains(sender, "export function send(options: Options): void {") {
		t.Errorf("Expected the moved declaration, got %q", sender)
	}
	if idx := strings.Index(sender, "interface Options"); idx > strings.Index(sender, "function send") {
		t.Errorf("Expected the type to precede its user, got %q", sender)
	}
}

func TestMoveRebasesExternalImports(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/config.ts": "export const limit = 5;\n",
		"src/a/util.ts": `import { limit } from '../config';

export function capped(n: number): number {
  return Math.min(n, limit);
}
`,
	})

	result := e.Execute(context.Background(),
		moveOp("capped", types.FunctionSymbol, "src/a/util.ts", "src/b/math.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	math := readDisk(t, e, "src/b/math.ts")
	if !strings.Contains(math, "import { limit } from '../config';") {
		t.Errorf("Expected the dependency import rebased for the target location, got %q", math)
	}
	if !strings.Contains(math, "export function capped") {
		t.Errorf("Expected the moved declaration, got %q", math)
	}
}

func TestMoveAddsBackImportWhenSourceStillUses(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/a.ts": `export function core(): number {
  return 7;
}

export function wrapper(): number {
  return core() * 2;
}
`,
	})

	result := e.Execute(context.Background(),
		moveOp("core", types.FunctionSymbol, "src/a.ts", "src/b.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	a := readDisk(t, e, "src/a.ts")
	if strings.Contains(a, "export function core") {
		t.Errorf("Expected the declaration gone from the source, got %q", a)
	}
	if !strings.Contains(a, "import { core } from './b';") {
		t.Errorf("Expected a back-import for the remaining use, got %q", a)
	}
	if !strings.Contains(a, "return core() * 2;") {
		t.Errorf("Expected the remaining use untouched, got %q", a)
	}

	b := readDisk(t, e, "src/b.ts")
	if !strings.Contains(b, "export function core(): number {") {
		t.Errorf("Expected the target to declare the symbol, got %q", b)
	}
}

func TestMoveCopyOnlyLeavesSourceAndImportersAlone(t *testing.T) {
	source := "export function util(): number {\n  return 3;\n}\n"
	app := "import { util } from './a';\n\nexport const v = util();\n"
	e := newTestEngine(t, map[string]string{
		"src/a.ts":   source,
		"src/app.ts": app,
	})

	op := moveOp("util", types.FunctionSymbol, "src/a.ts", "src/b.ts")
	op.CopyOnly = true
	result := e.Execute(context.Background(), op)
	if !result.Success {
		t.Fatalf("Expected copy to succeed, got error: %s", result.Error)
	}

	if got := readDisk(t, e, "src/a.ts"); got != source {
		t.Errorf("Expected the source untouched by a copy, got %q", got)
	}
	if got := readDisk(t, e, "src/app.ts"); got != app {
		t.Errorf("Expected importers untouched by a copy, got %q", got)
	}
	if got := readDisk(t, e, "src/b.ts"); !strings.Contains(got, "export function util") {
		t.Errorf("Expected the target to hold the copy, got %q", got)
	}
}

func TestMoveRejectsTargetConflict(t *testing.T) {
	source := "export function format(): string {\n  return 'a';\n}\n"
	target := "export function format(): string {\n  return 'b';\n}\n"
	e := newTestEngine(t, map[string]string{
		"src/a.ts": source,
		"src/b.ts": target,
	})

	result := e.Execute(context.Background(),
		moveOp("format", types.FunctionSymbol, "src/a.ts", "src/b.ts"))
	if result.Success {
		t.Fatal("Expected a naming conflict to block the move")
	}
	if !strings.Contains(result.Error, "naming conflict") {
		t.Errorf("Expected naming-conflict error, got %q", result.Error)
	}
	if got := readDisk(t, e, "src/a.ts"); got != source {
		t.Errorf("Expected the source byte-identical after the blocked move, got %q", got)
	}
	if got := readDisk(t, e, "src/b.ts"); got != target {
		t.Errorf("Expected the target byte-identical after the blocked move, got %q", got)
	}
}

func TestMoveRejectsSameFile(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/a.ts": "export function run(): void {}\n",
	})

	result := e.Execute(context.Background(),
		moveOp("run", types.FunctionSymbol, "src/a.ts", "src/a.ts"))
	if result.Success {
		t.Fatal("Expected a same-file move to be blocked")
	}
	if !strings.Contains(result.Error, "source and target are the same file") {
		t.Errorf("Expected same-file error, got %q", result.Error)
	}
}

func TestMoveAppendsToExistingTarget(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/a.ts": "export function extra(): number {\n  return 9;\n}\n",
		"src/b.ts": "export const existing = 1;\n",
	})

	result := e.Execute(context.Background(),
		moveOp("extra", types.FunctionSymbol, "src/a.ts", "src/b.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	b := readDisk(t, e, "src/b.ts")
	if !strings.HasPrefix(b, "export const existing = 1;\n") {
		t.Errorf("Expected existing content to stay first, got %q", b)
	}
	if !strings.Contains(b, "export function extra(): number {") {
		t.Errorf("Expected the moved declaration appended, got %q", b)
	}
}

func TestMoveDropsSatisfiedImportInTarget(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/a.ts": `export function feature(): number {
  return 4;
}

export function stays(): number {
  return 5;
}
`,
		"src/b.ts": `import { feature } from './a';

export const v = feature();
`,
	})

	result := e.Execute(context.Background(),
		moveOp("feature", types.FunctionSymbol, "src/a.ts", "src/b.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	b := readDisk(t, e, "src/b.ts")
	if strings.Contains(b, "./a") {
		t.Errorf("Expected the import of the moved symbol dropped, got %q", b)
	}
	if !strings.Contains(b, "export function feature(): number {") {
		t.Errorf("Expected the declaration in the target, got %q", b)
	}
	if !strings.Contains(b, "export const v = feature();") {
		t.Errorf("Expected uses in the target untouched, got %q", b)
	}

	a := readDisk(t, e, "src/a.ts")
	if strings.Contains(a, "feature") {
		t.Errorf("Expected the symbol gone from the source, got %q", a)
	}
}

func TestMoveKeepsOtherSpecifiersOfSatisfiedImport(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/a.ts": `export function feature(): number {
  return 4;
}

export function helper(): number {
  return 5;
}
`,
		"src/b.ts": `import { feature, helper } from './a';

export const v = feature() + helper();
`,
	})

	result := e.Execute(context.Background(),
		moveOp("feature", types.FunctionSymbol, "src/a.ts", "src/b.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	b := readDisk(t, e, "src/b.ts")
	if !strings.Contains(b, "import { helper } from './a';") {
		t.Errorf("Expected the surviving specifier to keep its import, got %q", b)
	}
	if !strings.Contains(b, "export function feature(): number {") {
		t.Errorf("Expected the declaration in the target, got %q", b)
	}
}

func TestMoveRepointsReExport(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/impl.ts": `export function feature(): number {
  return 2;
}
`,
		"src/index.ts": "export { feature } from './impl';\n",
	})

	result := e.Execute(context.Background(),
		moveOp("feature", types.FunctionSymbol, "src/impl.ts", "src/feature.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	index := readDisk(t, e, "src/index.ts")
	if !strings.Contains(index, "export { feature } from './feature';") {
		t.Errorf("Expected the re-export repointed at the target, got %q", index)
	}
	if strings.Contains(index, "./impl") {
		t.Errorf("Expected no re-export of the old module to remain, got %q", index)
	}
}

func TestMoveFlattensNamespaceImporter(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/util.ts": `export function helper(): number {
  return 1;
}

export const limit = 10;
`,
		"src/app.ts": `import * as util from './util';

export const value = util.helper() + util.limit;
`,
	})

	result := e.Execute(context.Background(),
		moveOp("helper", types.FunctionSymbol, "src/util.ts", "src/helpers.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	app := readDisk(t, e, "src/app.ts")
	if !strings.Contains(app, "import { helper } from './helpers';") {
		t.Errorf("Expected a named import of the target, got %q", app)
	}
	if !strings.Contains(app, "import * as util from './util';") {
		t.Errorf("Expected the namespace import to survive for other members, got %q", app)
	}
	if !strings.Contains(app, "helper() + util.limit") {
		t.Errorf("Expected qualified uses flattened, got %q", app)
	}
	if strings.Contains(app, "util.helper") {
		t.Errorf("Expected no qualified use of the moved symbol to remain, got %q", app)
	}
}

func TestMoveReportsAffectedFiles(t *testing.T) {
	e := newTestEngine(t, map[string]string{
		"src/a.ts":   "export function util(): number {\n  return 3;\n}\n",
		"src/app.ts": "import { util } from './a';\n\nexport const v = util();\n",
	})

	result := e.Execute(context.Background(),
		moveOp("util", types.FunctionSymbol, "src/a.ts", "src/b.ts"))
	if !result.Success {
		t.Fatalf("Expected move to succeed, got error: %s", result.Error)
	}

	want := []string{"src/a.ts", "src/app.ts", "src/b.ts"}
	if len(result.AffectedFiles) != len(want) {
		t.Fatalf("Expected %d affected files, got %v", len(want), result.AffectedFiles)
	}
	for i, rel := range want {
		if result.AffectedFiles[i] != rel {
			t.Errorf("Expected affected file %q, got %q", rel, result.AffectedFiles[i])
		}
	}
}
