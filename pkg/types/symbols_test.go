package types

import (
	"encoding/json"
	"testing"
)

func TestSymbolKind_RoundTrip(t *testing.T) {
	kinds := []SymbolKind{
		FunctionSymbol, ClassSymbol, InterfaceSymbol, TypeAliasSymbol,
		EnumSymbol, VariableSymbol, MethodSymbol, PropertySymbol,
		ExportSpecifierSymbol, NamespaceSymbol,
	}

	for _, k := range kinds {
		parsed, err := ParseSymbolKind(k.String())
		if err != nil {
			t.Errorf("Failed to parse kind %q: %v", k.String(), err)
			continue
		}
		if parsed != k {
			t.Errorf("Round trip mismatch for %q: got %v", k.String(), parsed)
		}
	}
}

func TestSymbolKind_ParseAliases(t *testing.T) {
	testCases := []struct {
		input    string
		expected SymbolKind
	}{
		{input: "type", expected: TypeAliasSymbol},
		{input: "const", expected: VariableSymbol},
		{input: "let", expected: VariableSymbol},
		{input: "var", expected: VariableSymbol},
	}

	for _, tc := range testCases {
		k, err := ParseSymbolKind(tc.input)
		if err != nil {
			t.Errorf("Expected %q to parse, got error: %v", tc.input, err)
			continue
		}
		if k != tc.expected {
			t.Errorf("Expected %q to parse as %v, got %v", tc.input, tc.expected, k)
		}
	}

	if _, err := ParseSymbolKind("struct"); err == nil {
		t.Error("Expected unknown kind 'struct' to fail")
	}
}

func TestSymbolKind_Movable(t *testing.T) {
	movable := []SymbolKind{FunctionSymbol, ClassSymbol, InterfaceSymbol, TypeAliasSymbol, EnumSymbol, VariableSymbol}
	for _, k := range movable {
		if !k.Movable() {
			t.Errorf("Expected %v to be movable", k)
		}
	}

	notMovable := []SymbolKind{MethodSymbol, PropertySymbol, ExportSpecifierSymbol, NamespaceSymbol}
	for _, k := range notMovable {
		if k.Movable() {
			t.Errorf("Expected %v to not be movable", k)
		}
	}
}

func TestSymbolKind_Removable(t *testing.T) {
	removable := []SymbolKind{
		FunctionSymbol, ClassSymbol, InterfaceSymbol, TypeAliasSymbol,
		EnumSymbol, VariableSymbol, MethodSymbol, PropertySymbol, ExportSpecifierSymbol,
	}
	for _, k := range removable {
		if !k.Removable() {
			t.Errorf("Expected %v to be removable", k)
		}
	}

	if NamespaceSymbol.Removable() {
		t.Error("Expected namespace to not be removable")
	}
}

func TestSelector_UnmarshalScope(t *testing.T) {
	raw := `{
		"type": "identifier",
		"name": "save",
		"kind": "method",
		"filePath": "src/repo.ts",
		"scope": {"type": "class", "name": "Repo"}
	}`

	var sel Selector
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		t.Fatalf("Failed to unmarshal selector: %v", err)
	}

	if sel.Scope == nil || sel.Scope.Type != ClassScope || sel.Scope.Name != "Repo" {
		t.Errorf("Expected class scope Repo, got %+v", sel.Scope)
	}
}

func TestSelector_ParentAliasRejectsBadKind(t *testing.T) {
	raw := `{
		"name": "x",
		"kind": "property",
		"filePath": "a.ts",
		"parent": {"name": "colors", "kind": "enum"}
	}`

	var sel Selector
	if err := json.Unmarshal([]byte(raw), &sel); err == nil {
		t.Error("Expected enum parent to be rejected as a scope container")
	}
}

func TestSelector_String(t *testing.T) {
	sel := Selector{Name: "run", Kind: MethodSymbol, FilePath: "src/job.ts", Scope: &ScopeRef{Type: ClassScope, Name: "Job"}}
	got := sel.String()
	want := "method Job.run in src/job.ts"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
