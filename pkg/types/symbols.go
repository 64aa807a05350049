package types

import (
	"encoding/json"
	"fmt"
)

// SymbolKind classifies a named TypeScript declaration.
type SymbolKind int

const (
	FunctionSymbol SymbolKind = iota
	ClassSymbol
	InterfaceSymbol
	TypeAliasSymbol
	EnumSymbol
	VariableSymbol
	MethodSymbol
	PropertySymbol
	ExportSpecifierSymbol
	NamespaceSymbol
)

// String returns the wire name of a SymbolKind.
func (k SymbolKind) String() string {
	switch k {
	case FunctionSymbol:
		return "function"
	case ClassSymbol:
		return "class"
	case InterfaceSymbol:
		return "interface"
	case TypeAliasSymbol:
		return "type-alias"
	case EnumSymbol:
		return "enum"
	case VariableSymbol:
		return "variable"
	case MethodSymbol:
		return "method"
	case PropertySymbol:
		return "property"
	case ExportSpecifierSymbol:
		return "export-specifier"
	case NamespaceSymbol:
		return "namespace"
	default:
		return "unknown"
	}
}

// ParseSymbolKind converts a wire name back into a SymbolKind.
func ParseSymbolKind(s string) (SymbolKind, error) {
	switch s {
	case "function":
		return FunctionSymbol, nil
	case "class":
		return ClassSymbol, nil
	case "interface":
		return InterfaceSymbol, nil
	case "type-alias", "type":
		return TypeAliasSymbol, nil
	case "enum":
		return EnumSymbol, nil
	case "variable", "const", "let", "var":
		return VariableSymbol, nil
	case "method":
		return MethodSymbol, nil
	case "property":
		return PropertySymbol, nil
	case "export-specifier":
		return ExportSpecifierSymbol, nil
	case "namespace":
		return NamespaceSymbol, nil
	default:
		return 0, fmt.Errorf("unknown symbol kind %q", s)
	}
}

func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseSymbolKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Movable reports whether symbols of this kind may be relocated between
// files. Only top-level declarations qualify; nested members never do.
func (k SymbolKind) Movable() bool {
	switch k {
	case FunctionSymbol, ClassSymbol, InterfaceSymbol, TypeAliasSymbol, EnumSymbol, VariableSymbol:
		return true
	}
	return false
}

// Removable reports whether symbols of this kind may be deleted once no
// external references remain.
func (k SymbolKind) Removable() bool {
	if k.Movable() {
		return true
	}
	switch k {
	case MethodSymbol, PropertySymbol, ExportSpecifierSymbol:
		return true
	}
	return false
}

// ScopeType identifies the container a nested symbol is looked up within.
type ScopeType int

const (
	ClassScope ScopeType = iota
	InterfaceScope
	FunctionScope
	NamespaceScope
)

func (t ScopeType) String() string {
	switch t {
	case ClassScope:
		return "class"
	case InterfaceScope:
		return "interface"
	case FunctionScope:
		return "function"
	case NamespaceScope:
		return "namespace"
	default:
		return "unknown"
	}
}

// ParseScopeType converts a wire name back into a ScopeType.
func ParseScopeType(s string) (ScopeType, error) {
	switch s {
	case "class":
		return ClassScope, nil
	case "interface":
		return InterfaceScope, nil
	case "function":
		return FunctionScope, nil
	case "namespace":
		return NamespaceScope, nil
	default:
		return 0, fmt.Errorf("unknown scope type %q", s)
	}
}

func (t ScopeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ScopeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	st, err := ParseScopeType(s)
	if err != nil {
		return err
	}
	*t = st
	return nil
}

// ScopeRef names the enclosing container for a scoped lookup.
type ScopeRef struct {
	Type ScopeType `json:"type"`
	Name string    `json:"name"`
}

// Selector identifies what to find and where to look. Immutable, supplied
// by the caller.
type Selector struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	FilePath      string     `json:"filePath"`
	Scope         *ScopeRef  `json:"scope,omitempty"`
	SignatureHint string     `json:"signatureHint,omitempty"`
}

// selectorWire is the raw JSON shape; some callers send "parent" instead of
// "scope" and a parent kind instead of a scope type.
type selectorWire struct {
	Type          string     `json:"type,omitempty"`
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	FilePath      string     `json:"filePath"`
	Scope         *ScopeRef  `json:"scope,omitempty"`
	Parent        *parentRef `json:"parent,omitempty"`
	SignatureHint string     `json:"signatureHint,omitempty"`
}

type parentRef struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
}

func (s *Selector) UnmarshalJSON(data []byte) error {
	var w selectorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Name = w.Name
	s.Kind = w.Kind
	s.FilePath = w.FilePath
	s.SignatureHint = w.SignatureHint
	s.Scope = w.Scope
	if s.Scope == nil && w.Parent != nil {
		st, err := scopeTypeForKind(w.Parent.Kind)
		if err != nil {
			return err
		}
		s.Scope = &ScopeRef{Type: st, Name: w.Parent.Name}
	}
	return nil
}

func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(selectorWire{
		Type:          "identifier",
		Name:          s.Name,
		Kind:          s.Kind,
		FilePath:      s.FilePath,
		Scope:         s.Scope,
		SignatureHint: s.SignatureHint,
	})
}

func scopeTypeForKind(k SymbolKind) (ScopeType, error) {
	switch k {
	case ClassSymbol:
		return ClassScope, nil
	case InterfaceSymbol:
		return InterfaceScope, nil
	case FunctionSymbol:
		return FunctionScope, nil
	case NamespaceSymbol:
		return NamespaceScope, nil
	default:
		return 0, fmt.Errorf("symbol kind %q cannot contain nested symbols", k)
	}
}

func (s Selector) String() string {
	if s.Scope != nil {
		return fmt.Sprintf("%s %s.%s in %s", s.Kind, s.Scope.Name, s.Name, s.FilePath)
	}
	return fmt.Sprintf("%s %s in %s", s.Kind, s.Name, s.FilePath)
}

// NodeHandle is a borrowed reference to a declaration inside a file's
// current tree: the byte range of the declaration itself plus the range of
// the enclosing statement (the export_statement wrapper or the full
// variable declaration statement, when they differ). Valid only until the
// next mutation or refresh of that file.
type NodeHandle struct {
	Start     int
	End       int
	StmtStart int
	StmtEnd   int
	Line      int
	Column    int
}

// ResolvedSymbol wraps a lookup result for one operation invocation. Not
// persisted; lifetime bounded to the operation's execution.
type ResolvedSymbol struct {
	Decl       NodeHandle
	Name       string
	Kind       SymbolKind
	IsExported bool
	FilePath   string
}

// ReferenceInfo records one use of a symbol. Produced transiently by
// reference search; the byte range drives rewrites.
type ReferenceInfo struct {
	FilePath        string
	Line            int
	IsInSameFile    bool
	IsInExportClause bool
	Start           int
	End             int
}

// Dependencies captures what a declaration needs from its surroundings:
// imported bindings it uses, same-file type declarations that must
// accompany a move, and same-file value names it calls but leaves behind.
type Dependencies struct {
	Imports         map[string]string `json:"imports"`
	Types           []string          `json:"types"`
	LocalReferences []string          `json:"localReferences"`
}

// ExtractedSymbol is a self-contained textual payload ready for insertion
// into a target file.
type ExtractedSymbol struct {
	Text            string       `json:"text"`
	LeadingComments []string     `json:"leadingComments"`
	Dependencies    Dependencies `json:"dependencies"`
	IsExported      bool         `json:"isExported"`
}
