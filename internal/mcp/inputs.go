package mcp

import (
	"encoding/json"

	"tsrefactor/pkg/types"
)

// SelectorInput names a symbol the way the batch wire format does.
type SelectorInput struct {
	Name          string      `json:"name" jsonschema:"symbol name"`
	Kind          string      `json:"kind" jsonschema:"symbol kind: function, class, interface, type-alias, enum, variable, method, property, namespace"`
	FilePath      string      `json:"filePath" jsonschema:"declaring file, absolute or relative to the project root"`
	Scope         *ScopeInput `json:"scope,omitempty" jsonschema:"container holding the symbol, for class or namespace members"`
	SignatureHint string      `json:"signatureHint,omitempty" jsonschema:"fragment of the declaration text, to pick between overloads"`
}

// ScopeInput names the container of a member symbol.
type ScopeInput struct {
	Type string `json:"type" jsonschema:"container kind: class, interface, function, namespace"`
	Name string `json:"name" jsonschema:"container name"`
}

// OperationInput is one batch entry in the wire format shared with the
// CLI batch file.
type OperationInput struct {
	Operation      string        `json:"operation" jsonschema:"one of: move, rename, remove"`
	Selector       SelectorInput `json:"selector" jsonschema:"symbol the operation targets"`
	TargetFilePath string        `json:"targetFilePath,omitempty" jsonschema:"destination file for move"`
	CopyOnly       bool          `json:"copyOnly,omitempty" jsonschema:"copy to the target without touching the source"`
	NewName        string        `json:"newName,omitempty" jsonschema:"replacement name for rename"`
	Scope          string        `json:"scope,omitempty" jsonschema:"rename scope: project (default) or file"`
	Reason         string        `json:"reason,omitempty" jsonschema:"free-form note carried into the result"`
}

// toSelector decodes through the canonical wire format so kind and scope
// parsing stay in one place.
func (in SelectorInput) toSelector() (types.Selector, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return types.Selector{}, err
	}
	var sel types.Selector
	if err := json.Unmarshal(raw, &sel); err != nil {
		return types.Selector{}, err
	}
	return sel, nil
}

func (in OperationInput) toOperation() (types.Operation, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return types.Operation{}, err
	}
	var op types.Operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return types.Operation{}, err
	}
	return op, nil
}

func toOperations(inputs []OperationInput) ([]types.Operation, error) {
	ops := make([]types.Operation, 0, len(inputs))
	for _, in := range inputs {
		op, err := in.toOperation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
