package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tsrefactor/pkg/types"
)

type MoveSymbolInput struct {
	Selector       SelectorInput `json:"selector" jsonschema:"symbol to move"`
	TargetFilePath string        `json:"targetFilePath" jsonschema:"destination file, created if missing"`
	CopyOnly       bool          `json:"copyOnly,omitempty" jsonschema:"copy to the target and leave the source untouched"`
	Reason         string        `json:"reason,omitempty" jsonschema:"free-form note carried into the result"`
}

type RenameSymbolInput struct {
	Selector SelectorInput `json:"selector" jsonschema:"symbol to rename"`
	NewName  string        `json:"newName" jsonschema:"replacement name"`
	Scope    string        `json:"scope,omitempty" jsonschema:"project (default) renames every reference; file only touches the declaring file"`
	Reason   string        `json:"reason,omitempty" jsonschema:"free-form note carried into the result"`
}

type RemoveSymbolInput struct {
	Selector SelectorInput `json:"selector" jsonschema:"symbol to remove"`
	Reason   string        `json:"reason,omitempty" jsonschema:"free-form note carried into the result"`
}

// runOperation converts, executes, and renders one mutating operation
// under the write lock.
func runOperation(ctx context.Context, state *Server, in OperationInput) *mcpsdk.CallToolResult {
	op, err := in.toOperation()
	if err != nil {
		return errResult(err)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	eng, err := state.engineLocked()
	if err != nil {
		return errResult(err)
	}
	return operationResult(eng.Execute(ctx, op))
}

func registerRefactorTools(s *mcpsdk.Server, state *Server) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "move_symbol",
		Description: "Move a top-level symbol to another file. Imports and re-exports across the project are rewritten, dependencies travel or get imported, and the operation fails with no changes when it would collide or break references.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in MoveSymbolInput) (*mcpsdk.CallToolResult, any, error) {
		return runOperation(ctx, state, OperationInput{
			Operation:      types.MoveOp.String(),
			Selector:       in.Selector,
			TargetFilePath: in.TargetFilePath,
			CopyOnly:       in.CopyOnly,
			Reason:         in.Reason,
		}), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "rename_symbol",
		Description: "Rename a symbol and every reference to it, including namespace-qualified uses and re-exports. Naming conflicts fail the operation with no changes.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in RenameSymbolInput) (*mcpsdk.CallToolResult, any, error) {
		return runOperation(ctx, state, OperationInput{
			Operation: types.RenameOp.String(),
			Selector:  in.Selector,
			NewName:   in.NewName,
			Scope:     in.Scope,
			Reason:    in.Reason,
		}), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "remove_symbol",
		Description: "Remove a symbol declaration and its attached comments. Blocked when any other code still references it; the blocker lists the referencing files.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in RemoveSymbolInput) (*mcpsdk.CallToolResult, any, error) {
		return runOperation(ctx, state, OperationInput{
			Operation: types.RemoveOp.String(),
			Selector:  in.Selector,
			Reason:    in.Reason,
		}), nil, nil
	})
}
