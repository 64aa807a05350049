package mcp

import (
	"encoding/json"
	"errors"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tsrefactor/pkg/types"
)

// textResult marshals v to indented JSON and wraps it in a single
// TextContent block.
func textResult(v any) *mcpsdk.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a CallToolResult flagged as a tool error. Failures
// belong inside the result so the model can see and react to them.
func errResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
	}
}

// failedResult is an error-flagged result that still carries the full
// outcome JSON, so callers see blockers and per-operation detail rather
// than a bare message.
func failedResult(v any, fallback string) *mcpsdk.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(errors.New(fallback))
	}
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(b)},
		},
	}
}

// operationResult renders an engine outcome: failed operations become
// tool errors carrying the full result JSON.
func operationResult(res types.OperationResult) *mcpsdk.CallToolResult {
	if res.Success {
		return textResult(res)
	}
	return failedResult(res, res.Error)
}

// relTo rewrites path relative to root for display, leaving it alone when
// it falls outside.
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || len(rel) >= 2 && rel[:2] == ".." {
		return path
	}
	return filepath.ToSlash(rel)
}
