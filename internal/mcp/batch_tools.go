package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tsrefactor/pkg/types"
)

type BatchInput struct {
	Operations  []OperationInput `json:"operations" jsonschema:"operations to run in order against the evolving project state"`
	StopOnError bool             `json:"stopOnError,omitempty" jsonschema:"abort at the first failed operation instead of continuing"`
}

func (in BatchInput) toRequest() (types.BatchRequest, error) {
	ops, err := toOperations(in.Operations)
	if err != nil {
		return types.BatchRequest{}, err
	}
	return types.BatchRequest{
		Operations: ops,
		Options:    types.BatchOptions{StopOnError: in.StopOnError},
	}, nil
}

// batchPreview pairs the would-be results with a unified diff of every
// file the batch would touch. Nothing on disk changes.
type batchPreview struct {
	Success bool                    `json:"success"`
	Results []types.OperationResult `json:"results"`
	Error   string                  `json:"error,omitempty"`
	Diff    string                  `json:"diff,omitempty"`
}

func registerBatchTools(s *mcpsdk.Server, state *Server) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "run_batch",
		Description: "Run a sequence of move, rename, and remove operations in order. Later operations see the effects of earlier ones. With stopOnError the batch aborts at the first failure; either way every attempted operation reports its own result.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in BatchInput) (*mcpsdk.CallToolResult, any, error) {
		batch, err := in.toRequest()
		if err != nil {
			return errResult(err), nil, nil
		}

		state.mu.Lock()
		defer state.mu.Unlock()

		eng, err := state.engineLocked()
		if err != nil {
			return errResult(err), nil, nil
		}

		res := eng.RunBatch(ctx, batch)
		if !res.Success {
			return failedResult(res, res.Error), nil, nil
		}
		return textResult(res), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "preview_batch",
		Description: "Dry-run a batch and return the unified diff it would produce. Buffers are restored afterwards, so nothing is written to disk.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in BatchInput) (*mcpsdk.CallToolResult, any, error) {
		batch, err := in.toRequest()
		if err != nil {
			return errResult(err), nil, nil
		}

		// PreviewBatch mutates buffers before rolling them back, so it
		// needs the write lock even though disk is never touched.
		state.mu.Lock()
		defer state.mu.Unlock()

		eng, err := state.engineLocked()
		if err != nil {
			return errResult(err), nil, nil
		}

		diff, res := eng.PreviewBatch(ctx, batch)
		preview := batchPreview{
			Success: res.Success,
			Results: res.Results,
			Error:   res.Error,
			Diff:    diff,
		}
		if !res.Success {
			return failedResult(preview, res.Error), nil, nil
		}
		return textResult(preview), nil, nil
	})
}
