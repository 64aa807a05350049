package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type LoadProjectInput struct {
	Path string `json:"path" jsonschema:"project root directory"`
}

type ProjectStatsInput struct{}

func registerProjectTools(s *mcpsdk.Server, state *Server) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "load_project",
		Description: "Load a TypeScript project from a root directory. Parses every matching file and starts watching for outside edits. Must be called before any other tool.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in LoadProjectInput) (*mcpsdk.CallToolResult, any, error) {
		stats, err := state.LoadProject(in.Path)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(stats), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "project_stats",
		Description: "Report the loaded project: root path, file count, unsaved buffer count, and total source bytes.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in ProjectStatsInput) (*mcpsdk.CallToolResult, any, error) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		p, err := state.projectLocked()
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(p.Stats()), nil, nil
	})
}
