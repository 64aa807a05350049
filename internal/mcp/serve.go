package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName and ServerVersion identify this server to MCP clients.
const (
	ServerName    = "tsrefactor"
	ServerVersion = "0.1.0"
)

// Serve runs the MCP server over stdio until the context is cancelled or
// the client disconnects. When projectPath is non-empty the project is
// loaded up front; otherwise the client loads one with the load_project
// tool.
func Serve(ctx context.Context, logger *slog.Logger, projectPath string) error {
	state := NewServer(logger)
	defer state.Close()

	if projectPath != "" {
		stats, err := state.LoadProject(projectPath)
		if err != nil {
			return err
		}
		logger.Info("project preloaded", "root", stats.Root, "files", stats.FileCount)
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)
	RegisterAll(server, state)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
