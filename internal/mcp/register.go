// Package mcp exposes the refactoring engine as an MCP server speaking
// stdio. Tools share one Server state guarded by a read-write mutex:
// queries run concurrently, mutations serialize.
package mcp

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll attaches every tool to the SDK server.
func RegisterAll(s *mcpsdk.Server, state *Server) {
	registerProjectTools(s, state)
	registerSymbolTools(s, state)
	registerRefactorTools(s, state)
	registerBatchTools(s, state)
	registerDependencyTools(s, state)
}
