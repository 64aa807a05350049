package cli

import (
	"github.com/spf13/cobra"

	"tsrefactor/internal/lsp"
	"tsrefactor/internal/mcp"
)

func newLSPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Serve the language server over stdio",
		Long: `LSP speaks the language server protocol on stdin and stdout. The
served subset is textDocument/references and textDocument/rename; the
project root comes from the client's initialize request, not --project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lsp.NewServer(a.logger()).ServeStdio(cmd.Context())
		},
	}
}

func newMCPCommand(a *app) *cobra.Command {
	var preload bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tool surface over stdio",
		Long: `MCP exposes the refactoring operations as Model Context Protocol
tools on stdin and stdout. The client normally loads a project with the
load_project tool; --preload loads --project before serving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if preload {
				path = a.projectDir
			}
			return mcp.Serve(cmd.Context(), a.logger(), path)
		},
	}
	cmd.Flags().BoolVar(&preload, "preload", false, "Load --project before serving")
	return cmd
}
