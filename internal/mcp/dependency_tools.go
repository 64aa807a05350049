package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tsrefactor/pkg/graph"
	"tsrefactor/pkg/project"
)

type ModuleDependenciesInput struct {
	FilePath   string `json:"filePath,omitempty" jsonschema:"file to report on; omit for a project-wide summary"`
	Transitive bool   `json:"transitive,omitempty" jsonschema:"follow import chains instead of stopping at direct edges"`
}

// moduleReport describes one file's position in the import graph.
type moduleReport struct {
	FilePath   string   `json:"filePath"`
	Imports    []string `json:"imports"`
	Importers  []string `json:"importers"`
	Packages   []string `json:"packages,omitempty"`
	Transitive bool     `json:"transitive,omitempty"`
}

// projectReport summarizes the whole graph when no file is named.
type projectReport struct {
	Files    int        `json:"files"`
	Packages []string   `json:"packages,omitempty"`
	Cycles   [][]string `json:"cycles,omitempty"`
}

func registerDependencyTools(s *mcpsdk.Server, state *Server) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "module_dependencies",
		Description: "Report the import graph. With a filePath, list what that file imports and what imports it, plus its npm package dependencies. Without one, summarize the project: file count, external packages, and any import cycles.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in ModuleDependenciesInput) (*mcpsdk.CallToolResult, any, error) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		p, err := state.projectLocked()
		if err != nil {
			return errResult(err), nil, nil
		}

		g := graph.Build(p)
		if in.FilePath == "" {
			return textResult(summarizeGraph(p, g)), nil, nil
		}

		path, err := project.NormalizeUserPath(p.Root(), in.FilePath)
		if err != nil {
			return errResult(err), nil, nil
		}

		imports := g.Dependencies(path)
		importers := g.Dependents(path)
		if in.Transitive {
			imports = g.TransitiveDependencies(path)
			importers = g.TransitiveDependents(path)
		}

		report := moduleReport{
			FilePath:   relTo(p.Root(), path),
			Imports:    nodePaths(p.Root(), imports),
			Importers:  nodePaths(p.Root(), importers),
			Transitive: in.Transitive,
		}
		if node, ok := g.Nodes[path]; ok {
			report.Packages = node.Packages
		}
		return textResult(report), nil, nil
	})
}

func summarizeGraph(p *project.Project, g *graph.ModuleGraph) projectReport {
	report := projectReport{
		Files:    len(g.Nodes),
		Packages: g.PackageDependencies(),
	}
	for _, cycle := range g.DetectCycles() {
		rel := make([]string, len(cycle))
		for i, path := range cycle {
			rel[i] = relTo(p.Root(), path)
		}
		report.Cycles = append(report.Cycles, rel)
	}
	return report
}

func nodePaths(root string, nodes []*graph.ModuleNode) []string {
	paths := make([]string, len(nodes))
	for i, node := range nodes {
		paths[i] = relTo(root, node.Path)
	}
	return paths
}
