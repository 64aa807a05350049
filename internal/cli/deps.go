package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/graph"
	"tsrefactor/pkg/project"
)

// depsReport describes one file's place in the module graph.
type depsReport struct {
	FilePath   string   `json:"filePath"`
	Imports    []string `json:"imports"`
	Importers  []string `json:"importers"`
	Packages   []string `json:"packages,omitempty"`
	Transitive bool     `json:"transitive,omitempty"`
}

// depsSummary describes the whole project graph.
type depsSummary struct {
	Files    int        `json:"files"`
	Packages []string   `json:"packages,omitempty"`
	Cycles   [][]string `json:"cycles,omitempty"`
}

func newDepsCommand(a *app) *cobra.Command {
	var transitive bool

	cmd := &cobra.Command{
		Use:   "deps [file]",
		Short: "Show the module dependency graph",
		Long: `Deps builds the import graph over the project's relative imports and
re-exports. With a file argument it lists what that file imports and
which files import it; without one it summarizes the project, including
any import cycles.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := a.open()
			if err != nil {
				return err
			}
			defer p.Close()

			g := graph.Build(p)
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				summary := depsSummary{
					Files:    len(g.Nodes),
					Packages: g.PackageDependencies(),
				}
				for _, cycle := range g.DetectCycles() {
					summary.Cycles = append(summary.Cycles, nodeListRel(p.Root(), cycle))
				}
				if a.jsonOut {
					return printJSON(w, summary)
				}
				fmt.Fprintf(w, "%d files\n", summary.Files)
				if len(summary.Packages) > 0 {
					fmt.Fprintf(w, "Package dependencies:\n")
					for _, pkg := range summary.Packages {
						fmt.Fprintf(w, "  %s\n", pkg)
					}
				}
				for _, cycle := range summary.Cycles {
					fmt.Fprintf(w, "Cycle: %s\n", strings.Join(cycle, " -> "))
				}
				return nil
			}

			path, err := project.NormalizeUserPath(p.Root(), args[0])
			if err != nil {
				return err
			}
			report := depsReport{
				FilePath:   relTo(p.Root(), path),
				Transitive: transitive,
			}
			if transitive {
				report.Imports = nodePathsRel(p.Root(), g.TransitiveDependencies(path))
				report.Importers = nodePathsRel(p.Root(), g.TransitiveDependents(path))
			} else {
				report.Imports = nodePathsRel(p.Root(), g.Dependencies(path))
				report.Importers = nodePathsRel(p.Root(), g.Dependents(path))
			}
			if node, ok := g.Nodes[path]; ok {
				report.Packages = node.Packages
			}
			if a.jsonOut {
				return printJSON(w, report)
			}
			fmt.Fprintf(w, "%s\n", report.FilePath)
			printPathList(w, "Imports", report.Imports)
			printPathList(w, "Imported by", report.Importers)
			printPathList(w, "Packages", report.Packages)
			return nil
		},
	}
	cmd.Flags().BoolVar(&transitive, "transitive", false, "Follow imports transitively")
	return cmd
}

func printPathList(w io.Writer, label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, p := range paths {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func nodePathsRel(root string, nodes []*graph.ModuleNode) []string {
	out := []string{}
	for _, node := range nodes {
		out = append(out, relTo(root, node.Path))
	}
	return out
}

func nodeListRel(root string, paths []string) []string {
	out := []string{}
	for _, p := range paths {
		out = append(out, relTo(root, p))
	}
	return out
}
