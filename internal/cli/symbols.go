package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
)

// symbolEntry is one listed declaration.
type symbolEntry struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Exported bool   `json:"exported"`
	Line     int    `json:"line"`
}

func newSymbolsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols <file>",
		Short: "List the top-level declarations of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, eng, err := a.open()
			if err != nil {
				return err
			}
			defer p.Close()

			path, err := project.NormalizeUserPath(p.Root(), args[0])
			if err != nil {
				return err
			}
			if err := p.EnsureFileLoaded(path); err != nil {
				return err
			}
			sf, _ := p.File(path)

			entries := []symbolEntry{}
			for _, decl := range analysis.TopLevelDeclarations(sf) {
				line, _ := sf.Position(int(decl.Node.StartByte()))
				entries = append(entries, symbolEntry{
					Name:     decl.Name,
					Kind:     decl.Kind.String(),
					Exported: eng.Resolver().IsExported(decl),
					Line:     line,
				})
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(w, entries)
			}
			for _, e := range entries {
				marker := ""
				if e.Exported {
					marker = "  exported"
				}
				fmt.Fprintf(w, "%4d  %-10s %s%s\n", e.Line, e.Kind, e.Name, marker)
			}
			return nil
		},
	}
	return cmd
}
