package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/analysis"
)

// referenceEntry is one occurrence of a symbol.
type referenceEntry struct {
	FilePath       string `json:"filePath"`
	Line           int    `json:"line"`
	Declaration    bool   `json:"declaration,omitempty"`
	InImportClause bool   `json:"inImportClause,omitempty"`
	InExportClause bool   `json:"inExportClause,omitempty"`
}

func newRefsCommand(a *app) *cobra.Command {
	sel := &selectorFlags{}

	cmd := &cobra.Command{
		Use:   "refs <symbol> <file>",
		Short: "List every reference to a symbol across the project",
		Long: `Refs finds each mention of a symbol: uses in code, import clauses and
re-export clauses, plus the declaration itself. Shadowed scopes are
excluded the same way the rename and remove operations exclude them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, eng, err := a.open()
			if err != nil {
				return err
			}
			defer p.Close()

			selector, err := sel.build(p, args[0], args[1])
			if err != nil {
				return err
			}
			decl, err := eng.Resolver().Resolve(selector)
			if err != nil {
				return err
			}

			entries := []referenceEntry{}
			for _, occ := range analysis.FindOccurrences(p, decl) {
				entries = append(entries, referenceEntry{
					FilePath:       relTo(p.Root(), occ.File.Path),
					Line:           occ.Line,
					Declaration:    occ.IsDeclarationName,
					InImportClause: occ.InImportClause,
					InExportClause: occ.InExportClause,
				})
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(w, entries)
			}
			for _, e := range entries {
				note := ""
				switch {
				case e.Declaration:
					note = "  (declaration)"
				case e.InImportClause:
					note = "  (import)"
				case e.InExportClause:
					note = "  (export)"
				}
				fmt.Fprintf(w, "%s:%d%s\n", e.FilePath, e.Line, note)
			}
			fmt.Fprintf(w, "%d references to %s '%s'\n", len(entries), decl.Kind, decl.Name)
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}
