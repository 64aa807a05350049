package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/types"
)

// extractReport is the payload printed for one extracted symbol.
type extractReport struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	FilePath string `json:"filePath"`
	types.ExtractedSymbol
	TypeDeclarations []string `json:"typeDeclarations,omitempty"`
}

func newExtractCommand(a *app) *cobra.Command {
	sel := &selectorFlags{}

	cmd := &cobra.Command{
		Use:   "extract <symbol> <file>",
		Short: "Extract a symbol with its dependency closure",
		Long: `Extract produces a symbol's declaration text together with everything
it needs to stand alone elsewhere: the imported names it uses, same-file
type declarations it depends on, and the same-file values it references
but leaves behind.`,
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

			extraction := eng.Extractor().ExtractSymbol(decl, eng.Resolver().IsExported(decl))
			report := extractReport{
				Name:            decl.Name,
				Kind:            decl.Kind.String(),
				FilePath:        relTo(p.Root(), decl.File.Path),
				ExtractedSymbol: extraction.ExtractedSymbol,
			}
			for _, td := range extraction.TypeDecls {
				report.TypeDeclarations = append(report.TypeDeclarations, td.Name)
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(w, report)
			}
			fmt.Fprintln(w, report.Text)
			deps := report.Dependencies
			if len(deps.Imports) > 0 {
				fmt.Fprintln(w, "Imports:")
				names := make([]string, 0, len(deps.Imports))
				for name := range deps.Imports {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "  %s from %s\n", name, deps.Imports[name])
				}
			}
			printPathList(w, "Type dependencies", deps.Types)
			printPathList(w, "Local references", deps.LocalReferences)
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}
