package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/types"
)

func newRenameCommand(a *app) *cobra.Command {
	sel := &selectorFlags{}
	var (
		scope  string
		dryRun bool
		reason string
	)

	cmd := &cobra.Command{
		Use:   "rename <symbol> <file> <new-name>",
		Short: "Rename a symbol and every reference to it",
		Long: `Rename changes a declaration's name and rewrites every reference,
import clause and re-export that mentions it. Renames that would collide
with an existing name, shadow an import, or use a reserved word are
rejected before anything is written.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			renameScope := types.ProjectScope
			switch scope {
			case "", "project":
			case "file":
				renameScope = types.FileScope
			default:
				return fmt.Errorf("unknown rename scope %q, expected project or file", scope)
			}

			p, eng, err := a.open()
			if err != nil {
				return err
			}
			defer p.Close()

			selector, err := sel.build(p, args[0], args[1])
			if err != nil {
				return err
			}
			op := types.Operation{
				Op:       types.RenameOp,
				Selector: selector,
				NewName:  args[2],
				Scope:    renameScope,
				Reason:   reason,
			}
			return a.execute(cmd, eng, op, dryRun)
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&scope, "scope", "project", "Rename scope: project or file")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview changes as a unified diff without applying them")
	cmd.Flags().StringVar(&reason, "reason", "", "Free-form note carried into the result")
	return cmd
}
