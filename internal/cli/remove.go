package cli

import (
	"github.com/spf13/cobra"

	"tsrefactor/pkg/types"
)

func newRemoveCommand(a *app) *cobra.Command {
	sel := &selectorFlags{}
	var (
		dryRun bool
		reason string
	)

	cmd := &cobra.Command{
		Use:   "remove <symbol> <file>",
		Short: "Remove an unreferenced symbol",
		Long: `Remove deletes a declaration together with its attached comments and,
when it was the only used name from an import, the import clause itself.
A symbol still referenced anywhere else in the project is refused, with
the referencing files listed.`,
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
			op := types.Operation{
				Op:       types.RemoveOp,
				Selector: selector,
				Reason:   reason,
			}
			return a.execute(cmd, eng, op, dryRun)
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview changes as a unified diff without applying them")
	cmd.Flags().StringVar(&reason, "reason", "", "Free-form note carried into the result")
	return cmd
}
