package cli

import (
	"github.com/spf13/cobra"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

func newMoveCommand(a *app) *cobra.Command {
	sel := &selectorFlags{}
	var (
		copyOnly bool
		dryRun   bool
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "move <symbol> <source-file> <target-file>",
		Short: "Move a top-level symbol to another file",
		Long: `Move relocates a top-level declaration into another file. Imports and
re-exports in every referencing file are rewritten to the new location,
the moved text takes along what it needs, and the target file is created
when it does not exist yet.`,
		Args: cobra.ExactArgs(3),
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
			target, err := project.NormalizeUserPath(p.Root(), args[2])
			if err != nil {
				return err
			}
			op := types.Operation{
				Op:             types.MoveOp,
				Selector:       selector,
				TargetFilePath: target,
				CopyOnly:       copyOnly,
				Reason:         reason,
			}
			return a.execute(cmd, eng, op, dryRun)
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVar(&copyOnly, "copy", false, "Copy into the target file, leaving the source untouched")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview changes as a unified diff without applying them")
	cmd.Flags().StringVar(&reason, "reason", "", "Free-form note carried into the result")
	return cmd
}
