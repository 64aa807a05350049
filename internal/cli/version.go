package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of tsrefactor.
const Version = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tsrefactor version %s\n", Version)
		},
	}
}
