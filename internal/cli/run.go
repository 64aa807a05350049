package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/refactor"
	"tsrefactor/pkg/types"
)

// execute runs one operation to completion, or previews its diff when
// dryRun is set.
func (a *app) execute(cmd *cobra.Command, eng *refactor.Engine, op types.Operation, dryRun bool) error {
	w := cmd.OutOrStdout()
	if dryRun {
		diff, res := eng.PreviewBatch(cmd.Context(), types.BatchRequest{Operations: []types.Operation{op}})
		return a.finishPreview(w, diff, res)
	}
	return a.finishOperation(w, eng.Execute(cmd.Context(), op))
}

// finishPreview renders a dry-run outcome. Nothing has been written.
func (a *app) finishPreview(w io.Writer, diff string, res types.BatchResult) error {
	if a.jsonOut {
		preview := struct {
			types.BatchResult
			Diff string `json:"diff,omitempty"`
		}{res, diff}
		if err := printJSON(w, preview); err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Error)
		}
		return nil
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	if diff == "" {
		fmt.Fprintln(w, "No changes")
		return nil
	}
	fmt.Fprint(w, diff)
	return nil
}
