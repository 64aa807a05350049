package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"tsrefactor/pkg/types"
)

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// finishOperation renders one operation outcome and converts failure
// into a command error. With --json the full result is printed either
// way and only the exit status reflects failure.
func (a *app) finishOperation(w io.Writer, res types.OperationResult) error {
	if a.jsonOut {
		if err := printJSON(w, res); err != nil {
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
	fmt.Fprintf(w, "%s\n", res.Operation)
	if len(res.AffectedFiles) > 0 {
		fmt.Fprintf(w, "Modified %d files:\n", len(res.AffectedFiles))
		for _, f := range res.AffectedFiles {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}

// finishBatch renders a batch outcome, one line per operation.
func (a *app) finishBatch(w io.Writer, res types.BatchResult) error {
	if a.jsonOut {
		if err := printJSON(w, res); err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Error)
		}
		return nil
	}
	for i, r := range res.Results {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%d. %s: %s", i+1, status, r.Operation)
		if r.Error != "" {
			fmt.Fprintf(w, " (%s)", r.Error)
		}
		fmt.Fprintln(w)
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Fprintf(w, "Completed %d operations\n", len(res.Results))
	return nil
}

// relTo shortens an absolute path to a root-relative slash path for
// display.
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
