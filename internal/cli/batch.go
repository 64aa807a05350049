package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tsrefactor/pkg/types"
)

func newBatchCommand(a *app) *cobra.Command {
	var (
		dryRun      bool
		stopOnError bool
	)

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Run a batch of operations from a JSON or YAML file",
		Long: `Batch runs an ordered list of move, rename and remove operations
against shared project state. The request is read from the given file,
or from stdin when the argument is omitted or "-". Each operation sees
the files as the previous ones left them; completed operations stay
applied even when a later one fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readBatchRequest(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("stop-on-error") {
				req.Options.StopOnError = stopOnError
			}

			p, eng, err := a.open()
			if err != nil {
				return err
			}
			defer p.Close()

			if dryRun {
				diff, res := eng.PreviewBatch(cmd.Context(), req)
				return a.finishPreview(cmd.OutOrStdout(), diff, res)
			}
			return a.finishBatch(cmd.OutOrStdout(), eng.RunBatch(cmd.Context(), req))
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview changes as a unified diff without applying them")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Halt after the first failed operation")
	return cmd
}

// readBatchRequest loads a request from the named file, or from stdin
// when the argument is missing or "-".
func readBatchRequest(stdin io.Reader, args []string) (types.BatchRequest, error) {
	var (
		name string
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		name = "stdin"
		data, err = io.ReadAll(stdin)
	} else {
		name = args[0]
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return types.BatchRequest{}, err
	}
	return decodeBatchRequest(name, data)
}

// decodeBatchRequest parses JSON or YAML into a batch request. YAML goes
// through a JSON round trip so both formats share one set of field names
// and validation rules.
func decodeBatchRequest(name string, data []byte) (types.BatchRequest, error) {
	var req types.BatchRequest
	if isYAML(name, data) {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return req, fmt.Errorf("parsing %s: %w", name, err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return req, fmt.Errorf("parsing %s: %w", name, err)
		}
		data = converted
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parsing %s: %w", name, err)
	}
	if len(req.Operations) == 0 {
		return req, fmt.Errorf("%s contains no operations", name)
	}
	return req, nil
}

// isYAML decides the input format: by extension when there is one, by
// the first non-space byte otherwise. JSON documents open with '{' or
// '['.
func isYAML(name string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	case ".json":
		return false
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[')
}
