package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const renameRequestJSON = `{
  "operations": [
    {
      "operation": "rename",
      "selector": {"name": "helper", "kind": "function", "filePath": "src/util.ts"},
      "newName": "process"
    }
  ]
}
`

const renameRequestYAML = `operations:
  - operation: rename
    selector:
      name: helper
      kind: function
      filePath: src/util.ts
    newName: process
`

func writeRequestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestBatchCommandJSONFile(t *testing.T) {
	dir := twoFileFixture(t)
	reqPath := writeRequestFile(t, t.TempDir(), "req.json", renameRequestJSON)

	out, err := runCLI(t, "", "batch", reqPath, "--project", dir)
	if err != nil {
		t.Fatalf("Expected batch to succeed, got: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1. ok") {
		t.Errorf("Expected per-operation status line, got %q", out)
	}

	util := readFixture(t, dir, "src/util.ts")
	if !strings.Contains(util, "export function process") {
		t.Errorf("Expected rename applied from JSON batch, got %q", util)
	}
}

func TestBatchCommandYAMLFile(t *testing.T) {
	dir := twoFileFixture(t)
	reqPath := writeRequestFile(t, t.TempDir(), "req.yaml", renameRequestYAML)

	_, err := runCLI(t, "", "batch", reqPath, "--project", dir)
	if err != nil {
		t.Fatalf("Expected YAML batch to succeed, got: %v", err)
	}

	util := readFixture(t, dir, "src/util.ts")
	if !strings.Contains(util, "export function process") {
		t.Errorf("Expected rename applied from YAML batch, got %q", util)
	}
}

func TestBatchCommandStdin(t *testing.T) {
	dir := twoFileFixture(t)

	_, err := runCLI(t, renameRequestJSON, "batch", "--project", dir)
	if err != nil {
		t.Fatalf("Expected stdin batch to succeed, got: %v", err)
	}

	util := readFixture(t, dir, "src/util.ts")
	if !strings.Contains(util, "export function process") {
		t.Errorf("Expected rename applied from stdin, got %q", util)
	}
}

func TestBatchCommandDryRun(t *testing.T) {
	dir := twoFileFixture(t)
	reqPath := writeRequestFile(t, t.TempDir(), "req.json", renameRequestJSON)

	out, err := runCLI(t, "", "batch", reqPath, "--project", dir, "--dry-run")
	if err != nil {
		t.Fatalf("Expected dry run to succeed, got: %v\n%s", err, out)
	}
	if !strings.Contains(out, "--- src/util.ts") {
		t.Errorf("Expected diff output, got %q", out)
	}
	if got := readFixture(t, dir, "src/util.ts"); got != fixtureUtil {
		t.Errorf("Expected disk untouched after dry run, got %q", got)
	}
}

func TestBatchCommandStopOnError(t *testing.T) {
	dir := twoFileFixture(t)
	request := `{
  "operations": [
    {
      "operation": "rename",
      "selector": {"name": "missing", "kind": "function", "filePath": "src/util.ts"},
      "newName": "other"
    },
    {
      "operation": "rename",
      "selector": {"name": "helper", "kind": "function", "filePath": "src/util.ts"},
      "newName": "process"
    }
  ]
}
`
	reqPath := writeRequestFile(t, t.TempDir(), "req.json", request)

	out, err := runCLI(t, "", "batch", reqPath, "--project", dir, "--stop-on-error")
	if err == nil {
		t.Fatal("Expected batch with a failing operation to fail")
	}
	if !strings.Contains(out, "1. failed") {
		t.Errorf("Expected first operation reported failed, got %q", out)
	}
	if strings.Contains(out, "2.") {
		t.Errorf("Expected no second operation after stop-on-error, got %q", out)
	}
	if got := readFixture(t, dir, "src/util.ts"); got != fixtureUtil {
		t.Errorf("Expected disk untouched after halted batch, got %q", got)
	}
}

func TestBatchCommandContinuesPastFailures(t *testing.T) {
	dir := twoFileFixture(t)
	request := `{
  "operations": [
    {
      "operation": "rename",
      "selector": {"name": "missing", "kind": "function", "filePath": "src/util.ts"},
      "newName": "other"
    },
    {
      "operation": "rename",
      "selector": {"name": "helper", "kind": "function", "filePath": "src/util.ts"},
      "newName": "process"
    }
  ]
}
`
	reqPath := writeRequestFile(t, t.TempDir(), "req.json", request)

	out, err := runCLI(t, "", "batch", reqPath, "--project", dir)
	if err == nil {
		t.Fatal("Expected batch with a failing operation to report failure")
	}
	if !strings.Contains(out, "1. failed") || !strings.Contains(out, "2. ok") {
		t.Errorf("Expected second operation to run without stop-on-error, got %q", out)
	}
	util := readFixture(t, dir, "src/util.ts")
	if !strings.Contains(util, "export function process") {
		t.Errorf("Expected second operation applied, got %q", util)
	}
}

func TestDecodeBatchRequestFormats(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		input string
	}{
		{"json extension", "req.json", renameRequestJSON},
		{"yaml extension", "req.yaml", renameRequestYAML},
		{"sniffed json", "stdin", renameRequestJSON},
		{"sniffed yaml", "stdin", renameRequestYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := decodeBatchRequest(tt.file, []byte(tt.input))
			if err != nil {
				t.Fatalf("Expected decode to succeed, got: %v", err)
			}
			if len(req.Operations) != 1 {
				t.Fatalf("Expected 1 operation, got %d", len(req.Operations))
			}
			op := req.Operations[0]
			if op.NewName != "process" || op.Selector.Name != "helper" {
				t.Errorf("Expected decoded rename of helper, got %+v", op)
			}
		})
	}
}

func TestDecodeBatchRequestRejectsEmpty(t *testing.T) {
	_, err := decodeBatchRequest("req.json", []byte(`{"operations": []}`))
	if err == nil {
		t.Fatal("Expected empty batch to be rejected")
	}
	if !strings.Contains(err.Error(), "no operations") {
		t.Errorf("Expected no-operations error, got %q", err.Error())
	}
}

func TestDecodeBatchRequestRejectsMoveWithoutTarget(t *testing.T) {
	input := `{
  "operations": [
    {"operation": "move", "selector": {"name": "helper", "kind": "function", "filePath": "src/util.ts"}}
  ]
}`
	_, err := decodeBatchRequest("req.json", []byte(input))
	if err == nil {
		t.Fatal("Expected move without targetFilePath to be rejected")
	}
	if !strings.Contains(err.Error(), "targetFilePath") {
		t.Errorf("Expected targetFilePath error, got %q", err.Error())
	}
}
