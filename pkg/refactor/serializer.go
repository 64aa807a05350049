package refactor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// Serializer applies computed change sets to in-memory project buffers.
// Changes are grouped per file and applied back to front so byte offsets
// stay valid. Overlapping changes within one file are a programming error
// on the operation's side and are rejected before any buffer is touched.
type Serializer struct {
	project *project.Project
}

func NewSerializer(p *project.Project) *Serializer {
	return &Serializer{project: p}
}

// Apply applies all changes to the project buffers. Every change for a
// file is validated against the current buffer content before the first
// one is spliced in.
func (s *Serializer) Apply(changes []types.Change) error {
	if len(changes) == 0 {
		return nil
	}

	fileChanges := groupByFile(changes)
	for _, file := range sortedKeys(fileChanges) {
		if err := s.applyToFile(file, fileChanges[file]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) applyToFile(path string, changes []types.Change) error {
	// A file never seen before is being created; it starts empty.
	content := ""
	if s.project.Has(path) {
		text, err := s.project.TextOf(path)
		if err != nil {
			return err
		}
		content = text
	}

	// Apply in reverse position order so earlier offsets stay valid. At
	// equal starts the wider change goes first, so a deletion is spliced
	// before an insertion anchored to the same offset.
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Start != changes[j].Start {
			return changes[i].Start > changes[j].Start
		}
		return changes[i].End > changes[j].End
	})

	if err := validatePositions(path, changes); err != nil {
		return err
	}
	for _, change := range changes {
		if err := verifyChange(content, change); err != nil {
			return err
		}
	}

	for _, change := range changes {
		content = content[:change.Start] + change.NewText + content[change.End:]
	}
	return s.project.SetText(path, content)
}

// verifyChange checks a change's bounds and expected old text against the
// content it is about to modify.
func verifyChange(content string, change types.Change) error {
	if change.Start < 0 || change.End > len(content) || change.Start > change.End {
		return types.NewError(types.UnexpectedIOError,
			"change bounds [%d:%d] outside %s (%d bytes)",
			change.Start, change.End, change.File, len(content))
	}
	if change.OldText != "" {
		actual := content[change.Start:change.End]
		if actual != change.OldText {
			return types.NewError(types.UnexpectedIOError,
				"stale change in %s: expected %q at [%d:%d], found %q",
				change.File, truncate(change.OldText), change.Start, change.End, truncate(actual))
		}
	}
	return nil
}

// validatePositions ensures no two changes to one file overlap.
func validatePositions(path string, changes []types.Change) error {
	for i := 0; i < len(changes); i++ {
		for j := i + 1; j < len(changes); j++ {
			if changesOverlap(changes[i], changes[j]) {
				return types.NewError(types.UnexpectedIOError,
					"overlapping changes in %s: [%d:%d] and [%d:%d]",
					path, changes[i].Start, changes[i].End, changes[j].Start, changes[j].End)
			}
		}
	}
	return nil
}

func changesOverlap(a, b types.Change) bool {
	return a.Start < b.End && b.Start < a.End
}

// Preview renders a human-readable summary of a change set without
// touching any buffer.
func (s *Serializer) Preview(changes []types.Change) string {
	if len(changes) == 0 {
		return "No changes to preview"
	}

	fileChanges := groupByFile(changes)
	files := sortedKeys(fileChanges)

	var preview strings.Builder
	fmt.Fprintf(&preview, "Preview of %d changes across %d files:\n\n", len(changes), len(files))

	for _, file := range files {
		forFile := fileChanges[file]
		sort.Slice(forFile, func(i, j int) bool {
			return forFile[i].Start < forFile[j].Start
		})

		name := s.displayPath(file)
		fmt.Fprintf(&preview, "File: %s\n", name)
		preview.WriteString(strings.Repeat("-", len(name)+6) + "\n")

		for i, change := range forFile {
			fmt.Fprintf(&preview, "%d. %s\n", i+1, change.Description)
			if change.OldText != "" {
				fmt.Fprintf(&preview, "   - %s\n", truncate(change.OldText))
			}
			if change.NewText != "" {
				fmt.Fprintf(&preview, "   + %s\n", truncate(change.NewText))
			}
		}
		preview.WriteString("\n")
	}
	return preview.String()
}

// DirtyDiffs renders a unified-style diff for every dirty buffer against
// its on-disk content. Files created in memory diff against nothing.
func (s *Serializer) DirtyDiffs() (string, error) {
	var out strings.Builder
	for _, path := range s.project.DirtyFiles() {
		onDisk := ""
		if data, err := os.ReadFile(path); err == nil {
			onDisk = string(data)
		}
		buffer, err := s.project.TextOf(path)
		if err != nil {
			return "", err
		}
		if onDisk == buffer {
			continue
		}
		out.WriteString(Diff(s.displayPath(path), onDisk, buffer))
		out.WriteString("\n")
	}
	return out.String(), nil
}

func (s *Serializer) displayPath(path string) string {
	rel, err := filepath.Rel(s.project.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// contextLines is how many unchanged lines survive on each side of an
// elided equal run in a diff.
const contextLines = 3

// Diff renders a unified-style line diff between two versions of a file.
func Diff(name, original, modified string) string {
	dmp := diffmatchpatch.New()
	a, b, lineIndex := dmp.DiffLinesToChars(original, modified)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineIndex)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", name, name)
	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&out, "-", lines)
		case diffmatchpatch.DiffInsert:
			writeLines(&out, "+", lines)
		default:
			if len(lines) > contextLines*2+1 {
				writeLines(&out, " ", lines[:contextLines])
				fmt.Fprintf(&out, "@@ %d unchanged lines @@\n", len(lines)-contextLines*2)
				writeLines(&out, " ", lines[len(lines)-contextLines:])
			} else {
				writeLines(&out, " ", lines)
			}
		}
	}
	return out.String()
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func writeLines(out *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		out.WriteString(prefix)
		out.WriteString(line)
		out.WriteByte('\n')
	}
}

func groupByFile(changes []types.Change) map[string][]types.Change {
	byFile := make(map[string][]types.Change)
	for _, change := range changes {
		byFile[change.File] = append(byFile[change.File], change)
	}
	return byFile
}

func sortedKeys(m map[string][]types.Change) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate flattens text onto one line and caps it for display.
func truncate(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= 80 {
		return text
	}
	return text[:77] + "..."
}
