package watch

import (
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"tsrefactor/pkg/project"
)

// RegistryUpdater applies batches of file-change events to a project
// registry, keeping buffers and parse trees in sync with the disk.
type RegistryUpdater struct {
	project *project.Project
	logger  *slog.Logger
}

// NewUpdater wires an updater to a loaded project.
func NewUpdater(p *project.Project, logger *slog.Logger) *RegistryUpdater {
	return &RegistryUpdater{project: p, logger: logger}
}

// HandleChanges processes one debounced batch of events. Deletes and
// renames drop the old registry entry; creates and writes reload from
// disk. A rename into a new name arrives as a separate create event.
func (u *RegistryUpdater) HandleChanges(events []ChangeEvent) {
	start := time.Now()

	for _, ev := range events {
		switch {
		case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			u.handleDelete(ev.Path)
		case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
			u.handleUpsert(ev.Path)
		}
	}

	u.logger.Info("change batch applied",
		"events", len(events),
		"loaded", u.project.Stats().FileCount,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// handleUpsert reloads a created or modified file into the registry.
func (u *RegistryUpdater) handleUpsert(path string) {
	if !u.project.Matches(path) {
		u.logger.Debug("change outside project globs", "path", path)
		return
	}
	// Create events can race with deletes.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}
	if err := u.project.ReloadFile(path); err != nil {
		u.logger.Error("failed to reload changed file", "path", path, "error", err)
		return
	}
	u.logger.Debug("reloaded file", "path", path)
}

// handleDelete drops a removed or renamed-away file from the registry.
func (u *RegistryUpdater) handleDelete(path string) {
	u.project.DropFile(path)
}

// FileCount returns the number of files currently loaded. Useful for
// test assertions.
func (u *RegistryUpdater) FileCount() int {
	return u.project.Stats().FileCount
}
