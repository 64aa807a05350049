package refactor

import (
	"context"
	"fmt"

	"tsrefactor/pkg/types"
)

// RunBatch executes the requested operations strictly in order against
// shared project state. Results arrive in request order, one per attempted
// operation; with StopOnError the batch halts after the first failure and
// later operations are never attempted. Operations already persisted stay
// persisted no matter what later ones do.
func (e *Engine) RunBatch(ctx context.Context, req types.BatchRequest) types.BatchResult {
	batch := types.BatchResult{Success: true}
	if len(req.Operations) == 0 {
		batch.Success = false
		batch.Error = "batch contains no operations"
		return batch
	}

	e.logger.Info("starting batch", "operations", len(req.Operations), "stopOnError", req.Options.StopOnError)

	for i, op := range req.Operations {
		if err := ctx.Err(); err != nil {
			batch.Success = false
			if batch.Error == "" {
				batch.Error = err.Error()
			}
			break
		}

		result := e.Execute(ctx, op)
		batch.Results = append(batch.Results, result)

		if !result.Success {
			batch.Success = false
			if batch.Error == "" {
				batch.Error = fmt.Sprintf("operation %d (%s) failed: %s", i+1, op.String(), result.Error)
			}
			if req.Options.StopOnError {
				e.logger.Warn("batch halted", "failed", i+1, "skipped", len(req.Operations)-i-1)
				break
			}
		}
	}
	return batch
}

// PreviewBatch runs a batch against the in-memory buffers only and renders
// the resulting diffs, then restores every buffer. Nothing reaches disk.
func (e *Engine) PreviewBatch(ctx context.Context, req types.BatchRequest) (string, types.BatchResult) {
	batch := types.BatchResult{Success: true}
	if len(req.Operations) == 0 {
		batch.Success = false
		batch.Error = "batch contains no operations"
		return "", batch
	}

	defer e.discardBuffers()

	for i, op := range req.Operations {
		if err := ctx.Err(); err != nil {
			batch.Success = false
			if batch.Error == "" {
				batch.Error = err.Error()
			}
			break
		}

		// A failed operation in a real batch leaves no trace; mirror that
		// by restoring the buffers this operation touched.
		saved := e.snapshotDirty()
		result := e.executeOnBuffers(ctx, op)
		batch.Results = append(batch.Results, result)

		if !result.Success {
			e.restoreBuffers(saved)
			batch.Success = false
			if batch.Error == "" {
				batch.Error = fmt.Sprintf("operation %d (%s) failed: %s", i+1, op.String(), result.Error)
			}
			if req.Options.StopOnError {
				break
			}
		}
	}

	diffs, err := e.serializer.DirtyDiffs()
	if err != nil {
		batch.Success = false
		if batch.Error == "" {
			batch.Error = err.Error()
		}
		return "", batch
	}
	return diffs, batch
}

// snapshotDirty captures the text of every dirty buffer.
func (e *Engine) snapshotDirty() map[string]string {
	saved := make(map[string]string)
	for _, path := range e.project.DirtyFiles() {
		if text, err := e.project.TextOf(path); err == nil {
			saved[path] = text
		}
	}
	return saved
}

// restoreBuffers puts dirty buffers back to a snapshot. Files dirtied
// after the snapshot was taken fall back to their on-disk content.
func (e *Engine) restoreBuffers(saved map[string]string) {
	for _, path := range e.project.DirtyFiles() {
		if text, ok := saved[path]; ok {
			current, err := e.project.TextOf(path)
			if err == nil && current == text {
				continue
			}
			if err := e.project.SetText(path, text); err != nil {
				e.logger.Warn("failed to restore buffer", "file", path, "error", err)
			}
			continue
		}
		if err := e.project.RevertFile(path); err != nil {
			e.logger.Warn("failed to revert buffer", "file", path, "error", err)
		}
	}
}
