package refactor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// Engine drives refactoring operations against one project: validate,
// execute against in-memory buffers, persist. The engine holds no locks;
// the caller serializes access.
type Engine struct {
	project    *project.Project
	resolver   *analysis.SymbolResolver
	extractor  *analysis.DependencyExtractor
	serializer *Serializer
	logger     *slog.Logger
}

func NewEngine(p *project.Project, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		project:    p,
		resolver:   analysis.NewSymbolResolver(p, logger),
		extractor:  analysis.NewDependencyExtractor(p, logger),
		serializer: NewSerializer(p),
		logger:     logger,
	}
}

func (e *Engine) Project() *project.Project {
	return e.project
}

func (e *Engine) Resolver() *analysis.SymbolResolver {
	return e.resolver
}

func (e *Engine) Extractor() *analysis.DependencyExtractor {
	return e.extractor
}

func (e *Engine) Serializer() *Serializer {
	return e.serializer
}

// operation is one refactoring's pure validation stage plus its
// buffer-mutating execution stage.
type operation interface {
	Validate(e *Engine) *types.ValidationResult
	Execute(e *Engine) (*outcome, error)
}

// outcome is what an execution stage reports back to the pipeline.
type outcome struct {
	affectedFiles []string
	methodTag     types.MethodTag
}

// Execute runs one operation through validate, execute and persist. A
// failed operation leaves both buffers and disk exactly as they were;
// nothing is retried.
func (e *Engine) Execute(ctx context.Context, op types.Operation) types.OperationResult {
	result := e.executeOnBuffers(ctx, op)
	if !result.Success {
		e.discardBuffers()
		return result
	}
	if err := e.finalize(ctx); err != nil {
		e.discardBuffers()
		result.Success = false
		result.AffectedFiles = nil
		result.Error = err.Error()
	}
	return result
}

// Plan runs one operation against buffers only and reports the file
// texts it would produce, keyed by absolute path. Every buffer is
// reverted before returning; disk is never touched. New files appear in
// the map with their full would-be content.
func (e *Engine) Plan(ctx context.Context, op types.Operation) (types.OperationResult, map[string]string) {
	result := e.executeOnBuffers(ctx, op)
	var texts map[string]string
	if result.Success {
		texts = make(map[string]string)
		for _, path := range e.project.DirtyFiles() {
			if sf, ok := e.project.File(path); ok {
				texts[path] = sf.Text
			}
		}
	}
	e.discardBuffers()
	return result, texts
}

// executeOnBuffers runs validate and execute, leaving every change in the
// project buffers. Batch previews persist (or discard) separately.
func (e *Engine) executeOnBuffers(ctx context.Context, op types.Operation) types.OperationResult {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	result := types.OperationResult{Operation: op}

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	impl, err := e.operationFor(op)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	e.logger.Info("running operation", "op", op.String(), "id", op.ID)

	validation := impl.Validate(e)
	for _, warning := range validation.Warnings {
		e.logger.Warn("validation warning", "op", op.String(), "warning", warning)
	}
	if !validation.CanProceed {
		result.Error = strings.Join(validation.Blockers, "; ")
		return result
	}

	out, err := impl.Execute(e)
	if err != nil {
		result.Error = err.Error()
		if out != nil {
			result.MethodTag = out.methodTag
		}
		return result
	}

	result.Success = true
	result.AffectedFiles = out.affectedFiles
	result.MethodTag = out.methodTag
	return result
}

func (e *Engine) operationFor(op types.Operation) (operation, error) {
	switch op.Op {
	case types.MoveOp:
		return &MoveSymbolOperation{
			Selector:       op.Selector,
			TargetFilePath: op.TargetFilePath,
			CopyOnly:       op.CopyOnly,
		}, nil
	case types.RenameOp:
		return &RenameSymbolOperation{
			Selector: op.Selector,
			NewName:  op.NewName,
			Scope:    op.Scope,
		}, nil
	case types.RemoveOp:
		return &RemoveSymbolOperation{Selector: op.Selector}, nil
	default:
		return nil, fmt.Errorf("unsupported operation: %v", op.Op)
	}
}

// finalize persists every dirty buffer and reconciles the registry with
// the filesystem afterwards.
func (e *Engine) finalize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.project.Persist(); err != nil {
		return err
	}
	return e.project.RefreshAll()
}

// discardBuffers drops unsaved buffer state after a failed operation so
// the next one starts from the last durable project state.
func (e *Engine) discardBuffers() {
	if err := e.project.Revert(); err != nil {
		e.logger.Warn("failed to revert buffers", "error", err)
	}
}

// affectedFiles lists the distinct files a change set touches, as sorted
// root-relative slash paths.
func affectedFiles(root string, changes []types.Change) []string {
	seen := make(map[string]bool)
	var files []string
	for _, change := range changes {
		name := change.File
		if rel, err := filepath.Rel(root, name); err == nil && !strings.HasPrefix(rel, "..") {
			name = filepath.ToSlash(rel)
		}
		if !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files
}
