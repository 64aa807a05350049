package lsp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

// handleReferences lists every occurrence of the symbol under the
// cursor across the project.
func (s *Server) handleReferences(message *Message) (*Message, error) {
	var params ReferenceParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return errorResponse(message.ID, codeInvalidParams, "invalid references params", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return successResponse(message.ID, []Location{})
	}
	s.refreshProject()

	decl := s.declarationAt(params.TextDocument, params.Position)
	if decl == nil {
		return successResponse(message.ID, []Location{})
	}

	locations := []Location{}
	for _, occ := range analysis.FindOccurrences(s.project, decl) {
		if occ.IsDeclarationName && !params.Context.IncludeDeclaration {
			continue
		}
		locations = append(locations, Location{
			URI:   pathToURI(occ.File.Path),
			Range: rangeFor(occ.File, occ.Start, occ.End),
		})
	}
	return successResponse(message.ID, locations)
}

// handleRename computes the project-wide rename of the symbol under the
// cursor and returns it as a WorkspaceEdit. Nothing is written to disk;
// the edits run through the engine against buffers and are rolled back.
func (s *Server) handleRename(ctx context.Context, message *Message) (*Message, error) {
	var params RenameParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return errorResponse(message.ID, codeInvalidParams, "invalid rename params", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errorResponse(message.ID, codeRequestFailed, "no project loaded", nil)
	}
	s.refreshProject()

	decl := s.declarationAt(params.TextDocument, params.Position)
	if decl == nil {
		return errorResponse(message.ID, codeRequestFailed, "no symbol under the cursor", nil)
	}

	result, texts := s.engine.Plan(ctx, types.Operation{
		Op:       types.RenameOp,
		Selector: selectorFor(decl),
		NewName:  params.NewName,
	})
	if !result.Success {
		return errorResponse(message.ID, codeRequestFailed, result.Error, nil)
	}
	return successResponse(message.ID, workspaceEdit(s.project, texts))
}

// refreshProject reconciles the registry with disk before answering, so
// files the client saved since the last request are visible.
func (s *Server) refreshProject() {
	if err := s.project.RefreshAll(); err != nil {
		s.logger.Warn("failed to refresh project", "error", err)
	}
}

// declarationAt resolves the document position onto a declaration. A
// cursor sitting just past the end of a name still counts as on it.
func (s *Server) declarationAt(doc TextDocumentIdentifier, pos Position) *analysis.Declaration {
	path, err := project.NormalizeUserPath(s.project.Root(), uriToPath(doc.URI))
	if err != nil {
		return nil
	}
	if err := s.project.EnsureFileLoaded(path); err != nil {
		return nil
	}
	sf, ok := s.project.File(path)
	if !ok {
		return nil
	}

	offset := sf.Offset(pos.Line+1, pos.Character+1)
	decl := analysis.DeclarationAt(s.project, sf, offset)
	if decl == nil && offset > 0 {
		decl = analysis.DeclarationAt(s.project, sf, offset-1)
	}
	return decl
}

// selectorFor rebuilds the selector naming a declaration, so the rename
// pipeline re-resolves it like any other caller.
func selectorFor(decl *analysis.Declaration) types.Selector {
	return types.Selector{
		Name:     decl.Name,
		Kind:     decl.Kind,
		FilePath: decl.File.Path,
		Scope:    analysis.ContainerOf(decl),
	}
}

func rangeFor(sf *project.SourceFile, start, end int) Range {
	return Range{Start: positionFor(sf, start), End: positionFor(sf, end)}
}

func positionFor(sf *project.SourceFile, offset int) Position {
	line, col := sf.Position(offset)
	return Position{Line: line - 1, Character: col - 1}
}

// workspaceEdit converts planned file texts into per-document edit
// lists. Files absent from the registry, such as ones an operation would
// create, diff against empty content.
func workspaceEdit(p *project.Project, texts map[string]string) *WorkspaceEdit {
	changes := make(map[string][]TextEdit)
	for path, newText := range texts {
		oldText := ""
		if sf, ok := p.File(path); ok {
			oldText = sf.Text
		}
		changes[pathToURI(path)] = editsBetween(oldText, newText)
	}
	return &WorkspaceEdit{Changes: changes}
}

// editsBetween computes the minimal edits turning oldText into newText.
// Positions track the old text as the diff walks it; a delete directly
// followed by an insert collapses into one replacement.
func editsBetween(oldText, newText string) []TextEdit {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	edits := []TextEdit{}
	pos := Position{}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos = advance(pos, d.Text)
		case diffmatchpatch.DiffDelete:
			end := advance(pos, d.Text)
			edits = append(edits, TextEdit{Range: Range{Start: pos, End: end}})
			pos = end
		case diffmatchpatch.DiffInsert:
			if n := len(edits); n > 0 && edits[n-1].NewText == "" && edits[n-1].Range.End == pos {
				edits[n-1].NewText = d.Text
			} else {
				edits = append(edits, TextEdit{Range: Range{Start: pos, End: pos}, NewText: d.Text})
			}
		}
	}
	return edits
}

// advance moves a zero-based position across text.
func advance(pos Position, text string) Position {
	lines := strings.Count(text, "\n")
	if lines == 0 {
		pos.Character += len(text)
		return pos
	}
	pos.Line += lines
	pos.Character = len(text) - strings.LastIndexByte(text, '\n') - 1
	return pos
}
