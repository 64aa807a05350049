package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tsrefactor/pkg/analysis"
	"tsrefactor/pkg/project"
	"tsrefactor/pkg/types"
)

type ListSymbolsInput struct {
	FilePath string `json:"filePath" jsonschema:"file to list, absolute or relative to the project root"`
}

type FindReferencesInput struct {
	Selector SelectorInput `json:"selector" jsonschema:"symbol to find references for"`
}

type ExtractSymbolInput struct {
	Selector SelectorInput `json:"selector" jsonschema:"symbol to extract with its dependency closure"`
}

type symbolEntry struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Exported bool   `json:"exported"`
	Line     int    `json:"line"`
}

type referenceEntry struct {
	FilePath       string `json:"filePath"`
	Line           int    `json:"line"`
	SameFile       bool   `json:"sameFile"`
	Declaration    bool   `json:"declaration,omitempty"`
	InImportClause bool   `json:"inImportClause,omitempty"`
	InExportClause bool   `json:"inExportClause,omitempty"`
}

type referencesReport struct {
	Symbol     string           `json:"symbol"`
	Kind       string           `json:"kind"`
	Total      int              `json:"total"`
	References []referenceEntry `json:"references"`
}

func registerSymbolTools(s *mcpsdk.Server, state *Server) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "list_symbols",
		Description: "List the top-level declarations of one file with name, kind, export status, and line.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in ListSymbolsInput) (*mcpsdk.CallToolResult, any, error) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		p, err := state.projectLocked()
		if err != nil {
			return errResult(err), nil, nil
		}
		eng, err := state.engineLocked()
		if err != nil {
			return errResult(err), nil, nil
		}

		path, err := project.NormalizeUserPath(p.Root(), in.FilePath)
		if err != nil {
			return errResult(err), nil, nil
		}
		if err := p.EnsureFileLoaded(path); err != nil {
			return errResult(err), nil, nil
		}
		sf, _ := p.File(path)

		entries := []symbolEntry{}
		for _, decl := range analysis.TopLevelDeclarations(sf) {
			line, _ := sf.Position(int(decl.Node.StartByte()))
			entries = append(entries, symbolEntry{
				Name:     decl.Name,
				Kind:     decl.Kind.String(),
				Exported: eng.Resolver().IsExported(decl),
				Line:     line,
			})
		}
		return textResult(entries), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "find_references",
		Description: "Find every reference to a symbol across the project, including import and export clause mentions.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in FindReferencesInput) (*mcpsdk.CallToolResult, any, error) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		p, err := state.projectLocked()
		if err != nil {
			return errResult(err), nil, nil
		}
		eng, err := state.engineLocked()
		if err != nil {
			return errResult(err), nil, nil
		}
		sel, err := in.Selector.toSelector()
		if err != nil {
			return errResult(err), nil, nil
		}
		decl, err := eng.Resolver().Resolve(sel)
		if err != nil {
			return errResult(err), nil, nil
		}

		report := referencesReport{
			Symbol:     decl.Name,
			Kind:       decl.Kind.String(),
			References: []referenceEntry{},
		}
		for _, occ := range analysis.FindOccurrences(p, decl) {
			report.References = append(report.References, referenceEntry{
				FilePath:       relTo(p.Root(), occ.File.Path),
				Line:           occ.Line,
				SameFile:       occ.SameFile,
				Declaration:    occ.IsDeclarationName,
				InImportClause: occ.InImportClause,
				InExportClause: occ.InExportClause,
			})
		}
		report.Total = len(report.References)
		return textResult(report), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "extract_symbol",
		Description: "Extract a symbol's full text together with its dependency closure: imported names it uses, same-file type declarations it needs, and same-file value references.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in ExtractSymbolInput) (*mcpsdk.CallToolResult, any, error) {
		state.mu.RLock()
		defer state.mu.RUnlock()

		p, err := state.projectLocked()
		if err != nil {
			return errResult(err), nil, nil
		}
		eng, err := state.engineLocked()
		if err != nil {
			return errResult(err), nil, nil
		}
		sel, err := in.Selector.toSelector()
		if err != nil {
			return errResult(err), nil, nil
		}
		decl, err := eng.Resolver().Resolve(sel)
		if err != nil {
			return errResult(err), nil, nil
		}

		extraction := eng.Extractor().ExtractSymbol(decl, eng.Resolver().IsExported(decl))
		report := struct {
			Name     string `json:"name"`
			Kind     string `json:"kind"`
			FilePath string `json:"filePath"`
			types.ExtractedSymbol
			TypeDeclarations []string `json:"typeDeclarations,omitempty"`
		}{
			Name:            decl.Name,
			Kind:            decl.Kind.String(),
			FilePath:        relTo(p.Root(), decl.File.Path),
			ExtractedSymbol: extraction.ExtractedSymbol,
		}
		for _, td := range extraction.TypeDecls {
			report.TypeDeclarations = append(report.TypeDeclarations, td.Name)
		}
		return textResult(report), nil, nil
	})
}
