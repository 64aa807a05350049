// Package lsp serves a small LSP surface over stdio: initialize and
// shutdown, plus textDocument/references and textDocument/rename backed
// by the refactoring engine. Rename answers with a WorkspaceEdit; the
// client owns applying and saving it.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/refactor"
)

// Server handles one LSP connection. A single mutex serializes requests;
// rename stages its edits through engine buffers and reverts them, so
// the project state never drifts from disk between requests.
type Server struct {
	mu          sync.Mutex
	project     *project.Project
	engine      *refactor.Engine
	rootPath    string
	initialized bool
	logger      *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger}
}

// ServeStdio serves LSP over stdin and stdout until the client exits or
// the context is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// errExit signals a clean exit requested by the client.
var errExit = errors.New("exit requested")

// Serve runs the message loop over one reader and writer pair.
func (s *Server) Serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	conn := NewConnection(reader, writer)
	defer s.closeProject()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		message, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		response, err := s.handleMessage(ctx, message)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			s.logger.Error("request failed", "method", message.Method, "error", err)
			continue
		}
		if response != nil {
			if err := conn.WriteMessage(response); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, message *Message) (*Message, error) {
	switch message.Method {
	case "initialize":
		return s.handleInitialize(message)
	case "initialized":
		s.loadProject()
		return nil, nil
	case "shutdown":
		s.closeProject()
		return successResponse(message.ID, nil)
	case "exit":
		return nil, errExit
	case "textDocument/references":
		return s.handleReferences(message)
	case "textDocument/rename":
		return s.handleRename(ctx, message)
	default:
		// Unknown requests must be answered or the client hangs on the
		// ID; unknown notifications are dropped.
		if message.ID != nil {
			return errorResponse(message.ID, codeMethodNotFound, fmt.Sprintf("method not supported: %s", message.Method), nil)
		}
		return nil, nil
	}
}

func (s *Server) handleInitialize(message *Message) (*Message, error) {
	var params InitializeParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return errorResponse(message.ID, codeInvalidParams, "invalid initialize params", err.Error())
	}

	s.mu.Lock()
	s.rootPath = rootFromParams(params)
	s.mu.Unlock()

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			ReferencesProvider: true,
			RenameProvider:     true,
		},
		ServerInfo: &ServerInfo{Name: "tsrefactor-lsp", Version: "0.1.0"},
	}
	return successResponse(message.ID, result)
}

// rootFromParams picks the project root: rootUri first, then rootPath,
// then the first workspace folder.
func rootFromParams(params InitializeParams) string {
	if params.RootURI != "" {
		return uriToPath(params.RootURI)
	}
	if params.RootPath != "" {
		return params.RootPath
	}
	if len(params.WorkspaceFolders) > 0 {
		return uriToPath(params.WorkspaceFolders[0].URI)
	}
	return ""
}

// loadProject loads the project on the initialized notification. Failure
// keeps the server responsive; requests answer empty until a working
// root arrives with the next initialize.
func (s *Server) loadProject() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rootPath == "" {
		s.logger.Warn("no root path from initialize, rename and references unavailable")
		return
	}
	p, err := project.NewProject(s.rootPath, s.logger)
	if err != nil {
		s.logger.Error("failed to open project", "root", s.rootPath, "error", err)
		return
	}
	if err := p.Load(); err != nil {
		p.Close()
		s.logger.Error("failed to load project", "root", s.rootPath, "error", err)
		return
	}
	s.project = p
	s.engine = refactor.NewEngine(p, s.logger)
	s.initialized = true
	s.logger.Info("project loaded", "root", s.rootPath, "files", p.Stats().FileCount)
}

func (s *Server) closeProject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project != nil {
		s.project.Close()
		s.project = nil
		s.engine = nil
	}
	s.initialized = false
}

func successResponse(id any, result any) (*Message, error) {
	return &Message{JSONRPC: "2.0", ID: id, Result: result}, nil
}

func errorResponse(id any, code int, message string, data any) (*Message, error) {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ResponseError{Code: code, Message: message, Data: data},
	}, nil
}

func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func pathToURI(path string) string {
	return "file://" + path
}
