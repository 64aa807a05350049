package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/refactor"
	"tsrefactor/pkg/watch"
)

// Server holds the shared state behind the MCP tool handlers: the loaded
// project, its refactoring engine, and a filesystem watcher that keeps
// the registry in sync with edits made outside the session.
type Server struct {
	mu      sync.RWMutex
	project *project.Project
	engine  *refactor.Engine
	watcher *watch.Watcher
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// NewServer creates an empty server; load_project supplies the state.
func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

// LoadProject loads or reloads the project rooted at path, replacing any
// previous one, and starts a background watcher for incremental updates.
func (s *Server) LoadProject(path string) (project.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopWatcherLocked()
	if s.project != nil {
		s.project.Close()
		s.project = nil
		s.engine = nil
	}

	s.logger.Info("loading project", "path", path)
	p, err := project.NewProject(path, s.logger)
	if err != nil {
		return project.Stats{}, err
	}
	if err := p.Load(); err != nil {
		p.Close()
		return project.Stats{}, err
	}
	s.project = p
	s.engine = refactor.NewEngine(p, s.logger)

	s.startWatcherLocked()
	return p.Stats(), nil
}

// startWatcherLocked launches the filesystem watcher for the loaded
// project. A project without a watcher still works; it just will not see
// outside edits until the next load. Caller holds s.mu.
func (s *Server) startWatcherLocked() {
	debounce := time.Duration(s.project.Config().WatchDebounceMs) * time.Millisecond
	w, err := watch.NewWatcher(s.project.Root(), debounce, s.logger)
	if err != nil {
		s.logger.Warn("watcher unavailable, project will not auto-update", "error", err)
		return
	}
	s.watcher = w
	updater := watch.NewUpdater(s.project, s.logger)

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ch := make(chan []watch.ChangeEvent, 4)
	go func() {
		if err := w.Run(watchCtx, ch); err != nil && watchCtx.Err() == nil {
			s.logger.Error("watcher stopped", "error", err)
		}
	}()
	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case events := <-ch:
				s.mu.Lock()
				updater.HandleChanges(events)
				s.mu.Unlock()
			}
		}
	}()
}

// stopWatcherLocked cancels the watcher goroutines. Caller holds s.mu.
func (s *Server) stopWatcherLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}

// projectLocked returns the loaded project. Caller holds s.mu.
func (s *Server) projectLocked() (*project.Project, error) {
	if s.project == nil {
		return nil, fmt.Errorf("no project loaded; call load_project first")
	}
	return s.project, nil
}

// engineLocked returns the engine for the loaded project. Caller holds
// s.mu.
func (s *Server) engineLocked() (*refactor.Engine, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("no project loaded; call load_project first")
	}
	return s.engine, nil
}

// Close stops the watcher and releases the loaded project.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
	if s.project != nil {
		s.project.Close()
		s.project = nil
		s.engine = nil
	}
}
