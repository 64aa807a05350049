package project

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"tsrefactor/pkg/types"
)

// Project holds the set of loaded source files for a workspace root. All
// refactoring operations read and mutate buffers through it; disk writes
// only happen in Persist.
type Project struct {
	mu     sync.RWMutex
	root   string
	config Config
	files  map[string]*SourceFile
	logger *slog.Logger
}

// NewProject creates a project rooted at rootPath. Files are not loaded
// until Load or EnsureFileLoaded is called.
func NewProject(rootPath string, logger *slog.Logger) (*Project, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, types.WrapIO(rootPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, types.WrapIO(abs, err)
	}
	if !info.IsDir() {
		return nil, types.NewError(types.UnexpectedIOError, "project root %s is not a directory", abs)
	}

	cfg, err := LoadConfig(abs)
	if err != nil {
		return nil, types.WrapIO(filepath.Join(abs, ConfigFileName), err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Project{
		root:   abs,
		config: cfg,
		files:  make(map[string]*SourceFile),
		logger: logger,
	}, nil
}

// Root returns the absolute project root.
func (p *Project) Root() string {
	return p.root
}

// Config returns the effective configuration.
func (p *Project) Config() Config {
	return p.config
}

// Load discovers and parses every file matched by the include globs.
func (p *Project) Load() error {
	paths, err := p.discover()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range paths {
		if _, ok := p.files[path]; ok {
			continue
		}
		if err := p.loadLocked(path); err != nil {
			p.logger.Warn("skipping unparseable file", "path", path, "error", err)
		}
	}
	p.logger.Debug("project loaded", "root", p.root, "files", len(p.files))
	return nil
}

// discover walks the root and returns absolute paths matching the
// configured globs. node_modules and hidden directories are pruned before
// glob matching to keep the walk cheap.
func (p *Project) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == p.root {
				return nil
			}
			if name == "node_modules" || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if p.matches(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, types.WrapIO(p.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// matches applies the include and exclude globs to a root-relative path.
func (p *Project) matches(rel string) bool {
	included := false
	for _, pattern := range p.config.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range p.config.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// loadLocked reads and parses a file into the registry. Caller holds mu.
func (p *Project) loadLocked(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.WrapIO(path, err)
	}
	sf, err := NewSourceFile(path, string(data))
	if err != nil {
		return err
	}
	p.files[path] = sf
	return nil
}

// EnsureFileLoaded parses and registers the file at path if it is not
// already loaded. The path must be absolute.
func (p *Project) EnsureFileLoaded(path string) error {
	path = filepath.Clean(path)
	if !IsSupportedFile(path) {
		return types.NewError(types.UnexpectedIOError, "%s is not a TypeScript source file", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[path]; ok {
		return nil
	}
	return p.loadLocked(path)
}

// Has reports whether path is currently loaded.
func (p *Project) Has(path string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.files[filepath.Clean(path)]
	return ok
}

// ListFiles returns the sorted absolute paths of all loaded files.
func (p *Project) ListFiles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	paths := make([]string, 0, len(p.files))
	for path := range p.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// File returns the loaded source file for path.
func (p *Project) File(path string) (*SourceFile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sf, ok := p.files[filepath.Clean(path)]
	return sf, ok
}

// TextOf returns the buffer content of a loaded file.
func (p *Project) TextOf(path string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sf, ok := p.files[filepath.Clean(path)]
	if !ok {
		return "", types.NewError(types.UnexpectedIOError, "file not loaded: %s", path)
	}
	return sf.Text, nil
}

// SetText replaces the buffer for path, creating the file entry if it does
// not exist yet. New entries only reach disk on Persist.
func (p *Project) SetText(path, content string) error {
	path = filepath.Clean(path)
	p.mu.Lock()
	defer p.mu.Unlock()

	if sf, ok := p.files[path]; ok {
		return sf.SetText(content)
	}

	sf, err := NewSourceFile(path, content)
	if err != nil {
		return err
	}
	// Created in memory: mark dirty and forget the disk hash so a refresh
	// does not mistake it for clean.
	sf.dirty = true
	sf.Hash = 0
	p.files[path] = sf
	return nil
}

// DirtyFiles returns the sorted paths of files with unsaved changes.
func (p *Project) DirtyFiles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var paths []string
	for path, sf := range p.files {
		if sf.dirty {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Revert discards all unsaved buffer edits, reloading each dirty file from
// disk. Files created in memory and never persisted are dropped from the
// registry entirely.
func (p *Project) Revert() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for path, sf := range p.files {
		if !sf.dirty {
			continue
		}
		if err := p.revertLocked(path, sf); err != nil {
			return err
		}
	}
	return nil
}

// RevertFile discards the unsaved edits of one file.
func (p *Project) RevertFile(path string) error {
	path = filepath.Clean(path)
	p.mu.Lock()
	defer p.mu.Unlock()

	sf, ok := p.files[path]
	if !ok || !sf.dirty {
		return nil
	}
	return p.revertLocked(path, sf)
}

func (p *Project) revertLocked(path string, sf *SourceFile) error {
	if sf.Hash == 0 {
		sf.Close()
		delete(p.files, path)
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.WrapIO(path, err)
	}
	if err := sf.SetText(string(data)); err != nil {
		return err
	}
	sf.dirty = false
	sf.Hash = xxhash.Sum64(data)
	return nil
}

// Persist writes all dirty buffers to disk. When backups are enabled each
// existing file is copied aside first; on any write failure the files
// already written are restored so the disk never holds a partial result.
func (p *Project) Persist() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var dirty []*SourceFile
	for _, sf := range p.files {
		if sf.dirty {
			dirty = append(dirty, sf)
		}
	}
	if len(dirty) == 0 {
		return nil
	}
	sort.Slice(dirty, func(i, j int) bool { return dirty[i].Path < dirty[j].Path })

	backups := make(map[string]string)
	var written []*SourceFile
	restore := func() {
		for _, sf := range written {
			if backup, ok := backups[sf.Path]; ok {
				if data, err := os.ReadFile(backup); err == nil {
					os.WriteFile(sf.Path, data, 0644)
				}
			} else {
				os.Remove(sf.Path)
			}
		}
		for _, backup := range backups {
			os.Remove(backup)
		}
	}

	for _, sf := range dirty {
		if p.config.Backup {
			if data, err := os.ReadFile(sf.Path); err == nil {
				backup := sf.Path + ".backup"
				if err := os.WriteFile(backup, data, 0644); err != nil {
					restore()
					return types.WrapIO(backup, err)
				}
				backups[sf.Path] = backup
			}
		}
		if err := os.MkdirAll(filepath.Dir(sf.Path), 0755); err != nil {
			restore()
			return types.WrapIO(sf.Path, err)
		}
		if err := os.WriteFile(sf.Path, []byte(sf.Text), 0644); err != nil {
			restore()
			return types.WrapIO(sf.Path, err)
		}
		written = append(written, sf)
	}

	for _, backup := range backups {
		os.Remove(backup)
	}
	for _, sf := range dirty {
		sf.Hash = xxhash.Sum64String(sf.Text)
		sf.dirty = false
	}
	p.logger.Debug("persisted changes", "files", len(dirty))
	return nil
}

// ReloadFile re-reads path from disk, replacing any buffer content. The
// file is loaded fresh if it was not registered yet. Disk wins over
// unsaved buffer edits, same as RefreshAll.
func (p *Project) ReloadFile(path string) error {
	path = filepath.Clean(path)
	if !IsSupportedFile(path) {
		return types.NewError(types.UnexpectedIOError, "%s is not a TypeScript source file", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sf, ok := p.files[path]
	if !ok {
		return p.loadLocked(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.WrapIO(path, err)
	}
	hash := xxhash.Sum64(data)
	if hash == sf.Hash && !sf.dirty {
		return nil
	}
	if sf.dirty {
		p.logger.Warn("discarding unsaved buffer, file changed on disk", "path", path)
	}
	if err := sf.SetText(string(data)); err != nil {
		return err
	}
	sf.dirty = false
	sf.Hash = hash
	return nil
}

// DropFile removes path from the registry and releases its parse tree.
// Unknown paths are ignored.
func (p *Project) DropFile(path string) {
	path = filepath.Clean(path)
	p.mu.Lock()
	defer p.mu.Unlock()
	if sf, ok := p.files[path]; ok {
		sf.Close()
		delete(p.files, path)
		p.logger.Debug("dropped file", "path", path)
	}
}

// Matches reports whether an absolute path falls inside the project and
// passes the include and exclude globs.
func (p *Project) Matches(path string) bool {
	rel, err := filepath.Rel(p.root, filepath.Clean(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return p.matches(filepath.ToSlash(rel))
}

// RefreshAll reconciles the registry with the filesystem: files whose disk
// content changed are reloaded, deleted files are dropped, and newly
// matching files are discovered. Disk wins over unsaved buffer edits.
func (p *Project) RefreshAll() error {
	paths, err := p.discover()
	if err != nil {
		return err
	}
	onDisk := make(map[string]bool, len(paths))
	for _, path := range paths {
		onDisk[path] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for path, sf := range p.files {
		if !onDisk[path] {
			if sf.dirty && sf.Hash == 0 {
				// Created in memory and never persisted; keep it.
				continue
			}
			sf.Close()
			delete(p.files, path)
			p.logger.Debug("dropped deleted file", "path", path)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("failed to re-read file", "path", path, "error", err)
			continue
		}
		hash := xxhash.Sum64(data)
		if hash == sf.Hash {
			continue
		}
		if sf.dirty {
			p.logger.Warn("discarding unsaved buffer, file changed on disk", "path", path)
		}
		if err := sf.SetText(string(data)); err != nil {
			p.logger.Warn("failed to reparse changed file", "path", path, "error", err)
			continue
		}
		sf.dirty = false
		sf.Hash = hash
	}

	for _, path := range paths {
		if _, ok := p.files[path]; ok {
			continue
		}
		if err := p.loadLocked(path); err != nil {
			p.logger.Warn("skipping unparseable file", "path", path, "error", err)
		}
	}
	return nil
}

// Close releases every parse tree.
func (p *Project) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sf := range p.files {
		sf.Close()
	}
	p.files = make(map[string]*SourceFile)
}

// Stats summarizes the loaded project for status reporting.
type Stats struct {
	Root       string `json:"root"`
	FileCount  int    `json:"fileCount"`
	DirtyCount int    `json:"dirtyCount"`
	TotalBytes int    `json:"totalBytes"`
}

// Stats returns counts over the loaded file set.
func (p *Project) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Stats{Root: p.root, FileCount: len(p.files)}
	for _, sf := range p.files {
		if sf.dirty {
			s.DirtyCount++
		}
		s.TotalBytes += len(sf.Text)
	}
	return s
}

