package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is looked up in the project root.
const ConfigFileName = "tsrefactor.toml"

// Config controls file discovery and persistence behavior. Loaded from
// tsrefactor.toml in the project root when present; zero-value fields fall
// back to defaults.
type Config struct {
	// Include globs select the working file set, relative to the root.
	Include []string `toml:"include"`
	// Exclude globs are filtered out after Include matching.
	Exclude []string `toml:"exclude"`
	// WatchDebounceMs is the debounce window for the filesystem watcher.
	WatchDebounceMs int `toml:"watch_debounce_ms"`
	// Backup controls whether persists write .backup files first.
	Backup bool `toml:"backup"`
}

// DefaultConfig returns the configuration used when no tsrefactor.toml
// exists.
func DefaultConfig() Config {
	return Config{
		Include:         []string{"**/*.ts", "**/*.tsx"},
		Exclude:         []string{"**/node_modules/**", "**/*.d.ts", "**/.*/**"},
		WatchDebounceMs: 200,
		Backup:          true,
	}
}

// fileConfig mirrors Config with optional fields so unset values can be
// told apart from explicit ones.
type fileConfig struct {
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
	WatchDebounceMs *int     `toml:"watch_debounce_ms"`
	Backup          *bool    `toml:"backup"`
}

// LoadConfig reads tsrefactor.toml from rootPath, falling back to defaults
// when the file is absent. Set fields override defaults individually.
func LoadConfig(rootPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(rootPath, ConfigFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	var fileCfg fileConfig
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, err
	}

	if len(fileCfg.Include) > 0 {
		cfg.Include = fileCfg.Include
	}
	if len(fileCfg.Exclude) > 0 {
		cfg.Exclude = fileCfg.Exclude
	}
	if fileCfg.WatchDebounceMs != nil && *fileCfg.WatchDebounceMs > 0 {
		cfg.WatchDebounceMs = *fileCfg.WatchDebounceMs
	}
	if fileCfg.Backup != nil {
		cfg.Backup = *fileCfg.Backup
	}
	return cfg, nil
}
