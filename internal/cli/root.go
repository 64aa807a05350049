// Package cli implements the tsrefactor command tree. Every command loads
// the project fresh, runs against the refactoring engine, and renders
// either human-readable text or JSON depending on --json.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tsrefactor/pkg/project"
	"tsrefactor/pkg/refactor"
)

// app carries the persistent flag values shared by every subcommand.
type app struct {
	projectDir string
	jsonOut    bool
	verbose    bool

	log *slog.Logger
}

// New builds the root command with all subcommands attached.
func New() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:     "tsrefactor",
		Short:   "Project-wide TypeScript refactoring",
		Long: `tsrefactor moves, renames and removes named TypeScript declarations
across a project, rewriting references, imports and re-exports so the
project keeps resolving. Operations validate before touching anything
and write nothing on failure.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&a.projectDir, "project", "p", ".", "Project root directory")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output results as JSON")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newMoveCommand(a),
		newRenameCommand(a),
		newRemoveCommand(a),
		newBatchCommand(a),
		newSymbolsCommand(a),
		newRefsCommand(a),
		newDepsCommand(a),
		newExtractCommand(a),
		newLSPCommand(a),
		newMCPCommand(a),
		newVersionCommand(),
	)
	return root
}

// logger builds the shared logger on first use. Engine logs go to stderr
// so stdout stays parseable.
func (a *app) logger() *slog.Logger {
	if a.log == nil {
		level := slog.LevelWarn
		if a.verbose {
			level = slog.LevelDebug
		}
		a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return a.log
}

// open loads the project under --project and wires an engine to it. The
// caller owns closing the returned project.
func (a *app) open() (*project.Project, *refactor.Engine, error) {
	p, err := project.NewProject(a.projectDir, a.logger())
	if err != nil {
		return nil, nil, err
	}
	if err := p.Load(); err != nil {
		p.Close()
		return nil, nil, err
	}
	return p, refactor.NewEngine(p, a.logger()), nil
}
