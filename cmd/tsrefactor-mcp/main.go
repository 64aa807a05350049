// Command tsrefactor-mcp exposes the refactoring engine as a Model
// Context Protocol server over stdio. Equivalent to `tsrefactor mcp`,
// packaged as its own binary for MCP client configurations that launch
// a single executable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"tsrefactor/internal/mcp"
)

func main() {
	var (
		projectFlag = flag.String("project", "", "Project root to load at startup (default: load via the load_project tool)")
		verboseFlag = flag.Bool("verbose", false, "Enable debug logging")
		versionFlag = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s %s\n", mcp.ServerName, mcp.ServerVersion)
		os.Exit(0)
	}

	level := slog.LevelWarn
	if *verboseFlag {
		level = slog.LevelDebug
	}
	// Stdout carries the protocol; everything else goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := mcp.Serve(ctx, logger, *projectFlag); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
