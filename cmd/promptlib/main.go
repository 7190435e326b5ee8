package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nebari-dev/promptlib/internal/api/handlers"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/logger"
	"github.com/nebari-dev/promptlib/internal/server"
	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "promptlib",
	Short: "promptlib - prompt library server and tooling",
	Long:  `promptlib serves workspace-scoped prompt libraries and renders them from answered questions.`,
	Example: `  # Run the server
  promptlib serve

  # Load libraries from a bundle directory and export them again
  promptlib import ./bundles
  promptlib export --format toml -o catalogue.toml

  # Render a library prompt from the command line
  promptlib render --workspace research --library "Paper summary" --set title="Attention"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		handlers.Version = Version
	},
}

// exitError carries a specific process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "library", Title: "Library Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	serveCmd.GroupID = "server"

	importCmd.GroupID = "library"
	exportCmd.GroupID = "library"
	renderCmd.GroupID = "library"

	userCmd.GroupID = "admin"

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)
}

// openApp loads configuration and opens the database for a one-shot
// command. Logs go to stderr so stdout stays clean for command output.
func openApp() (*server.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Log.Level
	if level == "info" {
		level = "warn"
	}
	slog.SetDefault(logger.New(os.Stderr, cfg.Log.Format, level))
	cfg.Log.Level = level
	return server.Open(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
