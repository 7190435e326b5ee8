package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Import bundle files or directories",
	Long: `Import prompt library bundles (YAML, TOML or JSON) into the configured database.

Directories are searched recursively for bundle files. Each file is applied
in its own transaction; workspaces are matched by slug and templates and
libraries by name.

Examples:
  promptlib import catalogue.yaml
  promptlib import ./bundles team.toml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var files []bundle.File
	for _, path := range args {
		loaded, err := bundle.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, loaded...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no bundle files found")
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range app.ImportFiles(cmd.Context(), files, uuid.Nil) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
			continue
		}
		s := r.Summary
		fmt.Fprintf(out, "%s: workspaces %d new/%d updated, templates %d/%d, libraries %d/%d\n",
			r.Path,
			s.Workspaces.Created, s.Workspaces.Updated,
			s.Templates.Created, s.Templates.Updated,
			s.Libraries.Created, s.Libraries.Updated)
		for _, w := range s.Warnings {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d bundles failed to import", failed, len(files))
	}
	return nil
}
