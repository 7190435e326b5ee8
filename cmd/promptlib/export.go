package main

import (
	"fmt"
	"os"

	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the prompt catalogue as a bundle",
	Long: `Export every workspace, template and library as a single bundle.

Examples:
  promptlib export                        # YAML to stdout
  promptlib export --format json -o all.json
  promptlib export -o catalogue.toml      # format from extension`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: yaml, toml or json (default from -o extension, else yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
}

func exportFormatFor(format, output string) (bundle.Format, error) {
	switch {
	case format != "":
		return bundle.ParseFormat(format)
	case output != "":
		return bundle.FormatFromPath(output)
	default:
		return bundle.FormatYAML, nil
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := exportFormatFor(exportFormat, exportOutput)
	if err != nil {
		return err
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	b, err := app.Services.Bundles.Export(cmd.Context())
	if err != nil {
		return err
	}
	data, err := bundle.Encode(b, format)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d libraries to %s\n", len(b.Libraries), exportOutput)
	return nil
}
