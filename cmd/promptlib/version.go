package main

import (
	"fmt"

	"github.com/nebari-dev/promptlib/internal/api/handlers"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Long:  `Print the version of promptlib.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version, commit := handlers.BuildInfo()
		if commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "promptlib version %s (commit %s)\n", version, commit)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "promptlib version %s\n", version)
	},
}
