package main

import (
	"github.com/nebari-dev/promptlib/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title promptlib API
// @version 1.0
// @description Workspace-scoped prompt libraries with conditional questions
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the promptlib HTTP server",
	Long: `Start the promptlib API server.

Examples:
  promptlib serve               # Use the configured port
  promptlib serve --port 8080   # Override port

Environment variables:
  PROMPTLIB_SERVER_PORT         Server port (default: 8470)
  PROMPTLIB_DATABASE_DRIVER     Database driver: sqlite, postgres
  PROMPTLIB_DATABASE_DSN        Database connection string
  PROMPTLIB_CACHE_TYPE          Library cache: none, memory, valkey
  PROMPTLIB_AUTH_TYPE           Authentication: basic, oidc
  PROMPTLIB_AUTH_JWT_SECRET     JWT signing secret
  PROMPTLIB_BUNDLES_DIR         Directory of bundles imported at startup
  ADMIN_USERNAME                Bootstrap admin username
  ADMIN_PASSWORD                Bootstrap admin password`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.RunWithSignalHandling(server.Config{
			Port:    servePort,
			Version: Version,
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}
