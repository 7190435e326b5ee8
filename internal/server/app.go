package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/api"
	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/nebari-dev/promptlib/internal/cache"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/db"
	"github.com/nebari-dev/promptlib/internal/rbac"
	"github.com/nebari-dev/promptlib/internal/service"
	"gorm.io/gorm"
)

// App holds the database, cache and services shared by the HTTP server and
// the CLI commands.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    cache.Cache
	Services api.Services
}

// Open connects to and migrates the database, initializes RBAC and builds
// the service layer.
func Open(cfg *config.Config) (*App, error) {
	// Propagate app log level to database if not explicitly set
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = cfg.Log.Level
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", cfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed", "schema_version", db.SchemaVersion)

	serverID, err := db.GetOrCreateServerID(database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server ID: %w", err)
	}
	slog.Debug("Server ID initialized", "server_id", serverID)

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	libraryCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	return &App{
		Config: cfg,
		DB:     database,
		Cache:  libraryCache,
		Services: api.Services{
			Workspaces: service.NewWorkspaceService(database),
			Templates:  service.NewTemplateService(database),
			Libraries:  service.NewLibraryService(database, libraryCache),
			Bundles:    service.NewBundleService(database, libraryCache),
		},
	}, nil
}

// Close releases the cache and database connections.
func (a *App) Close() error {
	if err := a.Cache.Close(); err != nil {
		slog.Warn("Failed to close cache", "error", err)
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ImportResult is the outcome of importing one bundle file.
type ImportResult struct {
	Path    string
	Summary *service.ImportSummary
	Err     error
}

// ImportFiles imports each bundle in its own transaction. A failing file
// does not stop the others.
func (a *App) ImportFiles(ctx context.Context, files []bundle.File, userID uuid.UUID) []ImportResult {
	results := make([]ImportResult, 0, len(files))
	for _, f := range files {
		summary, err := a.Services.Bundles.Import(ctx, f.Bundle, userID)
		results = append(results, ImportResult{Path: f.Path, Summary: summary, Err: err})
	}
	return results
}

// importStartupBundles loads every bundle under the configured directory.
func (a *App) importStartupBundles(ctx context.Context) error {
	dir := a.Config.Bundles.Dir
	if dir == "" {
		return nil
	}
	files, err := bundle.LoadDir(dir, a.Config.Bundles.Pattern)
	if err != nil {
		return fmt.Errorf("failed to load bundles from %s: %w", dir, err)
	}
	for _, r := range a.ImportFiles(ctx, files, uuid.Nil) {
		if r.Err != nil {
			slog.Error("Bundle import failed", "path", r.Path, "error", r.Err)
			continue
		}
		slog.Info("Bundle imported", "path", r.Path,
			"libraries_created", r.Summary.Libraries.Created,
			"libraries_updated", r.Summary.Libraries.Updated,
			"warnings", len(r.Summary.Warnings))
	}
	return nil
}
