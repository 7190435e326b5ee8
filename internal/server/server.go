// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nebari-dev/promptlib/internal/api"
	"github.com/nebari-dev/promptlib/internal/api/handlers"
	"github.com/nebari-dev/promptlib/internal/auth"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/db"
	"github.com/nebari-dev/promptlib/internal/logger"
	"gorm.io/gorm"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from CLI flag if provided
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	version, commit := handlers.BuildInfo()
	slog.Info("Starting promptlib server", "version", version, "commit", commit, "mode", appCfg.Server.Mode)

	app, err := Open(appCfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := db.CreateDefaultAdmin(app.DB); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	if err := app.importStartupBundles(ctx); err != nil {
		return err
	}

	authenticator, oidcAuth, err := newAuthenticator(ctx, appCfg, app.DB)
	if err != nil {
		return err
	}

	router := api.NewRouter(appCfg, app.DB, app.Services, authenticator, oidcAuth)

	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("promptlib exited")
	return nil
}

// newAuthenticator builds the configured authenticator. The OIDC
// authenticator is nil unless auth.type is "oidc".
func newAuthenticator(ctx context.Context, cfg *config.Config, database *gorm.DB) (auth.Authenticator, *auth.OIDCAuthenticator, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, nil, errors.New("auth.jwt_secret must be set")
	}
	basic := auth.NewBasicAuthenticator(database, cfg.Auth.JWTSecret)

	switch cfg.Auth.Type {
	case "", "basic":
		return basic, nil, nil
	case "oidc":
		oidcAuth, err := auth.NewOIDCAuthenticator(ctx, cfg.Auth.OIDC, database, basic)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("OIDC authentication enabled", "issuer", cfg.Auth.OIDC.IssuerURL)
		return oidcAuth, oidcAuth, nil
	case "proxy":
		slog.Info("Trusting authenticating proxy IdToken cookies", "admin_groups", cfg.Auth.ProxyAdminGroups)
		return auth.NewProxyAuthenticator(database, basic, cfg.Auth.ProxyAdminGroups), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported auth type: %s (supported: basic, oidc, proxy)", cfg.Auth.Type)
	}
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}
