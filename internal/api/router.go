package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/api/handlers"
	"github.com/nebari-dev/promptlib/internal/api/middleware"
	"github.com/nebari-dev/promptlib/internal/auth"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Services bundles the service layer the router exposes.
type Services struct {
	Workspaces *service.WorkspaceService
	Templates  *service.TemplateService
	Libraries  *service.LibraryService
	Bundles    *service.BundleService
}

// NewRouter creates and configures the Gin router. oidcAuth may be nil when
// OIDC is not configured.
func NewRouter(cfg *config.Config, db *gorm.DB, svc Services, authenticator auth.Authenticator, oidcAuth *auth.OIDCAuthenticator) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	infoHandler := handlers.NewInfoHandler(db)
	adminHandler := handlers.NewAdminHandler(db)
	templateHandler := handlers.NewTemplateHandler(svc.Templates)
	libraryHandler := handlers.NewLibraryHandler(svc.Libraries)
	workspaceHandler := handlers.NewWorkspaceHandler(svc.Workspaces, svc.Templates, svc.Libraries)
	bundleHandler := handlers.NewBundleHandler(svc.Bundles)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck)
		public.GET("/version", handlers.GetVersion)
		public.GET("/info", infoHandler.GetInfo)
		public.POST("/auth/login", handlers.Login(authenticator, db))
		if oidcAuth != nil {
			public.GET("/auth/oidc/login", handlers.OIDCLogin(oidcAuth))
			public.GET("/auth/oidc/callback", handlers.OIDCCallback(oidcAuth))
		}
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/auth/me", handlers.GetCurrentUser(authenticator))
		protected.GET("/prompt-templates", templateHandler.ListEnabled)

		ws := protected.Group("/workspaces/:slug")
		{
			ws.GET("/prompt-template/active", workspaceHandler.GetActiveTemplate)
			ws.PUT("/prompt-template/active", workspaceHandler.SetActiveTemplate)
			ws.GET("/prompt-libraries", workspaceHandler.ListLibraries)
			ws.POST("/prompt-libraries/:id/evaluate", workspaceHandler.Evaluate)
			ws.POST("/prompt-libraries/:id/render", workspaceHandler.Render)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/prompt-templates", templateHandler.List)
			admin.POST("/prompt-templates", templateHandler.Create)
			admin.GET("/prompt-templates/:id", templateHandler.Get)
			admin.PUT("/prompt-templates/:id", templateHandler.Update)
			admin.DELETE("/prompt-templates/:id", templateHandler.Delete)
			admin.POST("/prompt-templates/:id/default", templateHandler.SetDefault)

			admin.GET("/prompt-libraries", libraryHandler.List)
			admin.POST("/prompt-libraries", libraryHandler.Create)
			admin.GET("/prompt-libraries/:id", libraryHandler.Get)
			admin.PUT("/prompt-libraries/:id", libraryHandler.Update)
			admin.DELETE("/prompt-libraries/:id", libraryHandler.Delete)
			admin.PUT("/prompt-libraries/:id/workspaces", libraryHandler.SetAssignments)

			admin.GET("/workspaces", workspaceHandler.List)
			admin.POST("/workspaces", workspaceHandler.Create)

			admin.GET("/bundle", bundleHandler.Export)
			admin.POST("/bundle", bundleHandler.Import)

			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.POST("/users/:id/toggle-admin", adminHandler.ToggleAdmin)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode, "oidc", oidcAuth != nil)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
