package routes

import (
	"joblens-agent/internal/api/handlers"
	"joblens-agent/internal/api/middleware"
	"joblens-agent/internal/config"
	"joblens-agent/internal/coordinator"
	"joblens-agent/internal/storage"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, coord *coordinator.Coordinator, store *storage.Store) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(coord, store))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Root and status routes
	e.GET("/", handlers.RootHandler)
	e.GET("/status", handlers.StatusHandler(coord))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.POST("/analyze", handlers.AnalyzeHandler(coord))
		v1.GET("/state/:contextID", handlers.StateHandler(coord))
		v1.DELETE("/cache", handlers.ClearCacheHandler(coord))
		v1.POST("/notifications/action", handlers.NotificationActionHandler(coord))
	}
}
