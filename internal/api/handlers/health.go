package handlers

import (
	"net/http"
	"time"

	"joblens-agent/internal/coordinator"
	"joblens-agent/internal/logging"
	"joblens-agent/internal/storage"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"

	"github.com/labstack/echo/v4"
)

var startTime = time.Now()

// RootHandler identifies the service.
func RootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "joblens-agent",
		"version": "1.0.0",
	})
}

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Health check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler reports whether the pipeline can take work: the bridge is
// up and the shared storage answers.
func ReadinessHandler(coord *coordinator.Coordinator, store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := map[string]string{"api": "ok"}
		status := "ready"
		code := http.StatusOK

		if err := coord.IsHealthy(); err != nil {
			checks["coordinator"] = err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["coordinator"] = "ok"
		}

		if store != nil {
			if err := store.IsHealthy(c.Request().Context()); err != nil {
				checks["storage"] = err.Error()
				status = "not_ready"
				code = http.StatusServiceUnavailable
			} else {
				checks["storage"] = "ok"
			}
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
	})
}

// StatusHandler reports pipeline counters alongside the service status.
func StatusHandler(coord *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "operational",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"pipeline":  coord.Stats(),
		})
	}
}
