package handlers

import (
	"net/http"
	"time"

	"joblens-agent/internal/cache"
	"joblens-agent/internal/coordinator"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"

	"github.com/labstack/echo/v4"
)

// ClearCacheHandler discards the stored result for one listing, identified
// the same way the cache keys it.
func ClearCacheHandler(coord *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		var req models.ClearCacheHTTPRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		key := cache.KeyFor(req.Title, req.Company, req.SourceURL)
		coord.ClearCacheEntry(key)

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"key":        key,
			"request_id": requestID,
		})
	}
}
