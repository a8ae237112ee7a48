package handlers

import (
	"net/http"
	"time"

	"joblens-agent/internal/coordinator"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"

	"github.com/labstack/echo/v4"
)

// StateHandler returns the latest pipeline state recorded for a page context.
func StateHandler(coord *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		contextID := c.Param("contextID")

		state, ok := coord.StateFor(contextID)
		if !ok {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:     "unknown_context",
				Message:   "No pipeline state recorded for this context",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, state)
	}
}
