package handlers

import (
	"net/http"
	"time"

	"joblens-agent/internal/coordinator"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"

	"github.com/labstack/echo/v4"
)

// NotificationActionHandler relays an activated notification button to the
// coordinator. A view-analysis action ends up opening the feedback surface in
// the page context.
func NotificationActionHandler(coord *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		var req models.NotificationActionRequest
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

		if err := coord.HandleNotificationAction(c.Request().Context(), req.Action, req.Key, req.SourceURL); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "action_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"action":     req.Action,
			"request_id": requestID,
		})
	}
}
