package handlers

import (
	"net/http"
	"time"

	"joblens-agent/internal/cache"
	"joblens-agent/internal/coordinator"
	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// AnalyzeHandler runs the pipeline for a listing handed in directly, without
// page observation. The result goes through the same cache and
// classification as observed listings.
func AnalyzeHandler(coord *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		requestID := utils.GenerateRequestID()
		logger := logging.LogWithRequestID(requestID)

		var req models.AnalyzeRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to bind analyze request", map[string]interface{}{
				"error": err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			logger.Error("Analyze request validation failed", map[string]interface{}{
				"error": err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		snapshot := models.ListingSnapshot{
			Title:       utils.GetStringOrDefault(req.Title, models.UnknownValue),
			Company:     utils.GetStringOrDefault(req.Company, models.UnknownValue),
			Location:    utils.GetStringOrDefault(req.Location, models.UnknownValue),
			Description: req.Description,
			ListingType: utils.GetStringOrDefault(req.ListingType, models.UnknownValue),
			SalaryText:  utils.GetStringOrDefault(req.SalaryText, models.UnknownValue),
			SourceURL:   req.SourceURL,
			CapturedAt:  time.Now(),
		}

		pipeline := coordinator.PipelineRequest{
			ID:       requestID,
			Snapshot: snapshot,
			Key:      cache.Key(snapshot),
			IssuedAt: started,
		}

		outcome, err := coord.Handle(c.Request().Context(), pipeline)
		if err != nil {
			cerr, ok := utils.AsClassified(err)
			if !ok {
				cerr = utils.NewServerError(err.Error())
			}
			return c.JSON(cerr.HTTPStatus(), models.ErrorResponse{
				Error:     "analysis_failed",
				Kind:      string(cerr.Kind),
				Message:   cerr.Message,
				Hint:      cerr.Hint,
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, models.AnalyzeResponse{
			Success:        true,
			Outcome:        &outcome,
			ProcessingTime: time.Since(started),
			RequestID:      requestID,
		})
	}
}
