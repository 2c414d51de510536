package handler

import (
	"errors"
	"log"
	"main/middleware"
	"main/model"
	"main/usecase"
	"main/utils"
	"time"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService *usecase.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *usecase.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetOnboardingAnalytics recomputes the dashboard rollup, optionally
// windowed (?from=RFC3339&to=RFC3339). When the record store is down the
// cached snapshot is served; 503 only when neither is possible.
func (h *AnalyticsHandler) GetOnboardingAnalytics(c *gin.Context) {
	var timeRange model.TimeRange
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			utils.BadRequest(c, "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		timeRange.From = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			utils.BadRequest(c, "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		timeRange.To = parsed
	}

	start := time.Now()
	data, err := h.analyticsService.GetOnboardingAnalytics(c.Request.Context(), timeRange)
	if err != nil {
		middleware.TrackAnalyticsRecompute("error", time.Since(start), 0)
		if errors.Is(err, usecase.ErrDataUnavailable) {
			utils.ServiceUnavailable(c, "Analytics temporarily unavailable, please retry")
			return
		}
		log.Printf("Error computing onboarding analytics: %v", err)
		utils.InternalError(c, "Failed to compute analytics")
		return
	}

	middleware.TrackAnalyticsRecompute("ok", time.Since(start), data.SkippedRecords)
	utils.Success(c, gin.H{"analytics": data})
}

// GetUserJourney returns the caller's own journey metrics.
func (h *AnalyticsHandler) GetUserJourney(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	metrics, err := h.analyticsService.GetUserJourneyMetrics(c.Request.Context(), userID.(string))
	if err != nil {
		log.Printf("Error computing journey metrics for user %s: %v", userID, err)
		utils.ServiceUnavailable(c, "Journey metrics temporarily unavailable, please retry")
		return
	}
	utils.Success(c, gin.H{"journey": metrics})
}

// GetInsights runs the insight rules over a fresh (or cached) rollup.
// An empty list means no rule fired; the dashboard shows its own
// gathering-insights state.
func (h *AnalyticsHandler) GetInsights(c *gin.Context) {
	data, err := h.analyticsService.GetOnboardingAnalytics(c.Request.Context(), model.TimeRange{})
	if err != nil {
		if errors.Is(err, usecase.ErrDataUnavailable) {
			utils.ServiceUnavailable(c, "Insights temporarily unavailable, please retry")
			return
		}
		log.Printf("Error computing insights: %v", err)
		utils.InternalError(c, "Failed to compute insights")
		return
	}

	insights := h.analyticsService.GenerateInsights(data)
	utils.Success(c, gin.H{"insights": insights})
}
