package handler

import (
	"errors"
	"log"
	"main/middleware"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
)

type GuidanceHandler struct {
	guidanceService *usecase.GuidanceService
}

func NewGuidanceHandler(guidanceService *usecase.GuidanceService) *GuidanceHandler {
	return &GuidanceHandler{guidanceService: guidanceService}
}

type startGuidanceRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// StartGuidance begins (or resumes) the user's guidance on a template.
func (h *GuidanceHandler) StartGuidance(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	var req startGuidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "template_id is required")
		return
	}

	state, err := h.guidanceService.StartGuidance(c.Request.Context(), userID.(string), req.TemplateID)
	if err != nil {
		middleware.TrackGuidanceOperation("start", "error")
		if errors.Is(err, usecase.ErrTemplateNotFound) {
			utils.NotFound(c, "Template not found")
			return
		}
		log.Printf("Error starting guidance for user %s: %v", userID, err)
		utils.ServiceUnavailable(c, "Could not start guidance, please retry")
		return
	}

	middleware.TrackGuidanceOperation("start", "ok")
	utils.Success(c, gin.H{"guidance": state})
}

// CompleteStep marks a step of the active guidance as completed.
func (h *GuidanceHandler) CompleteStep(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	stepID := c.Param("stepId")
	if stepID == "" {
		utils.BadRequest(c, "Step ID is required")
		return
	}

	state, err := h.guidanceService.CompleteStep(c.Request.Context(), userID.(string), stepID)
	if err != nil {
		middleware.TrackGuidanceOperation("complete_step", "error")
		switch {
		case errors.Is(err, usecase.ErrNoActiveGuidance):
			utils.NotFound(c, "No guidance in progress")
		case errors.Is(err, usecase.ErrUnknownStep):
			utils.BadRequest(c, "Step does not belong to the current template")
		case errors.Is(err, usecase.ErrTemplateNotFound):
			utils.NotFound(c, "Template not found")
		default:
			log.Printf("Error completing step %s for user %s: %v", stepID, userID, err)
			utils.ServiceUnavailable(c, "Could not complete step, please retry")
		}
		return
	}

	middleware.TrackGuidanceOperation("complete_step", "ok")
	utils.Success(c, gin.H{"guidance": state})
}

// RecordStepView records that the user opened a step.
func (h *GuidanceHandler) RecordStepView(c *gin.Context) {
	h.recordStepEvent(c, "view")
}

// SkipStep records that the user skipped a step. Skipping does not
// affect the completed set.
func (h *GuidanceHandler) SkipStep(c *gin.Context) {
	h.recordStepEvent(c, "skip")
}

func (h *GuidanceHandler) recordStepEvent(c *gin.Context, operation string) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	stepID := c.Param("stepId")
	if stepID == "" {
		utils.BadRequest(c, "Step ID is required")
		return
	}

	var err error
	if operation == "skip" {
		err = h.guidanceService.SkipStep(c.Request.Context(), userID.(string), stepID)
	} else {
		err = h.guidanceService.RecordStepView(c.Request.Context(), userID.(string), stepID)
	}
	if err != nil {
		middleware.TrackGuidanceOperation(operation, "error")
		switch {
		case errors.Is(err, usecase.ErrNoActiveGuidance):
			utils.NotFound(c, "No guidance in progress")
		case errors.Is(err, usecase.ErrUnknownStep):
			utils.BadRequest(c, "Step does not belong to the current template")
		default:
			log.Printf("Error recording step %s for user %s: %v", operation, userID, err)
			utils.ServiceUnavailable(c, "Could not record step event, please retry")
		}
		return
	}

	middleware.TrackGuidanceOperation(operation, "ok")
	utils.Success(c, gin.H{"recorded": true})
}

// CompleteTutorial records that the user finished the onboarding
// tutorial.
func (h *GuidanceHandler) CompleteTutorial(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	if err := h.guidanceService.CompleteTutorial(c.Request.Context(), userID.(string)); err != nil {
		log.Printf("Error completing tutorial for user %s: %v", userID, err)
		utils.ServiceUnavailable(c, "Could not record tutorial completion, please retry")
		return
	}
	utils.Success(c, gin.H{"recorded": true})
}

// GetProgress returns the user's active guidance, or a not-started
// payload when there is none.
func (h *GuidanceHandler) GetProgress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	state, err := h.guidanceService.GetProgress(c.Request.Context(), userID.(string))
	if err != nil {
		log.Printf("Error fetching progress for user %s: %v", userID, err)
		utils.ServiceUnavailable(c, "Could not fetch progress, please retry")
		return
	}
	if state == nil {
		utils.Success(c, gin.H{"started": false})
		return
	}
	utils.Success(c, gin.H{"started": true, "guidance": state})
}

// GetCurrentStep resolves the step the active guidance points at.
func (h *GuidanceHandler) GetCurrentStep(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	state, err := h.guidanceService.GetProgress(c.Request.Context(), userID.(string))
	if err != nil {
		log.Printf("Error fetching progress for user %s: %v", userID, err)
		utils.ServiceUnavailable(c, "Could not fetch progress, please retry")
		return
	}
	if state == nil {
		utils.NotFound(c, "No guidance in progress")
		return
	}

	template, err := h.guidanceService.Catalog.GetTemplate(c.Request.Context(), state.TemplateID)
	if err != nil || template == nil {
		log.Printf("Error resolving template %s: %v", state.TemplateID, err)
		utils.ServiceUnavailable(c, "Could not resolve template, please retry")
		return
	}

	step, done := usecase.CurrentStep(state, template)
	if done {
		utils.Success(c, gin.H{"completed": true})
		return
	}
	utils.Success(c, gin.H{"completed": false, "step": step, "step_index": state.CurrentStepIndex})
}
