package handler

import (
	"log"
	"main/model"
	"main/usecase"
	"main/utils"
	"strings"

	"github.com/gin-gonic/gin"
)

type TemplatesHandler struct {
	guidanceService *usecase.GuidanceService
}

func NewTemplatesHandler(guidanceService *usecase.GuidanceService) *TemplatesHandler {
	return &TemplatesHandler{guidanceService: guidanceService}
}

// ListTemplates returns the full catalog.
func (h *TemplatesHandler) ListTemplates(c *gin.Context) {
	templates, err := h.guidanceService.GetProjectTemplates(c.Request.Context())
	if err != nil {
		log.Printf("Error listing templates: %v", err)
		utils.ServiceUnavailable(c, "Could not load templates, please retry")
		return
	}
	utils.Success(c, gin.H{"templates": templates})
}

// GetRecommendedTemplates filters the catalog by the caller's declared
// interests (?crafts=woodworking,sewing&skill=beginner).
func (h *TemplatesHandler) GetRecommendedTemplates(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	profile := model.UserProfile{
		UserID:     userID.(string),
		SkillLevel: c.Query("skill"),
	}
	if crafts := c.Query("crafts"); crafts != "" {
		for _, craft := range strings.Split(crafts, ",") {
			trimmed := strings.TrimSpace(craft)
			if trimmed == "" {
				continue
			}
			if err := utils.Validate.Var(trimmed, "craft"); err != nil {
				utils.BadRequest(c, "Unknown craft type: "+trimmed)
				return
			}
			profile.CraftInterests = append(profile.CraftInterests, trimmed)
		}
	}

	templates, err := h.guidanceService.GetRecommendedTemplates(c.Request.Context(), profile)
	if err != nil {
		log.Printf("Error recommending templates for user %s: %v", userID, err)
		utils.ServiceUnavailable(c, "Could not load templates, please retry")
		return
	}
	utils.Success(c, gin.H{"templates": templates})
}
