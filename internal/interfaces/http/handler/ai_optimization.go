package handler

import (
	aiusageapp "github.com/propman/backend/internal/application/aiusage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AIOptimizationHandler handles the cost optimization advisor endpoints
type AIOptimizationHandler struct {
	BaseHandler
	advisorService *aiusageapp.AdvisorService
}

// NewAIOptimizationHandler creates a new AIOptimizationHandler
func NewAIOptimizationHandler(advisorService *aiusageapp.AdvisorService) *AIOptimizationHandler {
	return &AIOptimizationHandler{
		advisorService: advisorService,
	}
}

// List godoc
//
//	@ID				listAIOptimizations
//	@Summary		List optimization recommendations
//	@Description	Enumerate cheaper-model substitutions for every feature and model observed in the trailing 30 days, ordered by potential monthly savings
//	@Tags			ai-optimizations
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Success		200			{object}	APIResponse[[]aiusageapp.OptimizationRecommendation]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/optimizations [get]
func (h *AIOptimizationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	recommendations, err := h.advisorService.Analyze(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, recommendations)
}

// ForWorkflow godoc
//
//	@ID				listAIWorkflowOptimizations
//	@Summary		List per-step optimizations for a workflow
//	@Description	Enumerate cheaper-model substitutions for each step of one workflow definition
//	@Tags			ai-optimizations
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Workflow ID"	format(uuid)
//	@Success		200			{object}	APIResponse[[]aiusageapp.OptimizationRecommendation]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id}/optimizations [get]
func (h *AIOptimizationHandler) ForWorkflow(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	workflowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid workflow ID format")
		return
	}

	recommendations, err := h.advisorService.AnalyzeWorkflow(c.Request.Context(), tenantID, workflowID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, recommendations)
}
