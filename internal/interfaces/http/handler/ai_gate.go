package handler

import (
	"errors"

	aiusageapp "github.com/propman/backend/internal/application/aiusage"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AIGateHandler handles the synchronous gate check endpoints
type AIGateHandler struct {
	BaseHandler
	gateService *aiusageapp.GateService
}

// NewAIGateHandler creates a new AIGateHandler
func NewAIGateHandler(gateService *aiusageapp.GateService) *AIGateHandler {
	return &AIGateHandler{
		gateService: gateService,
	}
}

// writeGateError maps the typed governance errors onto their reserved API
// codes. Returns true when err was one of them; other errors fall through to
// the shared domain error handling.
func (h *BaseHandler) writeGateError(c *gin.Context, err error) bool {
	var rateErr *aiusageapp.RateLimitExceededError
	if errors.As(err, &rateErr) {
		h.Error(c, rateErr.HTTPStatusCode(), dto.ErrCodeRateLimited, rateErr.Error())
		return true
	}

	var budgetErr *aiusageapp.BudgetExceededError
	if errors.As(err, &budgetErr) {
		h.Error(c, budgetErr.HTTPStatusCode(), dto.ErrCodeBudgetExceeded, budgetErr.Error())
		return true
	}

	var disabledErr *aiusageapp.FeatureDisabledError
	if errors.As(err, &disabledErr) {
		h.Error(c, disabledErr.HTTPStatusCode(), dto.ErrCodeFeatureDisabled, disabledErr.Error())
		return true
	}

	var ledgerErr *aiusageapp.LedgerUnavailableError
	if errors.As(err, &ledgerErr) {
		h.Error(c, ledgerErr.HTTPStatusCode(), dto.ErrCodeLedgerUnavailable, ledgerErr.Error())
		return true
	}

	return false
}

// resolveCallerID prefers an explicit caller over the authenticated user
func resolveCallerID(c *gin.Context, explicit string) (uuid.UUID, error) {
	if explicit != "" {
		return uuid.Parse(explicit)
	}
	return getUserID(c)
}

// =============================================================================
// Gate Request DTOs
// =============================================================================

// RateLimitCheckRequest represents a rate limit pre-check
//
//	@Description	Request body for checking a caller's rate limit headroom
type RateLimitCheckRequest struct {
	Feature  string `json:"feature" binding:"required" example:"chat"`
	CallerID string `json:"caller_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// BudgetCheckRequest represents a budget pre-check
//
//	@Description	Request body for checking a feature's monthly budget headroom
type BudgetCheckRequest struct {
	Feature string `json:"feature" binding:"required" example:"ocr"`
}

// CheckRateLimit godoc
//
//	@ID				checkAIRateLimit
//	@Summary		Check rate limit headroom
//	@Description	Evaluate the caller's trailing hourly and daily request counts against the effective policy without consuming anything
//	@Tags			ai-gate
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			request		body		RateLimitCheckRequest	true	"Rate limit check request"
//	@Success		200			{object}	APIResponse[aiusageapp.RateLimitCheckResult]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		503			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/gate/rate-limit/check [post]
func (h *AIGateHandler) CheckRateLimit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RateLimitCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	callerID, err := resolveCallerID(c, req.CallerID)
	if err != nil {
		h.BadRequest(c, "Caller ID is required")
		return
	}

	feature, err := aiusage.ParseFeature(req.Feature)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.gateService.CheckRateLimit(c.Request.Context(), tenantID, callerID, feature)
	if err != nil {
		if h.writeGateError(c, err) {
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// CheckBudget godoc
//
//	@ID				checkAIBudget
//	@Summary		Check monthly budget headroom
//	@Description	Evaluate the feature's current calendar-month spend against its configured budget
//	@Tags			ai-gate
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				false	"Tenant ID (optional for dev)"
//	@Param			request		body		BudgetCheckRequest	true	"Budget check request"
//	@Success		200			{object}	APIResponse[aiusageapp.BudgetCheckResult]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		503			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/gate/budget/check [post]
func (h *AIGateHandler) CheckBudget(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req BudgetCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	feature, err := aiusage.ParseFeature(req.Feature)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.gateService.CheckBudget(c.Request.Context(), tenantID, feature)
	if err != nil {
		if h.writeGateError(c, err) {
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
