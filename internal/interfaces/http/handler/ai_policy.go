package handler

import (
	aiusageapp "github.com/propman/backend/internal/application/aiusage"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AIPolicyHandler handles rate limit policy and feature budget endpoints
type AIPolicyHandler struct {
	BaseHandler
	policyService *aiusageapp.PolicyService
}

// NewAIPolicyHandler creates a new AIPolicyHandler
func NewAIPolicyHandler(policyService *aiusageapp.PolicyService) *AIPolicyHandler {
	return &AIPolicyHandler{
		policyService: policyService,
	}
}

// =============================================================================
// Policy Request DTOs
// =============================================================================

// SetRateLimitRequest represents a request to create or replace a caller policy.
// Caps are pointers so a cap of 0 (fully blocked) survives the required check.
//
//	@Description	Request body for setting a caller's rate limit caps; a cap of 0 blocks the caller entirely
type SetRateLimitRequest struct {
	CallerID   string `json:"caller_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Feature    string `json:"feature" binding:"omitempty" example:"chat"`
	MaxPerHour *int   `json:"max_per_hour" binding:"required,min=0" example:"60"`
	MaxPerDay  *int   `json:"max_per_day" binding:"required,min=0" example:"500"`
}

// SetBudgetRequest represents a request to create or replace a feature budget
//
//	@Description	Request body for setting a feature's monthly budget; zero means unlimited
type SetBudgetRequest struct {
	Feature       string `json:"feature" binding:"required" example:"ocr"`
	MonthlyBudget string `json:"monthly_budget" binding:"required" example:"250.00"`
}

// SetRateLimit godoc
//
//	@ID				setAIRateLimitPolicy
//	@Summary		Set a rate limit policy
//	@Description	Create or replace the rate limit caps for a caller, optionally scoped to one feature
//	@Tags			ai-policies
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				false	"Tenant ID (optional for dev)"
//	@Param			request		body		SetRateLimitRequest	true	"Rate limit policy request"
//	@Success		200			{object}	APIResponse[aiusageapp.RateLimitPolicyDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/policies/rate-limits [put]
func (h *AIPolicyHandler) SetRateLimit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req SetRateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	callerID, err := uuid.Parse(req.CallerID)
	if err != nil {
		h.BadRequest(c, "Invalid caller ID format")
		return
	}

	input := aiusageapp.SetRateLimitInput{
		TenantID:   tenantID,
		CallerID:   callerID,
		MaxPerHour: *req.MaxPerHour,
		MaxPerDay:  *req.MaxPerDay,
	}
	if req.Feature != "" {
		feature, err := aiusage.ParseFeature(req.Feature)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		input.Feature = &feature
	}

	policy, err := h.policyService.SetRateLimit(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, policy)
}

// ListRateLimits godoc
//
//	@ID				listAIRateLimitPolicies
//	@Summary		List rate limit policies
//	@Description	Retrieve all rate limit policies for the tenant
//	@Tags			ai-policies
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Success		200			{object}	APIResponse[[]aiusageapp.RateLimitPolicyDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/policies/rate-limits [get]
func (h *AIPolicyHandler) ListRateLimits(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	policies, err := h.policyService.GetPolicies(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, policies)
}

// DeleteRateLimit godoc
//
//	@ID				deleteAIRateLimitPolicy
//	@Summary		Delete a rate limit policy
//	@Description	Remove a policy; the caller falls back to the default caps
//	@Tags			ai-policies
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Policy ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/policies/rate-limits/{id} [delete]
func (h *AIPolicyHandler) DeleteRateLimit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid policy ID format")
		return
	}

	if err := h.policyService.DeletePolicy(c.Request.Context(), tenantID, policyID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// SetBudget godoc
//
//	@ID				setAIFeatureBudget
//	@Summary		Set a feature budget
//	@Description	Create or replace the monthly budget for a feature; a zero budget means unlimited
//	@Tags			ai-policies
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				false	"Tenant ID (optional for dev)"
//	@Param			request		body		SetBudgetRequest	true	"Feature budget request"
//	@Success		200			{object}	APIResponse[aiusageapp.FeatureBudgetDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/policies/budgets [put]
func (h *AIPolicyHandler) SetBudget(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	feature, err := aiusage.ParseFeature(req.Feature)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.MonthlyBudget)
	if err != nil {
		h.BadRequest(c, "Invalid monthly budget amount")
		return
	}

	budget, err := h.policyService.SetBudget(c.Request.Context(), aiusageapp.SetBudgetInput{
		TenantID:      tenantID,
		Feature:       feature,
		MonthlyBudget: amount,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// ListBudgets godoc
//
//	@ID				listAIFeatureBudgets
//	@Summary		List feature budgets
//	@Description	Retrieve all feature budgets for the tenant
//	@Tags			ai-policies
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Success		200			{object}	APIResponse[[]aiusageapp.FeatureBudgetDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/policies/budgets [get]
func (h *AIPolicyHandler) ListBudgets(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	budgets, err := h.policyService.GetBudgets(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budgets)
}

// DeleteBudget godoc
//
//	@ID				deleteAIFeatureBudget
//	@Summary		Delete a feature budget
//	@Description	Remove a budget; the feature becomes unlimited
//	@Tags			ai-policies
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Budget ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/policies/budgets/{id} [delete]
func (h *AIPolicyHandler) DeleteBudget(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	budgetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid budget ID format")
		return
	}

	if err := h.policyService.DeleteBudget(c.Request.Context(), tenantID, budgetID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ListDisabledFeatures godoc
//
//	@ID				listDisabledAIFeatures
//	@Summary		List disabled features
//	@Description	Retrieve the features currently switched off for the tenant, typically by an automation rule
//	@Tags			ai-policies
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Success		200			{object}	APIResponse[[]string]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/features/disabled [get]
func (h *AIPolicyHandler) ListDisabledFeatures(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	features, err := h.policyService.GetDisabledFeatures(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, features)
}

// EnableFeature godoc
//
//	@ID				enableAIFeature
//	@Summary		Re-enable a disabled feature
//	@Description	Clear the feature switch so invocations go through again; a no-op when the feature is not disabled
//	@Tags			ai-policies
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			feature		path	string	true	"Feature name"
//	@Success		204
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/features/{feature}/enable [post]
func (h *AIPolicyHandler) EnableFeature(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	feature, err := aiusage.ParseFeature(c.Param("feature"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.policyService.EnableFeature(c.Request.Context(), tenantID, feature); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
