package handler

import (
	"encoding/json"

	automationapp "github.com/propman/backend/internal/application/automation"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AutomationRuleHandler handles automation rule endpoints
type AutomationRuleHandler struct {
	BaseHandler
	ruleService *automationapp.RuleService
}

// NewAutomationRuleHandler creates a new AutomationRuleHandler
func NewAutomationRuleHandler(ruleService *automationapp.RuleService) *AutomationRuleHandler {
	return &AutomationRuleHandler{
		ruleService: ruleService,
	}
}

// =============================================================================
// Automation Rule Request DTOs
// =============================================================================

// CreateAutomationRuleRequest represents a request to create an automation rule
//
//	@Description	Request body for creating an automation rule
type CreateAutomationRuleRequest struct {
	Name            string          `json:"name" binding:"required,min=1,max=200" example:"Budget alert"`
	Description     string          `json:"description" binding:"max=1000" example:"Notify finance at 80% budget"`
	TriggerType     string          `json:"trigger_type" binding:"required" example:"budget_threshold"`
	TriggerConfig   json.RawMessage `json:"trigger_config" binding:"required" swaggertype:"object"`
	ActionType      string          `json:"action_type" binding:"required" example:"notify"`
	ActionConfig    json.RawMessage `json:"action_config" binding:"required" swaggertype:"object"`
	CooldownMinutes int             `json:"cooldown_minutes" binding:"gte=0" example:"60"`
}

// UpdateAutomationRuleRequest represents a request to replace a rule's configuration
//
//	@Description	Request body for updating an automation rule
type UpdateAutomationRuleRequest struct {
	Name            string          `json:"name" binding:"required,min=1,max=200" example:"Budget alert"`
	Description     string          `json:"description" binding:"max=1000" example:"Notify finance at 90% budget"`
	TriggerType     string          `json:"trigger_type" binding:"required" example:"budget_threshold"`
	TriggerConfig   json.RawMessage `json:"trigger_config" binding:"required" swaggertype:"object"`
	ActionType      string          `json:"action_type" binding:"required" example:"notify"`
	ActionConfig    json.RawMessage `json:"action_config" binding:"required" swaggertype:"object"`
	CooldownMinutes int             `json:"cooldown_minutes" binding:"gte=0" example:"60"`
}

// Create godoc
//
//	@ID				createAutomationRule
//	@Summary		Create an automation rule
//	@Description	Create a rule binding one trigger to one action; new rules start active and armed
//	@Tags			automation-rules
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			request		body		CreateAutomationRuleRequest	true	"Rule creation request"
//	@Success		201			{object}	APIResponse[automationapp.RuleDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules [post]
func (h *AutomationRuleHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateAutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	triggerType := automation.TriggerType(req.TriggerType)
	if !triggerType.IsValid() {
		h.BadRequest(c, "Invalid trigger type")
		return
	}
	actionType := automation.ActionType(req.ActionType)
	if !actionType.IsValid() {
		h.BadRequest(c, "Invalid action type")
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), automationapp.CreateRuleInput{
		TenantID:        tenantID,
		Name:            req.Name,
		Description:     req.Description,
		TriggerType:     triggerType,
		TriggerConfig:   req.TriggerConfig,
		ActionType:      actionType,
		ActionConfig:    req.ActionConfig,
		CooldownMinutes: req.CooldownMinutes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, rule)
}

// GetByID godoc
//
//	@ID				getAutomationRuleById
//	@Summary		Get an automation rule
//	@Description	Retrieve one rule with its execution state
//	@Tags			automation-rules
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Rule ID"	format(uuid)
//	@Success		200			{object}	APIResponse[automationapp.RuleDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules/{id} [get]
func (h *AutomationRuleHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), tenantID, ruleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// List godoc
//
//	@ID				listAutomationRules
//	@Summary		List automation rules
//	@Description	Retrieve all of the tenant's automation rules
//	@Tags			automation-rules
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Success		200			{object}	APIResponse[[]automationapp.RuleDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules [get]
func (h *AutomationRuleHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rules)
}

// Update godoc
//
//	@ID				updateAutomationRule
//	@Summary		Update an automation rule
//	@Description	Replace a rule's configuration; execution history survives
//	@Tags			automation-rules
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Rule ID"	format(uuid)
//	@Param			request		body		UpdateAutomationRuleRequest	true	"Rule update request"
//	@Success		200			{object}	APIResponse[automationapp.RuleDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules/{id} [put]
func (h *AutomationRuleHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	var req UpdateAutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	triggerType := automation.TriggerType(req.TriggerType)
	if !triggerType.IsValid() {
		h.BadRequest(c, "Invalid trigger type")
		return
	}
	actionType := automation.ActionType(req.ActionType)
	if !actionType.IsValid() {
		h.BadRequest(c, "Invalid action type")
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), automationapp.UpdateRuleInput{
		TenantID:        tenantID,
		RuleID:          ruleID,
		Name:            req.Name,
		Description:     req.Description,
		TriggerType:     triggerType,
		TriggerConfig:   req.TriggerConfig,
		ActionType:      actionType,
		ActionConfig:    req.ActionConfig,
		CooldownMinutes: req.CooldownMinutes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// Activate godoc
//
//	@ID				activateAutomationRule
//	@Summary		Activate an automation rule
//	@Description	Put a rule back into evaluation
//	@Tags			automation-rules
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Rule ID"	format(uuid)
//	@Success		200			{object}	APIResponse[automationapp.RuleDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules/{id}/activate [post]
func (h *AutomationRuleHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
//
//	@ID				deactivateAutomationRule
//	@Summary		Deactivate an automation rule
//	@Description	Take a rule out of evaluation; execution history is kept
//	@Tags			automation-rules
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Rule ID"	format(uuid)
//	@Success		200			{object}	APIResponse[automationapp.RuleDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules/{id}/deactivate [post]
func (h *AutomationRuleHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AutomationRuleHandler) setActive(c *gin.Context, active bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	rule, err := h.ruleService.SetActive(c.Request.Context(), tenantID, ruleID, active)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// Delete godoc
//
//	@ID				deleteAutomationRule
//	@Summary		Delete an automation rule
//	@Description	Remove a rule permanently
//	@Tags			automation-rules
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Rule ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/automation/rules/{id} [delete]
func (h *AutomationRuleHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), tenantID, ruleID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
