package handler

import (
	"strconv"

	workflowapp "github.com/propman/backend/internal/application/workflow"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AIWorkflowHandler handles workflow definition endpoints
type AIWorkflowHandler struct {
	BaseHandler
	workflowService *workflowapp.WorkflowService
}

// NewAIWorkflowHandler creates a new AIWorkflowHandler
func NewAIWorkflowHandler(workflowService *workflowapp.WorkflowService) *AIWorkflowHandler {
	return &AIWorkflowHandler{
		workflowService: workflowService,
	}
}

// =============================================================================
// Workflow Request DTOs
// =============================================================================

// WorkflowStepRequest describes one pipeline step
//
//	@Description	One AI pipeline step
type WorkflowStepRequest struct {
	Feature   string `json:"feature" binding:"required" example:"ocr"`
	Model     string `json:"model" binding:"required" example:"gpt-4o-mini"`
	MaxTokens int64  `json:"max_tokens" binding:"required,gt=0" example:"4096"`
}

// CreateWorkflowRequest represents a request to create a workflow definition
//
//	@Description	Request body for creating a workflow definition
type CreateWorkflowRequest struct {
	Name        string                `json:"name" binding:"required,min=1,max=200" example:"Lease intake"`
	Description string                `json:"description" binding:"max=1000" example:"OCR then summarize incoming leases"`
	IsTemplate  bool                  `json:"is_template" example:"false"`
	Steps       []WorkflowStepRequest `json:"steps" binding:"dive"`
}

// UpdateWorkflowRequest represents a request to rename a workflow definition
//
//	@Description	Request body for updating a workflow definition
type UpdateWorkflowRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200" example:"Lease intake v2"`
	Description string `json:"description" binding:"max=1000" example:"Updated description"`
}

// DuplicateWorkflowRequest represents a request to copy a workflow definition
//
//	@Description	Request body for duplicating a workflow definition
type DuplicateWorkflowRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200" example:"Lease intake (copy)"`
}

// parseSteps converts request steps into application step inputs
func parseSteps(steps []WorkflowStepRequest) ([]workflowapp.StepInput, error) {
	inputs := make([]workflowapp.StepInput, 0, len(steps))
	for _, step := range steps {
		feature, err := aiusage.ParseFeature(step.Feature)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, workflowapp.StepInput{
			Feature:   feature,
			Model:     step.Model,
			MaxTokens: step.MaxTokens,
		})
	}
	return inputs, nil
}

// Create godoc
//
//	@ID				createAIWorkflow
//	@Summary		Create a workflow definition
//	@Description	Create a workflow definition with its initial steps and cost estimate
//	@Tags			ai-workflows
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			request		body		CreateWorkflowRequest	true	"Workflow creation request"
//	@Success		201			{object}	APIResponse[workflowapp.WorkflowDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows [post]
func (h *AIWorkflowHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	steps, err := parseSteps(req.Steps)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.workflowService.CreateWorkflow(c.Request.Context(), workflowapp.CreateWorkflowInput{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		IsTemplate:  req.IsTemplate,
		Steps:       steps,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, definition)
}

// GetByID godoc
//
//	@ID				getAIWorkflowById
//	@Summary		Get a workflow definition
//	@Description	Retrieve one workflow definition with its steps and cost estimate
//	@Tags			ai-workflows
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Workflow ID"	format(uuid)
//	@Success		200			{object}	APIResponse[workflowapp.WorkflowDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id} [get]
func (h *AIWorkflowHandler) GetByID(c *gin.Context) {
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

	definition, err := h.workflowService.GetWorkflow(c.Request.Context(), tenantID, workflowID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// List godoc
//
//	@ID				listAIWorkflows
//	@Summary		List workflow definitions
//	@Description	Retrieve the tenant's workflow definitions
//	@Tags			ai-workflows
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			templates_only	query		bool	false	"Only return templates"	default(false)
//	@Success		200				{object}	APIResponse[[]workflowapp.WorkflowDTO]
//	@Failure		400				{object}	dto.ErrorResponse
//	@Failure		401				{object}	dto.ErrorResponse
//	@Failure		500				{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows [get]
func (h *AIWorkflowHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	templatesOnly := c.Query("templates_only") == "true"

	definitions, err := h.workflowService.ListWorkflows(c.Request.Context(), tenantID, templatesOnly)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definitions)
}

// Update godoc
//
//	@ID				updateAIWorkflow
//	@Summary		Update a workflow definition
//	@Description	Rename a workflow definition; steps are managed through the step endpoints
//	@Tags			ai-workflows
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Workflow ID"	format(uuid)
//	@Param			request		body		UpdateWorkflowRequest	true	"Workflow update request"
//	@Success		200			{object}	APIResponse[workflowapp.WorkflowDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id} [put]
func (h *AIWorkflowHandler) Update(c *gin.Context) {
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

	var req UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.workflowService.UpdateWorkflow(c.Request.Context(), tenantID, workflowID, req.Name, req.Description)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// Delete godoc
//
//	@ID				deleteAIWorkflow
//	@Summary		Delete a workflow definition
//	@Description	Remove a workflow definition and its steps
//	@Tags			ai-workflows
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Workflow ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id} [delete]
func (h *AIWorkflowHandler) Delete(c *gin.Context) {
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

	if err := h.workflowService.DeleteWorkflow(c.Request.Context(), tenantID, workflowID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// AddStep godoc
//
//	@ID				addAIWorkflowStep
//	@Summary		Add a workflow step
//	@Description	Append a step to the workflow and recompute the cost estimate
//	@Tags			ai-workflows
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				false	"Tenant ID (optional for dev)"
//	@Param			id			path		string				true	"Workflow ID"	format(uuid)
//	@Param			request		body		WorkflowStepRequest	true	"Step request"
//	@Success		200			{object}	APIResponse[workflowapp.WorkflowDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id}/steps [post]
func (h *AIWorkflowHandler) AddStep(c *gin.Context) {
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

	var req WorkflowStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	feature, err := aiusage.ParseFeature(req.Feature)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.workflowService.AddStep(c.Request.Context(), tenantID, workflowID, workflowapp.StepInput{
		Feature:   feature,
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// RemoveStep godoc
//
//	@ID				removeAIWorkflowStep
//	@Summary		Remove a workflow step
//	@Description	Delete a step by its order, renumber the remaining steps and recompute the cost estimate
//	@Tags			ai-workflows
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Workflow ID"	format(uuid)
//	@Param			order		path		int		true	"Step order (1-based)"
//	@Success		200			{object}	APIResponse[workflowapp.WorkflowDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id}/steps/{order} [delete]
func (h *AIWorkflowHandler) RemoveStep(c *gin.Context) {
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

	order, err := strconv.Atoi(c.Param("order"))
	if err != nil || order < 1 {
		h.BadRequest(c, "Invalid step order")
		return
	}

	definition, err := h.workflowService.RemoveStep(c.Request.Context(), tenantID, workflowID, order)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// Duplicate godoc
//
//	@ID				duplicateAIWorkflow
//	@Summary		Duplicate a workflow definition
//	@Description	Copy a definition, typically a template, into an independent non-template workflow
//	@Tags			ai-workflows
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Workflow ID"	format(uuid)
//	@Param			request		body		DuplicateWorkflowRequest	true	"Duplicate request"
//	@Success		201			{object}	APIResponse[workflowapp.WorkflowDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/workflows/{id}/duplicate [post]
func (h *AIWorkflowHandler) Duplicate(c *gin.Context) {
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

	var req DuplicateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.workflowService.DuplicateWorkflow(c.Request.Context(), tenantID, workflowID, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, definition)
}
