package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateWorkflowInput contains input for creating a workflow definition
type CreateWorkflowInput struct {
	TenantID    uuid.UUID
	Name        string
	Description string
	IsTemplate  bool
	Steps       []StepInput
}

// StepInput describes one pipeline step
type StepInput struct {
	Feature   aiusage.Feature `json:"feature"`
	Model     string          `json:"model"`
	MaxTokens int64           `json:"max_tokens"`
}

// StepDTO is the outward representation of a step
type StepDTO struct {
	Order     int    `json:"order"`
	Feature   string `json:"feature"`
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
}

// WorkflowDTO is the outward representation of a workflow definition
type WorkflowDTO struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	IsTemplate          bool            `json:"is_template"`
	Steps               []StepDTO       `json:"steps"`
	EstimatedCostPerRun decimal.Decimal `json:"estimated_cost_per_run"`
}

// WorkflowService manages workflow definitions and their cost estimates
type WorkflowService struct {
	workflowRepo workflow.Repository
	prices       *aiusage.PriceTable
	logger       *zap.Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(workflowRepo workflow.Repository, prices *aiusage.PriceTable, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{
		workflowRepo: workflowRepo,
		prices:       prices,
		logger:       logger,
	}
}

// CreateWorkflow creates a workflow definition with its initial steps
func (s *WorkflowService) CreateWorkflow(ctx context.Context, input CreateWorkflowInput) (*WorkflowDTO, error) {
	definition, err := workflow.NewDefinition(input.TenantID, input.Name, input.Description, input.IsTemplate)
	if err != nil {
		return nil, err
	}
	for _, step := range input.Steps {
		if err := definition.AddStep(step.Feature, step.Model, step.MaxTokens, s.prices); err != nil {
			return nil, err
		}
	}

	if err := s.workflowRepo.Save(ctx, definition); err != nil {
		s.logger.Error("Failed to save workflow",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save workflow")
	}

	s.logger.Info("Workflow created",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("workflow_id", definition.ID.String()),
		zap.Int("steps", len(definition.Steps)),
		zap.String("estimated_cost_per_run", definition.EstimatedCostPerRun.String()))

	dto := toWorkflowDTO(definition)
	return &dto, nil
}

// GetWorkflow retrieves one workflow definition
func (s *WorkflowService) GetWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID) (*WorkflowDTO, error) {
	definition, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	dto := toWorkflowDTO(definition)
	return &dto, nil
}

// ListWorkflows lists a tenant's workflow definitions
func (s *WorkflowService) ListWorkflows(ctx context.Context, tenantID uuid.UUID, templatesOnly bool) ([]WorkflowDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	definitions, err := s.workflowRepo.FindByTenant(ctx, tenantID, templatesOnly)
	if err != nil {
		s.logger.Error("Failed to list workflows", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list workflows")
	}

	dtos := make([]WorkflowDTO, 0, len(definitions))
	for _, definition := range definitions {
		dtos = append(dtos, toWorkflowDTO(definition))
	}
	return dtos, nil
}

// AddStep appends a step and persists the recomputed cost estimate
func (s *WorkflowService) AddStep(ctx context.Context, tenantID, workflowID uuid.UUID, step StepInput) (*WorkflowDTO, error) {
	definition, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if err := definition.AddStep(step.Feature, step.Model, step.MaxTokens, s.prices); err != nil {
		return nil, err
	}
	if err := s.workflowRepo.Save(ctx, definition); err != nil {
		s.logger.Error("Failed to save workflow step", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save workflow")
	}
	dto := toWorkflowDTO(definition)
	return &dto, nil
}

// RemoveStep deletes a step, renumbers the rest and persists the recomputed
// cost estimate
func (s *WorkflowService) RemoveStep(ctx context.Context, tenantID, workflowID uuid.UUID, order int) (*WorkflowDTO, error) {
	definition, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if err := definition.RemoveStep(order, s.prices); err != nil {
		return nil, err
	}
	if err := s.workflowRepo.Save(ctx, definition); err != nil {
		s.logger.Error("Failed to remove workflow step", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save workflow")
	}
	dto := toWorkflowDTO(definition)
	return &dto, nil
}

// DuplicateWorkflow copies a definition (typically a template) into an
// independent non-template workflow
func (s *WorkflowService) DuplicateWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID, name string) (*WorkflowDTO, error) {
	template, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	copied, err := template.Duplicate(name)
	if err != nil {
		return nil, err
	}
	if err := s.workflowRepo.Save(ctx, copied); err != nil {
		s.logger.Error("Failed to save duplicated workflow", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save workflow")
	}

	s.logger.Info("Workflow duplicated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("source_id", workflowID.String()),
		zap.String("workflow_id", copied.ID.String()))

	dto := toWorkflowDTO(copied)
	return &dto, nil
}

// UpdateWorkflow renames a workflow definition
func (s *WorkflowService) UpdateWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID, name, description string) (*WorkflowDTO, error) {
	definition, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if err := definition.Rename(name, description); err != nil {
		return nil, err
	}
	if err := s.workflowRepo.Save(ctx, definition); err != nil {
		s.logger.Error("Failed to update workflow", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save workflow")
	}
	dto := toWorkflowDTO(definition)
	return &dto, nil
}

// DeleteWorkflow removes a workflow definition
func (s *WorkflowService) DeleteWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID) error {
	if _, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID); err != nil {
		return err
	}
	return s.workflowRepo.Delete(ctx, tenantID, workflowID)
}

func toWorkflowDTO(definition *workflow.Definition) WorkflowDTO {
	steps := make([]StepDTO, 0, len(definition.Steps))
	for _, step := range definition.Steps {
		steps = append(steps, StepDTO{
			Order:     step.Order,
			Feature:   string(step.Feature),
			Model:     step.Model,
			MaxTokens: step.MaxTokens,
		})
	}
	return WorkflowDTO{
		ID:                  definition.ID,
		Name:                definition.Name,
		Description:         definition.Description,
		IsTemplate:          definition.IsTemplate,
		Steps:               steps,
		EstimatedCostPerRun: definition.EstimatedCostPerRun,
	}
}
