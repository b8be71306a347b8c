package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/domain/workflow"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// WorkflowRepository implements the workflow.Repository interface
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Save persists a workflow definition and its steps. Steps are replaced
// wholesale so renumbering after removal stays consistent with the aggregate.
func (r *WorkflowRepository) Save(ctx context.Context, definition *workflow.Definition) error {
	model := models.WorkflowDefinitionModelFromDomain(definition)
	steps := model.Steps
	model.Steps = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", model.ID).Delete(&models.WorkflowStepModel{}).Error; err != nil {
			return err
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

// FindByID retrieves a workflow definition by its identifier
func (r *WorkflowRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Definition, error) {
	var model models.WorkflowDefinitionModel
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant retrieves workflow definitions for a tenant, optionally
// restricted to templates
func (r *WorkflowRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, templatesOnly bool) ([]*workflow.Definition, error) {
	query := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Where("tenant_id = ?", tenantID)
	if templatesOnly {
		query = query.Where("is_template = ?", true)
	}

	var definitionModels []models.WorkflowDefinitionModel
	if err := query.Order("created_at ASC").Find(&definitionModels).Error; err != nil {
		return nil, err
	}

	definitions := make([]*workflow.Definition, len(definitionModels))
	for i := range definitionModels {
		definitions[i] = definitionModels[i].ToDomain()
	}
	return definitions, nil
}

// Delete removes a workflow definition and its steps
func (r *WorkflowRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workflow_id = ?", id).Delete(&models.WorkflowStepModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.WorkflowDefinitionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure WorkflowRepository implements the interface
var _ workflow.Repository = (*WorkflowRepository)(nil)
