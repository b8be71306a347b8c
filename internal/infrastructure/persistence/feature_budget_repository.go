package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// FeatureBudgetRepository implements the aiusage.FeatureBudgetRepository interface
type FeatureBudgetRepository struct {
	db *gorm.DB
}

// NewFeatureBudgetRepository creates a new feature budget repository
func NewFeatureBudgetRepository(db *gorm.DB) *FeatureBudgetRepository {
	return &FeatureBudgetRepository{db: db}
}

// Save persists a new budget
func (r *FeatureBudgetRepository) Save(ctx context.Context, budget *aiusage.FeatureBudget) error {
	model := models.FeatureBudgetModelFromDomain(budget)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing budget
func (r *FeatureBudgetRepository) Update(ctx context.Context, budget *aiusage.FeatureBudget) error {
	model := models.FeatureBudgetModelFromDomain(budget)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a budget by its ID
func (r *FeatureBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*aiusage.FeatureBudget, error) {
	var model models.FeatureBudgetModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenantAndFeature retrieves the budget for a feature
func (r *FeatureBudgetRepository) FindByTenantAndFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) (*aiusage.FeatureBudget, error) {
	var model models.FeatureBudgetModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("feature = ?", string(feature)).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant lists all budgets for a tenant
func (r *FeatureBudgetRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*aiusage.FeatureBudget, error) {
	var budgetModels []models.FeatureBudgetModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("feature ASC").
		Find(&budgetModels).Error
	if err != nil {
		return nil, err
	}

	budgets := make([]*aiusage.FeatureBudget, len(budgetModels))
	for i, model := range budgetModels {
		budgets[i] = model.ToDomain()
	}
	return budgets, nil
}

// Delete removes a budget
func (r *FeatureBudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FeatureBudgetModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure FeatureBudgetRepository implements the interface
var _ aiusage.FeatureBudgetRepository = (*FeatureBudgetRepository)(nil)
