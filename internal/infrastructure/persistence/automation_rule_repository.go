package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AutomationRuleRepository implements the automation.Repository interface
type AutomationRuleRepository struct {
	db *gorm.DB
}

// NewAutomationRuleRepository creates a new automation rule repository
func NewAutomationRuleRepository(db *gorm.DB) *AutomationRuleRepository {
	return &AutomationRuleRepository{db: db}
}

// Save persists an automation rule
func (r *AutomationRuleRepository) Save(ctx context.Context, rule *automation.AutomationRule) error {
	model, err := models.AutomationRuleModelFromDomain(rule)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a rule by its identifier
func (r *AutomationRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*automation.AutomationRule, error) {
	var model models.AutomationRuleModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByTenant retrieves all rules for a tenant
func (r *AutomationRuleRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*automation.AutomationRule, error) {
	var ruleModels []models.AutomationRuleModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&ruleModels).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainRules(ruleModels)
}

// FindActive retrieves every active rule across tenants for the evaluation pass
func (r *AutomationRuleRepository) FindActive(ctx context.Context) ([]*automation.AutomationRule, error) {
	var ruleModels []models.AutomationRuleModel
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("tenant_id ASC, created_at ASC").
		Find(&ruleModels).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainRules(ruleModels)
}

// ClaimFiring atomically advances the rule's firing state with a
// compare-and-set on last_execution. Only one evaluator wins a given firing;
// the losers see zero rows affected.
func (r *AutomationRuleRepository) ClaimFiring(ctx context.Context, ruleID uuid.UUID, prev *time.Time, firedAt time.Time) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AutomationRuleModel{}).
		Where("id = ?", ruleID)
	if prev == nil {
		query = query.Where("last_execution IS NULL")
	} else {
		query = query.Where("last_execution = ?", *prev)
	}

	result := query.Updates(map[string]interface{}{
		"last_execution":  firedAt,
		"execution_count": gorm.Expr("execution_count + 1"),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a rule
func (r *AutomationRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.AutomationRuleModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *AutomationRuleRepository) toDomainRules(ruleModels []models.AutomationRuleModel) ([]*automation.AutomationRule, error) {
	rules := make([]*automation.AutomationRule, 0, len(ruleModels))
	for i := range ruleModels {
		rule, err := ruleModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Ensure AutomationRuleRepository implements the interface
var _ automation.Repository = (*AutomationRuleRepository)(nil)
