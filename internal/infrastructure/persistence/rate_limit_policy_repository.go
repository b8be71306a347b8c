package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// RateLimitPolicyRepository implements the aiusage.RateLimitPolicyRepository interface
type RateLimitPolicyRepository struct {
	db *gorm.DB
}

// NewRateLimitPolicyRepository creates a new rate limit policy repository
func NewRateLimitPolicyRepository(db *gorm.DB) *RateLimitPolicyRepository {
	return &RateLimitPolicyRepository{db: db}
}

// Save persists a new policy
func (r *RateLimitPolicyRepository) Save(ctx context.Context, policy *aiusage.RateLimitPolicy) error {
	model := models.RateLimitPolicyModelFromDomain(policy)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing policy
func (r *RateLimitPolicyRepository) Update(ctx context.Context, policy *aiusage.RateLimitPolicy) error {
	model := models.RateLimitPolicyModelFromDomain(policy)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a policy by its ID
func (r *RateLimitPolicyRepository) FindByID(ctx context.Context, id uuid.UUID) (*aiusage.RateLimitPolicy, error) {
	var model models.RateLimitPolicyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForCaller retrieves the effective policy for a caller and feature.
// A feature-scoped policy wins over a caller-wide one.
func (r *RateLimitPolicyRepository) FindForCaller(ctx context.Context, tenantID, callerID uuid.UUID, feature aiusage.Feature) (*aiusage.RateLimitPolicy, error) {
	// Try the feature-scoped policy first
	var model models.RateLimitPolicyModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("caller_id = ?", callerID).
		Where("feature = ?", string(feature)).
		First(&model).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// Fall back to the caller-wide policy
	err = r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("caller_id = ?", callerID).
		Where("feature IS NULL").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant lists all policies for a tenant
func (r *RateLimitPolicyRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*aiusage.RateLimitPolicy, error) {
	var policyModels []models.RateLimitPolicyModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&policyModels).Error
	if err != nil {
		return nil, err
	}

	policies := make([]*aiusage.RateLimitPolicy, len(policyModels))
	for i, model := range policyModels {
		policies[i] = model.ToDomain()
	}
	return policies, nil
}

// Delete removes a policy
func (r *RateLimitPolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.RateLimitPolicyModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure RateLimitPolicyRepository implements the interface
var _ aiusage.RateLimitPolicyRepository = (*RateLimitPolicyRepository)(nil)
