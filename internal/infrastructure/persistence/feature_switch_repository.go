package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeatureSwitchRepository persists per-tenant feature switches. It doubles as
// the automation engine's FeatureDisabler sink: a disable_feature action
// upserts the switch row.
type FeatureSwitchRepository struct {
	db *gorm.DB
}

// NewFeatureSwitchRepository creates a new feature switch repository
func NewFeatureSwitchRepository(db *gorm.DB) *FeatureSwitchRepository {
	return &FeatureSwitchRepository{db: db}
}

// DisableFeature flips the switch off for the tenant. Idempotent: disabling
// an already-disabled feature refreshes the timestamp.
func (r *FeatureSwitchRepository) DisableFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) error {
	model := &models.FeatureSwitchModel{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Feature:    string(feature),
		Reason:     "automation rule",
		DisabledAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "feature"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "disabled_at"}),
		}).
		Create(model).Error
}

// EnableFeature removes the switch, re-enabling the feature
func (r *FeatureSwitchRepository) EnableFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND feature = ?", tenantID, string(feature)).
		Delete(&models.FeatureSwitchModel{}).Error
}

// IsDisabled reports whether the feature is switched off for the tenant
func (r *FeatureSwitchRepository) IsDisabled(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) (bool, error) {
	var model models.FeatureSwitchModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND feature = ?", tenantID, string(feature)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DisabledFeatures lists the switched-off features for a tenant
func (r *FeatureSwitchRepository) DisabledFeatures(ctx context.Context, tenantID uuid.UUID) ([]aiusage.Feature, error) {
	var switchModels []models.FeatureSwitchModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("feature ASC").
		Find(&switchModels).Error
	if err != nil {
		return nil, err
	}

	features := make([]aiusage.Feature, len(switchModels))
	for i, model := range switchModels {
		features[i] = aiusage.Feature(model.Feature)
	}
	return features, nil
}

// Ensure FeatureSwitchRepository implements the engine sink and the gate's
// read side
var (
	_ automation.FeatureDisabler      = (*FeatureSwitchRepository)(nil)
	_ aiusage.FeatureSwitchRepository = (*FeatureSwitchRepository)(nil)
)
