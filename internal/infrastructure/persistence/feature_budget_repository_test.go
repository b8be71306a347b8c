package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFeatureBudgetTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.FeatureBudgetModel{})
	require.NoError(t, err)

	return db
}

func TestFeatureBudgetRepository_Save(t *testing.T) {
	db := setupFeatureBudgetTestDB(t)
	repo := NewFeatureBudgetRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	budget, err := aiusage.NewFeatureBudget(tenantID, aiusage.FeatureOCR, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, budget))

	t.Run("finds the budget by tenant and feature", func(t *testing.T) {
		found, err := repo.FindByTenantAndFeature(ctx, tenantID, aiusage.FeatureOCR)
		require.NoError(t, err)
		assert.Equal(t, budget.ID, found.ID)
		assert.True(t, found.MonthlyBudget.Equal(decimal.RequireFromString("50.00")))
	})

	t.Run("returns ErrNotFound for an unconfigured feature", func(t *testing.T) {
		_, err := repo.FindByTenantAndFeature(ctx, tenantID, aiusage.FeatureChat)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("other tenants see no budget", func(t *testing.T) {
		_, err := repo.FindByTenantAndFeature(ctx, uuid.New(), aiusage.FeatureOCR)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestFeatureBudgetRepository_Update(t *testing.T) {
	db := setupFeatureBudgetTestDB(t)
	repo := NewFeatureBudgetRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	budget, err := aiusage.NewFeatureBudget(tenantID, aiusage.FeatureAnalysis, decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, budget))

	require.NoError(t, budget.UpdateBudget(decimal.Zero))
	require.NoError(t, repo.Update(ctx, budget))

	found, err := repo.FindByTenantAndFeature(ctx, tenantID, aiusage.FeatureAnalysis)
	require.NoError(t, err)
	assert.True(t, found.IsUnlimited(), "zero budget means unlimited")
}

func TestFeatureBudgetRepository_FindByTenant(t *testing.T) {
	db := setupFeatureBudgetTestDB(t)
	repo := NewFeatureBudgetRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	for _, feature := range []aiusage.Feature{aiusage.FeatureChat, aiusage.FeatureOCR} {
		budget, err := aiusage.NewFeatureBudget(tenantID, feature, decimal.RequireFromString("10.00"))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, budget))
	}

	budgets, err := repo.FindByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, aiusage.FeatureChat, budgets[0].Feature, "ordered by feature")
	assert.Equal(t, aiusage.FeatureOCR, budgets[1].Feature)
}
