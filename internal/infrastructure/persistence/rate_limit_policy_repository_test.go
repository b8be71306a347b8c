package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRateLimitPolicyTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.RateLimitPolicyModel{})
	require.NoError(t, err)

	return db
}

func TestRateLimitPolicyRepository_FindForCaller(t *testing.T) {
	db := setupRateLimitPolicyTestDB(t)
	repo := NewRateLimitPolicyRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	callerID := uuid.New()

	wide, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 10, 100)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, wide))

	scoped, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 3, 30)
	require.NoError(t, err)
	require.NoError(t, scoped.ScopeToFeature(aiusage.FeatureOCR))
	require.NoError(t, repo.Save(ctx, scoped))

	t.Run("feature-scoped policy wins over the caller-wide one", func(t *testing.T) {
		found, err := repo.FindForCaller(ctx, tenantID, callerID, aiusage.FeatureOCR)
		require.NoError(t, err)
		assert.Equal(t, scoped.ID, found.ID)
		assert.Equal(t, 3, found.MaxPerHour)
		require.NotNil(t, found.Feature)
		assert.Equal(t, aiusage.FeatureOCR, *found.Feature)
	})

	t.Run("falls back to the caller-wide policy for other features", func(t *testing.T) {
		found, err := repo.FindForCaller(ctx, tenantID, callerID, aiusage.FeatureChat)
		require.NoError(t, err)
		assert.Equal(t, wide.ID, found.ID)
		assert.Nil(t, found.Feature)
	})

	t.Run("returns ErrNotFound when no policy exists", func(t *testing.T) {
		_, err := repo.FindForCaller(ctx, tenantID, uuid.New(), aiusage.FeatureChat)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRateLimitPolicyRepository_Update(t *testing.T) {
	db := setupRateLimitPolicyTestDB(t)
	repo := NewRateLimitPolicyRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	policy, err := aiusage.NewRateLimitPolicy(tenantID, uuid.New(), 10, 100)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, policy))

	require.NoError(t, policy.UpdateCaps(20, 200))
	require.NoError(t, repo.Update(ctx, policy))

	found, err := repo.FindByID(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, found.MaxPerHour)
	assert.Equal(t, 200, found.MaxPerDay)
	assert.Equal(t, policy.Version, found.Version)
}

func TestRateLimitPolicyRepository_Delete(t *testing.T) {
	db := setupRateLimitPolicyTestDB(t)
	repo := NewRateLimitPolicyRepository(db)
	ctx := context.Background()

	policy, err := aiusage.NewRateLimitPolicy(uuid.New(), uuid.New(), 10, 100)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, policy))

	require.NoError(t, repo.Delete(ctx, policy.ID))

	_, err = repo.FindByID(ctx, policy.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, policy.ID), shared.ErrNotFound)
}
