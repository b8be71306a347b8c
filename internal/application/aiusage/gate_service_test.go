package aiusage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGateService(usageRepo *mockUsageEventRepository, policyRepo *mockRateLimitPolicyRepository, budgetRepo *mockFeatureBudgetRepository) *GateService {
	return NewGateService(usageRepo, policyRepo, budgetRepo, zap.NewNop())
}

func TestGateService_CheckRateLimit(t *testing.T) {
	tenantID := uuid.New()
	callerID := uuid.New()
	ctx := context.Background()

	t.Run("allows under both caps", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		policyRepo := new(mockRateLimitPolicyRepository)

		policy, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 2, 10)
		require.NoError(t, err)

		policyRepo.On("FindForCaller", mock.Anything, tenantID, callerID, aiusage.FeatureChat).Return(policy, nil)
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(1), nil).Once()
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(1), nil).Once()

		service := newGateService(usageRepo, policyRepo, new(mockFeatureBudgetRepository))
		result, err := service.CheckRateLimit(ctx, tenantID, callerID, aiusage.FeatureChat)

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(1), result.HourlyUsed)
		assert.Equal(t, int64(2), result.HourlyCap)
	})

	t.Run("cap is an inclusive ceiling on requests already made", func(t *testing.T) {
		// Two calls already recorded against a cap of 2: the third attempt
		// is denied.
		usageRepo := new(mockUsageEventRepository)
		policyRepo := new(mockRateLimitPolicyRepository)

		policy, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 2, 100)
		require.NoError(t, err)

		policyRepo.On("FindForCaller", mock.Anything, tenantID, callerID, aiusage.FeatureChat).Return(policy, nil)
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(2), nil)

		service := newGateService(usageRepo, policyRepo, new(mockFeatureBudgetRepository))
		result, err := service.CheckRateLimit(ctx, tenantID, callerID, aiusage.FeatureChat)

		require.NoError(t, err)
		assert.False(t, result.Allowed)
		require.NotNil(t, result.Error)
		assert.Equal(t, "hourly", result.Error.Scope)
		assert.Equal(t, 429, result.Error.HTTPStatusCode())
	})

	t.Run("zero cap blocks the caller entirely", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		policyRepo := new(mockRateLimitPolicyRepository)

		policy, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 0, 0)
		require.NoError(t, err)

		policyRepo.On("FindForCaller", mock.Anything, tenantID, callerID, aiusage.FeatureOCR).Return(policy, nil)
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(0), nil)

		service := newGateService(usageRepo, policyRepo, new(mockFeatureBudgetRepository))
		result, err := service.CheckRateLimit(ctx, tenantID, callerID, aiusage.FeatureOCR)

		require.NoError(t, err)
		assert.False(t, result.Allowed)
	})

	t.Run("missing policy falls back to defaults", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		policyRepo := new(mockRateLimitPolicyRepository)

		policyRepo.On("FindForCaller", mock.Anything, tenantID, callerID, aiusage.FeatureChat).
			Return(nil, shared.ErrNotFound)
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(10), nil)

		service := newGateService(usageRepo, policyRepo, new(mockFeatureBudgetRepository))
		result, err := service.CheckRateLimit(ctx, tenantID, callerID, aiusage.FeatureChat)

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(aiusage.DefaultMaxPerHour), result.HourlyCap)
		assert.Equal(t, int64(aiusage.DefaultMaxPerDay), result.DailyCap)
	})

	t.Run("daily cap denies independently of hourly", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		policyRepo := new(mockRateLimitPolicyRepository)

		policy, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 100, 50)
		require.NoError(t, err)

		policyRepo.On("FindForCaller", mock.Anything, tenantID, callerID, aiusage.FeatureChat).Return(policy, nil)
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(10), nil).Once()
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(50), nil).Once()

		service := newGateService(usageRepo, policyRepo, new(mockFeatureBudgetRepository))
		result, err := service.CheckRateLimit(ctx, tenantID, callerID, aiusage.FeatureChat)

		require.NoError(t, err)
		assert.False(t, result.Allowed)
		require.NotNil(t, result.Error)
		assert.Equal(t, "daily", result.Error.Scope)
	})

	t.Run("fails closed when the ledger read fails", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		policyRepo := new(mockRateLimitPolicyRepository)

		policyRepo.On("FindForCaller", mock.Anything, tenantID, callerID, aiusage.FeatureChat).
			Return(nil, shared.ErrNotFound)
		usageRepo.On("CountByCaller", mock.Anything, tenantID, callerID, (*aiusage.Feature)(nil), mock.Anything, mock.Anything).
			Return(int64(0), errors.New("connection refused"))

		service := newGateService(usageRepo, policyRepo, new(mockFeatureBudgetRepository))
		_, err := service.CheckRateLimit(ctx, tenantID, callerID, aiusage.FeatureChat)

		var unavailable *LedgerUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, 503, unavailable.HTTPStatusCode())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		service := newGateService(new(mockUsageEventRepository), new(mockRateLimitPolicyRepository), new(mockFeatureBudgetRepository))

		_, err := service.CheckRateLimit(ctx, uuid.Nil, callerID, aiusage.FeatureChat)
		assert.Error(t, err)

		_, err = service.CheckRateLimit(ctx, tenantID, uuid.Nil, aiusage.FeatureChat)
		assert.Error(t, err)

		_, err = service.CheckRateLimit(ctx, tenantID, callerID, aiusage.Feature("bogus"))
		assert.Error(t, err)
	})
}

func TestGateService_CheckBudget(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("denies once spend reaches the budget", func(t *testing.T) {
		// Nine successful analysis runs at 1.20 put spend at 10.80 against a
		// 10.00 budget: the next call is denied.
		usageRepo := new(mockUsageEventRepository)
		budgetRepo := new(mockFeatureBudgetRepository)

		budget, err := aiusage.NewFeatureBudget(tenantID, aiusage.FeatureAnalysis, decimal.RequireFromString("10.00"))
		require.NoError(t, err)

		budgetRepo.On("FindByTenantAndFeature", mock.Anything, tenantID, aiusage.FeatureAnalysis).Return(budget, nil)
		usageRepo.On("SumCostByFeature", mock.Anything, tenantID, aiusage.FeatureAnalysis, true, mock.Anything, mock.Anything).
			Return(decimal.RequireFromString("10.80"), nil)

		service := newGateService(usageRepo, new(mockRateLimitPolicyRepository), budgetRepo)
		result, err := service.CheckBudget(ctx, tenantID, aiusage.FeatureAnalysis)

		require.NoError(t, err)
		assert.False(t, result.Allowed)
		require.NotNil(t, result.Error)
		assert.Equal(t, 422, result.Error.HTTPStatusCode())
	})

	t.Run("budget sums only successful events", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		budgetRepo := new(mockFeatureBudgetRepository)

		budget, err := aiusage.NewFeatureBudget(tenantID, aiusage.FeatureChat, decimal.RequireFromString("5.00"))
		require.NoError(t, err)

		budgetRepo.On("FindByTenantAndFeature", mock.Anything, tenantID, aiusage.FeatureChat).Return(budget, nil)
		usageRepo.On("SumCostByFeature", mock.Anything, tenantID, aiusage.FeatureChat, true, mock.Anything, mock.Anything).
			Return(decimal.RequireFromString("4.99"), nil)

		service := newGateService(usageRepo, new(mockRateLimitPolicyRepository), budgetRepo)
		result, err := service.CheckBudget(ctx, tenantID, aiusage.FeatureChat)

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		usageRepo.AssertCalled(t, "SumCostByFeature", mock.Anything, tenantID, aiusage.FeatureChat, true, mock.Anything, mock.Anything)
	})

	t.Run("missing budget allows without reading the ledger", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		budgetRepo := new(mockFeatureBudgetRepository)

		budgetRepo.On("FindByTenantAndFeature", mock.Anything, tenantID, aiusage.FeatureOCR).
			Return(nil, shared.ErrNotFound)

		service := newGateService(usageRepo, new(mockRateLimitPolicyRepository), budgetRepo)
		result, err := service.CheckBudget(ctx, tenantID, aiusage.FeatureOCR)

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		usageRepo.AssertNotCalled(t, "SumCostByFeature", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fails closed when the ledger read fails", func(t *testing.T) {
		usageRepo := new(mockUsageEventRepository)
		budgetRepo := new(mockFeatureBudgetRepository)

		budget, err := aiusage.NewFeatureBudget(tenantID, aiusage.FeatureChat, decimal.RequireFromString("5.00"))
		require.NoError(t, err)

		budgetRepo.On("FindByTenantAndFeature", mock.Anything, tenantID, aiusage.FeatureChat).Return(budget, nil)
		usageRepo.On("SumCostByFeature", mock.Anything, tenantID, aiusage.FeatureChat, true, mock.Anything, mock.Anything).
			Return(decimal.Zero, errors.New("timeout"))

		service := newGateService(usageRepo, new(mockRateLimitPolicyRepository), budgetRepo)
		_, err = service.CheckBudget(ctx, tenantID, aiusage.FeatureChat)

		var unavailable *LedgerUnavailableError
		require.ErrorAs(t, err, &unavailable)
	})
}
