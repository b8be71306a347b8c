package aiusage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockUsageEventRepository struct {
	mock.Mock
}

func (m *mockUsageEventRepository) Save(ctx context.Context, event *aiusage.UsageEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockUsageEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*aiusage.UsageEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiusage.UsageEvent), args.Error(1)
}

func (m *mockUsageEventRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter aiusage.UsageEventFilter) ([]*aiusage.UsageEvent, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*aiusage.UsageEvent), args.Error(1)
}

func (m *mockUsageEventRepository) CountByCaller(ctx context.Context, tenantID, callerID uuid.UUID, feature *aiusage.Feature, start, end time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, callerID, feature, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageEventRepository) CountByFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature, start, end time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, feature, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageEventRepository) CountFailuresByFeature(ctx context.Context, tenantID uuid.UUID, feature *aiusage.Feature, start, end time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, feature, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageEventRepository) SumCostByFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature, successOnly bool, start, end time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, feature, successOnly, start, end)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockUsageEventRepository) SumCost(ctx context.Context, tenantID uuid.UUID, successOnly bool, start, end time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, successOnly, start, end)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockUsageEventRepository) AggregateByModel(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]aiusage.ModelAggregate, error) {
	args := m.Called(ctx, tenantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]aiusage.ModelAggregate), args.Error(1)
}

type mockRateLimitPolicyRepository struct {
	mock.Mock
}

func (m *mockRateLimitPolicyRepository) Save(ctx context.Context, policy *aiusage.RateLimitPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *mockRateLimitPolicyRepository) Update(ctx context.Context, policy *aiusage.RateLimitPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *mockRateLimitPolicyRepository) FindByID(ctx context.Context, id uuid.UUID) (*aiusage.RateLimitPolicy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiusage.RateLimitPolicy), args.Error(1)
}

func (m *mockRateLimitPolicyRepository) FindForCaller(ctx context.Context, tenantID, callerID uuid.UUID, feature aiusage.Feature) (*aiusage.RateLimitPolicy, error) {
	args := m.Called(ctx, tenantID, callerID, feature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiusage.RateLimitPolicy), args.Error(1)
}

func (m *mockRateLimitPolicyRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*aiusage.RateLimitPolicy, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*aiusage.RateLimitPolicy), args.Error(1)
}

func (m *mockRateLimitPolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockFeatureBudgetRepository struct {
	mock.Mock
}

func (m *mockFeatureBudgetRepository) Save(ctx context.Context, budget *aiusage.FeatureBudget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *mockFeatureBudgetRepository) Update(ctx context.Context, budget *aiusage.FeatureBudget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *mockFeatureBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*aiusage.FeatureBudget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiusage.FeatureBudget), args.Error(1)
}

func (m *mockFeatureBudgetRepository) FindByTenantAndFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) (*aiusage.FeatureBudget, error) {
	args := m.Called(ctx, tenantID, feature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiusage.FeatureBudget), args.Error(1)
}

func (m *mockFeatureBudgetRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*aiusage.FeatureBudget, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*aiusage.FeatureBudget), args.Error(1)
}

func (m *mockFeatureBudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockFeatureSwitchRepository struct {
	mock.Mock
}

func (m *mockFeatureSwitchRepository) IsDisabled(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) (bool, error) {
	args := m.Called(ctx, tenantID, feature)
	return args.Bool(0), args.Error(1)
}

func (m *mockFeatureSwitchRepository) DisabledFeatures(ctx context.Context, tenantID uuid.UUID) ([]aiusage.Feature, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]aiusage.Feature), args.Error(1)
}

func (m *mockFeatureSwitchRepository) EnableFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) error {
	args := m.Called(ctx, tenantID, feature)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Invoke(ctx context.Context, model, prompt string, maxTokens int64) (*aiusage.InvokeResult, error) {
	args := m.Called(ctx, model, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiusage.InvokeResult), args.Error(1)
}

type mockWorkflowRepository struct {
	mock.Mock
}

func (m *mockWorkflowRepository) Save(ctx context.Context, definition *workflow.Definition) error {
	args := m.Called(ctx, definition)
	return args.Error(0)
}

func (m *mockWorkflowRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Definition, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Definition), args.Error(1)
}

func (m *mockWorkflowRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, templatesOnly bool) ([]*workflow.Definition, error) {
	args := m.Called(ctx, tenantID, templatesOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*workflow.Definition), args.Error(1)
}

func (m *mockWorkflowRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type mockObjectStorage struct {
	mock.Mock
}

func (m *mockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *mockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
