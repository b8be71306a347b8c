package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockRuleRepository struct {
	mock.Mock
}

func (m *mockRuleRepository) Save(ctx context.Context, rule *automation.AutomationRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *mockRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*automation.AutomationRule, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*automation.AutomationRule), args.Error(1)
}

func (m *mockRuleRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*automation.AutomationRule, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*automation.AutomationRule), args.Error(1)
}

func (m *mockRuleRepository) FindActive(ctx context.Context) ([]*automation.AutomationRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*automation.AutomationRule), args.Error(1)
}

func (m *mockRuleRepository) ClaimFiring(ctx context.Context, ruleID uuid.UUID, prev *time.Time, firedAt time.Time) (bool, error) {
	args := m.Called(ctx, ruleID, prev, firedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

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

type mockNotificationPublisher struct {
	mock.Mock
}

func (m *mockNotificationPublisher) SendNotification(ctx context.Context, action automation.SendNotificationAction, payload automation.FiringPayload) error {
	args := m.Called(ctx, action, payload)
	return args.Error(0)
}

type mockWebhookSender struct {
	mock.Mock
}

func (m *mockWebhookSender) SendWebhook(ctx context.Context, action automation.WebhookAction, payload automation.FiringPayload) error {
	args := m.Called(ctx, action, payload)
	return args.Error(0)
}

type mockFeatureDisabler struct {
	mock.Mock
}

func (m *mockFeatureDisabler) DisableFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) error {
	args := m.Called(ctx, tenantID, feature)
	return args.Error(0)
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, condition string, snapshot automation.MetricsSnapshot) (bool, error) {
	args := m.Called(ctx, condition, snapshot)
	return args.Bool(0), args.Error(1)
}
