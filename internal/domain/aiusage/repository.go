package aiusage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageEventRepository defines persistence for the append-only usage ledger.
// There is deliberately no update or delete operation: events are immutable.
type UsageEventRepository interface {
	// Save appends a new usage event to the ledger
	Save(ctx context.Context, event *UsageEvent) error

	// FindByID retrieves a usage event by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*UsageEvent, error)

	// FindByTenant retrieves usage events for a tenant matching the filter
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter UsageEventFilter) ([]*UsageEvent, error)

	// CountByCaller counts invocation attempts for a caller within [start, end),
	// optionally scoped to a feature
	CountByCaller(ctx context.Context, tenantID, callerID uuid.UUID, feature *Feature, start, end time.Time) (int64, error)

	// CountByFeature counts invocation attempts for a feature within [start, end)
	CountByFeature(ctx context.Context, tenantID uuid.UUID, feature Feature, start, end time.Time) (int64, error)

	// CountFailuresByFeature counts failed attempts for a feature within [start, end).
	// A nil feature counts failures across all features.
	CountFailuresByFeature(ctx context.Context, tenantID uuid.UUID, feature *Feature, start, end time.Time) (int64, error)

	// SumCostByFeature sums event cost for a feature within [start, end).
	// When successOnly is true, failed attempts are excluded (budget semantics).
	SumCostByFeature(ctx context.Context, tenantID uuid.UUID, feature Feature, successOnly bool, start, end time.Time) (decimal.Decimal, error)

	// SumCost sums event cost across all features within [start, end)
	SumCost(ctx context.Context, tenantID uuid.UUID, successOnly bool, start, end time.Time) (decimal.Decimal, error)

	// AggregateByModel returns per-feature, per-model aggregates within [start, end)
	AggregateByModel(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]ModelAggregate, error)
}

// ModelAggregate is aggregated ledger data for one (feature, model) pair
type ModelAggregate struct {
	Feature     Feature
	Model       string
	Invocations int64
	TotalTokens int64
	TotalCost   decimal.Decimal
}

// AverageTokensPerRun returns the mean token consumption of one invocation
func (a ModelAggregate) AverageTokensPerRun() int64 {
	if a.Invocations == 0 {
		return 0
	}
	return a.TotalTokens / a.Invocations
}

// CostPerRun returns the mean cost of one invocation
func (a ModelAggregate) CostPerRun() decimal.Decimal {
	if a.Invocations == 0 {
		return decimal.Zero
	}
	return a.TotalCost.Div(decimal.NewFromInt(a.Invocations))
}

// UsageEventFilter defines filtering options for ledger queries
type UsageEventFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Feature   *Feature
	CallerID  *uuid.UUID
	Success   *bool
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// DefaultUsageEventFilter returns a filter with default pagination
func DefaultUsageEventFilter() UsageEventFilter {
	return UsageEventFilter{
		Page:     1,
		PageSize: 100,
		OrderBy:  "occurred_at",
		OrderDir: "desc",
	}
}

// WithTimeRange sets the time range for the filter
func (f UsageEventFilter) WithTimeRange(start, end time.Time) UsageEventFilter {
	f.StartTime = &start
	f.EndTime = &end
	return f
}

// WithFeature scopes the filter to a feature
func (f UsageEventFilter) WithFeature(feature Feature) UsageEventFilter {
	f.Feature = &feature
	return f
}

// WithCaller scopes the filter to a caller
func (f UsageEventFilter) WithCaller(callerID uuid.UUID) UsageEventFilter {
	f.CallerID = &callerID
	return f
}

// RateLimitPolicyRepository defines persistence for per-caller rate limit policies
type RateLimitPolicyRepository interface {
	// Save persists a new policy
	Save(ctx context.Context, policy *RateLimitPolicy) error

	// Update updates an existing policy
	Update(ctx context.Context, policy *RateLimitPolicy) error

	// FindByID retrieves a policy by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*RateLimitPolicy, error)

	// FindForCaller retrieves the effective policy for a caller and feature:
	// a feature-scoped policy wins over a caller-wide one. Returns
	// shared.ErrNotFound when no policy exists.
	FindForCaller(ctx context.Context, tenantID, callerID uuid.UUID, feature Feature) (*RateLimitPolicy, error)

	// FindByTenant lists all policies for a tenant
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*RateLimitPolicy, error)

	// Delete removes a policy
	Delete(ctx context.Context, id uuid.UUID) error
}

// FeatureBudgetRepository defines persistence for per-feature monthly budgets
type FeatureBudgetRepository interface {
	// Save persists a new budget
	Save(ctx context.Context, budget *FeatureBudget) error

	// Update updates an existing budget
	Update(ctx context.Context, budget *FeatureBudget) error

	// FindByID retrieves a budget by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*FeatureBudget, error)

	// FindByTenantAndFeature retrieves the budget for a feature.
	// Returns shared.ErrNotFound when none is configured.
	FindByTenantAndFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) (*FeatureBudget, error)

	// FindByTenant lists all budgets for a tenant
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*FeatureBudget, error)

	// Delete removes a budget
	Delete(ctx context.Context, id uuid.UUID) error
}

// FeatureSwitchRepository reads and clears per-tenant feature switches. The
// automation engine's disable_feature action sets a switch; the invoke gate
// consults it and the policy API lists and clears it.
type FeatureSwitchRepository interface {
	// IsDisabled reports whether the feature is switched off for the tenant
	IsDisabled(ctx context.Context, tenantID uuid.UUID, feature Feature) (bool, error)

	// DisabledFeatures lists the switched-off features for a tenant
	DisabledFeatures(ctx context.Context, tenantID uuid.UUID) ([]Feature, error)

	// EnableFeature removes the switch, re-enabling the feature
	EnableFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) error
}
