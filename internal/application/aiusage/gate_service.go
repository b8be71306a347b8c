package aiusage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateLimitCheckResult contains the result of a rate limit check
type RateLimitCheckResult struct {
	Allowed    bool                    `json:"allowed"`
	Feature    aiusage.Feature         `json:"feature"`
	HourlyUsed int64                   `json:"hourly_used"`
	HourlyCap  int64                   `json:"hourly_cap"`
	DailyUsed  int64                   `json:"daily_used"`
	DailyCap   int64                   `json:"daily_cap"`
	Error      *RateLimitExceededError `json:"error,omitempty"`
}

// BudgetCheckResult contains the result of a budget check
type BudgetCheckResult struct {
	Allowed bool                 `json:"allowed"`
	Feature aiusage.Feature      `json:"feature"`
	Spent   decimal.Decimal      `json:"spent"`
	Budget  decimal.Decimal      `json:"budget"`
	Error   *BudgetExceededError `json:"error,omitempty"`
}

// GateService runs the synchronous preconditions every governed AI call must
// pass: the per-caller rate limit and the per-feature monthly budget. Both
// checks fail closed — if the ledger cannot be read, the call is denied.
type GateService struct {
	usageRepo  aiusage.UsageEventRepository
	policyRepo aiusage.RateLimitPolicyRepository
	budgetRepo aiusage.FeatureBudgetRepository
	logger     *zap.Logger

	// deployment-level fallback caps; zero keeps the built-in defaults
	defaultHourlyCap int
	defaultDailyCap  int
}

// NewGateService creates a new GateService
func NewGateService(
	usageRepo aiusage.UsageEventRepository,
	policyRepo aiusage.RateLimitPolicyRepository,
	budgetRepo aiusage.FeatureBudgetRepository,
	logger *zap.Logger,
) *GateService {
	return &GateService{
		usageRepo:  usageRepo,
		policyRepo: policyRepo,
		budgetRepo: budgetRepo,
		logger:     logger,
	}
}

// SetDefaultCaps overrides the built-in fallback caps applied when a caller
// has no explicit policy. Non-positive values keep the built-ins.
func (s *GateService) SetDefaultCaps(maxPerHour, maxPerDay int) {
	s.defaultHourlyCap = maxPerHour
	s.defaultDailyCap = maxPerDay
}

// CheckRateLimit evaluates the caller's trailing 1-hour and 24-hour request
// counts against the effective policy. The cap is an inclusive ceiling on
// requests already made: used == cap denies the next request. Denial has no
// side effects.
func (s *GateService) CheckRateLimit(ctx context.Context, tenantID, callerID uuid.UUID, feature aiusage.Feature) (*RateLimitCheckResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ai_gate", "check_rate_limit",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCallerID, callerID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrFeature, string(feature)))
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if callerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CALLER", "Caller ID cannot be empty")
	}
	if !feature.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}

	maxPerHour, maxPerDay := aiusage.DefaultRateLimitPolicy()
	if s.defaultHourlyCap > 0 {
		maxPerHour = s.defaultHourlyCap
	}
	if s.defaultDailyCap > 0 {
		maxPerDay = s.defaultDailyCap
	}
	var scope *aiusage.Feature

	policy, err := s.policyRepo.FindForCaller(ctx, tenantID, callerID, feature)
	switch {
	case err == nil:
		maxPerHour = policy.MaxPerHour
		maxPerDay = policy.MaxPerDay
		scope = policy.Feature
	case err != shared.ErrNotFound:
		s.logger.Error("Failed to load rate limit policy, denying request",
			zap.String("tenant_id", tenantID.String()),
			zap.String("caller_id", callerID.String()),
			zap.Error(err))
		return nil, NewLedgerUnavailableError("rate limit check")
	}

	// Counting scope follows the policy: a feature-scoped policy counts only
	// that feature's events, a caller-wide one counts everything the caller
	// did.
	now := time.Now().UTC()
	hourStart, _ := aiusage.TrailingWindow(now, time.Hour)
	dayStart, _ := aiusage.TrailingWindow(now, 24*time.Hour)

	hourlyUsed, err := s.usageRepo.CountByCaller(ctx, tenantID, callerID, scope, hourStart, now)
	if err != nil {
		s.logger.Error("Failed to count hourly usage, denying request",
			zap.String("caller_id", callerID.String()),
			zap.Error(err))
		return nil, NewLedgerUnavailableError("rate limit check")
	}

	dailyUsed, err := s.usageRepo.CountByCaller(ctx, tenantID, callerID, scope, dayStart, now)
	if err != nil {
		s.logger.Error("Failed to count daily usage, denying request",
			zap.String("caller_id", callerID.String()),
			zap.Error(err))
		return nil, NewLedgerUnavailableError("rate limit check")
	}

	result := &RateLimitCheckResult{
		Allowed:    true,
		Feature:    feature,
		HourlyUsed: hourlyUsed,
		HourlyCap:  int64(maxPerHour),
		DailyUsed:  dailyUsed,
		DailyCap:   int64(maxPerDay),
	}

	if hourlyUsed >= int64(maxPerHour) {
		result.Allowed = false
		result.Error = NewRateLimitExceededError(feature, "hourly", hourlyUsed, int64(maxPerHour))
	} else if dailyUsed >= int64(maxPerDay) {
		result.Allowed = false
		result.Error = NewRateLimitExceededError(feature, "daily", dailyUsed, int64(maxPerDay))
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrAllowed, result.Allowed)
	if !result.Allowed {
		s.logger.Info("Rate limit exceeded",
			zap.String("tenant_id", tenantID.String()),
			zap.String("caller_id", callerID.String()),
			zap.String("feature", string(feature)),
			zap.Int64("hourly_used", hourlyUsed),
			zap.Int64("daily_used", dailyUsed))
	}

	return result, nil
}

// CheckBudget evaluates the feature's successful spend in the current
// calendar month against its configured budget. An absent or zero budget
// always allows; otherwise spent >= budget denies. The window recomputes
// from the ledger, so the budget resets implicitly at each month boundary.
func (s *GateService) CheckBudget(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) (*BudgetCheckResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ai_gate", "check_budget",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrFeature, string(feature)))
	defer span.End()

	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !feature.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}

	budget, err := s.budgetRepo.FindByTenantAndFeature(ctx, tenantID, feature)
	if err != nil {
		if err == shared.ErrNotFound {
			return &BudgetCheckResult{
				Allowed: true,
				Feature: feature,
				Spent:   decimal.Zero,
				Budget:  decimal.Zero,
			}, nil
		}
		s.logger.Error("Failed to load feature budget, denying request",
			zap.String("tenant_id", tenantID.String()),
			zap.String("feature", string(feature)),
			zap.Error(err))
		return nil, NewLedgerUnavailableError("budget check")
	}

	monthStart, _ := aiusage.MonthWindow(time.Now())
	spent, err := s.usageRepo.SumCostByFeature(ctx, tenantID, feature, true, monthStart, time.Now().UTC())
	if err != nil {
		s.logger.Error("Failed to sum monthly spend, denying request",
			zap.String("tenant_id", tenantID.String()),
			zap.String("feature", string(feature)),
			zap.Error(err))
		return nil, NewLedgerUnavailableError("budget check")
	}

	result := &BudgetCheckResult{
		Allowed: budget.Allows(spent),
		Feature: feature,
		Spent:   spent,
		Budget:  budget.MonthlyBudget,
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrAllowed, result.Allowed)
	if !result.Allowed {
		result.Error = NewBudgetExceededError(feature, spent, budget.MonthlyBudget)
		s.logger.Info("Monthly budget exceeded",
			zap.String("tenant_id", tenantID.String()),
			zap.String("feature", string(feature)),
			zap.String("spent", spent.String()),
			zap.String("budget", budget.MonthlyBudget.String()))
	}

	return result, nil
}
