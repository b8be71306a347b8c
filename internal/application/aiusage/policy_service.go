package aiusage

import (
	"context"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SetRateLimitInput contains input for creating or replacing a caller policy
type SetRateLimitInput struct {
	TenantID   uuid.UUID
	CallerID   uuid.UUID
	Feature    *aiusage.Feature // nil applies the policy to every feature
	MaxPerHour int
	MaxPerDay  int
}

// RateLimitPolicyDTO is the outward representation of a policy
type RateLimitPolicyDTO struct {
	ID         uuid.UUID `json:"id"`
	CallerID   uuid.UUID `json:"caller_id"`
	Feature    *string   `json:"feature,omitempty"`
	MaxPerHour int       `json:"max_per_hour"`
	MaxPerDay  int       `json:"max_per_day"`
}

// SetBudgetInput contains input for creating or replacing a feature budget
type SetBudgetInput struct {
	TenantID      uuid.UUID
	Feature       aiusage.Feature
	MonthlyBudget decimal.Decimal
}

// FeatureBudgetDTO is the outward representation of a budget
type FeatureBudgetDTO struct {
	ID            uuid.UUID       `json:"id"`
	Feature       string          `json:"feature"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
	Unlimited     bool            `json:"unlimited"`
}

// PolicyService manages rate limit policies, feature budgets and the
// per-tenant feature switches set by automation rules
type PolicyService struct {
	policyRepo aiusage.RateLimitPolicyRepository
	budgetRepo aiusage.FeatureBudgetRepository
	switchRepo aiusage.FeatureSwitchRepository
	logger     *zap.Logger
}

// NewPolicyService creates a new PolicyService
func NewPolicyService(
	policyRepo aiusage.RateLimitPolicyRepository,
	budgetRepo aiusage.FeatureBudgetRepository,
	switchRepo aiusage.FeatureSwitchRepository,
	logger *zap.Logger,
) *PolicyService {
	return &PolicyService{
		policyRepo: policyRepo,
		budgetRepo: budgetRepo,
		switchRepo: switchRepo,
		logger:     logger,
	}
}

// SetRateLimit creates or replaces the policy for a caller. When a policy
// already exists for the same caller and scope, its caps are updated in
// place.
func (s *PolicyService) SetRateLimit(ctx context.Context, input SetRateLimitInput) (*RateLimitPolicyDTO, error) {
	if input.Feature != nil && !input.Feature.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}

	policy, err := aiusage.NewRateLimitPolicy(input.TenantID, input.CallerID, input.MaxPerHour, input.MaxPerDay)
	if err != nil {
		return nil, err
	}
	if input.Feature != nil {
		if err := policy.ScopeToFeature(*input.Feature); err != nil {
			return nil, err
		}
	}

	existing, err := s.findSameScope(ctx, input)
	if err != nil && err != shared.ErrNotFound {
		s.logger.Error("Failed to look up existing policy", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save rate limit policy")
	}
	if existing != nil {
		if err := existing.UpdateCaps(input.MaxPerHour, input.MaxPerDay); err != nil {
			return nil, err
		}
		if err := s.policyRepo.Update(ctx, existing); err != nil {
			s.logger.Error("Failed to update rate limit policy", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save rate limit policy")
		}
		dto := toPolicyDTO(existing)
		return &dto, nil
	}

	if err := s.policyRepo.Save(ctx, policy); err != nil {
		s.logger.Error("Failed to save rate limit policy", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save rate limit policy")
	}

	s.logger.Info("Rate limit policy set",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("caller_id", input.CallerID.String()),
		zap.Int("max_per_hour", input.MaxPerHour),
		zap.Int("max_per_day", input.MaxPerDay))

	dto := toPolicyDTO(policy)
	return &dto, nil
}

// findSameScope locates an existing policy with exactly the input's scope,
// distinguishing caller-wide from feature-scoped entries
func (s *PolicyService) findSameScope(ctx context.Context, input SetRateLimitInput) (*aiusage.RateLimitPolicy, error) {
	policies, err := s.policyRepo.FindByTenant(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		if p.CallerID != input.CallerID {
			continue
		}
		if (p.Feature == nil) != (input.Feature == nil) {
			continue
		}
		if p.Feature != nil && *p.Feature != *input.Feature {
			continue
		}
		return p, nil
	}
	return nil, shared.ErrNotFound
}

// GetPolicies lists every policy for a tenant
func (s *PolicyService) GetPolicies(ctx context.Context, tenantID uuid.UUID) ([]RateLimitPolicyDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	policies, err := s.policyRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to list rate limit policies", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list rate limit policies")
	}

	dtos := make([]RateLimitPolicyDTO, 0, len(policies))
	for _, p := range policies {
		dtos = append(dtos, toPolicyDTO(p))
	}
	return dtos, nil
}

// DeletePolicy removes a policy; the caller falls back to the defaults
func (s *PolicyService) DeletePolicy(ctx context.Context, tenantID, policyID uuid.UUID) error {
	policy, err := s.policyRepo.FindByID(ctx, policyID)
	if err != nil {
		return err
	}
	if policy.TenantID != tenantID {
		return shared.ErrNotFound
	}
	return s.policyRepo.Delete(ctx, policyID)
}

// SetBudget creates or replaces the monthly budget for a feature
func (s *PolicyService) SetBudget(ctx context.Context, input SetBudgetInput) (*FeatureBudgetDTO, error) {
	existing, err := s.budgetRepo.FindByTenantAndFeature(ctx, input.TenantID, input.Feature)
	if err != nil && err != shared.ErrNotFound {
		s.logger.Error("Failed to look up existing budget", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save budget")
	}

	if existing != nil {
		if err := existing.UpdateBudget(input.MonthlyBudget); err != nil {
			return nil, err
		}
		if err := s.budgetRepo.Update(ctx, existing); err != nil {
			s.logger.Error("Failed to update budget", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save budget")
		}
		dto := toBudgetDTO(existing)
		return &dto, nil
	}

	budget, err := aiusage.NewFeatureBudget(input.TenantID, input.Feature, input.MonthlyBudget)
	if err != nil {
		return nil, err
	}
	if err := s.budgetRepo.Save(ctx, budget); err != nil {
		s.logger.Error("Failed to save budget", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save budget")
	}

	s.logger.Info("Feature budget set",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("feature", string(input.Feature)),
		zap.String("monthly_budget", input.MonthlyBudget.String()))

	dto := toBudgetDTO(budget)
	return &dto, nil
}

// GetBudgets lists every budget for a tenant
func (s *PolicyService) GetBudgets(ctx context.Context, tenantID uuid.UUID) ([]FeatureBudgetDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	budgets, err := s.budgetRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to list budgets", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list budgets")
	}

	dtos := make([]FeatureBudgetDTO, 0, len(budgets))
	for _, b := range budgets {
		dtos = append(dtos, toBudgetDTO(b))
	}
	return dtos, nil
}

// DeleteBudget removes a budget; the feature becomes unlimited
func (s *PolicyService) DeleteBudget(ctx context.Context, tenantID, budgetID uuid.UUID) error {
	budget, err := s.budgetRepo.FindByID(ctx, budgetID)
	if err != nil {
		return err
	}
	if budget.TenantID != tenantID {
		return shared.ErrNotFound
	}
	return s.budgetRepo.Delete(ctx, budgetID)
}

// GetDisabledFeatures lists the features currently switched off for a tenant
func (s *PolicyService) GetDisabledFeatures(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	features, err := s.switchRepo.DisabledFeatures(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to list disabled features", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list disabled features")
	}

	names := make([]string, 0, len(features))
	for _, f := range features {
		names = append(names, string(f))
	}
	return names, nil
}

// EnableFeature clears the switch for a feature, letting invocations through
// again. Enabling a feature that is not disabled is a no-op.
func (s *PolicyService) EnableFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) error {
	if !feature.IsValid() {
		return shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}

	if err := s.switchRepo.EnableFeature(ctx, tenantID, feature); err != nil {
		s.logger.Error("Failed to enable feature",
			zap.String("feature", string(feature)), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to enable feature")
	}

	s.logger.Info("Feature re-enabled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("feature", string(feature)))
	return nil
}

func toPolicyDTO(policy *aiusage.RateLimitPolicy) RateLimitPolicyDTO {
	dto := RateLimitPolicyDTO{
		ID:         policy.ID,
		CallerID:   policy.CallerID,
		MaxPerHour: policy.MaxPerHour,
		MaxPerDay:  policy.MaxPerDay,
	}
	if policy.Feature != nil {
		f := string(*policy.Feature)
		dto.Feature = &f
	}
	return dto
}

func toBudgetDTO(budget *aiusage.FeatureBudget) FeatureBudgetDTO {
	return FeatureBudgetDTO{
		ID:            budget.ID,
		Feature:       string(budget.Feature),
		MonthlyBudget: budget.MonthlyBudget,
		Unlimited:     budget.IsUnlimited(),
	}
}
