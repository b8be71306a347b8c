package aiusage

import (
	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeatureBudget caps the monthly spend of a single AI feature for a tenant.
// A zero budget means unlimited. The budget is evaluated against the sum of
// cost over successful events in the current calendar month; it resets
// implicitly at each month boundary because the window is recomputed from
// the ledger.
type FeatureBudget struct {
	shared.TenantAggregateRoot
	Feature       Feature
	MonthlyBudget decimal.Decimal // Currency units; zero = unlimited
}

// NewFeatureBudget creates a monthly budget for a feature
func NewFeatureBudget(tenantID uuid.UUID, feature Feature, monthlyBudget decimal.Decimal) (*FeatureBudget, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !feature.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}
	if monthlyBudget.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BUDGET", "Monthly budget cannot be negative")
	}

	return &FeatureBudget{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Feature:             feature,
		MonthlyBudget:       monthlyBudget,
	}, nil
}

// IsUnlimited returns true when no spending cap applies
func (b *FeatureBudget) IsUnlimited() bool {
	return b.MonthlyBudget.IsZero()
}

// Allows returns true if the given month-to-date spend still permits another
// invocation. Spend at or above the budget denies.
func (b *FeatureBudget) Allows(spent decimal.Decimal) bool {
	if b.IsUnlimited() {
		return true
	}
	return spent.LessThan(b.MonthlyBudget)
}

// UpdateBudget replaces the monthly cap
func (b *FeatureBudget) UpdateBudget(monthlyBudget decimal.Decimal) error {
	if monthlyBudget.IsNegative() {
		return shared.NewDomainError("INVALID_BUDGET", "Monthly budget cannot be negative")
	}
	b.MonthlyBudget = monthlyBudget
	b.IncrementVersion()
	return nil
}
