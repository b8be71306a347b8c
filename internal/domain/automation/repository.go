package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines automation rule persistence operations
type Repository interface {
	// Save persists an automation rule
	Save(ctx context.Context, rule *AutomationRule) error

	// FindByID retrieves a rule by its identifier
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*AutomationRule, error)

	// FindByTenant retrieves all rules for a tenant
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*AutomationRule, error)

	// FindActive retrieves every active rule across tenants for the
	// evaluation pass
	FindActive(ctx context.Context) ([]*AutomationRule, error)

	// ClaimFiring atomically advances the rule's firing state: it sets
	// last_execution to firedAt and increments execution_count, but only if
	// last_execution still equals prev (nil for a rule that has never
	// fired). Returns false when another evaluator claimed the firing
	// first.
	ClaimFiring(ctx context.Context, ruleID uuid.UUID, prev *time.Time, firedAt time.Time) (bool, error)

	// Delete removes a rule
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
