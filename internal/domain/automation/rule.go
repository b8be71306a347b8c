package automation

import (
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/shared"
)

// RuleState describes where a rule sits in its firing lifecycle. State is
// derived from is_active and last_execution rather than stored, so it can
// never drift from the underlying fields.
type RuleState string

const (
	StateInactive RuleState = "inactive"
	StateArmed    RuleState = "armed"
	StateCooling  RuleState = "cooling"
)

// AutomationRule binds a trigger condition to an action. An armed rule whose
// trigger holds fires at most once per cooldown window; the firing itself is
// claimed through the repository's compare-and-set so concurrent evaluation
// passes cannot double-fire.
type AutomationRule struct {
	shared.TenantAggregateRoot
	Name            string
	Description     string
	TriggerType     TriggerType
	Trigger         TriggerConfig
	ActionType      ActionType
	Action          ActionConfig
	IsActive        bool
	CooldownMinutes int
	ExecutionCount  int64
	LastExecution   *time.Time
}

// NewAutomationRule creates an active automation rule
func NewAutomationRule(
	tenantID uuid.UUID,
	name, description string,
	triggerType TriggerType,
	trigger TriggerConfig,
	actionType ActionType,
	action ActionConfig,
	cooldownMinutes int,
) (*AutomationRule, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Rule name cannot be empty")
	}
	if !triggerType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRIGGER_TYPE", "Unknown trigger type")
	}
	if !actionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION_TYPE", "Unknown action type")
	}
	if cooldownMinutes < 0 {
		return nil, shared.NewDomainError("INVALID_COOLDOWN", "Cooldown cannot be negative")
	}

	return &AutomationRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Description:         description,
		TriggerType:         triggerType,
		Trigger:             trigger,
		ActionType:          actionType,
		Action:              action,
		IsActive:            true,
		CooldownMinutes:     cooldownMinutes,
	}, nil
}

// Cooldown returns the configured cooldown as a duration
func (r *AutomationRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// InCooldown reports whether the rule fired within the last cooldown window
func (r *AutomationRule) InCooldown(now time.Time) bool {
	if r.LastExecution == nil {
		return false
	}
	return now.Before(r.LastExecution.Add(r.Cooldown()))
}

// State derives the rule's lifecycle state at the given instant
func (r *AutomationRule) State(now time.Time) RuleState {
	if !r.IsActive {
		return StateInactive
	}
	if r.InCooldown(now) {
		return StateCooling
	}
	return StateArmed
}

// MarkFired records a successful firing claim on the in-memory rule. The
// persisted transition happens through Repository.ClaimFiring; this keeps
// the loaded aggregate in sync after the claim succeeds.
func (r *AutomationRule) MarkFired(now time.Time) {
	fired := now.UTC()
	r.LastExecution = &fired
	r.ExecutionCount++
	r.IncrementVersion()
}

// Activate re-arms a deactivated rule
func (r *AutomationRule) Activate() {
	if r.IsActive {
		return
	}
	r.IsActive = true
	r.IncrementVersion()
}

// Deactivate takes the rule out of evaluation until reactivated
func (r *AutomationRule) Deactivate() {
	if !r.IsActive {
		return
	}
	r.IsActive = false
	r.IncrementVersion()
}

// Update replaces the rule's configuration
func (r *AutomationRule) Update(
	name, description string,
	triggerType TriggerType,
	trigger TriggerConfig,
	actionType ActionType,
	action ActionConfig,
	cooldownMinutes int,
) error {
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Rule name cannot be empty")
	}
	if !triggerType.IsValid() {
		return shared.NewDomainError("INVALID_TRIGGER_TYPE", "Unknown trigger type")
	}
	if !actionType.IsValid() {
		return shared.NewDomainError("INVALID_ACTION_TYPE", "Unknown action type")
	}
	if cooldownMinutes < 0 {
		return shared.NewDomainError("INVALID_COOLDOWN", "Cooldown cannot be negative")
	}

	r.Name = name
	r.Description = description
	r.TriggerType = triggerType
	r.Trigger = trigger
	r.ActionType = actionType
	r.Action = action
	r.CooldownMinutes = cooldownMinutes
	r.IncrementVersion()
	return nil
}
