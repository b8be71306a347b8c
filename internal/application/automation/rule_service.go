package automation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateRuleInput contains input for creating an automation rule. Trigger
// and action parameters arrive as raw JSON and are parsed into their typed
// variants before anything is persisted.
type CreateRuleInput struct {
	TenantID        uuid.UUID
	Name            string
	Description     string
	TriggerType     automation.TriggerType
	TriggerConfig   json.RawMessage
	ActionType      automation.ActionType
	ActionConfig    json.RawMessage
	CooldownMinutes int
}

// UpdateRuleInput contains input for replacing a rule's configuration
type UpdateRuleInput struct {
	TenantID        uuid.UUID
	RuleID          uuid.UUID
	Name            string
	Description     string
	TriggerType     automation.TriggerType
	TriggerConfig   json.RawMessage
	ActionType      automation.ActionType
	ActionConfig    json.RawMessage
	CooldownMinutes int
}

// RuleDTO is the outward representation of an automation rule
type RuleDTO struct {
	ID              uuid.UUID                `json:"id"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	TriggerType     automation.TriggerType   `json:"trigger_type"`
	Trigger         automation.TriggerConfig `json:"trigger_config"`
	ActionType      automation.ActionType    `json:"action_type"`
	Action          automation.ActionConfig  `json:"action_config"`
	IsActive        bool                     `json:"is_active"`
	CooldownMinutes int                      `json:"cooldown_minutes"`
	ExecutionCount  int64                    `json:"execution_count"`
	LastExecution   *time.Time               `json:"last_execution,omitempty"`
	State           automation.RuleState     `json:"state"`
}

// RuleService manages automation rule configuration. Evaluation belongs to
// the Engine; this service only shapes and persists rules.
type RuleService struct {
	ruleRepo automation.Repository
	logger   *zap.Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo automation.Repository, logger *zap.Logger) *RuleService {
	return &RuleService{
		ruleRepo: ruleRepo,
		logger:   logger,
	}
}

// CreateRule validates and persists a new rule
func (s *RuleService) CreateRule(ctx context.Context, input CreateRuleInput) (*RuleDTO, error) {
	trigger, err := automation.ParseTriggerConfig(input.TriggerType, input.TriggerConfig)
	if err != nil {
		return nil, err
	}
	action, err := automation.ParseActionConfig(input.ActionType, input.ActionConfig)
	if err != nil {
		return nil, err
	}

	rule, err := automation.NewAutomationRule(
		input.TenantID, input.Name, input.Description,
		input.TriggerType, trigger,
		input.ActionType, action,
		input.CooldownMinutes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		s.logger.Error("Failed to save automation rule",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save rule")
	}

	s.logger.Info("Automation rule created",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.String("trigger_type", string(input.TriggerType)),
		zap.String("action_type", string(input.ActionType)))

	dto := toRuleDTO(rule)
	return &dto, nil
}

// UpdateRule replaces a rule's configuration; execution history survives
func (s *RuleService) UpdateRule(ctx context.Context, input UpdateRuleInput) (*RuleDTO, error) {
	rule, err := s.ruleRepo.FindByID(ctx, input.TenantID, input.RuleID)
	if err != nil {
		return nil, err
	}

	trigger, err := automation.ParseTriggerConfig(input.TriggerType, input.TriggerConfig)
	if err != nil {
		return nil, err
	}
	action, err := automation.ParseActionConfig(input.ActionType, input.ActionConfig)
	if err != nil {
		return nil, err
	}

	if err := rule.Update(
		input.Name, input.Description,
		input.TriggerType, trigger,
		input.ActionType, action,
		input.CooldownMinutes,
	); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		s.logger.Error("Failed to update automation rule", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save rule")
	}

	dto := toRuleDTO(rule)
	return &dto, nil
}

// GetRule retrieves one rule
func (s *RuleService) GetRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*RuleDTO, error) {
	rule, err := s.ruleRepo.FindByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	dto := toRuleDTO(rule)
	return &dto, nil
}

// ListRules lists a tenant's rules
func (s *RuleService) ListRules(ctx context.Context, tenantID uuid.UUID) ([]RuleDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	rules, err := s.ruleRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to list automation rules", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list rules")
	}

	dtos := make([]RuleDTO, 0, len(rules))
	for _, rule := range rules {
		dtos = append(dtos, toRuleDTO(rule))
	}
	return dtos, nil
}

// SetActive toggles a rule in or out of evaluation. Deactivation keeps the
// execution history.
func (s *RuleService) SetActive(ctx context.Context, tenantID, ruleID uuid.UUID, active bool) (*RuleDTO, error) {
	rule, err := s.ruleRepo.FindByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}

	if active {
		rule.Activate()
	} else {
		rule.Deactivate()
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		s.logger.Error("Failed to toggle automation rule", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save rule")
	}

	dto := toRuleDTO(rule)
	return &dto, nil
}

// DeleteRule removes a rule
func (s *RuleService) DeleteRule(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	if _, err := s.ruleRepo.FindByID(ctx, tenantID, ruleID); err != nil {
		return err
	}
	return s.ruleRepo.Delete(ctx, tenantID, ruleID)
}

func toRuleDTO(rule *automation.AutomationRule) RuleDTO {
	return RuleDTO{
		ID:              rule.ID,
		Name:            rule.Name,
		Description:     rule.Description,
		TriggerType:     rule.TriggerType,
		Trigger:         rule.Trigger,
		ActionType:      rule.ActionType,
		Action:          rule.Action,
		IsActive:        rule.IsActive,
		CooldownMinutes: rule.CooldownMinutes,
		ExecutionCount:  rule.ExecutionCount,
		LastExecution:   rule.LastExecution,
		State:           rule.State(time.Now().UTC()),
	}
}
