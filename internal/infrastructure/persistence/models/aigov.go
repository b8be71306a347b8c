package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// UsageEventModel is the GORM model for the append-only usage ledger.
// Rows are never updated or deleted.
type UsageEventModel struct {
	BaseModel
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_usage_events_tenant_time"`
	Feature      string          `gorm:"type:varchar(30);not null;index"`
	CallerID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_usage_events_caller_time"`
	Model        string          `gorm:"type:varchar(100);not null"`
	InputTokens  int64           `gorm:"not null"`
	OutputTokens int64           `gorm:"not null"`
	Cost         decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	Success      bool            `gorm:"not null"`
	OccurredAt   time.Time       `gorm:"not null;index:idx_usage_events_tenant_time;index:idx_usage_events_caller_time"`
}

// TableName returns the table name for the model
func (UsageEventModel) TableName() string {
	return "ai_usage_events"
}

// ToDomain converts the persistence model to a domain UsageEvent entity.
func (m *UsageEventModel) ToDomain() *aiusage.UsageEvent {
	return &aiusage.UsageEvent{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		Feature:      aiusage.Feature(m.Feature),
		CallerID:     m.CallerID,
		Model:        m.Model,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		Cost:         m.Cost,
		Success:      m.Success,
		OccurredAt:   m.OccurredAt,
	}
}

// UsageEventModelFromDomain creates a model from a domain UsageEvent
func UsageEventModelFromDomain(e *aiusage.UsageEvent) *UsageEventModel {
	model := &UsageEventModel{
		TenantID:     e.TenantID,
		Feature:      string(e.Feature),
		CallerID:     e.CallerID,
		Model:        e.Model,
		InputTokens:  e.InputTokens,
		OutputTokens: e.OutputTokens,
		Cost:         e.Cost,
		Success:      e.Success,
		OccurredAt:   e.OccurredAt,
	}
	model.FromDomainBaseEntity(e.BaseEntity)
	return model
}

// RateLimitPolicyModel is the GORM model for per-caller rate limit policies
type RateLimitPolicyModel struct {
	TenantAggregateModel
	CallerID   uuid.UUID `gorm:"type:uuid;not null;index:idx_rate_limit_caller"`
	Feature    *string   `gorm:"type:varchar(30);index:idx_rate_limit_caller"`
	MaxPerHour int       `gorm:"not null"`
	MaxPerDay  int       `gorm:"not null"`
}

// TableName returns the table name for the model
func (RateLimitPolicyModel) TableName() string {
	return "ai_rate_limit_policies"
}

// ToDomain converts the persistence model to a domain RateLimitPolicy entity.
func (m *RateLimitPolicyModel) ToDomain() *aiusage.RateLimitPolicy {
	policy := &aiusage.RateLimitPolicy{
		CallerID:   m.CallerID,
		MaxPerHour: m.MaxPerHour,
		MaxPerDay:  m.MaxPerDay,
	}
	m.PopulateTenantAggregateRoot(&policy.TenantAggregateRoot)
	if m.Feature != nil {
		feature := aiusage.Feature(*m.Feature)
		policy.Feature = &feature
	}
	return policy
}

// RateLimitPolicyModelFromDomain creates a model from a domain RateLimitPolicy
func RateLimitPolicyModelFromDomain(p *aiusage.RateLimitPolicy) *RateLimitPolicyModel {
	model := &RateLimitPolicyModel{
		CallerID:   p.CallerID,
		MaxPerHour: p.MaxPerHour,
		MaxPerDay:  p.MaxPerDay,
	}
	model.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	if p.Feature != nil {
		feature := string(*p.Feature)
		model.Feature = &feature
	}
	return model
}

// FeatureBudgetModel is the GORM model for per-feature monthly budgets.
// One budget per (tenant, feature); the composite unique constraint lives in
// the SQL migration because the tenant column comes from the embedded base.
type FeatureBudgetModel struct {
	TenantAggregateModel
	Feature       string          `gorm:"type:varchar(30);not null;index"`
	MonthlyBudget decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for the model
func (FeatureBudgetModel) TableName() string {
	return "ai_feature_budgets"
}

// ToDomain converts the persistence model to a domain FeatureBudget entity.
func (m *FeatureBudgetModel) ToDomain() *aiusage.FeatureBudget {
	budget := &aiusage.FeatureBudget{
		Feature:       aiusage.Feature(m.Feature),
		MonthlyBudget: m.MonthlyBudget,
	}
	m.PopulateTenantAggregateRoot(&budget.TenantAggregateRoot)
	return budget
}

// FeatureBudgetModelFromDomain creates a model from a domain FeatureBudget
func FeatureBudgetModelFromDomain(b *aiusage.FeatureBudget) *FeatureBudgetModel {
	model := &FeatureBudgetModel{
		Feature:       string(b.Feature),
		MonthlyBudget: b.MonthlyBudget,
	}
	model.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	return model
}

// WorkflowDefinitionModel is the GORM model for workflow definitions
type WorkflowDefinitionModel struct {
	TenantAggregateModel
	Name                string              `gorm:"type:varchar(255);not null"`
	Description         string              `gorm:"type:text"`
	IsTemplate          bool                `gorm:"not null;default:false;index"`
	EstimatedCostPerRun decimal.Decimal     `gorm:"type:decimal(18,8);not null"`
	Steps               []WorkflowStepModel `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the model
func (WorkflowDefinitionModel) TableName() string {
	return "ai_workflow_definitions"
}

// WorkflowStepModel is the GORM model for workflow steps
type WorkflowStepModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	WorkflowID uuid.UUID `gorm:"type:uuid;not null;index"`
	StepOrder  int       `gorm:"not null"`
	Feature    string    `gorm:"type:varchar(30);not null"`
	Model      string    `gorm:"type:varchar(100);not null"`
	MaxTokens  int64     `gorm:"not null"`
}

// TableName returns the table name for the model
func (WorkflowStepModel) TableName() string {
	return "ai_workflow_steps"
}

// ToDomain converts the persistence model to a domain workflow Definition.
// Steps are sorted by their persisted order in the repository query.
func (m *WorkflowDefinitionModel) ToDomain() *workflow.Definition {
	def := &workflow.Definition{
		Name:                m.Name,
		Description:         m.Description,
		IsTemplate:          m.IsTemplate,
		EstimatedCostPerRun: m.EstimatedCostPerRun,
		Steps:               make([]workflow.Step, 0, len(m.Steps)),
	}
	m.PopulateTenantAggregateRoot(&def.TenantAggregateRoot)
	for _, step := range m.Steps {
		def.Steps = append(def.Steps, workflow.Step{
			Order:     step.StepOrder,
			Feature:   aiusage.Feature(step.Feature),
			Model:     step.Model,
			MaxTokens: step.MaxTokens,
		})
	}
	return def
}

// WorkflowDefinitionModelFromDomain creates a model from a domain Definition
func WorkflowDefinitionModelFromDomain(d *workflow.Definition) *WorkflowDefinitionModel {
	model := &WorkflowDefinitionModel{
		Name:                d.Name,
		Description:         d.Description,
		IsTemplate:          d.IsTemplate,
		EstimatedCostPerRun: d.EstimatedCostPerRun,
		Steps:               make([]WorkflowStepModel, 0, len(d.Steps)),
	}
	model.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	for _, step := range d.Steps {
		model.Steps = append(model.Steps, WorkflowStepModel{
			ID:         uuid.New(),
			WorkflowID: d.ID,
			StepOrder:  step.Order,
			Feature:    string(step.Feature),
			Model:      step.Model,
			MaxTokens:  step.MaxTokens,
		})
	}
	return model
}

// AutomationRuleModel is the GORM model for automation rules. Trigger and
// action parameters are stored as JSON and parsed back into their typed
// variants on load.
type AutomationRuleModel struct {
	TenantAggregateModel
	Name            string     `gorm:"type:varchar(255);not null"`
	Description     string     `gorm:"type:text"`
	TriggerType     string     `gorm:"type:varchar(30);not null"`
	TriggerConfig   []byte     `gorm:"type:jsonb;not null;default:'{}'"`
	ActionType      string     `gorm:"type:varchar(30);not null"`
	ActionConfig    []byte     `gorm:"type:jsonb;not null;default:'{}'"`
	// No default tag: gorm skips zero-value fields that carry one, which
	// would store a deactivated rule as active on insert.
	IsActive        bool       `gorm:"not null;index"`
	CooldownMinutes int        `gorm:"not null;default:0"`
	ExecutionCount  int64      `gorm:"not null;default:0"`
	LastExecution   *time.Time `gorm:"index"`
}

// TableName returns the table name for the model
func (AutomationRuleModel) TableName() string {
	return "ai_automation_rules"
}

// ToDomain converts the persistence model to a domain AutomationRule entity.
func (m *AutomationRuleModel) ToDomain() (*automation.AutomationRule, error) {
	trigger, err := automation.ParseTriggerConfig(automation.TriggerType(m.TriggerType), m.TriggerConfig)
	if err != nil {
		return nil, err
	}
	action, err := automation.ParseActionConfig(automation.ActionType(m.ActionType), m.ActionConfig)
	if err != nil {
		return nil, err
	}

	rule := &automation.AutomationRule{
		Name:            m.Name,
		Description:     m.Description,
		TriggerType:     automation.TriggerType(m.TriggerType),
		Trigger:         trigger,
		ActionType:      automation.ActionType(m.ActionType),
		Action:          action,
		IsActive:        m.IsActive,
		CooldownMinutes: m.CooldownMinutes,
		ExecutionCount:  m.ExecutionCount,
		LastExecution:   m.LastExecution,
	}
	m.PopulateTenantAggregateRoot(&rule.TenantAggregateRoot)
	return rule, nil
}

// AutomationRuleModelFromDomain creates a model from a domain AutomationRule.
// Config marshalling cannot fail for validated rules, so errors surface here
// only on programmer mistakes.
func AutomationRuleModelFromDomain(r *automation.AutomationRule) (*AutomationRuleModel, error) {
	triggerJSON, err := json.Marshal(r.Trigger.Variant())
	if err != nil {
		return nil, err
	}
	actionJSON, err := json.Marshal(r.Action.Variant())
	if err != nil {
		return nil, err
	}

	model := &AutomationRuleModel{
		Name:            r.Name,
		Description:     r.Description,
		TriggerType:     string(r.TriggerType),
		TriggerConfig:   triggerJSON,
		ActionType:      string(r.ActionType),
		ActionConfig:    actionJSON,
		IsActive:        r.IsActive,
		CooldownMinutes: r.CooldownMinutes,
		ExecutionCount:  r.ExecutionCount,
		LastExecution:   r.LastExecution,
	}
	model.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return model, nil
}

// FeatureSwitchModel is the GORM model for per-tenant feature switches.
// A row exists only for disabled features; enabling removes the row.
type FeatureSwitchModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feature_switch_tenant"`
	Feature    string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_feature_switch_tenant"`
	Reason     string    `gorm:"type:text"`
	DisabledAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (FeatureSwitchModel) TableName() string {
	return "ai_feature_switches"
}
