package workflow

import (
	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Step is one stage of an AI pipeline. Order values form a dense 1-based
// sequence within a workflow and are renumbered on removal.
type Step struct {
	Order     int
	Feature   aiusage.Feature
	Model     string
	MaxTokens int64
}

// Definition is an ordered AI pipeline with a precomputed per-run cost
// ceiling. Templates are duplicated into independent workflows; the copy
// holds no back-reference to its template.
type Definition struct {
	shared.TenantAggregateRoot
	Name                string
	Description         string
	IsTemplate          bool
	Steps               []Step
	EstimatedCostPerRun decimal.Decimal // Recomputed on every structural change
}

// NewDefinition creates an empty workflow definition
func NewDefinition(tenantID uuid.UUID, name, description string, isTemplate bool) (*Definition, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Workflow name cannot be empty")
	}

	return &Definition{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Description:         description,
		IsTemplate:          isTemplate,
		Steps:               make([]Step, 0),
		EstimatedCostPerRun: decimal.Zero,
	}, nil
}

// AddStep appends a step at the end of the pipeline and recomputes the
// estimated per-run cost
func (d *Definition) AddStep(feature aiusage.Feature, model string, maxTokens int64, prices *aiusage.PriceTable) error {
	if !feature.IsValid() {
		return shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}
	if model == "" {
		return shared.NewDomainError("INVALID_MODEL", "Model cannot be empty")
	}
	if maxTokens <= 0 {
		return shared.NewDomainError("INVALID_TOKENS", "Max tokens must be positive")
	}

	d.Steps = append(d.Steps, Step{
		Order:     len(d.Steps) + 1,
		Feature:   feature,
		Model:     model,
		MaxTokens: maxTokens,
	})
	d.recalculate(prices)
	return nil
}

// RemoveStep deletes the step with the given order and renumbers the
// remaining steps into a dense 1..n sequence
func (d *Definition) RemoveStep(order int, prices *aiusage.PriceTable) error {
	idx := -1
	for i, step := range d.Steps {
		if step.Order == order {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewDomainError("STEP_NOT_FOUND", "Workflow step not found")
	}

	d.Steps = append(d.Steps[:idx], d.Steps[idx+1:]...)
	for i := range d.Steps {
		d.Steps[i].Order = i + 1
	}
	d.recalculate(prices)
	return nil
}

// EstimateCost returns the ceiling cost of one run: each step contributes
// max_tokens x price_per_1k(model) / 1000. Actual runs recorded in the
// ledger may cost less when fewer tokens are consumed.
func (d *Definition) EstimateCost(prices *aiusage.PriceTable) decimal.Decimal {
	total := decimal.Zero
	for _, step := range d.Steps {
		stepCost := decimal.NewFromInt(step.MaxTokens).
			Mul(prices.PricePer1K(step.Model)).
			Div(decimal.NewFromInt(1000))
		total = total.Add(stepCost)
	}
	return total
}

// Duplicate produces an independent copy of this definition: fresh identity,
// deep-copied steps, never a template. Mutating the copy must not affect the
// original.
func (d *Definition) Duplicate(name string) (*Definition, error) {
	if name == "" {
		name = d.Name + " (copy)"
	}

	copied, err := NewDefinition(d.TenantID, name, d.Description, false)
	if err != nil {
		return nil, err
	}
	copied.Steps = make([]Step, len(d.Steps))
	copy(copied.Steps, d.Steps)
	copied.EstimatedCostPerRun = d.EstimatedCostPerRun
	return copied, nil
}

// Rename updates the workflow metadata
func (d *Definition) Rename(name, description string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Workflow name cannot be empty")
	}
	d.Name = name
	d.Description = description
	d.IncrementVersion()
	return nil
}

func (d *Definition) recalculate(prices *aiusage.PriceTable) {
	d.EstimatedCostPerRun = d.EstimateCost(prices)
	d.IncrementVersion()
}
