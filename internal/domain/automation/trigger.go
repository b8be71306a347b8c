package automation

import (
	"encoding/json"

	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
)

// TriggerType identifies the condition a rule evaluates
type TriggerType string

const (
	TriggerBudgetThreshold  TriggerType = "budget_threshold"
	TriggerCostSpike        TriggerType = "cost_spike"
	TriggerErrorRate        TriggerType = "error_rate"
	TriggerFeatureUsage     TriggerType = "feature_usage"
	TriggerAIClassification TriggerType = "ai_classification"
)

// IsValid checks if the trigger type is recognized
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerBudgetThreshold, TriggerCostSpike, TriggerErrorRate,
		TriggerFeatureUsage, TriggerAIClassification:
		return true
	}
	return false
}

// BudgetThresholdTrigger fires when spent/budget for a feature reaches the
// configured percentage of the monthly budget
type BudgetThresholdTrigger struct {
	Feature          aiusage.Feature `json:"feature"`
	ThresholdPercent float64         `json:"threshold_percent"`
}

// CostSpikeTrigger fires when the current window's cost exceeds a multiple
// of the trailing baseline cost for the same feature
type CostSpikeTrigger struct {
	Feature    aiusage.Feature `json:"feature"`
	Multiplier float64         `json:"multiplier"`
}

// ErrorRateTrigger fires when the fraction of failed events over the
// evaluation window exceeds the threshold. MinCalls suppresses firing on
// tiny samples.
type ErrorRateTrigger struct {
	Feature   aiusage.Feature `json:"feature"`
	Threshold float64         `json:"threshold"`
	MinCalls  int64           `json:"min_calls"`
}

// FeatureUsageTrigger fires when the call count for a feature over the
// evaluation window exceeds the configured ceiling
type FeatureUsageTrigger struct {
	Feature  aiusage.Feature `json:"feature"`
	MaxCalls int64           `json:"max_calls"`
}

// AIClassificationTrigger delegates the decision to an external classifier
// with a free-form condition prompt
type AIClassificationTrigger struct {
	Condition string `json:"condition"`
}

// TriggerConfig is a tagged union over the trigger variants. Exactly one
// variant is set, matching the rule's TriggerType, so evaluation can switch
// exhaustively instead of probing an untyped map.
type TriggerConfig struct {
	BudgetThreshold  *BudgetThresholdTrigger  `json:"budget_threshold,omitempty"`
	CostSpike        *CostSpikeTrigger        `json:"cost_spike,omitempty"`
	ErrorRate        *ErrorRateTrigger        `json:"error_rate,omitempty"`
	FeatureUsage     *FeatureUsageTrigger     `json:"feature_usage,omitempty"`
	AIClassification *AIClassificationTrigger `json:"ai_classification,omitempty"`
}

// Variant returns the populated variant, or nil when none is set. Marshalling
// the variant yields the same shape ParseTriggerConfig accepts.
func (c TriggerConfig) Variant() any {
	switch {
	case c.BudgetThreshold != nil:
		return c.BudgetThreshold
	case c.CostSpike != nil:
		return c.CostSpike
	case c.ErrorRate != nil:
		return c.ErrorRate
	case c.FeatureUsage != nil:
		return c.FeatureUsage
	case c.AIClassification != nil:
		return c.AIClassification
	}
	return nil
}

// ParseTriggerConfig decodes and validates raw trigger parameters for the
// given trigger type
func ParseTriggerConfig(triggerType TriggerType, raw json.RawMessage) (TriggerConfig, error) {
	var config TriggerConfig

	switch triggerType {
	case TriggerBudgetThreshold:
		var t BudgetThresholdTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Malformed budget threshold parameters")
		}
		if !t.Feature.IsValid() {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Budget threshold trigger requires a valid feature")
		}
		if t.ThresholdPercent <= 0 || t.ThresholdPercent > 100 {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Threshold percent must be in (0, 100]")
		}
		config.BudgetThreshold = &t

	case TriggerCostSpike:
		var t CostSpikeTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Malformed cost spike parameters")
		}
		if !t.Feature.IsValid() {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Cost spike trigger requires a valid feature")
		}
		if t.Multiplier <= 1 {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Spike multiplier must be greater than 1")
		}
		config.CostSpike = &t

	case TriggerErrorRate:
		var t ErrorRateTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Malformed error rate parameters")
		}
		if !t.Feature.IsValid() {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Error rate trigger requires a valid feature")
		}
		if t.Threshold <= 0 || t.Threshold > 1 {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Error rate threshold must be a fraction in (0, 1]")
		}
		if t.MinCalls < 0 {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Minimum call count cannot be negative")
		}
		config.ErrorRate = &t

	case TriggerFeatureUsage:
		var t FeatureUsageTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Malformed feature usage parameters")
		}
		if !t.Feature.IsValid() {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Feature usage trigger requires a valid feature")
		}
		if t.MaxCalls <= 0 {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Max calls must be positive")
		}
		config.FeatureUsage = &t

	case TriggerAIClassification:
		var t AIClassificationTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Malformed classification parameters")
		}
		if t.Condition == "" {
			return config, shared.NewDomainError("INVALID_TRIGGER_CONFIG", "Classification trigger requires a condition")
		}
		config.AIClassification = &t

	default:
		return config, shared.NewDomainError("INVALID_TRIGGER_TYPE", "Unknown trigger type")
	}

	return config, nil
}
