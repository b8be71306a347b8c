package aiusage

import (
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UsageEvent is an immutable record of a single AI invocation attempt.
// Events are append-only: once created they are never updated or deleted,
// so the ledger doubles as an audit trail. Cost is computed exactly once at
// creation time; later price changes never rewrite history.
type UsageEvent struct {
	shared.BaseEntity
	TenantID     uuid.UUID       // The tenant this invocation belongs to
	Feature      Feature         // AI feature that was invoked
	CallerID     uuid.UUID       // End user whose request triggered the call
	Model        string          // Model identifier, e.g. "gpt-4o-mini"
	InputTokens  int64           // Prompt tokens consumed
	OutputTokens int64           // Completion tokens produced
	Cost         decimal.Decimal // Derived at write time from the price table
	Success      bool            // Whether the provider call succeeded
	OccurredAt   time.Time       // When the invocation happened
}

// NewUsageEvent creates a usage event with its cost derived from the price
// table. Cost is computed for failed attempts too (error-rate diagnostics),
// but failed events are excluded from budget sums.
func NewUsageEvent(
	tenantID uuid.UUID,
	feature Feature,
	callerID uuid.UUID,
	model string,
	inputTokens, outputTokens int64,
	success bool,
	prices *PriceTable,
) (*UsageEvent, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !feature.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}
	if callerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CALLER", "Caller ID cannot be empty")
	}
	if model == "" {
		return nil, shared.NewDomainError("INVALID_MODEL", "Model cannot be empty")
	}
	if inputTokens < 0 || outputTokens < 0 {
		return nil, shared.NewDomainError("INVALID_TOKENS", "Token counts cannot be negative")
	}

	return &UsageEvent{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		Feature:      feature,
		CallerID:     callerID,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         prices.Cost(model, inputTokens, outputTokens),
		Success:      success,
		OccurredAt:   time.Now().UTC(),
	}, nil
}

// TotalTokens returns the combined prompt and completion token count
func (e *UsageEvent) TotalTokens() int64 {
	return e.InputTokens + e.OutputTokens
}
