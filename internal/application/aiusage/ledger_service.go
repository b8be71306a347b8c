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

// RecordUsageInput contains input for appending a ledger entry
type RecordUsageInput struct {
	TenantID     uuid.UUID
	Feature      aiusage.Feature
	CallerID     uuid.UUID
	Model        string
	InputTokens  int64
	OutputTokens int64
	Success      bool
}

// UsageEventDTO is the outward representation of a ledger entry
type UsageEventDTO struct {
	ID           uuid.UUID       `json:"id"`
	Feature      string          `json:"feature"`
	CallerID     uuid.UUID       `json:"caller_id"`
	Model        string          `json:"model"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	Cost         decimal.Decimal `json:"cost"`
	Success      bool            `json:"success"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// InvokeInput contains input for a guarded AI invocation
type InvokeInput struct {
	TenantID  uuid.UUID
	CallerID  uuid.UUID
	Feature   aiusage.Feature
	Model     string
	Prompt    string
	MaxTokens int64
}

// InvokeResultDTO is the outcome of a guarded invocation
type InvokeResultDTO struct {
	Content string        `json:"content"`
	Success bool          `json:"success"`
	Event   UsageEventDTO `json:"event"`
}

// FeatureSpendDTO summarizes one feature's month-to-date activity
type FeatureSpendDTO struct {
	Feature     string          `json:"feature"`
	DisplayName string          `json:"display_name"`
	Spend       decimal.Decimal `json:"spend"`
	Calls       int64           `json:"calls"`
	Failures    int64           `json:"failures"`
}

// LedgerService owns the append-only usage ledger. Cost is computed from the
// price table once at write time and never recomputed, so later price changes
// cannot rewrite history.
type LedgerService struct {
	usageRepo aiusage.UsageEventRepository
	gate      *GateService
	switches  aiusage.FeatureSwitchRepository
	provider  aiusage.Provider
	prices    *aiusage.PriceTable
	logger    *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	usageRepo aiusage.UsageEventRepository,
	gate *GateService,
	switches aiusage.FeatureSwitchRepository,
	provider aiusage.Provider,
	prices *aiusage.PriceTable,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		usageRepo: usageRepo,
		gate:      gate,
		switches:  switches,
		provider:  provider,
		prices:    prices,
		logger:    logger,
	}
}

// RecordUsage appends one invocation attempt to the ledger. Failed attempts
// are recorded with their cost too, for error-rate diagnostics; budget sums
// exclude them at query time.
func (s *LedgerService) RecordUsage(ctx context.Context, input RecordUsageInput) (*UsageEventDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "usage_ledger", "record",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, input.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrFeature, string(input.Feature)),
		telemetry.WithAttribute(telemetry.SpanAttrModel, input.Model))
	defer span.End()

	event, err := aiusage.NewUsageEvent(
		input.TenantID, input.Feature, input.CallerID,
		input.Model, input.InputTokens, input.OutputTokens,
		input.Success, s.prices,
	)
	if err != nil {
		return nil, err
	}

	if err := s.usageRepo.Save(ctx, event); err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to append usage event",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("feature", string(input.Feature)),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to record usage")
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrCost, event.Cost.String())
	s.logger.Debug("Usage recorded",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("feature", string(input.Feature)),
		zap.String("model", input.Model),
		zap.String("cost", event.Cost.String()),
		zap.Bool("success", input.Success))

	dto := toUsageEventDTO(event)
	return &dto, nil
}

// Invoke runs one governed AI call: feature switch, rate limit gate, budget
// gate, provider invocation, ledger append, in that order. The gates are
// blocking preconditions; a denied gate returns its typed error and nothing
// is recorded. The attempt is recorded even when the provider fails.
func (s *LedgerService) Invoke(ctx context.Context, input InvokeInput) (*InvokeResultDTO, error) {
	if s.switches != nil {
		disabled, err := s.switches.IsDisabled(ctx, input.TenantID, input.Feature)
		if err != nil {
			// Fail closed, same as the ledger-backed gates.
			s.logger.Error("Failed to read feature switch",
				zap.String("tenant_id", input.TenantID.String()),
				zap.String("feature", string(input.Feature)),
				zap.Error(err))
			return nil, NewLedgerUnavailableError("feature switch check")
		}
		if disabled {
			return nil, NewFeatureDisabledError(input.Feature)
		}
	}

	rateResult, err := s.gate.CheckRateLimit(ctx, input.TenantID, input.CallerID, input.Feature)
	if err != nil {
		return nil, err
	}
	if !rateResult.Allowed {
		return nil, rateResult.Error
	}

	budgetResult, err := s.gate.CheckBudget(ctx, input.TenantID, input.Feature)
	if err != nil {
		return nil, err
	}
	if !budgetResult.Allowed {
		return nil, budgetResult.Error
	}

	result, err := s.provider.Invoke(ctx, input.Model, input.Prompt, input.MaxTokens)
	if err != nil {
		// The attempt happened; it belongs in the ledger as a failure.
		s.logger.Warn("AI provider invocation failed",
			zap.String("model", input.Model),
			zap.Error(err))
		result = &aiusage.InvokeResult{Success: false}
	}

	eventDTO, err := s.RecordUsage(ctx, RecordUsageInput{
		TenantID:     input.TenantID,
		Feature:      input.Feature,
		CallerID:     input.CallerID,
		Model:        input.Model,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Success:      result.Success,
	})
	if err != nil {
		return nil, err
	}

	return &InvokeResultDTO{
		Content: result.Content,
		Success: result.Success,
		Event:   *eventDTO,
	}, nil
}

// GetUsageEvents retrieves ledger entries for a tenant matching the filter
func (s *LedgerService) GetUsageEvents(ctx context.Context, tenantID uuid.UUID, filter aiusage.UsageEventFilter) ([]UsageEventDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	events, err := s.usageRepo.FindByTenant(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("Failed to query usage events", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to query usage events")
	}

	dtos := make([]UsageEventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toUsageEventDTO(event))
	}
	return dtos, nil
}

// GetMonthlySpend summarizes each feature's month-to-date spend, call count
// and failure count
func (s *LedgerService) GetMonthlySpend(ctx context.Context, tenantID uuid.UUID) ([]FeatureSpendDTO, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	now := time.Now().UTC()
	monthStart, _ := aiusage.MonthWindow(now)

	summaries := make([]FeatureSpendDTO, 0, len(aiusage.AllFeatures()))
	for _, feature := range aiusage.AllFeatures() {
		spend, err := s.usageRepo.SumCostByFeature(ctx, tenantID, feature, true, monthStart, now)
		if err != nil {
			s.logger.Error("Failed to sum feature spend",
				zap.String("feature", string(feature)), zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute monthly spend")
		}
		calls, err := s.usageRepo.CountByFeature(ctx, tenantID, feature, monthStart, now)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute monthly spend")
		}
		f := feature
		failures, err := s.usageRepo.CountFailuresByFeature(ctx, tenantID, &f, monthStart, now)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute monthly spend")
		}

		summaries = append(summaries, FeatureSpendDTO{
			Feature:     string(feature),
			DisplayName: feature.DisplayName(),
			Spend:       spend,
			Calls:       calls,
			Failures:    failures,
		})
	}

	return summaries, nil
}

func toUsageEventDTO(event *aiusage.UsageEvent) UsageEventDTO {
	return UsageEventDTO{
		ID:           event.ID,
		Feature:      string(event.Feature),
		CallerID:     event.CallerID,
		Model:        event.Model,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		Cost:         event.Cost,
		Success:      event.Success,
		OccurredAt:   event.OccurredAt,
	}
}
