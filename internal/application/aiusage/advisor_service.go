package aiusage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QualityImpact grades how much a model substitution is expected to degrade
// output quality
type QualityImpact string

const (
	ImpactNone        QualityImpact = "none"
	ImpactMinimal     QualityImpact = "minimal"
	ImpactSlight      QualityImpact = "slight"
	ImpactModerate    QualityImpact = "moderate"
	ImpactSignificant QualityImpact = "significant"
)

// ImplementationDifficulty grades how much work a substitution takes
type ImplementationDifficulty string

const (
	DifficultyTrivial  ImplementationDifficulty = "trivial"
	DifficultyEasy     ImplementationDifficulty = "easy"
	DifficultyModerate ImplementationDifficulty = "moderate"
	DifficultyHard     ImplementationDifficulty = "hard"
)

// OptimizationRecommendation proposes one cheaper-model substitution. Purely
// advisory: nothing here affects enforcement.
type OptimizationRecommendation struct {
	Feature                  string                   `json:"feature,omitempty"`
	WorkflowID               *uuid.UUID               `json:"workflow_id,omitempty"`
	StepOrder                int                      `json:"step_order,omitempty"`
	CurrentModel             string                   `json:"current_model"`
	SuggestedModel           string                   `json:"suggested_model"`
	CurrentCostPerRun        decimal.Decimal          `json:"current_cost_per_run"`
	OptimizedCostPerRun      decimal.Decimal          `json:"optimized_cost_per_run"`
	PotentialSavingsPercent  decimal.Decimal          `json:"potential_savings_percent"`
	PotentialMonthlySavings  decimal.Decimal          `json:"potential_monthly_savings"`
	ObservedMonthlyRuns      int64                    `json:"observed_monthly_runs"`
	ImpactOnQuality          QualityImpact            `json:"impact_on_quality"`
	ImplementationDifficulty ImplementationDifficulty `json:"implementation_difficulty"`
}

// AdvisorService analyzes historical usage and workflow definitions for
// cheaper-model substitutions. Read-only over the ledger and the price table.
type AdvisorService struct {
	usageRepo    aiusage.UsageEventRepository
	workflowRepo workflow.Repository
	prices       *aiusage.PriceTable
	logger       *zap.Logger
}

// NewAdvisorService creates a new AdvisorService
func NewAdvisorService(
	usageRepo aiusage.UsageEventRepository,
	workflowRepo workflow.Repository,
	prices *aiusage.PriceTable,
	logger *zap.Logger,
) *AdvisorService {
	return &AdvisorService{
		usageRepo:    usageRepo,
		workflowRepo: workflowRepo,
		prices:       prices,
		logger:       logger,
	}
}

// Analyze enumerates cheaper-model substitutions for every (feature, model)
// pair observed in the trailing 30 days, ordered by potential monthly
// savings. Monthly savings scale per-run savings by the observed run count.
func (s *AdvisorService) Analyze(ctx context.Context, tenantID uuid.UUID) ([]OptimizationRecommendation, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	now := time.Now().UTC()
	start, _ := aiusage.TrailingWindow(now, 30*24*time.Hour)

	aggregates, err := s.usageRepo.AggregateByModel(ctx, tenantID, start, now)
	if err != nil {
		s.logger.Error("Failed to aggregate usage by model", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to analyze usage")
	}

	recommendations := make([]OptimizationRecommendation, 0)
	for _, agg := range aggregates {
		if agg.Invocations == 0 {
			continue
		}
		currentPerRun := agg.CostPerRun()
		avgTokens := agg.AverageTokensPerRun()

		for _, candidate := range s.prices.CheaperAlternatives(agg.Model) {
			optimizedPerRun := s.prices.Cost(candidate, avgTokens, 0)
			rec := s.buildRecommendation(agg.Model, candidate, currentPerRun, optimizedPerRun, agg.Invocations)
			rec.Feature = string(agg.Feature)
			recommendations = append(recommendations, rec)
		}
	}

	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].PotentialMonthlySavings.GreaterThan(recommendations[j].PotentialMonthlySavings)
	})
	return recommendations, nil
}

// AnalyzeWorkflow enumerates per-step substitutions for one workflow
// definition. Per-run costs come from the step token ceilings; monthly run
// counts come from the ledger for each step's feature.
func (s *AdvisorService) AnalyzeWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID) ([]OptimizationRecommendation, error) {
	definition, err := s.workflowRepo.FindByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	start, _ := aiusage.TrailingWindow(now, 30*24*time.Hour)

	recommendations := make([]OptimizationRecommendation, 0)
	for _, step := range definition.Steps {
		runs, err := s.usageRepo.CountByFeature(ctx, tenantID, step.Feature, start, now)
		if err != nil {
			s.logger.Error("Failed to count feature runs", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to analyze workflow")
		}

		currentPerRun := s.prices.Cost(step.Model, step.MaxTokens, 0)
		for _, candidate := range s.prices.CheaperAlternatives(step.Model) {
			optimizedPerRun := s.prices.Cost(candidate, step.MaxTokens, 0)
			rec := s.buildRecommendation(step.Model, candidate, currentPerRun, optimizedPerRun, runs)
			rec.WorkflowID = &definition.ID
			rec.StepOrder = step.Order
			rec.Feature = string(step.Feature)
			recommendations = append(recommendations, rec)
		}
	}

	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].PotentialMonthlySavings.GreaterThan(recommendations[j].PotentialMonthlySavings)
	})
	return recommendations, nil
}

func (s *AdvisorService) buildRecommendation(currentModel, suggestedModel string, currentPerRun, optimizedPerRun decimal.Decimal, monthlyRuns int64) OptimizationRecommendation {
	savingsPerRun := currentPerRun.Sub(optimizedPerRun)

	savingsPercent := decimal.Zero
	if currentPerRun.IsPositive() {
		savingsPercent = savingsPerRun.Div(currentPerRun).Mul(decimal.NewFromInt(100)).Round(1)
	}

	priceGap := priceGapRatio(s.prices.PricePer1K(currentModel), s.prices.PricePer1K(suggestedModel))
	sameFamily := aiusage.ModelFamily(currentModel) == aiusage.ModelFamily(suggestedModel)

	return OptimizationRecommendation{
		CurrentModel:             currentModel,
		SuggestedModel:           suggestedModel,
		CurrentCostPerRun:        currentPerRun,
		OptimizedCostPerRun:      optimizedPerRun,
		PotentialSavingsPercent:  savingsPercent,
		PotentialMonthlySavings:  savingsPerRun.Mul(decimal.NewFromInt(monthlyRuns)),
		ObservedMonthlyRuns:      monthlyRuns,
		ImpactOnQuality:          classifyQualityImpact(sameFamily, priceGap),
		ImplementationDifficulty: classifyDifficulty(sameFamily, priceGap),
	}
}

// priceGapRatio returns how far the candidate price sits below the current
// price, as a fraction of the current price
func priceGapRatio(current, candidate decimal.Decimal) float64 {
	if !current.IsPositive() {
		return 0
	}
	gap, _ := current.Sub(candidate).Div(current).Float64()
	return gap
}

// classifyQualityImpact grades expected quality loss. Staying within a model
// family is gentler than crossing families; a wide price gap usually means a
// much weaker model.
func classifyQualityImpact(sameFamily bool, priceGap float64) QualityImpact {
	if sameFamily {
		switch {
		case priceGap < 0.2:
			return ImpactNone
		case priceGap < 0.5:
			return ImpactMinimal
		case priceGap < 0.8:
			return ImpactSlight
		default:
			return ImpactModerate
		}
	}
	switch {
	case priceGap < 0.2:
		return ImpactMinimal
	case priceGap < 0.5:
		return ImpactSlight
	case priceGap < 0.8:
		return ImpactModerate
	default:
		return ImpactSignificant
	}
}

// classifyDifficulty grades the work a substitution takes. Same-family swaps
// are config changes; cross-family swaps need prompt rework, more so for
// large capability gaps.
func classifyDifficulty(sameFamily bool, priceGap float64) ImplementationDifficulty {
	if sameFamily {
		if priceGap < 0.8 {
			return DifficultyTrivial
		}
		return DifficultyEasy
	}
	if priceGap < 0.8 {
		return DifficultyModerate
	}
	return DifficultyHard
}
