package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Default evaluation window for trailing-window triggers (error_rate,
// feature_usage, cost_spike current period). The baseline for cost_spike is
// the preceding 24 hours scaled down to one window.
const (
	DefaultEvaluationWindow = time.Hour
	baselineWindow          = 24 * time.Hour
)

// FiringGuard suppresses duplicate firings across engine instances before
// the database claim runs. The claim remains authoritative; a guard is an
// optimization, so a nil guard is valid.
type FiringGuard interface {
	Acquire(ctx context.Context, ruleID string, cooldown time.Duration) (bool, error)
}

// ActionSinks bundles the external collaborators actions are delegated to
type ActionSinks struct {
	Email    automation.EmailSender
	Notify   automation.NotificationPublisher
	Tasks    automation.TaskCreator
	Webhooks automation.WebhookSender
	Disabler automation.FeatureDisabler
}

// PassStats summarizes one evaluation pass
type PassStats struct {
	Evaluated int
	Skipped   int
	Fired     int
	Errors    int
}

// Engine evaluates every armed automation rule against freshly aggregated
// ledger data. Rule firing follows trigger check, claim, action, in that
// order: the compare-and-set claim is what guarantees a continuously-true
// trigger fires at most once per cooldown window, even with concurrent
// evaluation passes. Actions are fire-and-forget; delivery failure is logged
// and never retried, because a retry outside the claim would break the
// cooldown contract.
type Engine struct {
	ruleRepo   automation.Repository
	usageRepo  aiusage.UsageEventRepository
	budgetRepo aiusage.FeatureBudgetRepository
	classifier automation.Classifier
	sinks      ActionSinks
	guard      FiringGuard
	window     time.Duration
	logger     *zap.Logger
}

// NewEngine creates a new rule evaluation engine
func NewEngine(
	ruleRepo automation.Repository,
	usageRepo aiusage.UsageEventRepository,
	budgetRepo aiusage.FeatureBudgetRepository,
	classifier automation.Classifier,
	sinks ActionSinks,
	guard FiringGuard,
	window time.Duration,
	logger *zap.Logger,
) *Engine {
	if window <= 0 {
		window = DefaultEvaluationWindow
	}
	return &Engine{
		ruleRepo:   ruleRepo,
		usageRepo:  usageRepo,
		budgetRepo: budgetRepo,
		classifier: classifier,
		sinks:      sinks,
		guard:      guard,
		window:     window,
		logger:     logger,
	}
}

// EvaluatePass runs one evaluation tick over every active rule. A rule whose
// aggregates cannot be read is skipped and retried on the next tick; no
// backoff state is kept.
func (e *Engine) EvaluatePass(ctx context.Context) PassStats {
	stats := PassStats{}

	rules, err := e.ruleRepo.FindActive(ctx)
	if err != nil {
		e.logger.Error("Failed to load active rules, skipping pass", zap.Error(err))
		stats.Errors++
		return stats
	}

	now := time.Now().UTC()
	for _, rule := range rules {
		if rule.State(now) != automation.StateArmed {
			stats.Skipped++
			continue
		}
		stats.Evaluated++

		triggered, reason, err := e.evaluateTrigger(ctx, rule, now)
		if err != nil {
			e.logger.Warn("Trigger evaluation failed, retrying next tick",
				zap.String("rule_id", rule.ID.String()),
				zap.String("trigger_type", string(rule.TriggerType)),
				zap.Error(err))
			stats.Errors++
			continue
		}
		if !triggered {
			continue
		}

		if e.fireRule(ctx, rule, reason, now) {
			stats.Fired++
		}
	}

	e.logger.Debug("Rule evaluation pass complete",
		zap.Int("evaluated", stats.Evaluated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("fired", stats.Fired),
		zap.Int("errors", stats.Errors))
	return stats
}

// fireRule claims the firing and executes the action. Returns true when this
// pass won the claim.
func (e *Engine) fireRule(ctx context.Context, rule *automation.AutomationRule, reason string, now time.Time) bool {
	if e.guard != nil {
		acquired, err := e.guard.Acquire(ctx, rule.ID.String(), rule.Cooldown())
		if err != nil {
			e.logger.Warn("Firing guard unavailable, falling through to claim",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err))
		} else if !acquired {
			return false
		}
	}

	claimed, err := e.ruleRepo.ClaimFiring(ctx, rule.ID, rule.LastExecution, now)
	if err != nil {
		e.logger.Error("Failed to claim rule firing",
			zap.String("rule_id", rule.ID.String()),
			zap.Error(err))
		return false
	}
	if !claimed {
		// Another evaluator fired this rule between our read and the claim.
		return false
	}
	rule.MarkFired(now)

	e.logger.Info("Automation rule fired",
		zap.String("tenant_id", rule.TenantID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.String("rule_name", rule.Name),
		zap.String("trigger_type", string(rule.TriggerType)),
		zap.String("reason", reason))

	payload := automation.FiringPayload{
		TenantID:    rule.TenantID,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		TriggerType: rule.TriggerType,
		Reason:      reason,
		FiredAt:     now,
	}
	if err := e.executeAction(ctx, rule, payload); err != nil {
		// The action was attempted, which is what the cooldown contract
		// cares about. Log and move on.
		e.logger.Error("Action delivery failed",
			zap.String("rule_id", rule.ID.String()),
			zap.String("action_type", string(rule.ActionType)),
			zap.Error(err))
	}
	return true
}

func (e *Engine) evaluateTrigger(ctx context.Context, rule *automation.AutomationRule, now time.Time) (bool, string, error) {
	switch rule.TriggerType {
	case automation.TriggerBudgetThreshold:
		return e.evaluateBudgetThreshold(ctx, rule, now)
	case automation.TriggerCostSpike:
		return e.evaluateCostSpike(ctx, rule, now)
	case automation.TriggerErrorRate:
		return e.evaluateErrorRate(ctx, rule, now)
	case automation.TriggerFeatureUsage:
		return e.evaluateFeatureUsage(ctx, rule, now)
	case automation.TriggerAIClassification:
		return e.evaluateClassification(ctx, rule, now)
	default:
		return false, "", fmt.Errorf("unknown trigger type %q", rule.TriggerType)
	}
}

func (e *Engine) evaluateBudgetThreshold(ctx context.Context, rule *automation.AutomationRule, now time.Time) (bool, string, error) {
	config := rule.Trigger.BudgetThreshold
	if config == nil {
		return false, "", fmt.Errorf("budget threshold config missing")
	}

	budget, err := e.budgetRepo.FindByTenantAndFeature(ctx, rule.TenantID, config.Feature)
	if err == shared.ErrNotFound {
		// No budget configured means no threshold to cross.
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	if budget.IsUnlimited() {
		return false, "", nil
	}

	monthStart, _ := aiusage.MonthWindow(now)
	spent, err := e.usageRepo.SumCostByFeature(ctx, rule.TenantID, config.Feature, true, monthStart, now)
	if err != nil {
		return false, "", err
	}

	ratio, _ := spent.Div(budget.MonthlyBudget).Mul(decimal.NewFromInt(100)).Float64()
	if ratio >= config.ThresholdPercent {
		reason := fmt.Sprintf("%s spend at %.1f%% of monthly budget (%s of %s)",
			config.Feature.DisplayName(), ratio, spent.StringFixed(2), budget.MonthlyBudget.StringFixed(2))
		return true, reason, nil
	}
	return false, "", nil
}

func (e *Engine) evaluateCostSpike(ctx context.Context, rule *automation.AutomationRule, now time.Time) (bool, string, error) {
	config := rule.Trigger.CostSpike
	if config == nil {
		return false, "", fmt.Errorf("cost spike config missing")
	}

	windowStart, _ := aiusage.TrailingWindow(now, e.window)
	current, err := e.usageRepo.SumCostByFeature(ctx, rule.TenantID, config.Feature, false, windowStart, now)
	if err != nil {
		return false, "", err
	}

	baselineStart, _ := aiusage.TrailingWindow(windowStart, baselineWindow)
	baselineTotal, err := e.usageRepo.SumCostByFeature(ctx, rule.TenantID, config.Feature, false, baselineStart, windowStart)
	if err != nil {
		return false, "", err
	}

	// Baseline is the preceding 24 hours scaled to one evaluation window. A
	// zero baseline never spikes; a tenant's first hour of usage is not an
	// anomaly.
	scale := decimal.NewFromFloat(baselineWindow.Hours() / e.window.Hours())
	baseline := baselineTotal.Div(scale)
	if !baseline.IsPositive() {
		return false, "", nil
	}

	threshold := baseline.Mul(decimal.NewFromFloat(config.Multiplier))
	if current.GreaterThan(threshold) {
		reason := fmt.Sprintf("%s cost %s exceeds %.1fx trailing baseline %s",
			config.Feature.DisplayName(), current.StringFixed(4), config.Multiplier, baseline.StringFixed(4))
		return true, reason, nil
	}
	return false, "", nil
}

func (e *Engine) evaluateErrorRate(ctx context.Context, rule *automation.AutomationRule, now time.Time) (bool, string, error) {
	config := rule.Trigger.ErrorRate
	if config == nil {
		return false, "", fmt.Errorf("error rate config missing")
	}

	windowStart, _ := aiusage.TrailingWindow(now, e.window)
	total, err := e.usageRepo.CountByFeature(ctx, rule.TenantID, config.Feature, windowStart, now)
	if err != nil {
		return false, "", err
	}
	if total == 0 || total < config.MinCalls {
		return false, "", nil
	}

	feature := config.Feature
	failures, err := e.usageRepo.CountFailuresByFeature(ctx, rule.TenantID, &feature, windowStart, now)
	if err != nil {
		return false, "", err
	}

	rate := float64(failures) / float64(total)
	if rate > config.Threshold {
		reason := fmt.Sprintf("%s error rate %.1f%% over %d calls exceeds %.1f%%",
			config.Feature.DisplayName(), rate*100, total, config.Threshold*100)
		return true, reason, nil
	}
	return false, "", nil
}

func (e *Engine) evaluateFeatureUsage(ctx context.Context, rule *automation.AutomationRule, now time.Time) (bool, string, error) {
	config := rule.Trigger.FeatureUsage
	if config == nil {
		return false, "", fmt.Errorf("feature usage config missing")
	}

	windowStart, _ := aiusage.TrailingWindow(now, e.window)
	count, err := e.usageRepo.CountByFeature(ctx, rule.TenantID, config.Feature, windowStart, now)
	if err != nil {
		return false, "", err
	}

	if count > config.MaxCalls {
		reason := fmt.Sprintf("%s received %d calls in the last %s, above %d",
			config.Feature.DisplayName(), count, e.window, config.MaxCalls)
		return true, reason, nil
	}
	return false, "", nil
}

func (e *Engine) evaluateClassification(ctx context.Context, rule *automation.AutomationRule, now time.Time) (bool, string, error) {
	config := rule.Trigger.AIClassification
	if config == nil {
		return false, "", fmt.Errorf("classification config missing")
	}
	if e.classifier == nil {
		return false, "", fmt.Errorf("no classifier configured")
	}

	snapshot, err := e.buildSnapshot(ctx, rule, now)
	if err != nil {
		return false, "", err
	}

	triggered, err := e.classifier.Classify(ctx, config.Condition, snapshot)
	if err != nil {
		return false, "", err
	}
	if triggered {
		return true, fmt.Sprintf("classifier matched condition %q", config.Condition), nil
	}
	return false, "", nil
}

func (e *Engine) buildSnapshot(ctx context.Context, rule *automation.AutomationRule, now time.Time) (automation.MetricsSnapshot, error) {
	windowStart, _ := aiusage.TrailingWindow(now, e.window)
	snapshot := automation.MetricsSnapshot{
		TenantID:      rule.TenantID,
		WindowStart:   windowStart,
		WindowEnd:     now,
		CostByFeature: make(map[string]string),
		CallCounts:    make(map[string]int64),
		ErrorRates:    make(map[string]float64),
	}

	for _, feature := range aiusage.AllFeatures() {
		cost, err := e.usageRepo.SumCostByFeature(ctx, rule.TenantID, feature, false, windowStart, now)
		if err != nil {
			return snapshot, err
		}
		count, err := e.usageRepo.CountByFeature(ctx, rule.TenantID, feature, windowStart, now)
		if err != nil {
			return snapshot, err
		}
		f := feature
		failures, err := e.usageRepo.CountFailuresByFeature(ctx, rule.TenantID, &f, windowStart, now)
		if err != nil {
			return snapshot, err
		}

		snapshot.CostByFeature[string(feature)] = cost.String()
		snapshot.CallCounts[string(feature)] = count
		if count > 0 {
			snapshot.ErrorRates[string(feature)] = float64(failures) / float64(count)
		}
	}
	return snapshot, nil
}

func (e *Engine) executeAction(ctx context.Context, rule *automation.AutomationRule, payload automation.FiringPayload) error {
	switch rule.ActionType {
	case automation.ActionSendEmail:
		if rule.Action.SendEmail == nil || e.sinks.Email == nil {
			return fmt.Errorf("email action not configured")
		}
		return e.sinks.Email.SendEmail(ctx, *rule.Action.SendEmail, payload)

	case automation.ActionSendNotification:
		if rule.Action.SendNotification == nil || e.sinks.Notify == nil {
			return fmt.Errorf("notification action not configured")
		}
		return e.sinks.Notify.SendNotification(ctx, *rule.Action.SendNotification, payload)

	case automation.ActionCreateTask:
		if rule.Action.CreateTask == nil || e.sinks.Tasks == nil {
			return fmt.Errorf("task action not configured")
		}
		return e.sinks.Tasks.CreateTask(ctx, *rule.Action.CreateTask, payload)

	case automation.ActionWebhook:
		if rule.Action.Webhook == nil || e.sinks.Webhooks == nil {
			return fmt.Errorf("webhook action not configured")
		}
		return e.sinks.Webhooks.SendWebhook(ctx, *rule.Action.Webhook, payload)

	case automation.ActionDisableFeature:
		if rule.Action.DisableFeature == nil || e.sinks.Disabler == nil {
			return fmt.Errorf("disable action not configured")
		}
		return e.sinks.Disabler.DisableFeature(ctx, rule.TenantID, rule.Action.DisableFeature.Feature)

	default:
		return fmt.Errorf("unknown action type %q", rule.ActionType)
	}
}
