package aiusage

import (
	"fmt"
	"net/http"

	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/shopspring/decimal"
)

// RateLimitExceededError is returned when a caller has exhausted an hourly
// or daily cap. It carries the cap and current usage so the caller can show
// "try again in N minutes".
type RateLimitExceededError struct {
	Feature    aiusage.Feature
	Scope      string // "hourly" or "daily"
	Used       int64
	Limit      int64
	RetryAfter string
	Message    string
}

// Error implements the error interface
func (e *RateLimitExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns 429 Too Many Requests
func (e *RateLimitExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewRateLimitExceededError creates a new RateLimitExceededError
func NewRateLimitExceededError(feature aiusage.Feature, scope string, used, limit int64) *RateLimitExceededError {
	return &RateLimitExceededError{
		Feature: feature,
		Scope:   scope,
		Used:    used,
		Limit:   limit,
		Message: fmt.Sprintf(
			"Rate limit exceeded for %s: %d of %d %s requests used",
			feature.DisplayName(), used, limit, scope,
		),
	}
}

// BudgetExceededError is returned when a feature has exhausted its monthly
// budget. Per-feature, unlike RateLimitExceededError which is per-caller.
type BudgetExceededError struct {
	Feature aiusage.Feature
	Spent   decimal.Decimal
	Budget  decimal.Decimal
	Message string
}

// Error implements the error interface
func (e *BudgetExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns 422 Unprocessable Entity
func (e *BudgetExceededError) HTTPStatusCode() int {
	return http.StatusUnprocessableEntity
}

// NewBudgetExceededError creates a new BudgetExceededError
func NewBudgetExceededError(feature aiusage.Feature, spent, budget decimal.Decimal) *BudgetExceededError {
	return &BudgetExceededError{
		Feature: feature,
		Spent:   spent,
		Budget:  budget,
		Message: fmt.Sprintf(
			"Monthly budget exceeded for %s: %s spent of %s budget",
			feature.DisplayName(), spent.StringFixed(2), budget.StringFixed(2),
		),
	}
}

// FeatureDisabledError is returned when a feature has been switched off for
// the tenant, typically by an automation rule reacting to runaway spend. The
// switch stays until an administrator re-enables the feature.
type FeatureDisabledError struct {
	Feature aiusage.Feature
	Message string
}

// Error implements the error interface
func (e *FeatureDisabledError) Error() string {
	return e.Message
}

// HTTPStatusCode returns 403 Forbidden
func (e *FeatureDisabledError) HTTPStatusCode() int {
	return http.StatusForbidden
}

// NewFeatureDisabledError creates a new FeatureDisabledError
func NewFeatureDisabledError(feature aiusage.Feature) *FeatureDisabledError {
	return &FeatureDisabledError{
		Feature: feature,
		Message: fmt.Sprintf(
			"%s is disabled for this workspace; contact an administrator to re-enable it",
			feature.DisplayName(),
		),
	}
}

// LedgerUnavailableError is returned when a gate check cannot read the usage
// ledger. Gate checks fail closed: an unreadable ledger denies the call.
type LedgerUnavailableError struct {
	Message string
}

// Error implements the error interface
func (e *LedgerUnavailableError) Error() string {
	return e.Message
}

// HTTPStatusCode returns 503 Service Unavailable
func (e *LedgerUnavailableError) HTTPStatusCode() int {
	return http.StatusServiceUnavailable
}

// NewLedgerUnavailableError creates a new LedgerUnavailableError
func NewLedgerUnavailableError(operation string) *LedgerUnavailableError {
	return &LedgerUnavailableError{
		Message: fmt.Sprintf("Usage ledger unavailable during %s; request denied", operation),
	}
}
