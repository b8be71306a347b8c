package aiusage

import (
	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/shared"
)

// Default caps applied when a caller has no explicit policy.
const (
	DefaultMaxPerHour = 60
	DefaultMaxPerDay  = 500
)

// RateLimitPolicy defines per-caller invocation ceilings evaluated over
// trailing wall-clock windows (last hour, last 24 hours). A cap of 0 blocks
// the caller entirely; the cap is an inclusive ceiling on requests already
// made, so used == cap denies the next request.
type RateLimitPolicy struct {
	shared.TenantAggregateRoot
	CallerID   uuid.UUID // Caller this policy applies to
	Feature    *Feature  // Optional feature scope (nil = all features)
	MaxPerHour int
	MaxPerDay  int
}

// NewRateLimitPolicy creates a rate limit policy for a caller
func NewRateLimitPolicy(tenantID, callerID uuid.UUID, maxPerHour, maxPerDay int) (*RateLimitPolicy, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if callerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CALLER", "Caller ID cannot be empty")
	}
	if maxPerHour < 0 || maxPerDay < 0 {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Caps must be non-negative")
	}

	return &RateLimitPolicy{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CallerID:            callerID,
		MaxPerHour:          maxPerHour,
		MaxPerDay:           maxPerDay,
	}, nil
}

// ScopeToFeature restricts the policy to a single feature
func (p *RateLimitPolicy) ScopeToFeature(feature Feature) error {
	if !feature.IsValid() {
		return shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}
	p.Feature = &feature
	return nil
}

// UpdateCaps replaces both caps
func (p *RateLimitPolicy) UpdateCaps(maxPerHour, maxPerDay int) error {
	if maxPerHour < 0 || maxPerDay < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Caps must be non-negative")
	}
	p.MaxPerHour = maxPerHour
	p.MaxPerDay = maxPerDay
	p.IncrementVersion()
	return nil
}

// DefaultRateLimitPolicy returns the caps used when no policy exists for a caller
func DefaultRateLimitPolicy() (maxPerHour, maxPerDay int) {
	return DefaultMaxPerHour, DefaultMaxPerDay
}
