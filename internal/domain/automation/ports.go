package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
)

// FiringPayload describes a rule firing to the action sinks
type FiringPayload struct {
	TenantID    uuid.UUID   `json:"tenant_id"`
	RuleID      uuid.UUID   `json:"rule_id"`
	RuleName    string      `json:"rule_name"`
	TriggerType TriggerType `json:"trigger_type"`
	Reason      string      `json:"reason"`
	FiredAt     time.Time   `json:"fired_at"`
}

// EmailSender delivers email alerts. Fire-and-forget: failures are logged
// by the caller, never retried.
type EmailSender interface {
	SendEmail(ctx context.Context, action SendEmailAction, payload FiringPayload) error
}

// NotificationPublisher posts in-app notifications
type NotificationPublisher interface {
	SendNotification(ctx context.Context, action SendNotificationAction, payload FiringPayload) error
}

// TaskCreator opens tasks in the tenant's task system
type TaskCreator interface {
	CreateTask(ctx context.Context, action CreateTaskAction, payload FiringPayload) error
}

// WebhookSender posts firing payloads to external endpoints
type WebhookSender interface {
	SendWebhook(ctx context.Context, action WebhookAction, payload FiringPayload) error
}

// FeatureDisabler flips the feature-disable flag for a tenant
type FeatureDisabler interface {
	DisableFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature) error
}

// Classifier answers semantic trigger conditions that numeric aggregates
// cannot express
type Classifier interface {
	Classify(ctx context.Context, condition string, snapshot MetricsSnapshot) (bool, error)
}

// MetricsSnapshot is the aggregate context handed to the classifier
type MetricsSnapshot struct {
	TenantID      uuid.UUID          `json:"tenant_id"`
	WindowStart   time.Time          `json:"window_start"`
	WindowEnd     time.Time          `json:"window_end"`
	CostByFeature map[string]string  `json:"cost_by_feature"`
	CallCounts    map[string]int64   `json:"call_counts"`
	ErrorRates    map[string]float64 `json:"error_rates"`
}
