package automation

import (
	"encoding/json"
	"strings"

	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
)

// ActionType identifies what a rule does when it fires
type ActionType string

const (
	ActionSendEmail        ActionType = "send_email"
	ActionSendNotification ActionType = "send_notification"
	ActionCreateTask       ActionType = "create_task"
	ActionWebhook          ActionType = "webhook"
	ActionDisableFeature   ActionType = "disable_feature"
)

// IsValid checks if the action type is recognized
func (a ActionType) IsValid() bool {
	switch a {
	case ActionSendEmail, ActionSendNotification, ActionCreateTask,
		ActionWebhook, ActionDisableFeature:
		return true
	}
	return false
}

// SendEmailAction delivers an email to the configured recipients
type SendEmailAction struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
}

// SendNotificationAction posts an in-app notification to a channel
type SendNotificationAction struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// CreateTaskAction opens a task in the task system
type CreateTaskAction struct {
	Title      string `json:"title"`
	AssigneeID string `json:"assignee_id,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// WebhookAction posts the firing payload to an external endpoint
type WebhookAction struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

// DisableFeatureAction flips the feature-disable flag for a feature
type DisableFeatureAction struct {
	Feature aiusage.Feature `json:"feature"`
}

// ActionConfig is a tagged union over the action variants. Exactly one
// variant is set, matching the rule's ActionType.
type ActionConfig struct {
	SendEmail        *SendEmailAction        `json:"send_email,omitempty"`
	SendNotification *SendNotificationAction `json:"send_notification,omitempty"`
	CreateTask       *CreateTaskAction       `json:"create_task,omitempty"`
	Webhook          *WebhookAction          `json:"webhook,omitempty"`
	DisableFeature   *DisableFeatureAction   `json:"disable_feature,omitempty"`
}

// Variant returns the populated variant, or nil when none is set. Marshalling
// the variant yields the same shape ParseActionConfig accepts.
func (c ActionConfig) Variant() any {
	switch {
	case c.SendEmail != nil:
		return c.SendEmail
	case c.SendNotification != nil:
		return c.SendNotification
	case c.CreateTask != nil:
		return c.CreateTask
	case c.Webhook != nil:
		return c.Webhook
	case c.DisableFeature != nil:
		return c.DisableFeature
	}
	return nil
}

// ParseActionConfig decodes and validates raw action parameters for the
// given action type
func ParseActionConfig(actionType ActionType, raw json.RawMessage) (ActionConfig, error) {
	var config ActionConfig

	switch actionType {
	case ActionSendEmail:
		var a SendEmailAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Malformed email parameters")
		}
		if len(a.Recipients) == 0 {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Email action requires at least one recipient")
		}
		config.SendEmail = &a

	case ActionSendNotification:
		var a SendNotificationAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Malformed notification parameters")
		}
		if a.Channel == "" {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Notification action requires a channel")
		}
		config.SendNotification = &a

	case ActionCreateTask:
		var a CreateTaskAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Malformed task parameters")
		}
		if a.Title == "" {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Task action requires a title")
		}
		config.CreateTask = &a

	case ActionWebhook:
		var a WebhookAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Malformed webhook parameters")
		}
		if !strings.HasPrefix(a.URL, "http://") && !strings.HasPrefix(a.URL, "https://") {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Webhook URL must be an HTTP or HTTPS endpoint")
		}
		config.Webhook = &a

	case ActionDisableFeature:
		var a DisableFeatureAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Malformed disable parameters")
		}
		if !a.Feature.IsValid() {
			return config, shared.NewDomainError("INVALID_ACTION_CONFIG", "Disable action requires a valid feature")
		}
		config.DisableFeature = &a

	default:
		return config, shared.NewDomainError("INVALID_ACTION_TYPE", "Unknown action type")
	}

	return config, nil
}
