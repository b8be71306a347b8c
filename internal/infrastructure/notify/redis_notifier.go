package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/propman/backend/internal/domain/automation"
	"github.com/redis/go-redis/v9"
)

// RedisNotificationPublisher implements automation.NotificationPublisher by
// publishing firing payloads on a per-tenant Redis channel. The in-app
// notification center subscribes to these channels.
type RedisNotificationPublisher struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisNotificationPublisher creates a publisher with an existing Redis client
func NewRedisNotificationPublisher(client *redis.Client, keyPrefix string) *RedisNotificationPublisher {
	if keyPrefix == "" {
		keyPrefix = "notifications:"
	}
	return &RedisNotificationPublisher{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// notificationMessage is the wire shape published to subscribers
type notificationMessage struct {
	Channel string                   `json:"channel"`
	Message string                   `json:"message"`
	Firing  automation.FiringPayload `json:"firing"`
}

// SendNotification publishes the firing to the tenant's notification channel
func (p *RedisNotificationPublisher) SendNotification(ctx context.Context, action automation.SendNotificationAction, payload automation.FiringPayload) error {
	body, err := json.Marshal(notificationMessage{
		Channel: action.Channel,
		Message: action.Message,
		Firing:  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	channel := p.keyPrefix + payload.TenantID.String() + ":" + action.Channel
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Ensure RedisNotificationPublisher implements the interface
var _ automation.NotificationPublisher = (*RedisNotificationPublisher)(nil)
