package cache

import (
	"context"
	"fmt"
	"time"

	automationapp "github.com/propman/backend/internal/application/automation"
	"github.com/redis/go-redis/v9"
)

// RedisFiringGuard implements the automation engine's FiringGuard using Redis.
// It is a cheap first gate in distributed deployments: an evaluator that fails
// to set the key skips the rule without touching the database. The database
// compare-and-set remains the authority, so losing the guard (or Redis being
// down) never fires a rule twice.
type RedisFiringGuard struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds connection settings for a standalone guard client.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisFiringGuard creates a new Redis-based firing guard
func NewRedisFiringGuard(cfg RedisConfig) (*RedisFiringGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFiringGuard{
		client:    client,
		keyPrefix: "automation:firing:",
	}, nil
}

// NewRedisFiringGuardWithClient creates a guard with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisFiringGuardWithClient(client *redis.Client, keyPrefix string) *RedisFiringGuard {
	if keyPrefix == "" {
		keyPrefix = "automation:firing:"
	}
	return &RedisFiringGuard{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts to claim a firing slot for the rule. The key lives for the
// rule's cooldown so repeated evaluation passes inside the cooldown skip the
// rule without a database round trip. A zero cooldown uses a short TTL that
// only covers overlapping evaluators.
func (g *RedisFiringGuard) Acquire(ctx context.Context, ruleID string, cooldown time.Duration) (bool, error) {
	ttl := cooldown
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	key := g.keyPrefix + ruleID
	acquired, err := g.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire firing slot: %w", err)
	}
	return acquired, nil
}

// Close closes the Redis client
func (g *RedisFiringGuard) Close() error {
	return g.client.Close()
}

// Ensure RedisFiringGuard implements FiringGuard
var _ automationapp.FiringGuard = (*RedisFiringGuard)(nil)
