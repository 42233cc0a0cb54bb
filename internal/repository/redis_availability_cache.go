package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/seatledger/seatledger/internal/domain"
	pkgredis "github.com/seatledger/seatledger/pkg/redis"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const availabilityKeyPrefix = "event:availability:"

// RedisAvailabilityCache implements AvailabilityCache on Redis. Entries are
// short-lived and invalidated on every seat adjustment, so a stale read can
// survive at most one TTL window.
type RedisAvailabilityCache struct {
	client *pkgredis.Client
	ttl    time.Duration
}

// NewRedisAvailabilityCache creates a new RedisAvailabilityCache
func NewRedisAvailabilityCache(client *pkgredis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

// Get returns the cached event, reporting a miss without error
func (c *RedisAvailabilityCache) Get(ctx context.Context, eventID string) (*domain.Event, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.get")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	data, err := c.client.Get(ctx, availabilityKeyPrefix+eventID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("cache_hit", false))
			span.SetStatus(codes.Ok, "")
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("failed to read availability cache: %w", err)
	}

	event := &domain.Event{}
	if err := json.Unmarshal(data, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("failed to decode cached availability: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache_hit", true))
	span.SetStatus(codes.Ok, "")
	return event, true, nil
}

// Set caches the event availability snapshot
func (c *RedisAvailabilityCache) Set(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.set")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to encode availability: %w", err)
	}

	if err := c.client.Set(ctx, availabilityKeyPrefix+event.ID, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to write availability cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Invalidate drops the cached snapshot after a seat adjustment
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.invalidate")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if err := c.client.Del(ctx, availabilityKeyPrefix+eventID).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to invalidate availability cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure RedisAvailabilityCache implements AvailabilityCache
var _ AvailabilityCache = (*RedisAvailabilityCache)(nil)
