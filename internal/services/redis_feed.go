package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"binwatch-backend/internal/events"

	"github.com/redis/go-redis/v9"
)

const latestEventTTL = 7 * 24 * time.Hour

// redisPublisher is the slice of *redis.Client the feed needs.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisFeed publishes every engine event as JSON on a pub/sub channel and
// keeps the most recent event of each type under "<channel>:latest:<type>".
type RedisFeed struct {
	client  redisPublisher
	channel string
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("[REDIS] Connected", "addr", addr, "db", db)
	return client, nil
}

func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	return &RedisFeed{client: client, channel: channel}
}

func (f *RedisFeed) Name() string { return "redis-feed" }

func (f *RedisFeed) Send(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	key := fmt.Sprintf("%s:latest:%s", f.channel, e.Type)
	if err := f.client.Set(ctx, key, data, latestEventTTL).Err(); err != nil {
		return fmt.Errorf("failed to set %s in Redis: %w", key, err)
	}
	return nil
}
