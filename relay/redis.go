// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/livepoll/metrics"
)

// Redis relays votes over Redis PUBLISH/SUBSCRIBE.
type Redis struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL, channel string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisFromClient(client, channel, logger), nil
}

func NewRedisFromClient(client *redis.Client, channel string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel, logger: logger}
}

func (r *Redis) Publish(ctx context.Context, pollID string) error {
	if err := r.client.Publish(ctx, r.channel, pollID).Err(); err != nil {
		return fmt.Errorf("failed to publish vote: %w", err)
	}
	metrics.RelayMessages.WithLabelValues("redis", "out").Inc()
	return nil
}

func (r *Redis) Listen(ctx context.Context, fn Handler) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription confirmation so errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("listening for votes", "relay", "redis", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			metrics.RelayMessages.WithLabelValues("redis", "in").Inc()
			fn(msg.Payload)
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
