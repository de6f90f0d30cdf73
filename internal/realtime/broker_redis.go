package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"slotify/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out across instances over a Redis pub/sub channel
type RedisBroker struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	logger  *logger.Logger
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	return &RedisBroker{
		client:  client,
		channel: channel,
		logger:  logger.GetDefault(),
	}
}

func (r *RedisBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish realtime event to redis: %w", err)
	}
	return nil
}

func (r *RedisBroker) Start(ctx context.Context, deliver func(Event)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)

	// Receive blocks until the subscription is confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to redis channel %s: %w", r.channel, err)
	}
	r.pubsub = pubsub

	go func() {
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn("Dropping malformed realtime event",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()),
				)
				continue
			}
			deliver(event)
		}
	}()

	r.logger.Info("Realtime bus subscribed to redis", slog.String("channel", r.channel))
	return nil
}

func (r *RedisBroker) Close() error {
	if r.pubsub == nil {
		return nil
	}
	return r.pubsub.Close()
}
