package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToBidAttempts(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, bidAttemptsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to bid attempt events", "channel", bidAttemptsChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", bidAttemptsChannel)
			}
			event, err := parseEventData(msg.Payload)
			if err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(event); err != nil {
				r.log.Error("Failed to handle event", "event_id", event.ID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

func parseEventData(payload string) (*domain.BidAttemptEvent, error) {
	var event domain.BidAttemptEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.ID == "" || event.Outcome == "" {
		return nil, fmt.Errorf("invalid event format: %s", payload)
	}
	return &event, nil
}
