package redis

import (
	"context"
	"encoding/json"

	"auction-bidgate/internal/domain"

	"github.com/go-redis/redis/v8"
)

const bidAttemptsChannel = "bid_attempts"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishBidAttempt(ctx context.Context, event *domain.BidAttemptEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, bidAttemptsChannel, string(data)).Err()
}
