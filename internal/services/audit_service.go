package services

import (
	"context"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
)

const (
	defaultAttemptPage = 50
	maxAttemptPage     = 500
)

// AuditService persists every bid attempt published by the gateways.
type AuditService struct {
	subscriber domain.EventSubscriber
	repo       domain.BidAttemptRepository
	log        logger.Logger
}

func NewAuditService(subscriber domain.EventSubscriber, repo domain.BidAttemptRepository, log logger.Logger) *AuditService {
	return &AuditService{
		subscriber: subscriber,
		repo:       repo,
		log:        log,
	}
}

func (as *AuditService) Start(ctx context.Context) error {
	as.log.Info("Starting audit service")

	return as.subscriber.SubscribeToBidAttempts(ctx, func(event *domain.BidAttemptEvent) error {
		as.log.Info("Storing bid attempt", "attempt_id", event.ID, "lot_id", event.LotID,
			"telegram_id", event.TelegramID, "outcome", event.Outcome)
		return as.repo.SaveAttempt(ctx, event)
	})
}

// Attempts lists a bidder's most recent attempts, newest first.
func (as *AuditService) Attempts(ctx context.Context, telegramID int64, limit int) ([]*domain.BidAttemptEvent, error) {
	if telegramID == 0 {
		return nil, domain.ErrMissingIdentity
	}
	if limit <= 0 {
		limit = defaultAttemptPage
	}
	if limit > maxAttemptPage {
		limit = maxAttemptPage
	}
	return as.repo.ListAttempts(ctx, telegramID, limit)
}
