package services

import (
	"context"
	"strconv"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"

	"github.com/shopspring/decimal"
)

// BidOutcomeMessage is pushed to the bidder's open sessions.
type BidOutcomeMessage struct {
	Type            string                   `json:"type"`
	AttemptID       string                   `json:"attempt_id"`
	LotID           int                      `json:"lot_id"`
	Outcome         domain.BidAttemptOutcome `json:"outcome"`
	Amount          float64                  `json:"amount"`
	CurrentBid      float64                  `json:"current_bid,omitempty"`
	MinimumRequired float64                  `json:"minimum_required,omitempty"`
	Message         string                   `json:"message"`
	Timestamp       time.Time                `json:"timestamp"`
}

// EventListener forwards bid attempt events from the bus to the bidder.
type EventListener struct {
	notifier domain.UserNotifier
	log      logger.Logger
}

func NewEventListener(notifier domain.UserNotifier, log logger.Logger) *EventListener {
	return &EventListener{
		notifier: notifier,
		log:      log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToBidAttempts(ctx, func(event *domain.BidAttemptEvent) error {
		return el.handleBidAttempt(ctx, event)
	})
}

func (el *EventListener) handleBidAttempt(ctx context.Context, event *domain.BidAttemptEvent) error {
	el.log.Debug("Handling bid attempt", "attempt_id", event.ID, "outcome", event.Outcome, "lot_id", event.LotID)
	if event.TelegramID == 0 {
		return nil
	}

	return el.notifier.NotifyUser(ctx, strconv.FormatInt(event.TelegramID, 10), BidOutcomeMessage{
		Type:            "bid_outcome",
		AttemptID:       event.ID,
		LotID:           event.LotID,
		Outcome:         event.Outcome,
		Amount:          event.Amount,
		CurrentBid:      event.CurrentBid,
		MinimumRequired: event.MinimumRequired,
		Message:         outcomeText(event),
		Timestamp:       event.Timestamp,
	})
}

func outcomeText(event *domain.BidAttemptEvent) string {
	switch event.Outcome {
	case domain.AttemptAccepted:
		return "bid placed at " + FormatCurrency(decimal.NewFromFloat(event.Amount))
	case domain.AttemptRejected:
		if event.MinimumRequired > 0 {
			return "the minimum bid is " + FormatCurrency(decimal.NewFromFloat(event.MinimumRequired))
		}
		return "invalid amount"
	case domain.AttemptRateLimited:
		return "too many attempts, try again later"
	case domain.AttemptNotApproved:
		return "your account is pending approval"
	default:
		return "the bid could not be placed"
	}
}
