package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
	"auction-bidgate/pkg/utils"

	"github.com/shopspring/decimal"
)

// AttemptRecorder counts submission outcomes; *obs.Metrics implements it.
type AttemptRecorder interface {
	BidAttempt(outcome domain.BidAttemptOutcome)
	Limited(action string)
}

type nopRecorder struct{}

func (nopRecorder) BidAttempt(domain.BidAttemptOutcome) {}
func (nopRecorder) Limited(string)                      {}

// PlaceBidCommand carries either a parsed Amount or the RawAmount as typed.
type PlaceBidCommand struct {
	LotID      int
	TelegramID int64
	Amount     decimal.NullDecimal
	RawAmount  string
	InitData   string
}

type PlaceBidResult struct {
	Response *domain.PlaceBidResponse
	Event    *domain.BidAttemptEvent
	History  []domain.Bid
}

// BidService runs a bid through the local gates before it reaches the
// remote auction service and reports every outcome on the event bus.
type BidService struct {
	api       domain.AuctionAPI
	lots      domain.LotCache
	schedule  *IncrementSchedule
	validator *BidValidator
	limiter   domain.AttemptLimiter
	limit     domain.RateLimit
	publisher domain.EventPublisher
	recorder  AttemptRecorder
	now       func() time.Time
	log       logger.Logger
}

func NewBidService(
	api domain.AuctionAPI,
	lots domain.LotCache,
	schedule *IncrementSchedule,
	validator *BidValidator,
	limiter domain.AttemptLimiter,
	limits map[string]domain.RateLimit,
	publisher domain.EventPublisher,
	recorder AttemptRecorder,
	log logger.Logger,
) *BidService {
	limit, ok := limits[domain.ActionPlaceBid]
	if !ok {
		limit = domain.DefaultRateLimits[domain.ActionPlaceBid]
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &BidService{
		api:       api,
		lots:      lots,
		schedule:  schedule,
		validator: validator,
		limiter:   limiter,
		limit:     limit,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
		log:       log,
	}
}

func (s *BidService) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*PlaceBidResult, error) {
	amount := cmd.Amount
	if !amount.Valid {
		amount = ParseAmount(cmd.RawAmount)
	}
	event := &domain.BidAttemptEvent{
		ID:         utils.GenerateID("attempt"),
		LotID:      cmd.LotID,
		TelegramID: cmd.TelegramID,
	}
	if amount.Valid {
		event.Amount = amount.Decimal.InexactFloat64()
	}
	s.log.Info("Placing bid", "lot_id", cmd.LotID, "telegram_id", cmd.TelegramID,
		"amount", amount.Decimal.String(), "raw_amount", cmd.RawAmount)

	result, err := s.placeBid(ctx, cmd, amount, event)
	s.finish(ctx, event)
	if result != nil {
		result.Event = event
	}
	return result, err
}

func (s *BidService) placeBid(ctx context.Context, cmd PlaceBidCommand, amount decimal.NullDecimal, event *domain.BidAttemptEvent) (*PlaceBidResult, error) {
	if cmd.TelegramID == 0 && cmd.InitData == "" {
		event.Outcome = domain.AttemptFailed
		event.Reason = domain.ErrMissingIdentity.Error()
		return nil, domain.ErrMissingIdentity
	}

	if cmd.TelegramID != 0 {
		user, err := s.api.GetUserStatus(ctx, cmd.TelegramID)
		if err != nil {
			event.Outcome = domain.AttemptFailed
			event.Reason = err.Error()
			return nil, err
		}
		if !user.CanBid() {
			event.Outcome = domain.AttemptNotApproved
			event.Reason = string(user.Status)
			return nil, domain.ErrUserNotApproved
		}
	}

	lot, err := s.resolveLot(ctx, cmd.LotID)
	if err != nil {
		event.Outcome = domain.AttemptFailed
		event.Reason = err.Error()
		return nil, err
	}
	event.CurrentBid = lot.CurrentBid

	minimum := s.schedule.MinimumBid(lot)
	outcome := s.validator.Validate(amount, minimum)
	if !outcome.Accepted {
		event.Outcome = domain.AttemptRejected
		event.Reason = outcome.Reason.String()
		event.MinimumRequired = outcome.MinimumRequired.InexactFloat64()
		return nil, &domain.BidRejectedError{Outcome: outcome, Message: OutcomeMessage(outcome)}
	}

	if err := s.limiter.Check(ctx, domain.ActionPlaceBid, identityOf(cmd.TelegramID), s.limit); err != nil {
		event.Outcome = domain.AttemptRateLimited
		event.Reason = err.Error()
		s.recorder.Limited(domain.ActionPlaceBid)
		return nil, err
	}

	resp, err := s.api.PlaceBid(ctx, &domain.PlaceBidRequest{
		LotID:      cmd.LotID,
		Amount:     amount.Decimal.InexactFloat64(),
		TelegramID: cmd.TelegramID,
		InitData:   cmd.InitData,
	})
	if err != nil {
		var remote *domain.ServerRateLimitError
		if errors.As(err, &remote) {
			event.Outcome = domain.AttemptRateLimited
		} else {
			event.Outcome = domain.AttemptFailed
		}
		event.Reason = err.Error()
		return nil, err
	}
	if !resp.Success {
		event.Outcome = domain.AttemptFailed
		event.Reason = resp.Message
		return &PlaceBidResult{Response: resp}, fmt.Errorf("%w: %s", domain.ErrBidDeclined, resp.Message)
	}

	event.Outcome = domain.AttemptAccepted
	newBid := resp.CurrentBid
	if newBid <= 0 {
		newBid = amount.Decimal.InexactFloat64()
	}
	event.CurrentBid = newBid
	if err := s.lots.UpdateCurrentBid(ctx, cmd.LotID, newBid); err != nil {
		s.log.Warn("Failed to update cached lot", "lot_id", cmd.LotID, "error", err)
	}

	result := &PlaceBidResult{Response: resp}
	if cmd.TelegramID != 0 {
		history, err := s.api.GetUserBids(ctx, cmd.TelegramID)
		if err != nil {
			s.log.Warn("Failed to refresh bidding history", "telegram_id", cmd.TelegramID, "error", err)
		} else {
			result.History = history
		}
	}
	return result, nil
}

// resolveLot prefers the shared snapshot and falls back to the remote service.
func (s *BidService) resolveLot(ctx context.Context, lotID int) (*domain.Lot, error) {
	snapshot, err := s.lots.GetSnapshot(ctx)
	if err != nil {
		s.log.Warn("Lot cache unavailable", "error", err)
	}
	if snapshot != nil {
		for i := range snapshot.Lots {
			if snapshot.Lots[i].ID == lotID {
				lot := snapshot.Lots[i]
				return &lot, nil
			}
		}
	}
	return s.api.GetLotDetails(ctx, lotID, false)
}

func (s *BidService) finish(ctx context.Context, event *domain.BidAttemptEvent) {
	event.Timestamp = s.now()
	s.recorder.BidAttempt(event.Outcome)

	if err := s.publisher.PublishBidAttempt(ctx, event); err != nil {
		s.log.Error("Failed to publish bid attempt", "attempt_id", event.ID, "error", err)
	}
}

// identityOf maps a missing telegram id to the limiter's anonymous bucket.
func identityOf(telegramID int64) string {
	if telegramID == 0 {
		return ""
	}
	return strconv.FormatInt(telegramID, 10)
}
