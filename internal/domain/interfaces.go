package domain

import (
	"context"
	"time"
)

// AuctionAPI is the remote auction service that owns lots, users and bids.
type AuctionAPI interface {
	GetUserStatus(ctx context.Context, telegramID int64) (*User, error)
	RegisterUser(ctx context.Context, req *RegisterUserRequest) (*RegisterUserResponse, error)
	GetActiveLots(ctx context.Context) ([]Lot, error)
	GetLotDetails(ctx context.Context, lotID int, includeBids bool) (*Lot, error)
	GetBrands(ctx context.Context) (*BrandList, error)
	PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResponse, error)
	GetUserBids(ctx context.Context, telegramID int64) ([]Bid, error)
}

// AttemptLimiter throttles gated actions per identity.
type AttemptLimiter interface {
	Check(ctx context.Context, action, identity string, limit RateLimit) error
	Remaining(ctx context.Context, action, identity string, maxAttempts int) (int, error)
	ResetTime(ctx context.Context, action, identity string) (time.Time, bool, error)
	Reset(ctx context.Context, action, identity string) error
}

// Store interfaces
type PreferenceStore interface {
	GetPreferences(ctx context.Context, telegramID int64) (*Preferences, error)
	AddFavorite(ctx context.Context, telegramID int64, lotID int) error
	RemoveFavorite(ctx context.Context, telegramID int64, lotID int) error
	SetFilter(ctx context.Context, telegramID int64, filter FilterState) error
	SaveProfileDraft(ctx context.Context, telegramID int64, draft ProfileDraft) error
}

type LotCache interface {
	// GetSnapshot returns nil without error when nothing has been cached yet.
	GetSnapshot(ctx context.Context) (*LotSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *LotSnapshot) error
	UpdateCurrentBid(ctx context.Context, lotID int, currentBid float64) error
}

type IncrementRuleStore interface {
	LoadRules(ctx context.Context) ([]IncrementRule, error)
}

type BidAttemptRepository interface {
	SaveAttempt(ctx context.Context, event *BidAttemptEvent) error
	ListAttempts(ctx context.Context, telegramID int64, limit int) ([]*BidAttemptEvent, error)
}

// Event interfaces
type EventPublisher interface {
	PublishBidAttempt(ctx context.Context, event *BidAttemptEvent) error
}

type EventSubscriber interface {
	SubscribeToBidAttempts(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *BidAttemptEvent) error

// Notification interfaces
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	SessionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID string, conn WebSocketConnection) error
	UnregisterConnection(userID, sessionID string) error
	GetConnectionsForUser(userID string) []WebSocketConnection
	NotifyUser(userID string, message interface{}) error
	CloseAll() error
}
