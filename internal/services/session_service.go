package services

import (
	"context"
	"errors"
	"fmt"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
)

const defaultLanguage = "es"

type SessionRequest struct {
	TelegramID   int64  `json:"telegram_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Session struct {
	User       *domain.User `json:"user"`
	Registered bool         `json:"registered"`
	CanBid     bool         `json:"can_bid"`
}

// SessionService resolves the webview user, registering unknown users with the
// remote service on first contact.
type SessionService struct {
	api     domain.AuctionAPI
	limiter domain.AttemptLimiter
	limit   domain.RateLimit
	log     logger.Logger
}

func NewSessionService(api domain.AuctionAPI, limiter domain.AttemptLimiter, limits map[string]domain.RateLimit, log logger.Logger) *SessionService {
	limit, ok := limits[domain.ActionRegister]
	if !ok {
		limit = domain.DefaultRateLimits[domain.ActionRegister]
	}
	return &SessionService{api: api, limiter: limiter, limit: limit, log: log}
}

func (s *SessionService) Initialize(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.TelegramID == 0 {
		return nil, domain.ErrMissingIdentity
	}

	user, err := s.api.GetUserStatus(ctx, req.TelegramID)
	if err == nil {
		s.log.Info("User data loaded", "telegram_id", req.TelegramID, "status", user.Status)
		return &Session{User: user, CanBid: user.CanBid()}, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	s.log.Info("User not found, registering", "telegram_id", req.TelegramID)
	if err := s.limiter.Check(ctx, domain.ActionRegister, identityOf(req.TelegramID), s.limit); err != nil {
		return nil, err
	}

	language := req.LanguageCode
	if language == "" {
		language = defaultLanguage
	}
	resp, err := s.api.RegisterUser(ctx, &domain.RegisterUserRequest{
		TelegramID:   req.TelegramID,
		FirstName:    SanitizeText(req.FirstName),
		LastName:     SanitizeText(req.LastName),
		Username:     SanitizeText(req.Username),
		LanguageCode: language,
	})
	if err != nil {
		s.log.Error("Registration failed", "telegram_id", req.TelegramID, "error", err)
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return nil, fmt.Errorf("registration rejected: %s", msg)
	}

	registered := resp.Data.User
	return &Session{User: &registered, Registered: true, CanBid: registered.CanBid()}, nil
}
