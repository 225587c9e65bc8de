package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
)

func TestSessionService_KnownUser(t *testing.T) {
	api := newFakeAPI()
	api.users[42] = &domain.User{TelegramID: 42, Status: domain.UserApproved}
	svc := NewSessionService(api, NewRateLimiter(), domain.DefaultRateLimits, logger.NewNop())

	session, err := svc.Initialize(context.Background(), SessionRequest{TelegramID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Registered || !session.CanBid {
		t.Fatalf("unexpected session %+v", session)
	}
	if len(api.registered) != 0 {
		t.Fatalf("known user must not be registered again")
	}
}

func TestSessionService_RegistersUnknownUser(t *testing.T) {
	api := newFakeAPI()
	svc := NewSessionService(api, NewRateLimiter(), domain.DefaultRateLimits, logger.NewNop())

	session, err := svc.Initialize(context.Background(), SessionRequest{TelegramID: 9, FirstName: "<Omar>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.Registered || session.CanBid || session.User.Status != domain.UserPending {
		t.Fatalf("unexpected session %+v", session)
	}
	if got := api.registered[0]; got.LanguageCode != "es" || got.FirstName != "Omar" {
		t.Fatalf("unexpected registration %+v", got)
	}
}

func TestSessionService_RegistrationIsRateLimited(t *testing.T) {
	api := newFakeAPI()
	limits := map[string]domain.RateLimit{domain.ActionRegister: {MaxAttempts: 2, Window: time.Minute}}
	svc := NewSessionService(api, NewRateLimiter(), limits, logger.NewNop())
	ctx := context.Background()

	api.registerResp = &domain.RegisterUserResponse{Success: false, Error: "telegram down"}
	for i := 0; i < 2; i++ {
		if _, err := svc.Initialize(ctx, SessionRequest{TelegramID: 9}); err == nil {
			t.Fatalf("expected registration failure")
		}
	}

	_, err := svc.Initialize(ctx, SessionRequest{TelegramID: 9})
	var limited *domain.RateLimitError
	if !errors.As(err, &limited) || limited.Action != domain.ActionRegister {
		t.Fatalf("expected register rate limit, got %v", err)
	}
	if len(api.registered) != 2 {
		t.Fatalf("expected 2 registration calls, got %d", len(api.registered))
	}
}
