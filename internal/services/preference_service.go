package services

import (
	"context"
	"fmt"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
)

type ProfileView struct {
	User    *domain.User        `json:"user"`
	History []domain.Bid        `json:"bidding_history"`
	Draft   domain.ProfileDraft `json:"draft"`
}

type LimitStatus struct {
	Action      string     `json:"action"`
	MaxAttempts int        `json:"max_attempts"`
	Remaining   int        `json:"remaining"`
	ResetAt     *time.Time `json:"reset_at,omitempty"`
}

// PreferenceService keeps each user's favorites, filter and profile draft.
type PreferenceService struct {
	store   domain.PreferenceStore
	lots    *LotService
	api     domain.AuctionAPI
	limiter domain.AttemptLimiter
	limits  map[string]domain.RateLimit
	log     logger.Logger
}

func NewPreferenceService(
	store domain.PreferenceStore,
	lots *LotService,
	api domain.AuctionAPI,
	limiter domain.AttemptLimiter,
	limits map[string]domain.RateLimit,
	log logger.Logger,
) *PreferenceService {
	return &PreferenceService{
		store:   store,
		lots:    lots,
		api:     api,
		limiter: limiter,
		limits:  limits,
		log:     log,
	}
}

func (s *PreferenceService) Preferences(ctx context.Context, telegramID int64) (*domain.Preferences, error) {
	if telegramID == 0 {
		return nil, domain.ErrMissingIdentity
	}
	return s.store.GetPreferences(ctx, telegramID)
}

func (s *PreferenceService) AddFavorite(ctx context.Context, telegramID int64, lotID int) error {
	if telegramID == 0 {
		return domain.ErrMissingIdentity
	}
	s.log.Info("Adding favorite", "telegram_id", telegramID, "lot_id", lotID)
	return s.store.AddFavorite(ctx, telegramID, lotID)
}

func (s *PreferenceService) RemoveFavorite(ctx context.Context, telegramID int64, lotID int) error {
	if telegramID == 0 {
		return domain.ErrMissingIdentity
	}
	s.log.Info("Removing favorite", "telegram_id", telegramID, "lot_id", lotID)
	return s.store.RemoveFavorite(ctx, telegramID, lotID)
}

// ToggleFavorite flips membership and reports whether the lot is now a favorite.
func (s *PreferenceService) ToggleFavorite(ctx context.Context, telegramID int64, lotID int) (bool, error) {
	prefs, err := s.Preferences(ctx, telegramID)
	if err != nil {
		return false, err
	}
	for _, id := range prefs.Favorites {
		if id == lotID {
			return false, s.RemoveFavorite(ctx, telegramID, lotID)
		}
	}
	return true, s.AddFavorite(ctx, telegramID, lotID)
}

func (s *PreferenceService) FavoriteLots(ctx context.Context, telegramID int64) ([]domain.Lot, error) {
	prefs, err := s.Preferences(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.lots.FavoriteLots(ctx, prefs.Favorites)
}

// SetFilter merges the non-empty fields of filter into the stored one.
func (s *PreferenceService) SetFilter(ctx context.Context, telegramID int64, filter domain.FilterState) (*domain.FilterState, error) {
	prefs, err := s.Preferences(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	merged := prefs.Filter
	if filter.Brand != "" {
		merged.Brand = SanitizeText(filter.Brand)
	}
	if filter.PriceRange != "" {
		merged.PriceRange = filter.PriceRange
	}
	if filter.SearchTerm != "" {
		merged.SearchTerm = SanitizeText(filter.SearchTerm)
	}
	if err := s.store.SetFilter(ctx, telegramID, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *PreferenceService) ResetFilter(ctx context.Context, telegramID int64) error {
	if telegramID == 0 {
		return domain.ErrMissingIdentity
	}
	return s.store.SetFilter(ctx, telegramID, domain.FilterState{})
}

// Profile combines the remote user record and bidding history with the local
// draft. A draft that was never saved is prefilled from the user record.
func (s *PreferenceService) Profile(ctx context.Context, telegramID int64) (*ProfileView, error) {
	prefs, err := s.Preferences(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	user, err := s.api.GetUserStatus(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	history, err := s.api.GetUserBids(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	draft := prefs.Profile
	if draft == (domain.ProfileDraft{}) {
		draft = domain.ProfileDraft{DisplayName: user.FirstName, Phone: user.Phone, Email: user.Email}
	}
	return &ProfileView{User: user, History: history, Draft: draft}, nil
}

// SaveProfile charges the save_profile quota, then validates and stores the
// sanitized draft. Empty email and phone are allowed.
func (s *PreferenceService) SaveProfile(ctx context.Context, telegramID int64, draft domain.ProfileDraft) (*domain.ProfileDraft, error) {
	if telegramID == 0 {
		return nil, domain.ErrMissingIdentity
	}
	if err := s.limiter.Check(ctx, domain.ActionSaveProfile, identityOf(telegramID), s.limitFor(domain.ActionSaveProfile)); err != nil {
		return nil, err
	}

	if draft.Email != "" && !IsValidEmail(draft.Email) {
		return nil, domain.ErrInvalidEmail
	}
	if draft.Phone != "" && !IsValidPhone(draft.Phone) {
		return nil, domain.ErrInvalidPhone
	}

	clean := domain.ProfileDraft{
		DisplayName: SanitizeText(draft.DisplayName),
		Phone:       SanitizeText(draft.Phone),
		Email:       SanitizeText(draft.Email),
		Location:    SanitizeText(draft.Location),
	}
	if err := s.store.SaveProfileDraft(ctx, telegramID, clean); err != nil {
		return nil, err
	}
	s.log.Info("Profile saved", "telegram_id", telegramID)
	return &clean, nil
}

func (s *PreferenceService) LimitStatus(ctx context.Context, action string, telegramID int64) (*LimitStatus, error) {
	limit, ok := s.limits[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}

	identity := identityOf(telegramID)
	remaining, err := s.limiter.Remaining(ctx, action, identity, limit.MaxAttempts)
	if err != nil {
		return nil, err
	}
	status := &LimitStatus{Action: action, MaxAttempts: limit.MaxAttempts, Remaining: remaining}

	resetAt, live, err := s.limiter.ResetTime(ctx, action, identity)
	if err != nil {
		return nil, err
	}
	if live {
		status.ResetAt = &resetAt
	}
	return status, nil
}

func (s *PreferenceService) limitFor(action string) domain.RateLimit {
	if limit, ok := s.limits[action]; ok {
		return limit
	}
	return domain.DefaultRateLimits[action]
}
