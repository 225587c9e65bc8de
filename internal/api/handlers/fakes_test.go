package handlers

import (
	"context"
	"sync"

	"auction-bidgate/internal/domain"
)

type stubAPI struct {
	mu       sync.Mutex
	users    map[int64]*domain.User
	lots     map[int]*domain.Lot
	placeErr error
	placed   int
}

func (s *stubAPI) GetUserStatus(_ context.Context, telegramID int64) (*domain.User, error) {
	if user, ok := s.users[telegramID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubAPI) RegisterUser(_ context.Context, req *domain.RegisterUserRequest) (*domain.RegisterUserResponse, error) {
	resp := &domain.RegisterUserResponse{Success: true}
	resp.Data = &struct {
		User domain.User `json:"user"`
	}{User: domain.User{TelegramID: req.TelegramID, Status: domain.UserPending}}
	return resp, nil
}

func (s *stubAPI) GetActiveLots(context.Context) ([]domain.Lot, error) {
	lots := make([]domain.Lot, 0, len(s.lots))
	for id := 1; id <= len(s.lots); id++ {
		if lot, ok := s.lots[id]; ok {
			lots = append(lots, *lot)
		}
	}
	return lots, nil
}

func (s *stubAPI) GetLotDetails(_ context.Context, lotID int, _ bool) (*domain.Lot, error) {
	lot, ok := s.lots[lotID]
	if !ok {
		return nil, domain.ErrLotNotFound
	}
	copied := *lot
	return &copied, nil
}

func (s *stubAPI) GetBrands(context.Context) (*domain.BrandList, error) {
	return &domain.BrandList{Brands: []domain.Brand{{ID: 1, Name: "Nissan"}}, Total: 1}, nil
}

func (s *stubAPI) PlaceBid(_ context.Context, req *domain.PlaceBidRequest) (*domain.PlaceBidResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	s.placed++
	return &domain.PlaceBidResponse{Success: true, BidID: s.placed, CurrentBid: req.Amount, Message: "ok"}, nil
}

func (s *stubAPI) GetUserBids(context.Context, int64) ([]domain.Bid, error) {
	return nil, nil
}

type memoryLotCache struct {
	mu       sync.Mutex
	snapshot *domain.LotSnapshot
}

func (c *memoryLotCache) GetSnapshot(context.Context) (*domain.LotSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, nil
}

func (c *memoryLotCache) SaveSnapshot(_ context.Context, snapshot *domain.LotSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	return nil
}

func (c *memoryLotCache) UpdateCurrentBid(context.Context, int, float64) error {
	return nil
}

type discardPublisher struct{}

func (discardPublisher) PublishBidAttempt(context.Context, *domain.BidAttemptEvent) error {
	return nil
}

type memoryPreferences struct {
	mu    sync.Mutex
	prefs map[int64]*domain.Preferences
}

func (m *memoryPreferences) get(id int64) *domain.Preferences {
	if m.prefs == nil {
		m.prefs = map[int64]*domain.Preferences{}
	}
	p, ok := m.prefs[id]
	if !ok {
		p = &domain.Preferences{Favorites: []int{}}
		m.prefs[id] = p
	}
	return p
}

func (m *memoryPreferences) GetPreferences(_ context.Context, id int64) (*domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *m.get(id)
	p.Favorites = append([]int{}, p.Favorites...)
	return &p, nil
}

func (m *memoryPreferences) AddFavorite(_ context.Context, id int64, lotID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(id)
	for _, fav := range p.Favorites {
		if fav == lotID {
			return nil
		}
	}
	p.Favorites = append(p.Favorites, lotID)
	return nil
}

func (m *memoryPreferences) RemoveFavorite(_ context.Context, id int64, lotID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.get(id)
	kept := []int{}
	for _, fav := range p.Favorites {
		if fav != lotID {
			kept = append(kept, fav)
		}
	}
	p.Favorites = kept
	return nil
}

func (m *memoryPreferences) SetFilter(_ context.Context, id int64, filter domain.FilterState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(id).Filter = filter
	return nil
}

func (m *memoryPreferences) SaveProfileDraft(_ context.Context, id int64, draft domain.ProfileDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(id).Profile = draft
	return nil
}
