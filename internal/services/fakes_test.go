package services

import (
	"context"
	"sync"

	"auction-bidgate/internal/domain"
)

type fakeAPI struct {
	mu           sync.Mutex
	users        map[int64]*domain.User
	lots         map[int]*domain.Lot
	brands       []domain.Brand
	bids         map[int64][]domain.Bid
	placeErr     error
	placeResp    *domain.PlaceBidResponse
	registerResp *domain.RegisterUserResponse
	placed       []domain.PlaceBidRequest
	registered   []domain.RegisterUserRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users: map[int64]*domain.User{},
		lots:  map[int]*domain.Lot{},
		bids:  map[int64][]domain.Bid{},
	}
}

func (f *fakeAPI) GetUserStatus(_ context.Context, telegramID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[telegramID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeAPI) RegisterUser(_ context.Context, req *domain.RegisterUserRequest) (*domain.RegisterUserResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, *req)
	if f.registerResp != nil {
		return f.registerResp, nil
	}
	user := domain.User{TelegramID: req.TelegramID, FirstName: req.FirstName, Status: domain.UserPending}
	resp := &domain.RegisterUserResponse{Success: true}
	resp.Data = &struct {
		User domain.User `json:"user"`
	}{User: user}
	return resp, nil
}

func (f *fakeAPI) GetActiveLots(context.Context) ([]domain.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lots := make([]domain.Lot, 0, len(f.lots))
	for _, lot := range f.lots {
		lots = append(lots, *lot)
	}
	return lots, nil
}

func (f *fakeAPI) GetLotDetails(_ context.Context, lotID int, _ bool) (*domain.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot, ok := f.lots[lotID]
	if !ok {
		return nil, domain.ErrLotNotFound
	}
	copied := *lot
	return &copied, nil
}

func (f *fakeAPI) GetBrands(context.Context) (*domain.BrandList, error) {
	return &domain.BrandList{Brands: f.brands, Total: len(f.brands)}, nil
}

func (f *fakeAPI) PlaceBid(_ context.Context, req *domain.PlaceBidRequest) (*domain.PlaceBidResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, *req)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	if f.placeResp != nil {
		return f.placeResp, nil
	}
	return &domain.PlaceBidResponse{Success: true, BidID: len(f.placed), CurrentBid: req.Amount}, nil
}

func (f *fakeAPI) GetUserBids(_ context.Context, telegramID int64) ([]domain.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bids[telegramID], nil
}

func (f *fakeAPI) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

type fakeLotCache struct {
	mu       sync.Mutex
	snapshot *domain.LotSnapshot
}

func (c *fakeLotCache) GetSnapshot(context.Context) (*domain.LotSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, nil
}

func (c *fakeLotCache) SaveSnapshot(_ context.Context, snapshot *domain.LotSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	return nil
}

func (c *fakeLotCache) UpdateCurrentBid(_ context.Context, lotID int, currentBid float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil
	}
	for i := range c.snapshot.Lots {
		if c.snapshot.Lots[i].ID == lotID && currentBid > c.snapshot.Lots[i].CurrentBid {
			c.snapshot.Lots[i].CurrentBid = currentBid
		}
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.BidAttemptEvent
}

func (p *fakePublisher) PublishBidAttempt(_ context.Context, event *domain.BidAttemptEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) last() *domain.BidAttemptEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type fakePreferenceStore struct {
	mu    sync.Mutex
	prefs map[int64]*domain.Preferences
}

func newFakePreferenceStore() *fakePreferenceStore {
	return &fakePreferenceStore{prefs: map[int64]*domain.Preferences{}}
}

func (s *fakePreferenceStore) get(telegramID int64) *domain.Preferences {
	p, ok := s.prefs[telegramID]
	if !ok {
		p = &domain.Preferences{Favorites: []int{}}
		s.prefs[telegramID] = p
	}
	return p
}

func (s *fakePreferenceStore) GetPreferences(_ context.Context, telegramID int64) (*domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *s.get(telegramID)
	p.Favorites = append([]int{}, p.Favorites...)
	return &p, nil
}

func (s *fakePreferenceStore) AddFavorite(_ context.Context, telegramID int64, lotID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(telegramID)
	for _, id := range p.Favorites {
		if id == lotID {
			return nil
		}
	}
	p.Favorites = append(p.Favorites, lotID)
	return nil
}

func (s *fakePreferenceStore) RemoveFavorite(_ context.Context, telegramID int64, lotID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(telegramID)
	kept := p.Favorites[:0]
	for _, id := range p.Favorites {
		if id != lotID {
			kept = append(kept, id)
		}
	}
	p.Favorites = kept
	return nil
}

func (s *fakePreferenceStore) SetFilter(_ context.Context, telegramID int64, filter domain.FilterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(telegramID).Filter = filter
	return nil
}

func (s *fakePreferenceStore) SaveProfileDraft(_ context.Context, telegramID int64, draft domain.ProfileDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(telegramID).Profile = draft
	return nil
}
