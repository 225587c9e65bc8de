package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"

	"github.com/shopspring/decimal"
)

// openEndedRange is the one price range without an upper bound.
const openEndedRange = "50000+"

type LotDetails struct {
	Lot       *domain.Lot `json:"lot"`
	MinBid    float64     `json:"min_bid"`
	Increment float64     `json:"increment"`
	QuickBids []float64   `json:"quick_bids"`
}

// LotService serves the active lot list out of the shared snapshot and keeps
// that snapshot fresh.
type LotService struct {
	api      domain.AuctionAPI
	cache    domain.LotCache
	schedule *IncrementSchedule
	now      func() time.Time
	log      logger.Logger
}

func NewLotService(api domain.AuctionAPI, cache domain.LotCache, schedule *IncrementSchedule, log logger.Logger) *LotService {
	return &LotService{
		api:      api,
		cache:    cache,
		schedule: schedule,
		now:      time.Now,
		log:      log,
	}
}

// Refresh pulls lots and brands from the remote service and stores them as the
// new snapshot.
func (s *LotService) Refresh(ctx context.Context) (*domain.LotSnapshot, error) {
	lots, err := s.api.GetActiveLots(ctx)
	if err != nil {
		return nil, err
	}
	brands, err := s.api.GetBrands(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.LotSnapshot{
		Lots:        lots,
		Brands:      brands.Brands,
		RefreshedAt: s.now(),
	}
	if err := s.cache.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	s.log.Info("Refreshed lot snapshot", "lots", len(lots), "brands", len(brands.Brands))
	return snapshot, nil
}

func (s *LotService) Snapshot(ctx context.Context) (*domain.LotSnapshot, error) {
	snapshot, err := s.cache.GetSnapshot(ctx)
	if err != nil {
		s.log.Warn("Lot cache unavailable, reading remote", "error", err)
	}
	if snapshot != nil {
		return snapshot, nil
	}
	return s.Refresh(ctx)
}

func (s *LotService) FilteredLots(ctx context.Context, filter domain.FilterState) ([]domain.Lot, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FilterLots(snapshot.Lots, filter), nil
}

// FavoriteLots returns the active lots among favorites, in snapshot order.
func (s *LotService) FavoriteLots(ctx context.Context, favorites []int) ([]domain.Lot, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int]struct{}, len(favorites))
	for _, id := range favorites {
		wanted[id] = struct{}{}
	}
	lots := make([]domain.Lot, 0, len(favorites))
	for _, lot := range snapshot.Lots {
		if _, ok := wanted[lot.ID]; ok {
			lots = append(lots, lot)
		}
	}
	return lots, nil
}

func (s *LotService) Brands(ctx context.Context) ([]domain.Brand, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Brands, nil
}

// Details reads the lot straight from the remote service, bids included, and
// annotates it with the amounts the bid form offers.
func (s *LotService) Details(ctx context.Context, lotID int) (*LotDetails, error) {
	lot, err := s.api.GetLotDetails(ctx, lotID, true)
	if err != nil {
		return nil, err
	}
	return &LotDetails{
		Lot:       lot,
		MinBid:    s.schedule.MinimumBid(lot).InexactFloat64(),
		Increment: s.schedule.IncrementFor(decimal.NewFromFloat(lot.CurrentBid)).InexactFloat64(),
		QuickBids: asFloats(s.schedule.QuickBids(lot)),
	}, nil
}

func asFloats(amounts []decimal.Decimal) []float64 {
	out := make([]float64, len(amounts))
	for i, a := range amounts {
		out[i] = a.InexactFloat64()
	}
	return out
}

// FilterLots applies search, brand and price range filters. Empty fields
// match everything; an unparsable price range is ignored.
func FilterLots(lots []domain.Lot, filter domain.FilterState) []domain.Lot {
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	minPrice, maxPrice, hasRange := parsePriceRange(filter.PriceRange)

	filtered := make([]domain.Lot, 0, len(lots))
	for _, lot := range lots {
		if term != "" &&
			!strings.Contains(strings.ToLower(lot.Title), term) &&
			!strings.Contains(strings.ToLower(lot.Brand), term) &&
			!strings.Contains(lot.Year, term) {
			continue
		}
		if filter.Brand != "" && !strings.EqualFold(lot.Brand, filter.Brand) {
			continue
		}
		if hasRange {
			if filter.PriceRange == openEndedRange {
				if !(lot.CurrentBid > minPrice) {
					continue
				}
			} else if lot.CurrentBid < minPrice || lot.CurrentBid > maxPrice {
				continue
			}
		}
		filtered = append(filtered, lot)
	}
	return filtered
}

func parsePriceRange(priceRange string) (float64, float64, bool) {
	if priceRange == "" {
		return 0, 0, false
	}
	if priceRange == openEndedRange {
		return 50000, 0, true
	}

	lo, hi, ok := strings.Cut(priceRange, "-")
	if !ok {
		return 0, 0, false
	}
	minPrice, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return 0, 0, false
	}
	maxPrice, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return 0, 0, false
	}
	return minPrice, maxPrice, true
}
