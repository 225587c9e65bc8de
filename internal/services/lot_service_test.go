package services

import (
	"context"
	"testing"

	"auction-bidgate/internal/domain"
	"auction-bidgate/pkg/logger"
)

var sampleLots = []domain.Lot{
	{ID: 1, Title: "Toyota Land Cruiser", Brand: "Toyota", Year: "2019", CurrentBid: 48000},
	{ID: 2, Title: "Nissan Patrol", Brand: "Nissan", Year: "2021", CurrentBid: 50000},
	{ID: 3, Title: "Nissan Sunny", Brand: "nissan", Year: "2015", CurrentBid: 9500},
	{ID: 4, Title: "Lexus LX", Brand: "Lexus", Year: "2022", CurrentBid: 120000},
}

func lotIDs(lots []domain.Lot) []int {
	ids := make([]int, 0, len(lots))
	for _, lot := range lots {
		ids = append(ids, lot.ID)
	}
	return ids
}

func sameIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterLots(t *testing.T) {
	cases := []struct {
		name   string
		filter domain.FilterState
		want   []int
	}{
		{"empty", domain.FilterState{}, []int{1, 2, 3, 4}},
		{"search title", domain.FilterState{SearchTerm: "patrol"}, []int{2}},
		{"search brand", domain.FilterState{SearchTerm: "NISSAN"}, []int{2, 3}},
		{"search year", domain.FilterState{SearchTerm: "2022"}, []int{4}},
		{"brand exact", domain.FilterState{Brand: "Nissan"}, []int{2, 3}},
		{"brand no prefix match", domain.FilterState{Brand: "Nis"}, []int{}},
		{"range inclusive", domain.FilterState{PriceRange: "30000-50000"}, []int{1, 2}},
		{"open ended is exclusive", domain.FilterState{PriceRange: "50000+"}, []int{4}},
		{"malformed range ignored", domain.FilterState{PriceRange: "cheap"}, []int{1, 2, 3, 4}},
		{"combined", domain.FilterState{Brand: "nissan", PriceRange: "0-10000"}, []int{3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lotIDs(FilterLots(sampleLots, tc.filter)); !sameIDs(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLotService_SnapshotRefreshesWhenEmpty(t *testing.T) {
	api := newFakeAPI()
	api.lots[1] = &domain.Lot{ID: 1, CurrentBid: 100}
	api.brands = []domain.Brand{{ID: 1, Name: "Toyota"}}
	cache := &fakeLotCache{}
	svc := NewLotService(api, cache, DefaultIncrementSchedule(), logger.NewNop())

	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Lots) != 1 || len(snapshot.Brands) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if cache.snapshot == nil || cache.snapshot.RefreshedAt.IsZero() {
		t.Fatalf("expected snapshot saved with refresh time")
	}
}

func TestLotService_FavoriteLots(t *testing.T) {
	cache := &fakeLotCache{snapshot: &domain.LotSnapshot{Lots: sampleLots}}
	svc := NewLotService(newFakeAPI(), cache, DefaultIncrementSchedule(), logger.NewNop())

	lots, err := svc.FavoriteLots(context.Background(), []int{4, 2, 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lotIDs(lots); !sameIDs(got, []int{2, 4}) {
		t.Fatalf("got %v", got)
	}
}

func TestLotService_Details(t *testing.T) {
	api := newFakeAPI()
	api.lots[5] = &domain.Lot{ID: 5, CurrentBid: 4800}
	api.lots[6] = &domain.Lot{ID: 6, CurrentBid: 4800, MinBid: 7000}
	svc := NewLotService(api, &fakeLotCache{}, DefaultIncrementSchedule(), logger.NewNop())

	details, err := svc.Details(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.MinBid != 4900 || details.Increment != 100 {
		t.Fatalf("unexpected details %+v", details)
	}
	if want := []float64{4900, 5000, 5100}; len(details.QuickBids) != 3 || details.QuickBids[2] != want[2] {
		t.Fatalf("unexpected quick bids %v", details.QuickBids)
	}

	details, _ = svc.Details(context.Background(), 6)
	if details.MinBid != 7000 {
		t.Fatalf("expected explicit minimum, got %v", details.MinBid)
	}
}
