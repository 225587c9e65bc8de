package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auction-bidgate/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testLimit = domain.RateLimit{MaxAttempts: 3, Window: time.Second}

func TestRateLimiter_AllowsWithinWindowThenBlocks(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, "place_bid", "42", testLimit); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
		clock.Advance(100 * time.Millisecond)
	}

	err := l.Check(ctx, "place_bid", "42", testLimit)
	var rle *domain.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfterSeconds <= 0 {
		t.Fatalf("expected positive retry after, got %d", rle.RetryAfterSeconds)
	}
}

func TestRateLimiter_RetryAfterRoundsUp(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now))
	ctx := context.Background()
	limit := domain.RateLimit{MaxAttempts: 1, Window: 60 * time.Second}

	if err := l.Check(ctx, "place_bid", "42", limit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(10*time.Second + 500*time.Millisecond)

	err := l.Check(ctx, "place_bid", "42", limit)
	if secs, ok := domain.RetryAfter(err); !ok || secs != 50 {
		t.Fatalf("expected retry after 50s, got %d (%v)", secs, err)
	}
}

func TestRateLimiter_FailedAttemptDoesNotConsumeQuota(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Check(ctx, "place_bid", "42", testLimit)
	}
	for i := 0; i < 5; i++ {
		if err := l.Check(ctx, "place_bid", "42", testLimit); err == nil {
			t.Fatalf("expected rejection")
		}
	}

	w, _ := l.lookup("place_bid", "42")
	if w.count != 3 {
		t.Fatalf("expected count to stay at 3, got %d", w.count)
	}
}

func TestRateLimiter_WindowExpiryRestartsCount(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.Check(ctx, "place_bid", "42", testLimit)
	}

	// resetAt itself is still inside the window
	clock.Advance(time.Second)
	if err := l.Check(ctx, "place_bid", "42", testLimit); err == nil {
		t.Fatalf("expected rejection at the reset instant")
	}

	clock.Advance(time.Millisecond)
	if err := l.Check(ctx, "place_bid", "42", testLimit); err != nil {
		t.Fatalf("expected success after expiry, got %v", err)
	}
	if left, _ := l.Remaining(ctx, "place_bid", "42", 3); left != 2 {
		t.Fatalf("expected count restarted at 1 (2 left), got %d left", left)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(WithClock(newFakeClock().Now))
	ctx := context.Background()
	limit := domain.RateLimit{MaxAttempts: 1, Window: time.Minute}

	if err := l.Check(ctx, "place_bid", "1", limit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Check(ctx, "place_bid", "2", limit); err != nil {
		t.Fatalf("other identity should not share quota: %v", err)
	}
	if err := l.Check(ctx, "save_profile", "1", limit); err != nil {
		t.Fatalf("other action should not share quota: %v", err)
	}
}

func TestRateLimiter_AnonymousCallersShareBucket(t *testing.T) {
	l := NewRateLimiter(WithClock(newFakeClock().Now), WithAnonymousIdentity("guest"))
	ctx := context.Background()
	limit := domain.RateLimit{MaxAttempts: 1, Window: time.Minute}

	if err := l.Check(ctx, "place_bid", "", limit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Check(ctx, "place_bid", "guest", limit); err == nil {
		t.Fatalf("expected empty identity to share the guest bucket")
	}
}

func TestRateLimiter_RemainingAndResetTime(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now))
	ctx := context.Background()

	if left, _ := l.Remaining(ctx, "place_bid", "42", 3); left != 3 {
		t.Fatalf("expected full quota for untouched key, got %d", left)
	}
	if _, ok, _ := l.ResetTime(ctx, "place_bid", "42"); ok {
		t.Fatalf("expected no reset time for untouched key")
	}

	start := clock.Now()
	_ = l.Check(ctx, "place_bid", "42", testLimit)
	if left, _ := l.Remaining(ctx, "place_bid", "42", 3); left != 2 {
		t.Fatalf("expected 2 left, got %d", left)
	}
	resetAt, ok, _ := l.ResetTime(ctx, "place_bid", "42")
	if !ok || !resetAt.Equal(start.Add(time.Second)) {
		t.Fatalf("unexpected reset time %v (ok=%v)", resetAt, ok)
	}

	clock.Advance(2 * time.Second)
	if left, _ := l.Remaining(ctx, "place_bid", "42", 3); left != 3 {
		t.Fatalf("expected full quota after expiry, got %d", left)
	}
	if _, ok, _ := l.ResetTime(ctx, "place_bid", "42"); ok {
		t.Fatalf("expected no reset time after expiry")
	}
}

func TestRateLimiter_ResetAndResetAll(t *testing.T) {
	l := NewRateLimiter(WithClock(newFakeClock().Now))
	ctx := context.Background()
	limit := domain.RateLimit{MaxAttempts: 1, Window: time.Minute}

	_ = l.Check(ctx, "place_bid", "1", limit)
	_ = l.Check(ctx, "place_bid", "2", limit)
	_ = l.Check(ctx, "save_profile", "1", limit)

	if err := l.Reset(ctx, "place_bid", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Check(ctx, "place_bid", "1", limit); err != nil {
		t.Fatalf("expected fresh window after Reset, got %v", err)
	}

	l.ResetAction("place_bid")
	if l.Len() != 1 {
		t.Fatalf("expected only save_profile window left, got %d", l.Len())
	}

	l.ResetAll()
	if l.Len() != 0 {
		t.Fatalf("expected no windows after ResetAll, got %d", l.Len())
	}
	if err := l.Check(ctx, "save_profile", "1", limit); err != nil {
		t.Fatalf("expected fresh window after ResetAll, got %v", err)
	}
}

func TestRateLimiter_CleanupEvictsIdleExpiredWindows(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now), WithIdleTTL(time.Minute))
	ctx := context.Background()

	_ = l.Check(ctx, "place_bid", "old", testLimit)
	clock.Advance(2 * time.Minute)
	_ = l.Check(ctx, "place_bid", "fresh", testLimit)

	if n := l.Cleanup(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := l.lookup("place_bid", "fresh"); !ok {
		t.Fatalf("live window must survive cleanup")
	}
}

func TestRateLimiter_CleanupDisabledByDefault(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now))
	_ = l.Check(context.Background(), "place_bid", "old", testLimit)
	clock.Advance(time.Hour)

	if n := l.Cleanup(); n != 0 || l.Len() != 1 {
		t.Fatalf("expected no eviction without idle TTL")
	}
}

func TestRateLimiter_ConcurrentChecksDoNotOverAdmit(t *testing.T) {
	l := NewRateLimiter(WithClock(newFakeClock().Now))
	limit := domain.RateLimit{MaxAttempts: 25, Window: time.Minute}

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), "place_bid", "42", limit) == nil {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 25 {
		t.Fatalf("expected exactly 25 admissions, got %d", admitted)
	}
}

func TestRateLimiter_CleanupDuringChecksDoesNotOverAdmit(t *testing.T) {
	clock := newFakeClock()
	l := NewRateLimiter(WithClock(clock.Now), WithIdleTTL(time.Second))
	limit := domain.RateLimit{MaxAttempts: 5, Window: time.Second}
	ctx := context.Background()

	for round := 0; round < 200; round++ {
		// leave the previous window expired and idle so Cleanup may evict it
		_ = l.Check(ctx, "place_bid", "42", limit)
		clock.Advance(3 * time.Second)

		var admitted int64
		var wg sync.WaitGroup
		stop := make(chan struct{})
		swept := make(chan struct{})
		go func() {
			defer close(swept)
			for {
				select {
				case <-stop:
					return
				default:
					l.Cleanup()
				}
			}
		}()
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if l.Check(ctx, "place_bid", "42", limit) == nil {
					atomic.AddInt64(&admitted, 1)
				}
			}()
		}
		wg.Wait()
		close(stop)
		<-swept

		if admitted != int64(limit.MaxAttempts) {
			t.Fatalf("round %d: expected exactly %d admissions, got %d", round, limit.MaxAttempts, admitted)
		}
		clock.Advance(3 * time.Second)
	}
}

func TestRateLimiter_ResetRetiresWindow(t *testing.T) {
	l := NewRateLimiter(WithClock(newFakeClock().Now))
	ctx := context.Background()

	_ = l.Check(ctx, "place_bid", "42", testLimit)
	old, _ := l.lookup("place_bid", "42")
	_ = l.Reset(ctx, "place_bid", "42")

	if !old.dead {
		t.Fatalf("expected reset window marked dead")
	}
	if err := l.Check(ctx, "place_bid", "42", testLimit); err != nil {
		t.Fatalf("expected fresh window after reset, got %v", err)
	}
	if w, _ := l.lookup("place_bid", "42"); w == old || w.count != 1 {
		t.Fatalf("expected a new window with one attempt")
	}
}
