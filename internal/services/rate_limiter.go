package services

import (
	"context"
	"math"
	"sync"
	"time"

	"auction-bidgate/internal/domain"
)

// DefaultAnonymousIdentity is the bucket charged when a caller has no identity.
const DefaultAnonymousIdentity = "anonymous"

type windowKey struct {
	action   string
	identity string
}

type rateWindow struct {
	mu       sync.Mutex
	count    int
	resetAt  time.Time
	lastSeen time.Time
	// dead is set under mu once the window has left the map.
	dead bool
}

// RateLimiter is a per-process fixed window counter keyed by (action, identity).
// Windows are created on first use and re-armed each time they expire.
type RateLimiter struct {
	now       func() time.Time
	anonymous string
	idleTTL   time.Duration
	windows   sync.Map // windowKey -> *rateWindow
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) { l.now = now }
}

// WithAnonymousIdentity sets the bucket shared by every caller without an identity.
func WithAnonymousIdentity(identity string) RateLimiterOption {
	return func(l *RateLimiter) {
		if identity != "" {
			l.anonymous = identity
		}
	}
}

// WithIdleTTL enables eviction of expired windows untouched for d. Zero keeps
// every window for the life of the process.
func WithIdleTTL(d time.Duration) RateLimiterOption {
	return func(l *RateLimiter) { l.idleTTL = d }
}

// NewRateLimiter returns an empty limiter; windows are created on first Check.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		now:       time.Now,
		anonymous: DefaultAnonymousIdentity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RateLimiter) key(action, identity string) windowKey {
	if identity == "" {
		identity = l.anonymous
	}
	return windowKey{action: action, identity: identity}
}

func (l *RateLimiter) lookup(action, identity string) (*rateWindow, bool) {
	v, ok := l.windows.Load(l.key(action, identity))
	if !ok {
		return nil, false
	}
	return v.(*rateWindow), true
}

// Check counts one attempt or fails with *domain.RateLimitError once the quota
// for the current window is used. A failed attempt does not consume quota.
func (l *RateLimiter) Check(_ context.Context, action, identity string, limit domain.RateLimit) error {
	now := l.now()
	key := l.key(action, identity)

	for {
		v, _ := l.windows.LoadOrStore(key, &rateWindow{
			resetAt: now.Add(limit.Window),
		})
		w := v.(*rateWindow)

		w.mu.Lock()
		if w.dead {
			// evicted between load and lock; the map holds a newer window
			w.mu.Unlock()
			continue
		}
		err := w.admit(now, action, limit)
		w.mu.Unlock()
		return err
	}
}

// admit must be called with w.mu held.
func (w *rateWindow) admit(now time.Time, action string, limit domain.RateLimit) error {
	w.lastSeen = now
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(limit.Window)
	}

	if w.count >= limit.MaxAttempts {
		wait := w.resetAt.Sub(now)
		return &domain.RateLimitError{
			Action:            action,
			RetryAfterSeconds: int(math.Ceil(wait.Seconds())),
		}
	}

	w.count++
	return nil
}

// retire removes k only while it still maps to w, so a window re-created by a
// concurrent Check survives.
func (l *RateLimiter) retire(k any, w *rateWindow) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dead {
		return false
	}
	w.dead = true
	return l.windows.CompareAndDelete(k, w)
}

// Remaining is the quota left in the current window, or a fresh window's quota.
func (l *RateLimiter) Remaining(_ context.Context, action, identity string, maxAttempts int) (int, error) {
	w, ok := l.lookup(action, identity)
	if !ok {
		return maxAttempts, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if l.now().After(w.resetAt) {
		return maxAttempts, nil
	}
	if left := maxAttempts - w.count; left > 0 {
		return left, nil
	}
	return 0, nil
}

// ResetTime reports when the current window expires. ok is false when there is
// no live window.
func (l *RateLimiter) ResetTime(_ context.Context, action, identity string) (time.Time, bool, error) {
	w, ok := l.lookup(action, identity)
	if !ok {
		return time.Time{}, false, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if l.now().After(w.resetAt) {
		return time.Time{}, false, nil
	}
	return w.resetAt, true, nil
}

// Reset forgets the window for one identity; the next Check starts fresh.
func (l *RateLimiter) Reset(_ context.Context, action, identity string) error {
	key := l.key(action, identity)
	if v, ok := l.windows.Load(key); ok {
		l.retire(key, v.(*rateWindow))
	}
	return nil
}

// ResetAction forgets the action's window for every identity.
func (l *RateLimiter) ResetAction(action string) {
	l.windows.Range(func(k, v any) bool {
		if k.(windowKey).action == action {
			l.retire(k, v.(*rateWindow))
		}
		return true
	})
}

// ResetAll forgets every window.
func (l *RateLimiter) ResetAll() {
	l.windows.Range(func(k, v any) bool {
		l.retire(k, v.(*rateWindow))
		return true
	})
}

// Cleanup evicts expired windows idle for longer than the idle TTL and returns
// how many were removed.
func (l *RateLimiter) Cleanup() int {
	if l.idleTTL <= 0 {
		return 0
	}

	now := l.now()
	evicted := 0
	l.windows.Range(func(k, v any) bool {
		w := v.(*rateWindow)
		w.mu.Lock()
		stale := !w.dead && now.After(w.resetAt) && now.Sub(w.lastSeen) > l.idleTTL
		if stale {
			w.dead = true
			stale = l.windows.CompareAndDelete(k, w)
		}
		w.mu.Unlock()
		if stale {
			evicted++
		}
		return true
	})
	return evicted
}

// Len is the number of tracked windows.
func (l *RateLimiter) Len() int {
	n := 0
	l.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
