package marketplace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/fliplens-comps/internal/metrics"
)

const budgetWindow = 24 * time.Hour

// RateLimiter paces outbound marketplace requests. A token bucket bounds
// the per-second rate and a rolling 24-hour budget caps daily volume. One
// limiter is shared by every transport so all cascade attempts draw from
// the same budget.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64
	nowFunc  func() time.Time

	mu      sync.Mutex
	used    int64
	resetAt time.Time
}

// Usage is a point-in-time view of the daily request budget.
type Usage struct {
	Used      int64
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a limiter allowing perSecond requests with the
// given burst, and at most maxDaily requests per rolling 24-hour window.
// A maxDaily of zero or less disables the daily budget.
func NewRateLimiter(
	perSecond float64,
	burst int,
	maxDaily int64,
	opts ...RateLimiterOption,
) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(budgetWindow)
	return r
}

// Wait blocks until a request may be sent or ctx ends. It returns
// ErrDailyLimitReached without waiting once the budget is spent. A nil
// limiter never blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	if err := r.reserve(); err != nil {
		metrics.UpstreamDailyLimitHits.Inc()
		return err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.release()
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	metrics.UpstreamRequestsTotal.Inc()
	metrics.UpstreamDailyUsage.Set(float64(r.Usage().Used))
	return nil
}

// Usage reports the current budget window.
func (r *RateLimiter) Usage() Usage {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollWindow()
	u := Usage{Used: r.used, Limit: r.maxDaily, ResetAt: r.resetAt}
	if r.maxDaily > 0 {
		u.Remaining = max(r.maxDaily-r.used, 0)
	}
	return u
}

func (r *RateLimiter) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollWindow()
	if r.maxDaily > 0 && r.used >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, r.used, r.maxDaily)
	}
	r.used++
	return nil
}

func (r *RateLimiter) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used > 0 {
		r.used--
	}
}

// rollWindow must be called with mu held.
func (r *RateLimiter) rollWindow() {
	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.used = 0
		r.resetAt = now.Add(budgetWindow)
	}
}
