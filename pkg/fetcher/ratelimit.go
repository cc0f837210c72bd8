package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrDailyLimitReached is returned by WaitForSlot once the calendar-day
// request cap is exhausted. It is terminal for the current invocation.
var ErrDailyLimitReached = errors.New("daily request limit reached")

const slidingWindow = 60 * time.Second

// RateLimiter admits requests at most requestsPerMinute times per sliding
// 60-second window and dailyLimit times per calendar day. It is safe for
// concurrent use; the sliding-window wait is the only suspension point.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	dailyLimit        int

	window   []time.Time
	dayCount int
	day      string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter builds a limiter with the given per-minute and per-day caps.
func NewRateLimiter(requestsPerMinute, dailyLimit int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		dailyLimit:        dailyLimit,
		now:               time.Now,
		sleep:             sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WaitForSlot blocks until a request may be issued. It fails fast with
// ErrDailyLimitReached when the daily cap is already spent, and records
// the admitted request before returning.
func (r *RateLimiter) WaitForSlot(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		now := r.now()
		r.rollover(now)

		if r.dailyLimit > 0 && r.dayCount >= r.dailyLimit {
			return ErrDailyLimitReached
		}

		r.prune(now)
		if r.requestsPerMinute <= 0 || len(r.window) < r.requestsPerMinute {
			r.window = append(r.window, now)
			r.dayCount++
			return nil
		}

		wait := r.window[0].Add(slidingWindow).Sub(now)
		if wait <= 0 {
			continue
		}
		// Release the lock while sleeping so concurrent callers are not
		// blocked on the mutex for the whole wait.
		r.mu.Unlock()
		err := r.sleep(ctx, wait)
		r.mu.Lock()
		if err != nil {
			return err
		}
	}
}

// DailyRemaining reports how many requests are left today.
func (r *RateLimiter) DailyRemaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover(r.now())
	if r.dailyLimit <= 0 {
		return -1
	}
	left := r.dailyLimit - r.dayCount
	if left < 0 {
		return 0
	}
	return left
}

// prune drops window entries older than the sliding window.
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-slidingWindow)
	idx := 0
	for idx < len(r.window) && !r.window[idx].After(cutoff) {
		idx++
	}
	r.window = r.window[idx:]
}

// rollover resets the daily counter when the calendar date changes.
func (r *RateLimiter) rollover(now time.Time) {
	day := now.Format("2006-01-02")
	if day != r.day {
		r.day = day
		r.dayCount = 0
	}
}
