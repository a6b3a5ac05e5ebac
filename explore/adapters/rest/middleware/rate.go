package middleware

import (
	"context"
	"net/http"
	"time"
)

// RateLimiter is a token bucket refilled rps times per second with room
// for burst tokens. Requests wait for a token until their context ends.
type RateLimiter struct {
	tokens chan struct{}
}

// NewRateLimiter starts the refill loop, which runs until ctx is done.
func NewRateLimiter(ctx context.Context, rps, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		tokens: make(chan struct{}, burst),
	}
	for range burst {
		rl.tokens <- struct{}{}
	}

	interval := time.Second / time.Duration(rps)
	if interval <= 0 {
		interval = time.Nanosecond
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case rl.tokens <- struct{}{}:
				default:
				}
			}
		}
	}()

	return rl
}

func (l *RateLimiter) acquire(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-l.tokens:
		return true
	}
}

func (l *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.acquire(r.Context()) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
