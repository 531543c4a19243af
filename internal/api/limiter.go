package api

import (
	"sync"

	"golang.org/x/time/rate"

	"hotelbook/internal/config"
)

// tokenLimiter keeps one token bucket per admin token.
type tokenLimiter struct {
	limiters sync.Map
	rps      float64
	burst    int
}

func newTokenLimiter(cfg config.RateLimitConfig) *tokenLimiter {
	burst := cfg.AdminBurst
	if burst <= 0 {
		burst = 5
	}
	return &tokenLimiter{rps: cfg.AdminRPS, burst: burst}
}

// Allow reports whether key may proceed; a non-positive rate disables limiting.
func (l *tokenLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *tokenLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	actual, _ := l.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}
