package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"reviewshop/pkg/errors"
	"reviewshop/pkg/logger"
	"reviewshop/pkg/response"
)

// RateLimiter throttles the review write endpoints. Buckets are keyed
// by resolved identity when there is one, otherwise by client IP, so an
// authenticated caller probing the like race cannot widen their budget
// by rotating addresses.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) RateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if identity := IdentityFrom(c); !identity.Anonymous() {
				key = identity.Email
			}

			if !rl.allow(key) {
				logger.Warn("Rate limit exceeded for %s on %s", key, c.Path())
				return response.Error(c, errors.TooManyRequests("Too many review requests"))
			}

			return next(c)
		}
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	v, exists := rl.visitors[key]
	if !exists {
		rl.visitors[key] = &visitor{tokens: rl.rate - 1, lastSeen: now}
		return true
	}

	refill := int(now.Sub(v.lastSeen) / rl.window * time.Duration(rl.rate))
	if refill > 0 {
		v.tokens += refill
		if v.tokens > rl.rate {
			v.tokens = rl.rate
		}
	}
	v.lastSeen = now

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(rl.window)

		rl.mu.Lock()
		cutoff := time.Now().Add(-3 * rl.window)
		for key, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}
