package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
)

// RateLimiter provides per-key token buckets.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	limit  rate.Limit
	burst  int
}

// NewRateLimiter creates a rate limiter allowing perSecond requests per key
// with the given burst. A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  limit,
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// LearnerKey keys requests by the :userId path parameter, falling back to the
// client IP for routes without one.
func LearnerKey(c echo.Context) string {
	if userID := c.Param("userId"); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.RealIP()
}

// Middleware rejects requests over the limit with 429 RATE_LIMIT_EXCEEDED.
// Health checks are never limited.
func (rl *RateLimiter) Middleware(keyFunc func(echo.Context) string) echo.MiddlewareFunc {
	if keyFunc == nil {
		keyFunc = LearnerKey
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Path(), "/healthz") {
				return next(c)
			}
			if !rl.Allow(keyFunc(c)) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"code":    string(engineerrors.ErrCodeRateLimitExceeded),
					"message": "too many requests, slow down",
				})
			}
			return next(c)
		}
	}
}
