package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/pdftoolkit/config"
	"github.com/cppla/pdftoolkit/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
	mu      sync.Mutex
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
)

// limiterIdleTTL keeps a client's bucket for as long as it takes to refill completely.
const limiterIdleTTL = time.Hour

// RateLimitMiddleware applies an IP based token bucket allowing RateLimitPerHour requests per hour.
func RateLimitMiddleware() gin.HandlerFunc {
	return RateLimitPerHour(config.Get().RateLimitPerHour)
}

// RateLimitPerHour builds the limiter for an explicit budget.
func RateLimitPerHour(perHour int) gin.HandlerFunc {
	perHour = max(perHour, 1)
	r := rate.Every(time.Hour / time.Duration(perHour))
	burst := perHour

	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		limiter := getLimiter(ip, r, burst)

		limiter.mu.Lock()
		allowed := limiter.limiter.Allow()
		limiter.mu.Unlock()

		if !allowed {
			utils.Fail(ctx, http.StatusTooManyRequests,
				utils.NewToolkitError(utils.CodeRateLimited, "Rate limit exceeded. Please try again later"))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func getLimiter(key string, limit rate.Limit, burst int) *rateLimiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	cleanupExpiredLimitersLocked()

	if limiter, ok := limiters[key]; ok {
		limiter.expires = time.Now().Add(limiterIdleTTL)
		return limiter
	}

	limiter := &rateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		expires: time.Now().Add(limiterIdleTTL),
	}
	limiters[key] = limiter
	return limiter
}

func cleanupExpiredLimitersLocked() {
	now := time.Now()
	for key, limiter := range limiters {
		if now.After(limiter.expires) {
			delete(limiters, key)
		}
	}
}
